package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBloodPressure(t *testing.T) {
	bp, err := ParseBloodPressure("120/80")
	require.NoError(t, err)
	assert.Equal(t, 120, bp.Systolic)
	assert.Equal(t, 80, bp.Diastolic)
	assert.Equal(t, "120/80", bp.String())
}

func TestParseBloodPressure_Invalid(t *testing.T) {
	for _, input := range []string{"", "120", "120/", "/80", "abc/80", "120/xyz"} {
		_, err := ParseBloodPressure(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestVitalSample_JSONWireFormat(t *testing.T) {
	payload := []byte(`{
		"patientId": "p1",
		"heartRate": 72,
		"bloodPressure": "118/76",
		"spo2": 97.5,
		"bodyTemperature": 36.8,
		"motionLevel": 0.3,
		"fallRiskScore": 12.5,
		"timestamp": "2026-03-05T08:00:00Z"
	}`)

	var sample VitalSample
	require.NoError(t, json.Unmarshal(payload, &sample))
	assert.Equal(t, "p1", sample.PatientID)
	assert.Equal(t, 118, sample.BloodPressure.Systolic)
	assert.Equal(t, 76, sample.BloodPressure.Diastolic)

	out, err := json.Marshal(sample)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"bloodPressure":"118/76"`)
}
