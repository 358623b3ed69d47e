package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BloodPressure is a paired systolic/diastolic reading. On the wire and in
// the database it is carried as a single "sys/dia" string (e.g. "120/80").
type BloodPressure struct {
	Systolic  int
	Diastolic int
}

// ParseBloodPressure parses a "sys/dia" string.
func ParseBloodPressure(s string) (BloodPressure, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return BloodPressure{}, fmt.Errorf("invalid blood pressure value: %q", s)
	}
	sys, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return BloodPressure{}, fmt.Errorf("invalid systolic value in %q: %w", s, err)
	}
	dia, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return BloodPressure{}, fmt.Errorf("invalid diastolic value in %q: %w", s, err)
	}
	return BloodPressure{Systolic: sys, Diastolic: dia}, nil
}

// String renders the paired value as "sys/dia".
func (bp BloodPressure) String() string {
	return fmt.Sprintf("%d/%d", bp.Systolic, bp.Diastolic)
}

// MarshalJSON encodes the pair as a "sys/dia" string.
func (bp BloodPressure) MarshalJSON() ([]byte, error) {
	return json.Marshal(bp.String())
}

// UnmarshalJSON decodes a "sys/dia" string.
func (bp *BloodPressure) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseBloodPressure(s)
	if err != nil {
		return err
	}
	*bp = parsed
	return nil
}

// VitalSample is one timestamped reading for a patient. Samples are
// immutable once constructed; each sample is consumed by exactly one
// Detect call.
type VitalSample struct {
	PatientID       string        `json:"patientId"`
	HeartRate       int           `json:"heartRate"`
	BloodPressure   BloodPressure `json:"bloodPressure"`
	SpO2            float64       `json:"spo2"`
	BodyTemperature float64       `json:"bodyTemperature"`
	MotionLevel     float64       `json:"motionLevel"`
	FallRiskScore   float64       `json:"fallRiskScore"`
	RecordedAt      time.Time     `json:"timestamp"`
}

// AlertThresholds holds the patient-specific critical limits used by the
// threshold evaluator. Stored as JSONB on the patients table.
type AlertThresholds struct {
	HeartRateCriticalLow  int     `json:"heartRateCriticalLow"`
	HeartRateCriticalHigh int     `json:"heartRateCriticalHigh"`
	SystolicCriticalHigh  int     `json:"systolicCriticalHigh"`
	SystolicCriticalLow   int     `json:"systolicCriticalLow"`
	SpO2Critical          float64 `json:"spo2Critical"`
}

// VitalBaselines are the patient's expected resting ranges. Informational
// only; the detection engine never reads them.
type VitalBaselines struct {
	HeartRateLow    int     `json:"heartRateLow"`
	HeartRateHigh   int     `json:"heartRateHigh"`
	SpO2Low         float64 `json:"spo2Low"`
	TemperatureLow  float64 `json:"temperatureLow"`
	TemperatureHigh float64 `json:"temperatureHigh"`
}

// Patient is a monitored subject. Read-only input to the engine; profiles
// are owned by the patients table.
type Patient struct {
	ID         string          `json:"patientId"`
	Name       string          `json:"name"`
	Active     bool            `json:"active"`
	Baselines  VitalBaselines  `json:"baselines"`
	Thresholds AlertThresholds `json:"thresholds"`
}
