package engine

import (
	"fmt"

	"vitalwatch/internal/models"
)

// fallRiskThreshold is the fall-risk score above which a fall is reported.
const fallRiskThreshold = 80

// EvaluateFall reports a fall when the sample's derived fall-risk score
// exceeds the threshold. Returns at most one alert.
func EvaluateFall(sample models.VitalSample) []models.Alert {
	if sample.FallRiskScore <= fallRiskThreshold {
		return nil
	}
	return []models.Alert{{
		Category: models.AlertFallDetected,
		Severity: models.SeverityCritical,
		Message:  fmt.Sprintf("Possible fall detected for patient %s: risk score %.1f", sample.PatientID, sample.FallRiskScore),
		Value:    sample.FallRiskScore,
	}}
}
