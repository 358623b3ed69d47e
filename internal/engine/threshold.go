package engine

import (
	"fmt"

	"vitalwatch/internal/models"
)

// Fixed body-temperature limits. These are not patient-specific.
const (
	feverThreshold       = 38.5
	hypothermiaThreshold = 35.0
)

// EvaluateThresholds checks a sample against the patient's critical limits.
// The heart-rate, blood-pressure and temperature branches are each mutually
// exclusive (at most one alert per vital); the SpO2 check is independent.
func EvaluateThresholds(sample models.VitalSample, thresholds models.AlertThresholds) []models.Alert {
	var alerts []models.Alert

	if sample.HeartRate < thresholds.HeartRateCriticalLow {
		alerts = append(alerts, models.Alert{
			Category: models.AlertBradycardia,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("Heart rate critically low: %d bpm (limit %d)", sample.HeartRate, thresholds.HeartRateCriticalLow),
			Value:    float64(sample.HeartRate),
		})
	} else if sample.HeartRate > thresholds.HeartRateCriticalHigh {
		alerts = append(alerts, models.Alert{
			Category: models.AlertTachycardia,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("Heart rate critically high: %d bpm (limit %d)", sample.HeartRate, thresholds.HeartRateCriticalHigh),
			Value:    float64(sample.HeartRate),
		})
	}

	systolic := sample.BloodPressure.Systolic
	if systolic > thresholds.SystolicCriticalHigh {
		alerts = append(alerts, models.Alert{
			Category: models.AlertHypertensiveCrisis,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("Systolic pressure critically high: %d mmHg (limit %d)", systolic, thresholds.SystolicCriticalHigh),
			Value:    float64(systolic),
		})
	} else if systolic < thresholds.SystolicCriticalLow {
		alerts = append(alerts, models.Alert{
			Category: models.AlertHypotension,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("Systolic pressure critically low: %d mmHg (limit %d)", systolic, thresholds.SystolicCriticalLow),
			Value:    float64(systolic),
		})
	}

	if sample.SpO2 < thresholds.SpO2Critical {
		alerts = append(alerts, models.Alert{
			Category: models.AlertHypoxemia,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("SpO2 critically low: %.1f%% (limit %.1f%%)", sample.SpO2, thresholds.SpO2Critical),
			Value:    sample.SpO2,
		})
	}

	if sample.BodyTemperature > feverThreshold {
		alerts = append(alerts, models.Alert{
			Category: models.AlertFever,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("Body temperature elevated: %.1f C", sample.BodyTemperature),
			Value:    sample.BodyTemperature,
		})
	} else if sample.BodyTemperature < hypothermiaThreshold {
		alerts = append(alerts, models.Alert{
			Category: models.AlertHypothermia,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("Body temperature critically low: %.1f C", sample.BodyTemperature),
			Value:    sample.BodyTemperature,
		})
	}

	return alerts
}
