package engine

import (
	"fmt"
	"math"

	"vitalwatch/internal/models"
)

const (
	// statMinWindow is the minimum history (about one hour at a 5-minute
	// cadence) before statistical checks produce alerts.
	statMinWindow = 12

	// zScoreThreshold flags heart rates this many deviations from the
	// window mean, in either direction.
	zScoreThreshold = 2.5

	// spo2TrendSpan is how many trailing entries the SpO2 trend inspects.
	spo2TrendSpan = 12

	// spo2DeclineDelta is the percentage-point drop across the trend span
	// that triggers an alert.
	spo2DeclineDelta = -5.0
)

// EvaluateStatistics runs the z-score and SpO2 trend checks against the
// window as it stood before the current sample was appended. An
// insufficient window is not an error; it simply yields no alerts.
func EvaluateStatistics(sample models.VitalSample, window []models.VitalSample) []models.Alert {
	if len(window) < statMinWindow {
		return nil
	}

	var alerts []models.Alert

	mean, stddev := heartRateStats(window)
	// Guard against a flat window: a zero deviation would divide by zero.
	z := (float64(sample.HeartRate) - mean) / math.Max(stddev, 1)
	if math.Abs(z) > zScoreThreshold {
		alerts = append(alerts, models.Alert{
			Category: models.AlertHRAnomaly,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("Heart rate %d bpm deviates from baseline %.1f bpm (z=%.2f)", sample.HeartRate, mean, z),
			Value:    z,
		})
	}

	span := spo2TrendSpan
	if len(window) < span {
		span = len(window)
	}
	recent := window[len(window)-span:]
	delta := recent[len(recent)-1].SpO2 - recent[0].SpO2
	if delta < spo2DeclineDelta {
		alerts = append(alerts, models.Alert{
			Category: models.AlertSpO2Declining,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("SpO2 declining: %.1f%% over the last %d readings", delta, span),
			Value:    delta,
		})
	}

	return alerts
}

// heartRateStats computes the population mean and standard deviation of
// heart rate over the full window.
func heartRateStats(window []models.VitalSample) (mean, stddev float64) {
	sum := 0.0
	for _, s := range window {
		sum += float64(s.HeartRate)
	}
	mean = sum / float64(len(window))

	sumSquares := 0.0
	for _, s := range window {
		diff := float64(s.HeartRate) - mean
		sumSquares += diff * diff
	}
	stddev = math.Sqrt(sumSquares / float64(len(window)))
	return mean, stddev
}
