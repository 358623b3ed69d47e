package models

import "time"

// Severity classifies a single alert or an overall detection result.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertCategory is the fixed tag identifying what fired.
type AlertCategory string

const (
	AlertBradycardia         AlertCategory = "bradycardia"
	AlertTachycardia         AlertCategory = "tachycardia"
	AlertHypertensiveCrisis  AlertCategory = "hypertensive_crisis"
	AlertHypotension         AlertCategory = "hypotension"
	AlertHypoxemia           AlertCategory = "hypoxemia"
	AlertFever               AlertCategory = "fever"
	AlertHypothermia         AlertCategory = "hypothermia"
	AlertFallDetected        AlertCategory = "fall_detected"
	AlertHRAnomaly           AlertCategory = "hr_anomaly"
	AlertSpO2Declining       AlertCategory = "spo2_declining"
	AlertSustainedInactivity AlertCategory = "sustained_inactivity"
	AlertNocturnalActivity   AlertCategory = "nocturnal_activity"
)

// Alert is one finding from an evaluator. Each category carries exactly one
// numeric payload and one rendered message. Immutable.
type Alert struct {
	Category AlertCategory `json:"category"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Value    float64       `json:"value"`
}

// DetectionResult is the merged outcome of one Detect call.
type DetectionResult struct {
	IsAnomaly bool     `json:"isAnomaly"`
	Severity  Severity `json:"severity"`
	Alerts    []Alert  `json:"alerts"`
	Score     int      `json:"score"`
}

// AnomalyHistoryEntry is one record in the per-patient history ring buffer.
// Purely observational; the detection logic never reads it back.
type AnomalyHistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Alerts    []Alert   `json:"alerts"`
	Severity  Severity  `json:"severity"`
}
