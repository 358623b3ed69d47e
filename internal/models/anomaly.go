package models

import "time"

// AnomalyRecord is a persisted anomaly (anomalies table). RecordedAt is the
// timestamp of the triggering sample; DetectionDate is when the record was
// written. Retrospective marks records created by batch replay.
type AnomalyRecord struct {
	AnomalyID     string    `json:"anomalyId" db:"anomaly_id"`
	PatientID     string    `json:"patientId" db:"patient_id"`
	Severity      Severity  `json:"severity" db:"severity"`
	Score         int       `json:"score" db:"score"`
	Alerts        []Alert   `json:"alerts" db:"alerts"`
	RecordedAt    time.Time `json:"recordedAt" db:"recorded_at"`
	Retrospective bool      `json:"retrospective" db:"retrospective"`
	DetectionDate time.Time `json:"detectionDate" db:"detection_date"`
}

// AlertLog is one persisted alert line (alert_logs table), one row per
// alert contained in an anomaly record.
type AlertLog struct {
	LogID      string        `json:"logId" db:"log_id"`
	AnomalyID  string        `json:"anomalyId" db:"anomaly_id"`
	PatientID  string        `json:"patientId" db:"patient_id"`
	Category   AlertCategory `json:"category" db:"category"`
	Severity   Severity      `json:"severity" db:"severity"`
	Message    string        `json:"message" db:"message"`
	Value      float64       `json:"value" db:"value"`
	RecordedAt time.Time     `json:"recordedAt" db:"recorded_at"`
}
