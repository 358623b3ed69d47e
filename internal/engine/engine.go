package engine

import (
	"time"

	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// Score weights. The overall score is capped at 100.
const (
	criticalWeight = 30
	warningWeight  = 10
	maxScore       = 100
)

// Engine is the anomaly-detection aggregator. It owns the per-patient
// rolling windows and anomaly history, runs the four evaluators in a fixed
// order against the pre-append window, and merges their findings into one
// DetectionResult. It never persists or broadcasts anything; that is the
// caller's job.
//
// Detect calls for the same patient are serialized internally; distinct
// patients proceed in parallel. Live monitoring and retrospective replay
// must each use their own Engine instance.
type Engine struct {
	store  *WindowStore
	logger *zap.Logger
	now    func() time.Time
}

// New creates an engine with empty state.
func New(logger *zap.Logger) *Engine {
	return &Engine{
		store:  NewWindowStore(),
		logger: logger,
		now:    time.Now,
	}
}

// Detect evaluates one sample for a patient and updates the patient's
// window state. Evaluators see the window as it stood before this sample;
// the sample is appended afterwards, and an anomaly-history entry is pushed
// when any alert fired.
func (e *Engine) Detect(patientID string, sample models.VitalSample, patient *models.Patient) models.DetectionResult {
	ps := e.store.get(patientID)
	ps.mu.Lock()
	defer ps.mu.Unlock()

	window := ps.window

	alerts := EvaluateThresholds(sample, patient.Thresholds)
	alerts = append(alerts, EvaluateFall(sample)...)
	alerts = append(alerts, EvaluateStatistics(sample, window)...)
	alerts = append(alerts, EvaluateBehavior(sample, window, e.now())...)

	result := models.DetectionResult{
		IsAnomaly: len(alerts) > 0,
		Severity:  overallSeverity(alerts),
		Alerts:    alerts,
		Score:     score(alerts),
	}

	ps.append(sample)
	if len(alerts) > 0 {
		ps.pushHistory(models.AnomalyHistoryEntry{
			Timestamp: sample.RecordedAt,
			Alerts:    alerts,
			Severity:  result.Severity,
		})
		e.logger.Debug("anomaly detected",
			zap.String("patient_id", patientID),
			zap.String("severity", string(result.Severity)),
			zap.Int("score", result.Score),
			zap.Int("alerts", len(alerts)),
		)
	}

	return result
}

// Seed appends a sample to the patient's window without evaluating it.
// Retrospective replay uses this to pre-load statistical context that must
// not itself be flagged.
func (e *Engine) Seed(patientID string, sample models.VitalSample) {
	e.store.Append(patientID, sample)
}

// Window returns a copy of the patient's current rolling window.
func (e *Engine) Window(patientID string) []models.VitalSample {
	return e.store.Snapshot(patientID)
}

// History returns a copy of the patient's anomaly-history ring buffer.
func (e *Engine) History(patientID string) []models.AnomalyHistoryEntry {
	return e.store.History(patientID)
}

// Reset clears all state for one patient.
func (e *Engine) Reset(patientID string) {
	e.store.Reset(patientID)
}

// overallSeverity is critical if any alert is critical, warning if any
// alert exists, normal otherwise.
func overallSeverity(alerts []models.Alert) models.Severity {
	severity := models.SeverityNormal
	for _, a := range alerts {
		if a.Severity == models.SeverityCritical {
			return models.SeverityCritical
		}
		severity = models.SeverityWarning
	}
	return severity
}

// score weights critical and warning alerts, capped at maxScore.
func score(alerts []models.Alert) int {
	total := 0
	for _, a := range alerts {
		switch a.Severity {
		case models.SeverityCritical:
			total += criticalWeight
		case models.SeverityWarning:
			total += warningWeight
		}
	}
	if total > maxScore {
		total = maxScore
	}
	return total
}
