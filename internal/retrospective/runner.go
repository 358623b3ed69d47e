package retrospective

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vitalwatch/internal/engine"
	"vitalwatch/internal/models"
)

// Preceding samples loaded ahead of the requested range as pure statistical
// context. They are appended to the window without being evaluated.
const contextPreloadLimit = 50

// SampleSource supplies stored vital samples for replay.
type SampleSource interface {
	SamplesInRange(ctx context.Context, patientID string, start, end *time.Time) ([]models.VitalSample, error)
	SamplesBefore(ctx context.Context, patientID string, before time.Time, limit int) ([]models.VitalSample, error)
}

// AnomalyStore persists anomalies and exposes the already-recorded set used
// for deduplication.
type AnomalyStore interface {
	AnomaliesInRange(ctx context.Context, patientID string, start, end *time.Time) ([]models.AnomalyRecord, error)
	CreateAnomaly(ctx context.Context, record *models.AnomalyRecord) error
}

// AlertLogStore persists the per-alert log rows of an anomaly.
type AlertLogStore interface {
	CreateAlertLogs(ctx context.Context, logs []models.AlertLog) error
}

// PatientDirectory resolves patient profiles.
type PatientDirectory interface {
	GetPatient(ctx context.Context, patientID string) (*models.Patient, error)
	ListActivePatients(ctx context.Context) ([]models.Patient, error)
}

// Options control one retrospective run. A nil Start or End leaves that
// side of the range open. The HTTP boundary defaults UpdateDatabase to
// true when the request omits it.
type Options struct {
	PatientID      string
	Start          *time.Time
	End            *time.Time
	UpdateDatabase bool
}

// PatientSummary is the per-patient breakdown of a run.
type PatientSummary struct {
	Name              string `json:"name"`
	RecordsProcessed  int    `json:"recordsProcessed"`
	NewAnomalies      int    `json:"newAnomalies"`
	CriticalAnomalies int    `json:"criticalAnomalies"`
	WarningAnomalies  int    `json:"warningAnomalies"`
}

// Summary is the JSON-serializable result of a run. Errors collects
// non-fatal per-patient and per-record failures; the run still returns a
// partial summary when some of them occur.
type Summary struct {
	Success              bool                      `json:"success"`
	RecordsProcessed     int                       `json:"recordsProcessed"`
	NewAnomaliesDetected int                       `json:"newAnomaliesDetected"`
	CriticalAnomalies    int                       `json:"criticalAnomalies"`
	WarningAnomalies     int                       `json:"warningAnomalies"`
	PatientsSummary      map[string]PatientSummary `json:"patientsSummary"`
	Errors               []string                  `json:"errors"`
}

// Runner replays stored historical samples through the live detection
// pipeline, deduplicating against anomalies already on record. Each run
// uses a fresh Engine, so replay never shares window state with live
// monitoring.
type Runner struct {
	samples   SampleSource
	anomalies AnomalyStore
	alertLogs AlertLogStore
	patients  PatientDirectory
	logger    *zap.Logger
	now       func() time.Time
}

// NewRunner wires a runner. All collaborators are required; a missing one
// is a configuration error surfaced at bootstrap.
func NewRunner(
	samples SampleSource,
	anomalies AnomalyStore,
	alertLogs AlertLogStore,
	patients PatientDirectory,
	logger *zap.Logger,
) (*Runner, error) {
	if samples == nil {
		return nil, fmt.Errorf("sample source is required")
	}
	if anomalies == nil {
		return nil, fmt.Errorf("anomaly store is required")
	}
	if alertLogs == nil {
		return nil, fmt.Errorf("alert log store is required")
	}
	if patients == nil {
		return nil, fmt.Errorf("patient directory is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Runner{
		samples:   samples,
		anomalies: anomalies,
		alertLogs: alertLogs,
		patients:  patients,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Run executes one retrospective pass. It returns an error only for
// invalid options, before any record is touched; processing failures are
// collected into the summary's Errors list instead.
//
// Running the same options twice with UpdateDatabase set yields
// NewAnomaliesDetected == 0 on the second pass.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Start != nil && opts.End != nil && opts.Start.After(*opts.End) {
		return nil, fmt.Errorf("start date %s is after end date %s",
			opts.Start.Format(time.RFC3339), opts.End.Format(time.RFC3339))
	}

	summary := &Summary{
		Success:         true,
		PatientsSummary: make(map[string]PatientSummary),
		Errors:          []string{},
	}

	patients, err := r.resolvePatients(ctx, opts, summary)
	if err != nil {
		return nil, err
	}

	eng := engine.New(r.logger)
	for _, patient := range patients {
		r.processPatient(ctx, eng, patient, opts, summary)
	}

	r.logger.Info("retrospective run finished",
		zap.Int("records_processed", summary.RecordsProcessed),
		zap.Int("new_anomalies", summary.NewAnomaliesDetected),
		zap.Int("errors", len(summary.Errors)),
		zap.Bool("update_database", opts.UpdateDatabase),
	)

	return summary, nil
}

// resolvePatients picks the patient set for the run. An unknown requested
// patient is a non-fatal error string, not a failed run.
func (r *Runner) resolvePatients(ctx context.Context, opts Options, summary *Summary) ([]models.Patient, error) {
	if opts.PatientID != "" {
		patient, err := r.patients.GetPatient(ctx, opts.PatientID)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("patient %s not found", opts.PatientID))
			return nil, nil
		}
		return []models.Patient{*patient}, nil
	}

	patients, err := r.patients.ListActivePatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active patients: %w", err)
	}
	return patients, nil
}

// processPatient replays one patient's stored samples. Unexpected panics
// are captured into the summary's error list so one patient cannot abort
// the whole batch.
func (r *Runner) processPatient(ctx context.Context, eng *engine.Engine, patient models.Patient, opts Options, summary *Summary) {
	defer func() {
		if rec := recover(); rec != nil {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("patient %s: unexpected failure: %v", patient.ID, rec))
			r.logger.Error("retrospective replay panicked",
				zap.String("patient_id", patient.ID),
				zap.Any("panic", rec),
			)
		}
	}()

	// Isolate this patient's replay from any earlier run state.
	eng.Reset(patient.ID)
	defer eng.Reset(patient.ID)

	if opts.Start != nil {
		preceding, err := r.samples.SamplesBefore(ctx, patient.ID, *opts.Start, contextPreloadLimit)
		if err != nil {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("patient %s: failed to load preceding samples: %v", patient.ID, err))
		}
		for _, sample := range preceding {
			eng.Seed(patient.ID, sample)
		}
	}

	samples, err := r.samples.SamplesInRange(ctx, patient.ID, opts.Start, opts.End)
	if err != nil {
		summary.Errors = append(summary.Errors,
			fmt.Sprintf("patient %s: failed to load samples: %v", patient.ID, err))
		return
	}

	existing, err := r.anomalies.AnomaliesInRange(ctx, patient.ID, opts.Start, opts.End)
	if err != nil {
		summary.Errors = append(summary.Errors,
			fmt.Sprintf("patient %s: failed to load existing anomalies: %v", patient.ID, err))
		return
	}
	seen := make(map[string]struct{}, len(existing))
	for _, record := range existing {
		seen[dedupKey(record.PatientID, record.RecordedAt)] = struct{}{}
	}

	ps := PatientSummary{Name: patient.Name}
	for _, sample := range samples {
		ps.RecordsProcessed++
		summary.RecordsProcessed++

		result := eng.Detect(patient.ID, sample, &patient)
		if !result.IsAnomaly {
			continue
		}

		switch result.Severity {
		case models.SeverityCritical:
			ps.CriticalAnomalies++
			summary.CriticalAnomalies++
		case models.SeverityWarning:
			ps.WarningAnomalies++
			summary.WarningAnomalies++
		}

		key := dedupKey(patient.ID, sample.RecordedAt)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		ps.NewAnomalies++
		summary.NewAnomaliesDetected++

		if !opts.UpdateDatabase {
			continue
		}
		if err := r.persistAnomaly(ctx, patient.ID, sample, result); err != nil {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("patient %s: failed to persist anomaly at %s: %v",
					patient.ID, sample.RecordedAt.Format(time.RFC3339), err))
		}
	}

	summary.PatientsSummary[patient.ID] = ps
}

// persistAnomaly writes one anomaly record plus one alert-log row per
// contained alert, tagged as retrospective.
func (r *Runner) persistAnomaly(ctx context.Context, patientID string, sample models.VitalSample, result models.DetectionResult) error {
	record := &models.AnomalyRecord{
		AnomalyID:     uuid.New().String(),
		PatientID:     patientID,
		Severity:      result.Severity,
		Score:         result.Score,
		Alerts:        result.Alerts,
		RecordedAt:    sample.RecordedAt,
		Retrospective: true,
		DetectionDate: r.now(),
	}
	if err := r.anomalies.CreateAnomaly(ctx, record); err != nil {
		return err
	}

	logs := make([]models.AlertLog, 0, len(result.Alerts))
	for _, alert := range result.Alerts {
		logs = append(logs, models.AlertLog{
			LogID:      uuid.New().String(),
			AnomalyID:  record.AnomalyID,
			PatientID:  patientID,
			Category:   alert.Category,
			Severity:   alert.Severity,
			Message:    alert.Message,
			Value:      alert.Value,
			RecordedAt: sample.RecordedAt,
		})
	}
	return r.alertLogs.CreateAlertLogs(ctx, logs)
}

// dedupKey identifies an anomaly by patient and minute-truncated timestamp.
// Two distinct anomalies inside the same minute collapse to one record;
// that coarseness is an accepted trade-off.
func dedupKey(patientID string, ts time.Time) string {
	return patientID + "|" + ts.UTC().Truncate(time.Minute).Format(time.RFC3339)
}
