package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vitalwatch/internal/broadcast"
	"vitalwatch/internal/engine"
	"vitalwatch/internal/models"
	"vitalwatch/internal/repository"
)

// How long a resolved patient profile stays cached before it is re-read.
const profileCacheTTL = 5 * time.Minute

// Monitor is the live detection path: it resolves the patient profile,
// runs the detection engine, persists the sample and any anomaly, and
// broadcasts the result. The engine itself never persists; Monitor is the
// caller that owns those side effects.
type Monitor struct {
	engine    *engine.Engine
	patients  *repository.PatientsRepository
	samples   *repository.SamplesRepository
	anomalies *repository.AnomaliesRepository
	alertLogs *repository.AlertLogsRepository
	publisher *broadcast.Publisher
	logger    *zap.Logger

	mu           sync.RWMutex
	profileCache map[string]cachedProfile
}

type cachedProfile struct {
	patient  *models.Patient
	loadedAt time.Time
}

// NewMonitor wires the live path. All collaborators are required.
func NewMonitor(
	eng *engine.Engine,
	patients *repository.PatientsRepository,
	samples *repository.SamplesRepository,
	anomalies *repository.AnomaliesRepository,
	alertLogs *repository.AlertLogsRepository,
	publisher *broadcast.Publisher,
	logger *zap.Logger,
) (*Monitor, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if patients == nil || samples == nil || anomalies == nil || alertLogs == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Monitor{
		engine:       eng,
		patients:     patients,
		samples:      samples,
		anomalies:    anomalies,
		alertLogs:    alertLogs,
		publisher:    publisher,
		logger:       logger,
		profileCache: make(map[string]cachedProfile),
	}, nil
}

// Process handles one incoming reading end to end. An unknown patient is
// an error; downstream persistence and broadcast failures are logged but do
// not fail the call, since the detection result already stands.
func (m *Monitor) Process(ctx context.Context, sample models.VitalSample) (*models.DetectionResult, error) {
	patient, err := m.profile(ctx, sample.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve patient %s: %w", sample.PatientID, err)
	}

	result := m.engine.Detect(sample.PatientID, sample, patient)

	if err := m.samples.InsertSample(ctx, &sample); err != nil {
		m.logger.Error("failed to persist vital sample",
			zap.String("patient_id", sample.PatientID),
			zap.Error(err),
		)
	}

	if result.IsAnomaly {
		if err := m.persistAnomaly(ctx, sample, result); err != nil {
			m.logger.Error("failed to persist anomaly",
				zap.String("patient_id", sample.PatientID),
				zap.Error(err),
			)
		}
	}

	if err := m.publisher.PublishResult(ctx, sample, result); err != nil {
		m.logger.Error("failed to broadcast result",
			zap.String("patient_id", sample.PatientID),
			zap.Error(err),
		)
	}

	return &result, nil
}

func (m *Monitor) persistAnomaly(ctx context.Context, sample models.VitalSample, result models.DetectionResult) error {
	record := &models.AnomalyRecord{
		AnomalyID:     uuid.New().String(),
		PatientID:     sample.PatientID,
		Severity:      result.Severity,
		Score:         result.Score,
		Alerts:        result.Alerts,
		RecordedAt:    sample.RecordedAt,
		Retrospective: false,
		DetectionDate: time.Now(),
	}
	if err := m.anomalies.CreateAnomaly(ctx, record); err != nil {
		return err
	}

	logs := make([]models.AlertLog, 0, len(result.Alerts))
	for _, alert := range result.Alerts {
		logs = append(logs, models.AlertLog{
			LogID:      uuid.New().String(),
			AnomalyID:  record.AnomalyID,
			PatientID:  sample.PatientID,
			Category:   alert.Category,
			Severity:   alert.Severity,
			Message:    alert.Message,
			Value:      alert.Value,
			RecordedAt: sample.RecordedAt,
		})
	}
	return m.alertLogs.CreateAlertLogs(ctx, logs)
}

// profile resolves a patient, serving from the cache when fresh.
func (m *Monitor) profile(ctx context.Context, patientID string) (*models.Patient, error) {
	m.mu.RLock()
	cached, ok := m.profileCache[patientID]
	m.mu.RUnlock()
	if ok && time.Since(cached.loadedAt) < profileCacheTTL {
		return cached.patient, nil
	}

	patient, err := m.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.profileCache[patientID] = cachedProfile{patient: patient, loadedAt: time.Now()}
	m.mu.Unlock()

	return patient, nil
}
