package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

func TestAnomaliesRepository_CreateAnomaly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAnomaliesRepository(db, zap.NewNop())

	recordedAt := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	detectionDate := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)
	record := &models.AnomalyRecord{
		AnomalyID: "anomaly-1",
		PatientID: "p1",
		Severity:  models.SeverityCritical,
		Score:     30,
		Alerts: []models.Alert{{
			Category: models.AlertBradycardia,
			Severity: models.SeverityCritical,
			Message:  "Heart rate critically low: 30 bpm (limit 45)",
			Value:    30,
		}},
		RecordedAt:    recordedAt,
		Retrospective: true,
		DetectionDate: detectionDate,
	}

	alertsJSON, err := json.Marshal(record.Alerts)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO anomalies`).
		WithArgs("anomaly-1", "p1", "critical", 30, alertsJSON, recordedAt, true, detectionDate).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.CreateAnomaly(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnomaliesRepository_CreateAnomaly_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAnomaliesRepository(db, zap.NewNop())
	assert.Error(t, repo.CreateAnomaly(context.Background(), nil))
	assert.Error(t, repo.CreateAnomaly(context.Background(), &models.AnomalyRecord{PatientID: "p1"}))
	assert.Error(t, repo.CreateAnomaly(context.Background(), &models.AnomalyRecord{AnomalyID: "a1"}))
}

func TestAnomaliesRepository_AnomaliesInRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAnomaliesRepository(db, zap.NewNop())
	start := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	alerts := []models.Alert{{Category: models.AlertTachycardia, Severity: models.SeverityCritical, Value: 150}}
	alertsJSON, err := json.Marshal(alerts)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"anomaly_id", "patient_id", "severity", "score", "alerts",
		"recorded_at", "retrospective", "detection_date",
	}).AddRow("anomaly-1", "p1", "critical", 30, alertsJSON, start.Add(time.Hour), false, start.Add(time.Hour))

	mock.ExpectQuery(`SELECT\s+anomaly_id`).
		WithArgs("p1", start, end).
		WillReturnRows(rows)

	records, err := repo.AnomaliesInRange(context.Background(), "p1", &start, &end)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.SeverityCritical, records[0].Severity)
	require.Len(t, records[0].Alerts, 1)
	assert.Equal(t, models.AlertTachycardia, records[0].Alerts[0].Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertLogsRepository_CreateAlertLogs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertLogsRepository(db, zap.NewNop())
	recordedAt := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)

	logs := []models.AlertLog{
		{
			LogID: "log-1", AnomalyID: "anomaly-1", PatientID: "p1",
			Category: models.AlertBradycardia, Severity: models.SeverityCritical,
			Message: "low", Value: 30, RecordedAt: recordedAt,
		},
		{
			LogID: "log-2", AnomalyID: "anomaly-1", PatientID: "p1",
			Category: models.AlertFever, Severity: models.SeverityWarning,
			Message: "warm", Value: 39, RecordedAt: recordedAt,
		},
	}

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare(`INSERT INTO alert_logs`)
	prepared.ExpectExec().
		WithArgs("log-1", "anomaly-1", "p1", "bradycardia", "critical", "low", 30.0, recordedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prepared.ExpectExec().
		WithArgs("log-2", "anomaly-1", "p1", "fever", "warning", "warm", 39.0, recordedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateAlertLogs(context.Background(), logs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertLogsRepository_EmptyBatchIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertLogsRepository(db, zap.NewNop())
	require.NoError(t, repo.CreateAlertLogs(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientsRepository_GetPatient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPatientsRepository(db, zap.NewNop())

	thresholds := models.AlertThresholds{
		HeartRateCriticalLow:  45,
		HeartRateCriticalHigh: 130,
		SystolicCriticalHigh:  180,
		SystolicCriticalLow:   90,
		SpO2Critical:          90,
	}
	thresholdsJSON, err := json.Marshal(thresholds)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"patient_id", "name", "active", "thresholds", "baselines"}).
		AddRow("p1", "Alex Morgan", true, thresholdsJSON, []byte(`{}`))

	mock.ExpectQuery(`SELECT\s+patient_id`).
		WithArgs("p1").
		WillReturnRows(rows)

	patient, err := repo.GetPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alex Morgan", patient.Name)
	assert.Equal(t, thresholds, patient.Thresholds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientsRepository_GetPatient_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPatientsRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT\s+patient_id`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "name", "active", "thresholds", "baselines"}))

	_, err = repo.GetPatient(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPatientsRepository_ListActivePatients(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPatientsRepository(db, zap.NewNop())
	thresholdsJSON := []byte(`{"heartRateCriticalLow":45,"heartRateCriticalHigh":130,"systolicCriticalHigh":180,"systolicCriticalLow":90,"spo2Critical":90}`)

	rows := sqlmock.NewRows([]string{"patient_id", "name", "active", "thresholds", "baselines"}).
		AddRow("p1", "Alex Morgan", true, thresholdsJSON, []byte(`{}`)).
		AddRow("p2", "Sam Lee", true, thresholdsJSON, []byte(`{}`))

	mock.ExpectQuery(`WHERE active = TRUE`).WillReturnRows(rows)

	patients, err := repo.ListActivePatients(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "p2", patients[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
