package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// AlertLogsRepository stores individual alert lines (alert_logs table), one
// row per alert contained in an anomaly record.
type AlertLogsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertLogsRepository creates an alert-logs repository.
func NewAlertLogsRepository(db *sql.DB, logger *zap.Logger) *AlertLogsRepository {
	return &AlertLogsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlertLogs persists a batch of alert logs in one transaction.
func (r *AlertLogsRepository) CreateAlertLogs(ctx context.Context, logs []models.AlertLog) error {
	if len(logs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO alert_logs (
			log_id, anomaly_id, patient_id, category,
			severity, message, value, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare alert log insert: %w", err)
	}
	defer stmt.Close()

	for _, log := range logs {
		if log.LogID == "" {
			return fmt.Errorf("log_id is required")
		}
		if _, err := stmt.ExecContext(ctx,
			log.LogID,
			log.AnomalyID,
			log.PatientID,
			string(log.Category),
			string(log.Severity),
			log.Message,
			log.Value,
			log.RecordedAt,
		); err != nil {
			return fmt.Errorf("failed to insert alert log %s: %w", log.LogID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert logs: %w", err)
	}

	return nil
}
