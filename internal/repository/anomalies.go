package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// AnomaliesRepository stores and queries detected anomalies (anomalies
// table).
type AnomaliesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnomaliesRepository creates an anomalies repository.
func NewAnomaliesRepository(db *sql.DB, logger *zap.Logger) *AnomaliesRepository {
	return &AnomaliesRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAnomaly persists one anomaly record.
func (r *AnomaliesRepository) CreateAnomaly(ctx context.Context, record *models.AnomalyRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if record.AnomalyID == "" {
		return fmt.Errorf("anomaly_id is required")
	}
	if record.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	alertsJSON, err := json.Marshal(record.Alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	query := `
		INSERT INTO anomalies (
			anomaly_id, patient_id, severity, score, alerts,
			recorded_at, retrospective, detection_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.AnomalyID,
		record.PatientID,
		string(record.Severity),
		record.Score,
		alertsJSON,
		record.RecordedAt,
		record.Retrospective,
		record.DetectionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to create anomaly: %w", err)
	}

	return nil
}

// AnomaliesInRange returns a patient's persisted anomalies inside the
// inclusive [start, end] range. A nil bound leaves that side open. Used by
// retrospective replay to avoid re-creating already-recorded anomalies.
func (r *AnomaliesRepository) AnomaliesInRange(ctx context.Context, patientID string, start, end *time.Time) ([]models.AnomalyRecord, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT anomaly_id, patient_id, severity, score, alerts,
		       recorded_at, retrospective, detection_date
		FROM anomalies
		WHERE patient_id = $1
	`)
	args := []interface{}{patientID}
	if start != nil {
		args = append(args, *start)
		sb.WriteString(fmt.Sprintf(" AND recorded_at >= $%d", len(args)))
	}
	if end != nil {
		args = append(args, *end)
		sb.WriteString(fmt.Sprintf(" AND recorded_at <= $%d", len(args)))
	}
	sb.WriteString(" ORDER BY recorded_at ASC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var records []models.AnomalyRecord
	for rows.Next() {
		var record models.AnomalyRecord
		var severity string
		var alerts []byte
		if err := rows.Scan(
			&record.AnomalyID,
			&record.PatientID,
			&severity,
			&record.Score,
			&alerts,
			&record.RecordedAt,
			&record.Retrospective,
			&record.DetectionDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly row: %w", err)
		}
		record.Severity = models.Severity(severity)
		if len(alerts) > 0 {
			if err := json.Unmarshal(alerts, &record.Alerts); err != nil {
				return nil, fmt.Errorf("failed to unmarshal alerts for %s: %w", record.AnomalyID, err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anomaly rows: %w", err)
	}

	return records, nil
}
