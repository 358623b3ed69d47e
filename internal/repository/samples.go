package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// SamplesRepository stores and queries vital samples (vital_samples table).
type SamplesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSamplesRepository creates a samples repository.
func NewSamplesRepository(db *sql.DB, logger *zap.Logger) *SamplesRepository {
	return &SamplesRepository{
		db:     db,
		logger: logger,
	}
}

// InsertSample persists one reading.
func (r *SamplesRepository) InsertSample(ctx context.Context, sample *models.VitalSample) error {
	if sample == nil {
		return fmt.Errorf("sample is required")
	}
	if sample.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	query := `
		INSERT INTO vital_samples (
			patient_id, heart_rate, blood_pressure, spo2,
			body_temperature, motion_level, fall_risk_score, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		sample.PatientID,
		sample.HeartRate,
		sample.BloodPressure.String(),
		sample.SpO2,
		sample.BodyTemperature,
		sample.MotionLevel,
		sample.FallRiskScore,
		sample.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert vital sample: %w", err)
	}

	return nil
}

// SamplesInRange returns a patient's samples inside the inclusive
// [start, end] range, oldest first. A nil bound leaves that side open.
func (r *SamplesRepository) SamplesInRange(ctx context.Context, patientID string, start, end *time.Time) ([]models.VitalSample, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT patient_id, heart_rate, blood_pressure, spo2,
		       body_temperature, motion_level, fall_risk_score, recorded_at
		FROM vital_samples
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
		return nil, fmt.Errorf("failed to query vital samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// SamplesBefore returns up to limit samples recorded strictly before the
// given time, oldest first. Retrospective replay uses these as statistical
// context ahead of the requested range.
func (r *SamplesRepository) SamplesBefore(ctx context.Context, patientID string, before time.Time, limit int) ([]models.VitalSample, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT patient_id, heart_rate, blood_pressure, spo2,
		       body_temperature, motion_level, fall_risk_score, recorded_at
		FROM vital_samples
		WHERE patient_id = $1
		  AND recorded_at < $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query preceding samples: %w", err)
	}
	defer rows.Close()

	samples, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}

	// Query is newest-first; callers want chronological order.
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

func scanSamples(rows *sql.Rows) ([]models.VitalSample, error) {
	var samples []models.VitalSample
	for rows.Next() {
		var sample models.VitalSample
		var pressure string
		if err := rows.Scan(
			&sample.PatientID,
			&sample.HeartRate,
			&pressure,
			&sample.SpO2,
			&sample.BodyTemperature,
			&sample.MotionLevel,
			&sample.FallRiskScore,
			&sample.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}
		bp, err := models.ParseBloodPressure(pressure)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored blood pressure: %w", err)
		}
		sample.BloodPressure = bp
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sample rows: %w", err)
	}
	return samples, nil
}
