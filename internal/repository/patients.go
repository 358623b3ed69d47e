package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// PatientsRepository reads monitored-patient profiles (patients table).
// Profiles are read-only input to the detection engine.
type PatientsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPatientsRepository creates a patients repository.
func NewPatientsRepository(db *sql.DB, logger *zap.Logger) *PatientsRepository {
	return &PatientsRepository{
		db:     db,
		logger: logger,
	}
}

// GetPatient fetches one profile by ID.
func (r *PatientsRepository) GetPatient(ctx context.Context, patientID string) (*models.Patient, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	query := `
		SELECT patient_id, name, active, thresholds, baselines
		FROM patients
		WHERE patient_id = $1
	`

	var patient models.Patient
	var thresholds, baselines []byte
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&patient.ID,
		&patient.Name,
		&patient.Active,
		&thresholds,
		&baselines,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("patient not found: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if err := json.Unmarshal(thresholds, &patient.Thresholds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thresholds for %s: %w", patientID, err)
	}
	if len(baselines) > 0 {
		if err := json.Unmarshal(baselines, &patient.Baselines); err != nil {
			return nil, fmt.Errorf("failed to unmarshal baselines for %s: %w", patientID, err)
		}
	}

	return &patient, nil
}

// ListActivePatients fetches all profiles currently under monitoring.
func (r *PatientsRepository) ListActivePatients(ctx context.Context) ([]models.Patient, error) {
	query := `
		SELECT patient_id, name, active, thresholds, baselines
		FROM patients
		WHERE active = TRUE
		ORDER BY patient_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active patients: %w", err)
	}
	defer rows.Close()

	var patients []models.Patient
	for rows.Next() {
		var patient models.Patient
		var thresholds, baselines []byte
		if err := rows.Scan(&patient.ID, &patient.Name, &patient.Active, &thresholds, &baselines); err != nil {
			return nil, fmt.Errorf("failed to scan patient row: %w", err)
		}
		if err := json.Unmarshal(thresholds, &patient.Thresholds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal thresholds for %s: %w", patient.ID, err)
		}
		if len(baselines) > 0 {
			if err := json.Unmarshal(baselines, &patient.Baselines); err != nil {
				return nil, fmt.Errorf("failed to unmarshal baselines for %s: %w", patient.ID, err)
			}
		}
		patients = append(patients, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patient rows: %w", err)
	}

	return patients, nil
}
