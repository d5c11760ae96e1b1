package patients

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrPatientNotFound means the patient id has no row; the whole request
// fails with it.
var ErrPatientNotFound = errors.New("patient not found")

// Store reads the patient tables. Rows come back as column maps because
// the schema drifted across revisions; the profile resolver picks the
// right columns out of each map.
type Store struct {
	pgPool *pgxpool.Pool
	logger *zap.Logger
}

func NewStore(pgPool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{
		pgPool: pgPool,
		logger: logger,
	}
}

// GetPatient returns the main patient row. A missing row is fatal for
// the request, unlike the satellite rows.
func (s *Store) GetPatient(ctx context.Context, patientID uuid.UUID) (map[string]any, error) {
	row, err := s.queryRowMap(ctx, `SELECT * FROM patients WHERE id = $1`, patientID)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, errors.Wrap(err, "failed to fetch patient")
	}
	return row, nil
}

// GetPersonalInfo returns the personal info row or nil when absent. A
// query failure also degrades to nil so scoring treats the fields as
// missing instead of breaking the page.
func (s *Store) GetPersonalInfo(ctx context.Context, patientID uuid.UUID) map[string]any {
	return s.satelliteRow(ctx, "patient_personal_info",
		`SELECT * FROM patient_personal_info WHERE patient_id = $1`, patientID)
}

// GetEmergencyContact returns the emergency contact row or nil.
func (s *Store) GetEmergencyContact(ctx context.Context, patientID uuid.UUID) map[string]any {
	return s.satelliteRow(ctx, "emergency_contacts",
		`SELECT * FROM emergency_contacts WHERE patient_id = $1`, patientID)
}

// GetLifestyleInfo returns the lifestyle row or nil.
func (s *Store) GetLifestyleInfo(ctx context.Context, patientID uuid.UUID) map[string]any {
	return s.satelliteRow(ctx, "lifestyle_info",
		`SELECT * FROM lifestyle_info WHERE patient_id = $1`, patientID)
}

// UpdatePhotoURL records the stored photo location on the patient row.
func (s *Store) UpdatePhotoURL(ctx context.Context, patientID uuid.UUID, photoURL string) error {
	_, err := s.pgPool.Exec(ctx,
		`UPDATE patients SET photo_url = $1 WHERE id = $2`, photoURL, patientID)
	return errors.Wrap(err, "failed to update photo url")
}

func (s *Store) satelliteRow(ctx context.Context, table, query string, patientID uuid.UUID) map[string]any {
	row, err := s.queryRowMap(ctx, query, patientID)
	if err != nil {
		if !stderrors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("satellite row fetch failed, treating fields as absent",
				zap.String("table", table),
				zap.String("patient_id", patientID.String()),
				zap.Error(err))
		}
		return nil
	}
	return row
}

func (s *Store) queryRowMap(ctx context.Context, query string, args ...any) (map[string]any, error) {
	rows, err := s.pgPool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToMap)
}
