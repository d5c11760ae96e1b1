package history

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Store is the persistence contract for the seven category tables.
// Service is written against it so mutations and the N/A toggle can be
// tested without a database.
type Store interface {
	List(ctx context.Context, patientID uuid.UUID, cat Category) ([]Record, error)
	Insert(ctx context.Context, patientID uuid.UUID, cat Category, fields map[string]string) (Record, error)
	Update(ctx context.Context, cat Category, recordID uuid.UUID, patientID uuid.UUID, fields map[string]string) (bool, error)
	Delete(ctx context.Context, cat Category, recordID uuid.UUID) (bool, error)
	EnableNA(ctx context.Context, patientID uuid.UUID, cat Category) (bool, error)
	DisableNA(ctx context.Context, patientID uuid.UUID, cat Category) (int64, error)
}

// PGStore implements Store over the Postgres category tables.
type PGStore struct {
	pgPool *pgxpool.Pool
}

func NewPGStore(pgPool *pgxpool.Pool) *PGStore {
	return &PGStore{pgPool: pgPool}
}

const naMatch = "lower(trim(%s)) IN ('not applicable', 'n/a')"

// List returns every record of one category for a patient, newest first
// when the category has a recency column, insertion order otherwise.
func (s *PGStore) List(ctx context.Context, patientID uuid.UUID, cat Category) ([]Record, error) {
	def := cat.def()

	cols := make([]string, 0, len(def.fields))
	for _, f := range def.fields {
		cols = append(cols, fmt.Sprintf("COALESCE(%s, '') AS %s", f, f))
	}

	orderBy := "created_at, id"
	if def.orderBy != "" {
		orderBy = fmt.Sprintf("NULLIF(%s, '') DESC NULLS LAST, created_at, id", def.orderBy)
	}

	query := fmt.Sprintf(
		`SELECT id, created_at, %s FROM %s WHERE patient_id = $1 ORDER BY %s`,
		strings.Join(cols, ", "), def.table, orderBy)

	rows, err := s.pgPool.Query(ctx, query, patientID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", def.table)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var id uuid.UUID
		var createdAt time.Time
		values := make([]string, len(def.fields))
		dest := make([]any, 0, len(def.fields)+2)
		dest = append(dest, &id, &createdAt)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s row", def.table)
		}
		fields := make(map[string]string, len(def.fields))
		for i, f := range def.fields {
			fields[f] = values[i]
		}
		records = append(records, NewRecord(id, cat, fields, createdAt))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating %s rows", def.table)
	}

	return records, nil
}

// Insert stores a new record and returns it with its server-assigned id.
func (s *PGStore) Insert(ctx context.Context, patientID uuid.UUID, cat Category, fields map[string]string) (Record, error) {
	def := cat.def()

	cols := []string{"patient_id"}
	placeholders := []string{"$1"}
	args := []any{patientID}
	for i, f := range def.fields {
		cols = append(cols, f)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, fields[f])
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING id, created_at`,
		def.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var id uuid.UUID
	var createdAt time.Time
	if err := s.pgPool.QueryRow(ctx, query, args...).Scan(&id, &createdAt); err != nil {
		return Record{}, errors.Wrapf(err, "failed to insert into %s", def.table)
	}

	return NewRecord(id, cat, fields, createdAt), nil
}

// Update rewrites one record's fields. Returns false when no row matched
// the record id and patient.
func (s *PGStore) Update(ctx context.Context, cat Category, recordID uuid.UUID, patientID uuid.UUID, fields map[string]string) (bool, error) {
	def := cat.def()

	sets := make([]string, 0, len(def.fields))
	args := make([]any, 0, len(def.fields)+2)
	for i, f := range def.fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", f, i+1))
		args = append(args, fields[f])
	}
	args = append(args, recordID, patientID)

	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = $%d AND patient_id = $%d`,
		def.table, strings.Join(sets, ", "), len(def.fields)+1, len(def.fields)+2)

	tag, err := s.pgPool.Exec(ctx, query, args...)
	if err != nil {
		return false, errors.Wrapf(err, "failed to update %s", def.table)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes one record by id. Returns false when no row matched.
func (s *PGStore) Delete(ctx context.Context, cat Category, recordID uuid.UUID) (bool, error) {
	def := cat.def()

	tag, err := s.pgPool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, def.table), recordID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete from %s", def.table)
	}
	return tag.RowsAffected() > 0, nil
}

// EnableNA inserts the category's sentinel row unless one already exists.
// The check and insert run in one transaction so concurrent toggles from
// two tabs cannot double up. Returns true when a sentinel was inserted.
func (s *PGStore) EnableNA(ctx context.Context, patientID uuid.UUID, cat Category) (bool, error) {
	def := cat.def()

	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) // Rollback if not committed

	var existing uuid.UUID
	query := fmt.Sprintf(
		`SELECT id FROM %s WHERE patient_id = $1 AND `+naMatch+` LIMIT 1 FOR UPDATE`,
		def.table, def.marker)
	err = tx.QueryRow(ctx, query, patientID).Scan(&existing)
	if err == nil {
		// Sentinel already present, nothing to do.
		return false, tx.Commit(ctx)
	}
	if !stderrors.Is(err, pgx.ErrNoRows) {
		return false, errors.Wrapf(err, "failed to check %s sentinel", def.table)
	}

	sentinel := BuildSentinel(cat)
	cols := []string{"patient_id"}
	placeholders := []string{"$1"}
	args := []any{patientID}
	for i, f := range def.fields {
		cols = append(cols, f)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, sentinel.Fields[f])
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		def.table, strings.Join(cols, ", "), strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return false, errors.Wrapf(err, "failed to insert %s sentinel", def.table)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "failed to commit transaction")
	}
	return true, nil
}

// DisableNA clears every sentinel row for the category. Deleting by the
// marker match rather than a record id also removes legacy duplicates.
func (s *PGStore) DisableNA(ctx context.Context, patientID uuid.UUID, cat Category) (int64, error) {
	def := cat.def()

	tag, err := s.pgPool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE patient_id = $1 AND `+naMatch,
		def.table, def.marker), patientID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to clear %s sentinel", def.table)
	}
	return tag.RowsAffected(), nil
}
