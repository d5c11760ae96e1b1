package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRecordNotFound is returned when an update or delete names a record
// id that does not exist for the patient.
var ErrRecordNotFound = errors.New("medical history record not found")

// ValidationError rejects a mutation with a caller-visible reason.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Service owns reads and mutations of the seven category tables. Reads
// degrade to empty lists when the store fails; mutations surface errors.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// FetchCategory returns the patient's records for one category. A store
// failure is logged and normalized to an empty list so a missing or
// unmigrated table never breaks the profile page; operators see the
// warning, users see an empty category.
func (s *Service) FetchCategory(ctx context.Context, patientID uuid.UUID, cat Category) []Record {
	records, err := s.store.List(ctx, patientID, cat)
	if err != nil {
		s.logger.Warn("category fetch failed, treating as empty",
			zap.String("category", string(cat)),
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
		return []Record{}
	}
	if records == nil {
		records = []Record{}
	}
	return records
}

// FetchAll returns every category's records keyed by category. Every key
// is always present, empty categories included.
func (s *Service) FetchAll(ctx context.Context, patientID uuid.UUID) map[Category][]Record {
	all := make(map[Category][]Record, len(categoryOrder))
	for _, cat := range Categories() {
		all[cat] = s.FetchCategory(ctx, patientID, cat)
	}
	return all
}

// Add stores a new record. The marker field must carry a value; the rest
// of the category's fields default to empty strings.
func (s *Service) Add(ctx context.Context, patientID uuid.UUID, cat Category, fields map[string]string) (Record, error) {
	clean := NormalizeFields(cat, fields)
	if strings.TrimSpace(clean[cat.MarkerField()]) == "" {
		return Record{}, &ValidationError{
			Msg: fmt.Sprintf("%s is required", cat.MarkerField()),
		}
	}

	record, err := s.store.Insert(ctx, patientID, cat, clean)
	if err != nil {
		return Record{}, err
	}

	s.logger.Info("history record added",
		zap.String("category", string(cat)),
		zap.String("patient_id", patientID.String()),
		zap.String("record_id", record.ID.String()))
	return record, nil
}

// Update rewrites an existing record's fields.
func (s *Service) Update(ctx context.Context, cat Category, recordID uuid.UUID, patientID uuid.UUID, fields map[string]string) error {
	clean := NormalizeFields(cat, fields)
	if strings.TrimSpace(clean[cat.MarkerField()]) == "" {
		return &ValidationError{
			Msg: fmt.Sprintf("%s is required", cat.MarkerField()),
		}
	}

	found, err := s.store.Update(ctx, cat, recordID, patientID, clean)
	if err != nil {
		return err
	}
	if !found {
		return ErrRecordNotFound
	}

	s.logger.Info("history record updated",
		zap.String("category", string(cat)),
		zap.String("record_id", recordID.String()))
	return nil
}

// Delete removes one record by id.
func (s *Service) Delete(ctx context.Context, cat Category, recordID uuid.UUID) error {
	found, err := s.store.Delete(ctx, cat, recordID)
	if err != nil {
		return err
	}
	if !found {
		return ErrRecordNotFound
	}

	s.logger.Info("history record deleted",
		zap.String("category", string(cat)),
		zap.String("record_id", recordID.String()))
	return nil
}

// ToggleNA marks a category Not Applicable or clears that mark. Enabling
// is idempotent: a second enable finds the existing sentinel and does
// nothing. Returns whether anything changed.
func (s *Service) ToggleNA(ctx context.Context, patientID uuid.UUID, cat Category, enable bool) (bool, error) {
	if enable {
		inserted, err := s.store.EnableNA(ctx, patientID, cat)
		if err != nil {
			return false, err
		}
		if inserted {
			s.logger.Info("category marked not applicable",
				zap.String("category", string(cat)),
				zap.String("patient_id", patientID.String()))
		}
		return inserted, nil
	}

	removed, err := s.store.DisableNA(ctx, patientID, cat)
	if err != nil {
		return false, err
	}
	if removed > 0 {
		s.logger.Info("not applicable mark cleared",
			zap.String("category", string(cat)),
			zap.String("patient_id", patientID.String()),
			zap.Int64("removed", removed))
	}
	return removed > 0, nil
}

// NormalizeFields filters input down to the category's known fields and
// applies the dropdown-plus-Other convention: a non-empty "<field>_other"
// value (the free-text box shown when "Others" is chosen) overrides the
// dropdown value.
func NormalizeFields(cat Category, input map[string]string) map[string]string {
	clean := make(map[string]string, len(cat.Fields()))
	for _, f := range cat.Fields() {
		value := strings.TrimSpace(input[f])
		if other := strings.TrimSpace(input[f+"_other"]); other != "" {
			value = other
		}
		clean[f] = value
	}
	return clean
}
