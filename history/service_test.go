package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Compile-time check to ensure fakeStore implements Store
var _ Store = (*fakeStore)(nil)

// fakeStore is an in-memory Store honoring the same contract as the
// Postgres implementation, including the transactional sentinel check
// behind EnableNA.
type fakeStore struct {
	records  map[Category][]Record
	failList bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[Category][]Record)}
}

func (f *fakeStore) List(ctx context.Context, patientID uuid.UUID, cat Category) ([]Record, error) {
	if f.failList {
		return nil, errors.New("relation does not exist")
	}
	out := make([]Record, len(f.records[cat]))
	copy(out, f.records[cat])
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, patientID uuid.UUID, cat Category, fields map[string]string) (Record, error) {
	rec := NewRecord(uuid.New(), cat, fields, time.Now())
	f.records[cat] = append(f.records[cat], rec)
	return rec, nil
}

func (f *fakeStore) Update(ctx context.Context, cat Category, recordID uuid.UUID, patientID uuid.UUID, fields map[string]string) (bool, error) {
	for i, rec := range f.records[cat] {
		if rec.ID == recordID {
			f.records[cat][i] = NewRecord(recordID, cat, fields, rec.CreatedAt)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Delete(ctx context.Context, cat Category, recordID uuid.UUID) (bool, error) {
	for i, rec := range f.records[cat] {
		if rec.ID == recordID {
			f.records[cat] = append(f.records[cat][:i], f.records[cat][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) EnableNA(ctx context.Context, patientID uuid.UUID, cat Category) (bool, error) {
	for _, rec := range f.records[cat] {
		if rec.NotApplicable {
			return false, nil
		}
	}
	sentinel := BuildSentinel(cat)
	sentinel.ID = uuid.New()
	f.records[cat] = append(f.records[cat], sentinel)
	return true, nil
}

func (f *fakeStore) DisableNA(ctx context.Context, patientID uuid.UUID, cat Category) (int64, error) {
	var kept []Record
	var removed int64
	for _, rec := range f.records[cat] {
		if rec.NotApplicable {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	f.records[cat] = kept
	return removed, nil
}

func newTestService(store Store) *Service {
	return NewService(store, zap.NewNop())
}

func TestToggleNAIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()
	patientID := uuid.New()

	changed, err := svc.ToggleNA(ctx, patientID, CategoryAllergies, true)
	require.NoError(t, err)
	assert.True(t, changed)

	// Second enable finds the existing sentinel and does nothing.
	changed, err = svc.ToggleNA(ctx, patientID, CategoryAllergies, true)
	require.NoError(t, err)
	assert.False(t, changed)

	records := svc.FetchCategory(ctx, patientID, CategoryAllergies)
	require.Len(t, records, 1)
	assert.True(t, records[0].NotApplicable)
}

func TestToggleNAOffClearsDuplicateSentinels(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()
	patientID := uuid.New()

	// Legacy data could hold duplicate sentinels; disable clears them all.
	for i := 0; i < 2; i++ {
		sentinel := BuildSentinel(CategorySurgicalHistory)
		sentinel.ID = uuid.New()
		store.records[CategorySurgicalHistory] = append(store.records[CategorySurgicalHistory], sentinel)
	}

	changed, err := svc.ToggleNA(ctx, patientID, CategorySurgicalHistory, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, svc.FetchCategory(ctx, patientID, CategorySurgicalHistory))
}

func TestToggleNAOffWhenNothingToClear(t *testing.T) {
	svc := newTestService(newFakeStore())

	changed, err := svc.ToggleNA(context.Background(), uuid.New(), CategoryImmunizations, false)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAddRoundTrip(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()
	patientID := uuid.New()

	added, err := svc.Add(ctx, patientID, CategoryCurrentMedications, map[string]string{
		"medication":    "Losartan",
		"dosage":        "50mg",
		"frequency":     "once daily",
		"prescribed_by": "Dr. Reyes",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, added.ID)
	assert.False(t, added.NotApplicable)

	records := svc.FetchCategory(ctx, patientID, CategoryCurrentMedications)
	require.Len(t, records, 1)
	assert.Equal(t, added.ID, records[0].ID)
	assert.Equal(t, map[string]string{
		"medication":    "Losartan",
		"dosage":        "50mg",
		"frequency":     "once daily",
		"prescribed_by": "Dr. Reyes",
	}, records[0].Fields)
}

func TestAddRequiresMarkerField(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Add(context.Background(), uuid.New(), CategoryAllergies, map[string]string{
		"reaction": "rash",
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Msg, "allergen")
}

func TestAddAppliesOtherOverride(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	added, err := svc.Add(context.Background(), uuid.New(), CategoryPastConditions, map[string]string{
		"condition":       "Others",
		"condition_other": "Dengue fever",
		"year_diagnosed":  "2019",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dengue fever", added.Fields["condition"])
}

func TestUpdateMissingRecordReturnsNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	err := svc.Update(context.Background(), CategoryAllergies, uuid.New(), uuid.New(), map[string]string{
		"allergen": "Dust",
	})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDeleteMissingRecordReturnsNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	err := svc.Delete(context.Background(), CategoryAllergies, uuid.New())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestUpdateRewritesFields(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()
	patientID := uuid.New()

	added, err := svc.Add(ctx, patientID, CategoryChronicIllnesses, map[string]string{
		"illness":        "Hypertension",
		"year_diagnosed": "2015",
	})
	require.NoError(t, err)

	err = svc.Update(ctx, CategoryChronicIllnesses, added.ID, patientID, map[string]string{
		"illness":        "Hypertension",
		"year_diagnosed": "2014",
		"management":     "medication",
	})
	require.NoError(t, err)

	records := svc.FetchCategory(ctx, patientID, CategoryChronicIllnesses)
	require.Len(t, records, 1)
	assert.Equal(t, "2014", records[0].Fields["year_diagnosed"])
	assert.Equal(t, "medication", records[0].Fields["management"])
}

func TestFetchCategoryDegradesToEmptyOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failList = true
	svc := newTestService(store)

	records := svc.FetchCategory(context.Background(), uuid.New(), CategoryFamilyHistory)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFetchAllAlwaysHasEveryCategory(t *testing.T) {
	store := newFakeStore()
	store.failList = true
	svc := newTestService(store)

	all := svc.FetchAll(context.Background(), uuid.New())
	assert.Len(t, all, 7)
	for _, cat := range Categories() {
		records, ok := all[cat]
		assert.True(t, ok, "category %s missing", cat)
		assert.NotNil(t, records)
	}
}
