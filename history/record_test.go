package history

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	for _, cat := range Categories() {
		parsed, err := ParseCategory(string(cat))
		assert.NoError(t, err)
		assert.Equal(t, cat, parsed)
	}

	_, err := ParseCategory("dental_records")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = ParseCategory("")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestNewRecordDetectsSentinel(t *testing.T) {
	cases := []struct {
		name     string
		marker   string
		sentinel bool
	}{
		{"canonical spelling", "Not Applicable", true},
		{"lower case", "not applicable", true},
		{"upper case", "NOT APPLICABLE", true},
		{"short form", "N/A", true},
		{"padded", "  Not Applicable  ", true},
		{"real value", "Penicillin", false},
		{"empty", "", false},
		{"contains but not equals", "Not Applicable to me", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewRecord(uuid.New(), CategoryAllergies, map[string]string{
				"allergen": tc.marker,
				"reaction": "rash",
				"severity": "mild",
			}, time.Now())
			assert.Equal(t, tc.sentinel, rec.NotApplicable)
		})
	}
}

func TestSentinelChecksMarkerFieldOnly(t *testing.T) {
	// N/A in a non-marker column does not make the record a sentinel.
	rec := NewRecord(uuid.New(), CategoryAllergies, map[string]string{
		"allergen": "Shellfish",
		"reaction": "N/A",
		"severity": "N/A",
	}, time.Now())
	assert.False(t, rec.NotApplicable)
	assert.True(t, rec.HasContent())
}

func TestBuildSentinel(t *testing.T) {
	for _, cat := range Categories() {
		sentinel := BuildSentinel(cat)
		assert.True(t, sentinel.NotApplicable, "category %s", cat)
		assert.Equal(t, "Not Applicable", sentinel.Fields[cat.MarkerField()])
		for _, f := range cat.Fields() {
			if f == cat.MarkerField() {
				continue
			}
			assert.Equal(t, "N/A", sentinel.Fields[f], "category %s field %s", cat, f)
		}
		// A sentinel counts as complete but carries no real content.
		assert.False(t, sentinel.HasContent())
		assert.True(t, sentinel.Counts())
	}
}

func TestHasContent(t *testing.T) {
	empty := NewRecord(uuid.New(), CategoryImmunizations, map[string]string{
		"vaccine":         "",
		"year_received":   "  ",
		"doses_completed": "",
		"status":          "",
	}, time.Now())
	assert.False(t, empty.HasContent())
	assert.False(t, empty.Counts())

	allNA := NewRecord(uuid.New(), CategoryImmunizations, map[string]string{
		"vaccine":         "n/a",
		"year_received":   "N/A",
		"doses_completed": "",
		"status":          "",
	}, time.Now())
	assert.False(t, allNA.HasContent())
	// Marker column reads n/a, so it is a sentinel and still counts.
	assert.True(t, allNA.NotApplicable)
	assert.True(t, allNA.Counts())

	partial := NewRecord(uuid.New(), CategoryImmunizations, map[string]string{
		"vaccine":         "",
		"year_received":   "2021",
		"doses_completed": "",
		"status":          "",
	}, time.Now())
	assert.True(t, partial.HasContent())
	assert.True(t, partial.Counts())
}

func TestNormalizeFields(t *testing.T) {
	clean := NormalizeFields(CategoryAllergies, map[string]string{
		"allergen":       "Others",
		"allergen_other": "Mango sap",
		"reaction":       " hives ",
		"severity":       "mild",
		"notes":          "should be dropped",
	})

	assert.Equal(t, map[string]string{
		"allergen": "Mango sap",
		"reaction": "hives",
		"severity": "mild",
	}, clean)
}

func TestNormalizeFieldsWithoutOther(t *testing.T) {
	clean := NormalizeFields(CategoryCurrentMedications, map[string]string{
		"medication":       "Metformin",
		"medication_other": "   ",
		"dosage":           "500mg",
	})

	assert.Equal(t, "Metformin", clean["medication"])
	assert.Equal(t, "500mg", clean["dosage"])
	// Unsupplied fields default to empty strings.
	assert.Equal(t, "", clean["frequency"])
	assert.Equal(t, "", clean["prescribed_by"])
}
