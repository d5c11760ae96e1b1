package profile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchoapp/backend/history"
	"github.com/mchoapp/backend/models"
)

func completeProfile() *models.PatientProfile {
	dob := time.Date(1980, 3, 12, 0, 0, 0, 0, time.UTC)
	return &models.PatientProfile{
		PatientID:   "p-1",
		FullName:    "Maria Clara Santos",
		DateOfBirth: &dob,
		Age:         45,
		AgeCategory: models.AgeAdult,
		Sex:         "Female",
		Contact:     "09171234567",
		Email:       "maria@example.com",
		Barangay:    "San Roque",
		BloodType:   "A+",
		CivilStatus: "Married",
		Religion:    "Catholic",
		Occupation:  "Teacher",
		EmergencyContact: models.EmergencyContact{
			Name:         "Jose Santos",
			Relationship: "Spouse",
			Contact:      "09179876543",
		},
		Lifestyle: models.Lifestyle{
			Smoking:  "Never",
			Alcohol:  "Occasional",
			Activity: "Moderate",
			Diet:     "Balanced",
		},
	}
}

func realRecord(cat history.Category) history.Record {
	fields := make(map[string]string)
	for i, f := range cat.Fields() {
		if i == 0 {
			fields[f] = "Sample entry"
		} else {
			fields[f] = "value"
		}
	}
	// The marker is always a real value here, never a sentinel.
	fields[cat.MarkerField()] = "Sample entry"
	return history.NewRecord(uuid.New(), cat, fields, time.Now())
}

func completeHistory() map[history.Category][]history.Record {
	hist := make(map[history.Category][]history.Record)
	for _, cat := range history.Categories() {
		hist[cat] = []history.Record{realRecord(cat)}
	}
	return hist
}

func emptyHistory() map[history.Category][]history.Record {
	hist := make(map[history.Category][]history.Record)
	for _, cat := range history.Categories() {
		hist[cat] = []history.Record{}
	}
	return hist
}

func TestScoreFullyComplete(t *testing.T) {
	report := Score(completeProfile(), completeHistory())

	assert.Equal(t, 25, report.Score)
	assert.Equal(t, 25, report.Total)
	assert.Equal(t, 100, report.Percentage)
	assert.Equal(t, models.TierExcellent, report.Tier)
	assert.Empty(t, report.MissingFields)
	assert.Empty(t, report.Suggestions)
	for _, cat := range history.Categories() {
		assert.True(t, report.CategoryFlags[string(cat)], "category %s", cat)
	}
}

func TestScoreCompletelyEmpty(t *testing.T) {
	report := Score(&models.PatientProfile{PatientID: "p-0"}, emptyHistory())

	assert.Equal(t, 0, report.Score)
	assert.Equal(t, 0, report.Percentage)
	assert.Equal(t, models.TierIncomplete, report.Tier)
	// All 18 scalar checks are missing; categories show up as
	// suggestions, not missing fields.
	assert.Len(t, report.MissingFields, 18)
	assert.Len(t, report.Suggestions, 7)
	for _, cat := range history.Categories() {
		assert.False(t, report.CategoryFlags[string(cat)])
	}
}

func TestScoreMinorWithNameAndAgeOnly(t *testing.T) {
	p := &models.PatientProfile{
		PatientID:   "p-2",
		FullName:    "Juan Dela Cruz",
		Age:         17,
		AgeCategory: AgeCategoryFor(17),
	}
	require.Equal(t, models.AgeMinor, p.AgeCategory)

	report := Score(p, emptyHistory())

	// Full Name and Age earn the only two points.
	assert.Equal(t, 2, report.Score)
	assert.Equal(t, 8, report.Percentage) // round(100*2/25)
	assert.Equal(t, models.TierIncomplete, report.Tier)
	assert.NotContains(t, report.MissingFields, "Full Name")
	assert.NotContains(t, report.MissingFields, "Age")
	assert.Contains(t, report.MissingFields, "Date of Birth")
}

func TestScoreSentinelOnlyCategoryCounts(t *testing.T) {
	hist := emptyHistory()
	sentinel := history.BuildSentinel(history.CategoryAllergies)
	sentinel.ID = uuid.New()
	hist[history.CategoryAllergies] = []history.Record{sentinel}

	report := Score(&models.PatientProfile{PatientID: "p-3"}, hist)

	assert.Equal(t, 1, report.Score)
	assert.Equal(t, 4, report.Percentage) // round(100*1/25)
	assert.True(t, report.CategoryFlags["allergies"])
	// The sentinel satisfies the category, so no suggestion for it.
	for _, s := range report.Suggestions {
		assert.NotContains(t, s, "Allergies")
	}
}

func TestScoreEmptyRecordDoesNotCount(t *testing.T) {
	hist := emptyHistory()
	hist[history.CategoryAllergies] = []history.Record{
		history.NewRecord(uuid.New(), history.CategoryAllergies, map[string]string{
			"allergen": "",
			"reaction": "N/A",
			"severity": "",
		}, time.Now()),
	}

	report := Score(&models.PatientProfile{PatientID: "p-4"}, hist)
	assert.False(t, report.CategoryFlags["allergies"])
	assert.Equal(t, 0, report.Score)
}

func TestScorePWDNumberExcludedWhenNotPWD(t *testing.T) {
	p := completeProfile()
	p.IsPWD = false
	p.PWDIDNumber = ""

	report := Score(p, completeHistory())
	assert.Equal(t, 100, report.Percentage)
	assert.NotContains(t, report.MissingFields, "PWD ID Number")
}

func TestScorePWDNumberReportedWhenPWDWithoutNumber(t *testing.T) {
	p := completeProfile()
	p.IsPWD = true
	p.PWDIDNumber = ""

	report := Score(p, completeHistory())
	// Reported as a gap but never scored: the 25 points stay intact.
	assert.Equal(t, 25, report.Score)
	assert.Equal(t, 100, report.Percentage)
	assert.Contains(t, report.MissingFields, "PWD ID Number")
}

func TestScoreDeletingLastMedicationDropsFourPoints(t *testing.T) {
	hist := completeHistory()
	before := Score(completeProfile(), hist)
	require.Equal(t, 100, before.Percentage)

	hist[history.CategoryCurrentMedications] = []history.Record{}
	after := Score(completeProfile(), hist)

	assert.Equal(t, 24, after.Score)
	assert.Equal(t, 96, after.Percentage)
	assert.Equal(t, 4, before.Percentage-after.Percentage)
	assert.False(t, after.CategoryFlags["current_medications"])
}

func TestScoreTierBoundaries(t *testing.T) {
	assert.Equal(t, models.TierExcellent, models.TierFor(90))
	assert.Equal(t, models.TierGood, models.TierFor(89))
	assert.Equal(t, models.TierGood, models.TierFor(70))
	assert.Equal(t, models.TierFair, models.TierFor(69))
	assert.Equal(t, models.TierFair, models.TierFor(50))
	assert.Equal(t, models.TierIncomplete, models.TierFor(49))
	assert.Equal(t, models.TierIncomplete, models.TierFor(0))
}

func TestScorePartialTiers(t *testing.T) {
	// 18 scalar points + 0 categories = 72% → Good.
	report := Score(completeProfile(), emptyHistory())
	assert.Equal(t, 18, report.Score)
	assert.Equal(t, 72, report.Percentage)
	assert.Equal(t, models.TierGood, report.Tier)
}
