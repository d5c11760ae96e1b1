package history

import "errors"

// Category identifies one of the seven fixed medical history record types.
type Category string

const (
	CategoryAllergies          Category = "allergies"
	CategoryPastConditions     Category = "past_conditions"
	CategoryChronicIllnesses   Category = "chronic_illnesses"
	CategoryFamilyHistory      Category = "family_history"
	CategorySurgicalHistory    Category = "surgical_history"
	CategoryCurrentMedications Category = "current_medications"
	CategoryImmunizations      Category = "immunizations"
)

// ErrUnknownCategory is returned when a request names a category that is
// not one of the seven fixed ones.
var ErrUnknownCategory = errors.New("unknown medical history category")

// categoryDef describes how one category maps onto its table: the column
// set, which column carries the Not Applicable marker, and which column
// (if any) orders records by recency.
type categoryDef struct {
	table   string
	label   string
	fields  []string
	marker  string
	orderBy string // empty means insertion order
}

var categoryDefs = map[Category]categoryDef{
	CategoryAllergies: {
		table:  "allergies",
		label:  "Allergies",
		fields: []string{"allergen", "reaction", "severity"},
		marker: "allergen",
	},
	CategoryPastConditions: {
		table:   "past_conditions",
		label:   "Past Medical Conditions",
		fields:  []string{"condition", "year_diagnosed", "status"},
		marker:  "condition",
		orderBy: "year_diagnosed",
	},
	CategoryChronicIllnesses: {
		table:   "chronic_illnesses",
		label:   "Chronic Illnesses",
		fields:  []string{"illness", "year_diagnosed", "management"},
		marker:  "illness",
		orderBy: "year_diagnosed",
	},
	CategoryFamilyHistory: {
		table:  "family_history",
		label:  "Family History",
		fields: []string{"family_member", "condition", "age_diagnosed", "current_status"},
		marker: "condition",
	},
	CategorySurgicalHistory: {
		table:   "surgical_history",
		label:   "Surgical History",
		fields:  []string{"surgery", "year", "hospital"},
		marker:  "surgery",
		orderBy: "year",
	},
	CategoryCurrentMedications: {
		table:  "current_medications",
		label:  "Current Medications",
		fields: []string{"medication", "dosage", "frequency", "prescribed_by"},
		marker: "medication",
	},
	CategoryImmunizations: {
		table:   "immunizations",
		label:   "Immunizations",
		fields:  []string{"vaccine", "year_received", "doses_completed", "status"},
		marker:  "vaccine",
		orderBy: "year_received",
	},
}

// categoryOrder fixes the display and iteration order of the categories.
var categoryOrder = []Category{
	CategoryAllergies,
	CategoryPastConditions,
	CategoryChronicIllnesses,
	CategoryFamilyHistory,
	CategorySurgicalHistory,
	CategoryCurrentMedications,
	CategoryImmunizations,
}

// Categories returns all seven categories in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory validates a category name coming from a request path.
func ParseCategory(name string) (Category, error) {
	cat := Category(name)
	if _, ok := categoryDefs[cat]; !ok {
		return "", ErrUnknownCategory
	}
	return cat, nil
}

func (c Category) def() categoryDef {
	return categoryDefs[c]
}

// Label returns the human-readable name used in reports and suggestions.
func (c Category) Label() string {
	return categoryDefs[c].label
}

// Fields returns the fixed field names for records of this category.
func (c Category) Fields() []string {
	def := categoryDefs[c]
	out := make([]string, len(def.fields))
	copy(out, def.fields)
	return out
}

// MarkerField returns the column inspected for the Not Applicable sentinel.
func (c Category) MarkerField() string {
	return categoryDefs[c].marker
}
