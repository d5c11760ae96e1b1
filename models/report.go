package models

// Tier is the coarse completion bucket shown on the profile page.
type Tier string

const (
	TierIncomplete Tier = "Incomplete"
	TierFair       Tier = "Fair"
	TierGood       Tier = "Good"
	TierExcellent  Tier = "Excellent"
)

// CompletionReport summarizes how complete a patient profile is. It is
// derived on every profile view and never persisted.
type CompletionReport struct {
	Score         int             `json:"score"`
	Total         int             `json:"total"`
	Percentage    int             `json:"percentage"`
	Tier          Tier            `json:"tier"`
	MissingFields []string        `json:"missing_fields"`
	CategoryFlags map[string]bool `json:"category_flags"`
	Suggestions   []string        `json:"suggestions"`
}

// TierFor maps a completion percentage to its display tier.
func TierFor(percentage int) Tier {
	switch {
	case percentage >= 90:
		return TierExcellent
	case percentage >= 70:
		return TierGood
	case percentage >= 50:
		return TierFair
	default:
		return TierIncomplete
	}
}
