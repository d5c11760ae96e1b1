package history

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	notApplicable = "Not Applicable"
	naShort       = "N/A"
)

// Record is one medical history entry. The legacy tables signal
// "reviewed, nothing to report" by storing a row whose marker column
// reads "Not Applicable"; that string convention is translated into the
// NotApplicable flag here, at the storage boundary, so nothing above
// this package compares marker strings.
type Record struct {
	ID            uuid.UUID         `json:"id"`
	Category      Category          `json:"category"`
	Fields        map[string]string `json:"fields"`
	NotApplicable bool              `json:"not_applicable"`
	CreatedAt     time.Time         `json:"created_at,omitempty"`
}

// isNAValue reports whether a raw column value is one of the sentinel
// spellings found in the legacy data.
func isNAValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "not applicable", "n/a":
		return true
	}
	return false
}

// NewRecord builds a Record from raw column values, classifying it as a
// sentinel when the category's marker column carries an N/A spelling.
func NewRecord(id uuid.UUID, cat Category, fields map[string]string, createdAt time.Time) Record {
	return Record{
		ID:            id,
		Category:      cat,
		Fields:        fields,
		NotApplicable: isNAValue(fields[cat.MarkerField()]),
		CreatedAt:     createdAt,
	}
}

// BuildSentinel constructs the placeholder record that marks a category
// as Not Applicable: the marker column reads "Not Applicable" and every
// other column reads "N/A".
func BuildSentinel(cat Category) Record {
	fields := make(map[string]string, len(cat.Fields()))
	for _, f := range cat.Fields() {
		if f == cat.MarkerField() {
			fields[f] = notApplicable
		} else {
			fields[f] = naShort
		}
	}
	return Record{
		Category:      cat,
		Fields:        fields,
		NotApplicable: true,
	}
}

// HasContent reports whether the record carries at least one real value,
// i.e. a field that is neither empty nor an N/A spelling.
func (r Record) HasContent() bool {
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" && !isNAValue(v) {
			return true
		}
	}
	return false
}

// Counts reports whether the record makes its category count as complete:
// either an explicit Not Applicable sentinel or a record with real content.
func (r Record) Counts() bool {
	return r.NotApplicable || r.HasContent()
}
