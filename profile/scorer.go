package profile

import (
	"fmt"
	"math"
	"strings"

	"github.com/mchoapp/backend/history"
	"github.com/mchoapp/backend/models"
)

// check is one weighted completeness item. Every check is worth one
// point; the weighting is uniform across all 25 items.
type check struct {
	label   string
	present func(p *models.PatientProfile) bool
}

func has(s string) bool {
	return strings.TrimSpace(s) != ""
}

// The four scalar check groups: 7 basic, 4 personal, 3 emergency
// contact, 4 lifestyle. Together with the 7 history categories the total
// is 25.
var scalarChecks = []check{
	{"Full Name", func(p *models.PatientProfile) bool { return has(p.FullName) }},
	{"Age", func(p *models.PatientProfile) bool { return p.AgeCategory != "" }},
	{"Sex", func(p *models.PatientProfile) bool { return has(p.Sex) }},
	{"Date of Birth", func(p *models.PatientProfile) bool { return p.DateOfBirth != nil }},
	{"Contact Number", func(p *models.PatientProfile) bool { return has(p.Contact) }},
	{"Email", func(p *models.PatientProfile) bool { return has(p.Email) }},
	{"Barangay", func(p *models.PatientProfile) bool { return has(p.Barangay) }},

	{"Blood Type", func(p *models.PatientProfile) bool { return has(p.BloodType) }},
	{"Civil Status", func(p *models.PatientProfile) bool { return has(p.CivilStatus) }},
	{"Religion", func(p *models.PatientProfile) bool { return has(p.Religion) }},
	{"Occupation", func(p *models.PatientProfile) bool { return has(p.Occupation) }},

	{"Emergency Contact Name", func(p *models.PatientProfile) bool { return has(p.EmergencyContact.Name) }},
	{"Emergency Contact Relationship", func(p *models.PatientProfile) bool { return has(p.EmergencyContact.Relationship) }},
	{"Emergency Contact Number", func(p *models.PatientProfile) bool { return has(p.EmergencyContact.Contact) }},

	{"Smoking Status", func(p *models.PatientProfile) bool { return has(p.Lifestyle.Smoking) }},
	{"Alcohol Consumption", func(p *models.PatientProfile) bool { return has(p.Lifestyle.Alcohol) }},
	{"Physical Activity", func(p *models.PatientProfile) bool { return has(p.Lifestyle.Activity) }},
	{"Diet", func(p *models.PatientProfile) bool { return has(p.Lifestyle.Diet) }},
}

// Score computes the completion report for a resolved profile and its
// medical history. A history category earns its point when any of its
// records is either the Not Applicable sentinel or carries real content;
// an unanswered category earns nothing. The report is ephemeral and
// recomputed on every profile view.
func Score(p *models.PatientProfile, hist map[history.Category][]history.Record) models.CompletionReport {
	total := len(scalarChecks) + len(history.Categories())
	earned := 0
	missing := []string{}
	suggestions := []string{}
	flags := make(map[string]bool, len(history.Categories()))

	for _, c := range scalarChecks {
		if c.present(p) {
			earned++
		} else {
			missing = append(missing, c.label)
		}
	}

	// PWD ID is outside the 25 weighted checks. It only shows up as a
	// gap when the patient declared PWD status without supplying the
	// number; non-PWD patients never see it.
	if p.IsPWD && !has(p.PWDIDNumber) {
		missing = append(missing, "PWD ID Number")
	}

	for _, cat := range history.Categories() {
		complete := false
		for _, rec := range hist[cat] {
			if rec.Counts() {
				complete = true
				break
			}
		}
		flags[string(cat)] = complete
		if complete {
			earned++
		} else {
			suggestions = append(suggestions,
				fmt.Sprintf("Add at least one %s record or mark it as Not Applicable", cat.Label()))
		}
	}

	percentage := int(math.Round(100 * float64(earned) / float64(total)))

	return models.CompletionReport{
		Score:         earned,
		Total:         total,
		Percentage:    percentage,
		Tier:          models.TierFor(percentage),
		MissingFields: missing,
		CategoryFlags: flags,
		Suggestions:   suggestions,
	}
}
