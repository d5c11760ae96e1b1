package profile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mchoapp/backend/models"
)

// Candidate column lists for each logical attribute. The patient tables
// went through several schema revisions and imports from the old Excel
// masterlist, so the same attribute can live under different column
// names depending on when the row was written. Order is priority order.
var (
	contactCandidates     = []string{"contact_num", "contact_number", "phone", "contact"}
	emailCandidates       = []string{"email", "email_address"}
	sexCandidates         = []string{"sex", "gender"}
	barangayCandidates    = []string{"barangay", "brgy", "location"}
	addressCandidates     = []string{"address", "home_address", "residence"}
	bloodTypeCandidates   = []string{"blood_type", "blood_group"}
	civilStatusCandidates = []string{"civil_status", "marital_status"}
	religionCandidates    = []string{"religion"}
	occupationCandidates  = []string{"occupation", "work"}
	philHealthCandidates  = []string{"philhealth_id", "philhealth_no", "philhealth_number"}
	pwdFlagCandidates     = []string{"is_pwd", "pwd_status"}
	pwdIDCandidates       = []string{"pwd_id_number", "pwd_id"}
	photoCandidates       = []string{"photo_url", "profile_pic", "profile_picture_url"}
	dobCandidates         = []string{"dob", "date_of_birth", "birthdate"}
)

// Resolve returns the first candidate column whose value is present and
// non-empty, stringified and trimmed. Missing columns are not an error,
// just skipped.
func Resolve(row map[string]any, candidates ...string) string {
	if row == nil {
		return ""
	}
	for _, col := range candidates {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}

// Truthy interprets the loose boolean encodings found in the legacy
// rows: real booleans, numeric 1/0, and yes/no style strings.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "t", "yes", "y":
			return true
		}
		return false
	default:
		return false
	}
}

// FullName concatenates the name parts, skipping empty ones. Rows from
// the first schema carry first/middle/last/suffix, imported rows carry
// fname/mname/lname, and a few only have a single full_name column.
func FullName(row map[string]any) string {
	parts := []string{
		Resolve(row, "first_name", "fname"),
		Resolve(row, "middle_name", "mname"),
		Resolve(row, "last_name", "lname"),
		Resolve(row, "suffix"),
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) > 0 {
		return strings.Join(nonEmpty, " ")
	}
	return Resolve(row, "full_name", "name")
}

// DOB resolves the date of birth from either a date column or a string
// column in one of the layouts the legacy forms produced.
func DOB(row map[string]any) *time.Time {
	for _, col := range dobCandidates {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		if t, ok := v.(time.Time); ok {
			return &t
		}
		s := strings.TrimSpace(stringify(v))
		if s == "" {
			continue
		}
		for _, layout := range []string{"2006-01-02", time.RFC3339, "01/02/2006"} {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

// AgeAt computes whole calendar years elapsed between dob and now.
func AgeAt(dob time.Time, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() ||
		(now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// AgeCategoryFor buckets an age: Minor under 18, Senior Citizen at 60.
func AgeCategoryFor(age int) models.AgeCategory {
	switch {
	case age < 18:
		return models.AgeMinor
	case age >= 60:
		return models.AgeSeniorCitizen
	default:
		return models.AgeAdult
	}
}

// BuildProfile assembles the canonical profile from the raw patient row
// and its satellite rows. Satellite rows may be nil when the patient has
// not filled that form in yet. Age is recomputed from the date of birth
// against the supplied now; rows without a date of birth fall back to
// the stored age column some imports carry. AgeCategory is set only when
// an age could be determined, which is also how the scorer tells a known
// age apart from an absent one.
func BuildProfile(patientID string, patientRow, personalRow, emergencyRow, lifestyleRow map[string]any, now time.Time) *models.PatientProfile {
	p := &models.PatientProfile{
		PatientID:    patientID,
		FullName:     FullName(patientRow),
		Sex:          Resolve(patientRow, sexCandidates...),
		Contact:      Resolve(patientRow, contactCandidates...),
		Email:        Resolve(patientRow, emailCandidates...),
		Barangay:     Resolve(patientRow, barangayCandidates...),
		Address:      Resolve(patientRow, addressCandidates...),
		PhotoURL:     Resolve(patientRow, photoCandidates...),
		PhilHealthID: Resolve(patientRow, philHealthCandidates...),
	}

	if dob := DOB(patientRow); dob != nil {
		p.DateOfBirth = dob
		p.Age = AgeAt(*dob, now)
		p.AgeCategory = AgeCategoryFor(p.Age)
	} else if stored := Resolve(patientRow, "age"); stored != "" {
		if age, err := strconv.Atoi(stored); err == nil && age >= 0 {
			p.Age = age
			p.AgeCategory = AgeCategoryFor(age)
		}
	}

	for _, col := range pwdFlagCandidates {
		if v, ok := patientRow[col]; ok && Truthy(v) {
			p.IsPWD = true
			break
		}
	}
	if p.IsPWD {
		p.PWDIDNumber = Resolve(patientRow, pwdIDCandidates...)
	}

	p.BloodType = Resolve(personalRow, bloodTypeCandidates...)
	p.CivilStatus = Resolve(personalRow, civilStatusCandidates...)
	p.Religion = Resolve(personalRow, religionCandidates...)
	p.Occupation = Resolve(personalRow, occupationCandidates...)
	// Older rows keep the personal fields on the patient row itself.
	if p.BloodType == "" {
		p.BloodType = Resolve(patientRow, bloodTypeCandidates...)
	}
	if p.CivilStatus == "" {
		p.CivilStatus = Resolve(patientRow, civilStatusCandidates...)
	}
	if p.Religion == "" {
		p.Religion = Resolve(patientRow, religionCandidates...)
	}
	if p.Occupation == "" {
		p.Occupation = Resolve(patientRow, occupationCandidates...)
	}

	p.EmergencyContact = models.EmergencyContact{
		Name:         Resolve(emergencyRow, "name", "contact_name"),
		Relationship: Resolve(emergencyRow, "relationship", "relation"),
		Contact:      Resolve(emergencyRow, contactCandidates...),
	}

	p.Lifestyle = models.Lifestyle{
		Smoking:  Resolve(lifestyleRow, "smoking", "smoking_status"),
		Alcohol:  Resolve(lifestyleRow, "alcohol", "alcohol_consumption"),
		Activity: Resolve(lifestyleRow, "activity", "physical_activity"),
		Diet:     Resolve(lifestyleRow, "diet"),
	}

	return p
}
