package models

import "time"

// AgeCategory buckets a patient by age for program eligibility
// (minor health programs, senior citizen benefits).
type AgeCategory string

const (
	AgeMinor         AgeCategory = "Minor"
	AgeAdult         AgeCategory = "Adult"
	AgeSeniorCitizen AgeCategory = "Senior Citizen"
)

// EmergencyContact is the person the health office calls when the
// patient cannot be reached.
type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Contact      string `json:"contact,omitempty"`
}

// Lifestyle holds the self-reported lifestyle answers from the intake form.
type Lifestyle struct {
	Smoking  string `json:"smoking,omitempty"`
	Alcohol  string `json:"alcohol,omitempty"`
	Activity string `json:"activity,omitempty"`
	Diet     string `json:"diet,omitempty"`
}

// PatientProfile is the canonical read model assembled from the legacy
// patient tables. Age and AgeCategory are recomputed on every read from
// DateOfBirth; they are never stored.
type PatientProfile struct {
	PatientID   string      `json:"patient_id"`
	FullName    string      `json:"full_name,omitempty"`
	DateOfBirth *time.Time  `json:"date_of_birth,omitempty"`
	Age         int         `json:"age,omitempty"`
	AgeCategory AgeCategory `json:"age_category,omitempty"`
	Sex         string      `json:"sex,omitempty"`
	Contact     string      `json:"contact,omitempty"`
	Email       string      `json:"email,omitempty"`
	Barangay    string      `json:"barangay,omitempty"`
	Address     string      `json:"address,omitempty"`
	PhotoURL    string      `json:"photo_url,omitempty"`

	BloodType   string `json:"blood_type,omitempty"`
	CivilStatus string `json:"civil_status,omitempty"`
	Religion    string `json:"religion,omitempty"`
	Occupation  string `json:"occupation,omitempty"`

	PhilHealthID string `json:"philhealth_id,omitempty"`
	IsPWD        bool   `json:"is_pwd"`
	PWDIDNumber  string `json:"pwd_id_number,omitempty"`

	EmergencyContact EmergencyContact `json:"emergency_contact"`
	Lifestyle        Lifestyle        `json:"lifestyle"`
}
