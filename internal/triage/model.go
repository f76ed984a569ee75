package triage

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a clinical priority tier, ranked by decreasing severity.
type Tier string

const (
	// TierEmergency needs immediate care
	TierEmergency Tier = "Emergency"

	// TierUrgent needs care soon
	TierUrgent Tier = "Urgent"

	// TierPriority goes ahead of routine visits
	TierPriority Tier = "Priority"

	// TierRoutine is the default for anything else
	TierRoutine Tier = "Routine"
)

// Tiers lists every tier in severity order, most severe first.
var Tiers = []Tier{TierEmergency, TierUrgent, TierPriority, TierRoutine}

// Rank returns the severity rank of the tier (Emergency=1 .. Routine=4),
// or 0 for an unknown tier.
func (t Tier) Rank() int {
	for i, v := range Tiers {
		if v == t {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	return t.Rank() > 0
}

// Label returns the Portuguese display label used on the kiosk screens.
func (t Tier) Label() string {
	switch t {
	case TierEmergency:
		return "Emergência"
	case TierUrgent:
		return "Urgência"
	case TierPriority:
		return "Prioridade"
	case TierRoutine:
		return "Comum"
	default:
		return string(t)
	}
}

// ParseTier accepts a tier name or its display label, case-insensitively.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	for _, t := range Tiers {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, t.Label()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown priority tier %q", ErrValidation, s)
}

// Patient is a registered kiosk patient. Patients are append-only.
type Patient struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	NationalID   string    `json:"national_id"`
	BirthDate    time.Time `json:"birth_date"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewPatient holds the fields needed to register a patient.
type NewPatient struct {
	FullName   string
	NationalID string
	BirthDate  time.Time
}

// Record is one triage event for a patient.
type Record struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"patient_id"`
	Symptoms      string    `json:"symptoms"`
	Tier          Tier      `json:"priority_tier"`
	Justification string    `json:"justification"`
	TriagedAt     time.Time `json:"triaged_at"`
}

// NewTriage holds the fields needed to append a triage record.
type NewTriage struct {
	PatientID     int64
	Symptoms      string
	Tier          Tier
	Justification string
}

// QueueEntry is a patient together with their most recent triage.
type QueueEntry struct {
	Patient       Patient   `json:"patient"`
	TriageID      int64     `json:"triage_id"`
	Tier          Tier      `json:"priority_tier"`
	Justification string    `json:"justification"`
	TriagedAt     time.Time `json:"triaged_at"`
}

// Validate checks the invariants every Store enforces before registering.
func (p NewPatient) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if !ValidNationalID(p.NationalID) {
		return fmt.Errorf("%w: national id must be exactly 11 digits", ErrValidation)
	}
	if p.BirthDate.IsZero() {
		return fmt.Errorf("%w: birth date is required", ErrValidation)
	}
	return nil
}

// Validate checks the invariants every Store enforces before appending.
func (t NewTriage) Validate() error {
	if t.PatientID <= 0 {
		return fmt.Errorf("%w: patient id %d", ErrReference, t.PatientID)
	}
	if strings.TrimSpace(t.Symptoms) == "" {
		return fmt.Errorf("%w: symptoms are required", ErrValidation)
	}
	if !t.Tier.Valid() {
		return fmt.Errorf("%w: unknown priority tier %q", ErrValidation, t.Tier)
	}
	return nil
}

// ValidNationalID reports whether id is exactly 11 ASCII digits.
func ValidNationalID(id string) bool {
	if len(id) != 11 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
