package triage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BirthDateLayout is the DD/MM/YYYY format patients type at the kiosk.
const BirthDateLayout = "02/01/2006"

const isoDateLayout = "2006-01-02"

// IntakeForm is the raw form a kiosk session submits.
type IntakeForm struct {
	FullName   string `json:"full_name"`
	NationalID string `json:"national_id"`
	BirthDate  string `json:"birth_date"`
	Symptoms   string `json:"symptoms"`
}

// Intake is a validated IntakeForm.
type Intake struct {
	FullName   string
	NationalID string
	BirthDate  time.Time
	Symptoms   string
}

// Parse validates the form. Every field is required; empty symptom text is
// rejected here rather than silently triaged as Routine. All field problems
// are reported together and each wraps ErrValidation.
func (f IntakeForm) Parse(now time.Time) (Intake, error) {
	in := Intake{
		FullName:   strings.TrimSpace(f.FullName),
		NationalID: strings.TrimSpace(f.NationalID),
		Symptoms:   strings.TrimSpace(f.Symptoms),
	}

	var errs []error
	if in.FullName == "" {
		errs = append(errs, fmt.Errorf("%w: full_name is required", ErrValidation))
	}
	if !ValidNationalID(in.NationalID) {
		errs = append(errs, fmt.Errorf("%w: national_id must be exactly 11 digits", ErrValidation))
	}
	if bd, err := ParseBirthDate(f.BirthDate); err != nil {
		errs = append(errs, err)
	} else if bd.After(now) {
		errs = append(errs, fmt.Errorf("%w: birth_date is in the future", ErrValidation))
	} else {
		in.BirthDate = bd
	}
	if in.Symptoms == "" {
		errs = append(errs, fmt.Errorf("%w: symptoms are required", ErrValidation))
	}

	if len(errs) > 0 {
		return Intake{}, errors.Join(errs...)
	}
	return in, nil
}

// ParseBirthDate accepts DD/MM/YYYY or YYYY-MM-DD and returns a UTC date.
func ParseBirthDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: birth_date is required", ErrValidation)
	}
	for _, layout := range []string{BirthDateLayout, isoDateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: birth_date %q must be DD/MM/YYYY", ErrValidation, s)
}

// FormatBirthDate renders a stored birth date as DD/MM/YYYY.
func FormatBirthDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(BirthDateLayout)
}
