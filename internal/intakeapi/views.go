package intakeapi

import (
	"time"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

// Response shapes. Birth dates are rendered DD/MM/YYYY as the kiosk screens
// show them, and every tier comes with its display label.

type patientView struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	NationalID   string    `json:"national_id"`
	BirthDate    string    `json:"birth_date"`
	RegisteredAt time.Time `json:"registered_at"`
}

type recordView struct {
	ID            int64       `json:"id"`
	Symptoms      string      `json:"symptoms"`
	Tier          triage.Tier `json:"priority_tier"`
	TierLabel     string      `json:"tier_label"`
	Justification string      `json:"justification"`
	TriagedAt     time.Time   `json:"triaged_at"`
}

type historyView struct {
	Patient patientView  `json:"patient"`
	Records []recordView `json:"records"`
}

type queueEntryView struct {
	Patient       patientView `json:"patient"`
	TriageID      int64       `json:"triage_id"`
	Tier          triage.Tier `json:"priority_tier"`
	TierLabel     string      `json:"tier_label"`
	Justification string      `json:"justification"`
	TriagedAt     time.Time   `json:"triaged_at"`
}

type classificationView struct {
	Tier          triage.Tier `json:"priority_tier"`
	TierLabel     string      `json:"tier_label"`
	Justification string      `json:"justification"`
	MatchedPhrase string      `json:"matched_phrase,omitempty"`
}

type admissionView struct {
	ID            string      `json:"id"`
	PatientID     int64       `json:"patient_id"`
	TriageID      int64       `json:"triage_id"`
	Tier          triage.Tier `json:"priority_tier"`
	TierLabel     string      `json:"tier_label"`
	Justification string      `json:"justification"`
	MatchedPhrase string      `json:"matched_phrase,omitempty"`
	AdmittedAt    time.Time   `json:"admitted_at"`
}

func newPatientView(p triage.Patient) patientView {
	return patientView{
		ID:           p.ID,
		FullName:     p.FullName,
		NationalID:   p.NationalID,
		BirthDate:    triage.FormatBirthDate(p.BirthDate),
		RegisteredAt: p.RegisteredAt,
	}
}

func newHistoryView(h *triage.PatientHistory) historyView {
	records := make([]recordView, 0, len(h.Records))
	for _, r := range h.Records {
		records = append(records, recordView{
			ID:            r.ID,
			Symptoms:      r.Symptoms,
			Tier:          r.Tier,
			TierLabel:     r.Tier.Label(),
			Justification: r.Justification,
			TriagedAt:     r.TriagedAt,
		})
	}
	return historyView{Patient: newPatientView(h.Patient), Records: records}
}

func newQueueView(entries []triage.QueueEntry) []queueEntryView {
	out := make([]queueEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, queueEntryView{
			Patient:       newPatientView(e.Patient),
			TriageID:      e.TriageID,
			Tier:          e.Tier,
			TierLabel:     e.Tier.Label(),
			Justification: e.Justification,
			TriagedAt:     e.TriagedAt,
		})
	}
	return out
}

func newClassificationView(c triage.Classification) classificationView {
	return classificationView{
		Tier:          c.Tier,
		TierLabel:     c.Tier.Label(),
		Justification: c.Justification,
		MatchedPhrase: c.MatchedPhrase,
	}
}

func newAdmissionView(a *triage.Admission) admissionView {
	return admissionView{
		ID:            a.ID,
		PatientID:     a.PatientID,
		TriageID:      a.TriageID,
		Tier:          a.Tier,
		TierLabel:     a.Tier.Label(),
		Justification: a.Justification,
		MatchedPhrase: a.MatchedPhrase,
		AdmittedAt:    a.AdmittedAt,
	}
}
