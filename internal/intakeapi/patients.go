package intakeapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

func (a *API) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	nid := chi.URLParam(r, "nationalID")
	if !triage.ValidNationalID(nid) {
		writeError(w, http.StatusBadRequest, "national id must be exactly 11 digits")
		return
	}

	h, ok, err := a.svc.Patient(r.Context(), nid)
	if err != nil {
		a.fail(w, r, err, "failed to get patient")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int64("kiosk.patient.id", h.Patient.ID),
		attribute.Int("kiosk.patient.records", len(h.Records)),
	)

	writeJSON(w, http.StatusOK, newHistoryView(h))
}

// handleQueue lists each patient's latest triage, most urgent first.
// ?tier= accepts a tier name or its display label.
func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	var tier triage.Tier
	if q := r.URL.Query().Get("tier"); q != "" {
		t, err := triage.ParseTier(q)
		if err != nil {
			reject(w, err)
			return
		}
		tier = t
	}

	entries, err := a.svc.Queue(r.Context(), tier)
	if err != nil {
		a.fail(w, r, err, "failed to list queue")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": newQueueView(entries),
	})
}
