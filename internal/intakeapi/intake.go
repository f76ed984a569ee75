package intakeapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

func (a *API) handleIntake(w http.ResponseWriter, r *http.Request) {
	var form triage.IntakeForm
	if !decode(w, r, &form) {
		return
	}

	in, err := form.Parse(a.now())
	if err != nil {
		reject(w, err)
		return
	}

	adm, err := a.svc.Admit(r.Context(), in)
	if err != nil {
		a.fail(w, r, err, "admission failed")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("kiosk.admission.id", adm.ID),
		attribute.String("kiosk.triage.tier", string(adm.Tier)),
	)

	writeJSON(w, http.StatusCreated, newAdmissionView(adm))
}

type classifyRequest struct {
	Symptoms string `json:"symptoms"`
}

// handleClassify previews a classification without registering anything.
func (a *API) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, newClassificationView(a.svc.Classify(req.Symptoms)))
}
