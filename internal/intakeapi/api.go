// Package intakeapi exposes the kiosk intake flow over HTTP for kiosk
// front-ends and the nursing station.
package intakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

const maxBodyBytes = 64 << 10

// IntakeService defines the business operations intakeapi needs.
type IntakeService interface {
	Admit(ctx context.Context, in triage.Intake) (*triage.Admission, error)
	Classify(text string) triage.Classification
	Patient(ctx context.Context, nationalID string) (*triage.PatientHistory, bool, error)
	Queue(ctx context.Context, tier triage.Tier) ([]triage.QueueEntry, error)
	Ready(ctx context.Context) bool
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    IntakeService
	now    func() time.Time
}

// New creates a new API handler.
func New(logger log.Logger, svc IntakeService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("intake service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		now:    time.Now,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/intake", a.handleIntake)
		r.Post("/classify", a.handleClassify)
		r.Get("/patients/{nationalID}", a.handleGetPatient)
		r.Get("/queue", a.handleQueue)
	})
}

// RequireStore wraps a readiness handler so it also fails while the record
// store is unreachable.
func (a *API) RequireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.svc.Ready(r.Context()) {
			writeError(w, http.StatusServiceUnavailable, "record store unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// reject answers 400 for input the API itself validated. These messages are
// written by the triage package and name the offending field.
func reject(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, err.Error())
}

// fail maps the triage error taxonomy onto HTTP status codes for errors from
// the service. Store errors can carry database detail, so only a fixed
// message goes back to the kiosk and the full error is logged.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, triage.ErrReference):
		a.logger.Warn(r.Context(), msg, "err", err)
		writeError(w, http.StatusBadRequest, "patient does not exist")
	case errors.Is(err, triage.ErrValidation):
		a.logger.Warn(r.Context(), msg, "err", err)
		writeError(w, http.StatusBadRequest, "record rejected by the record store")
	case errors.Is(err, triage.ErrConnectivity):
		a.logger.Warn(r.Context(), msg, "err", err)
		writeError(w, http.StatusServiceUnavailable, "record store unavailable")
	default:
		a.logger.Error(r.Context(), err, msg)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}
