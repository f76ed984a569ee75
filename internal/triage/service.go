package triage

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"
)

var tracer = otel.Tracer("github.com/linnemanlabs/kiosk/internal/triage")

const notifyTimeout = 15 * time.Second

// Notifier is told about every successful admission.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, a *Admission) error
}

// Admission is the outcome of one kiosk intake. AdmittedAt is the stored
// triaged_at of the record.
type Admission struct {
	ID            string    `json:"id"`
	PatientID     int64     `json:"patient_id"`
	NationalID    string    `json:"national_id"`
	FullName      string    `json:"full_name"`
	TriageID      int64     `json:"triage_id"`
	Tier          Tier      `json:"priority_tier"`
	Justification string    `json:"justification"`
	MatchedPhrase string    `json:"matched_phrase,omitempty"`
	AdmittedAt    time.Time `json:"admitted_at"`
}

// PatientHistory is a patient with their triage records, newest first.
type PatientHistory struct {
	Patient Patient  `json:"patient"`
	Records []Record `json:"records"`
}

// Service is the business boundary for kiosk operations.
type Service struct {
	store      Store
	classifier *Classifier
	logger     log.Logger
	metrics    *Metrics
	notifiers  []Notifier
	now        func() time.Time

	// in-flight notification fan-outs, drained by Wait
	pending sync.WaitGroup
}

// NewService creates a new intake service. metrics may be nil.
func NewService(store Store, classifier *Classifier, logger log.Logger, metrics *Metrics, notifiers ...Notifier) *Service {
	if store == nil {
		panic(xerrors.New("triage store is required"))
	}
	if classifier == nil {
		panic(xerrors.New("classifier is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:      store,
		classifier: classifier,
		logger:     logger,
		metrics:    metrics,
		notifiers:  notifiers,
		now:        time.Now,
	}
}

// Admit registers the patient (reusing an existing registration for the same
// national id), classifies the symptoms and appends the triage record.
func (s *Service) Admit(ctx context.Context, in Intake) (*Admission, error) {
	ctx, span := tracer.Start(ctx, "intake.admit")
	defer span.End()

	start := s.now()
	a, err := s.admit(ctx, in)
	s.metrics.observeAdmission(admitResult(err), s.now().Sub(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("kiosk.admission.id", a.ID),
		attribute.Int64("kiosk.patient.id", a.PatientID),
		attribute.String("kiosk.triage.tier", string(a.Tier)),
	)

	s.logger.Info(ctx, "patient admitted",
		"admission_id", a.ID,
		"patient_id", a.PatientID,
		"triage_id", a.TriageID,
		"tier", a.Tier,
	)

	if len(s.notifiers) > 0 {
		// record is committed; notify off the request path
		s.pending.Add(1)
		go s.notify(context.WithoutCancel(ctx), a)
	}
	return a, nil
}

func (s *Service) admit(ctx context.Context, in Intake) (*Admission, error) {
	patientID, err := s.store.AddPatient(ctx, NewPatient{
		FullName:   in.FullName,
		NationalID: in.NationalID,
		BirthDate:  in.BirthDate,
	})
	if err != nil {
		return nil, err
	}

	c := s.Classify(in.Symptoms)

	rec, err := s.store.AddTriage(ctx, NewTriage{
		PatientID:     patientID,
		Symptoms:      in.Symptoms,
		Tier:          c.Tier,
		Justification: c.Justification,
	})
	if err != nil {
		return nil, err
	}

	return &Admission{
		ID:            ulid.Make().String(),
		PatientID:     patientID,
		NationalID:    in.NationalID,
		FullName:      in.FullName,
		TriageID:      rec.ID,
		Tier:          rec.Tier,
		Justification: rec.Justification,
		MatchedPhrase: c.MatchedPhrase,
		AdmittedAt:    rec.TriagedAt,
	}, nil
}

// Classify runs the classifier without persisting anything.
func (s *Service) Classify(text string) Classification {
	c := s.classifier.Classify(text)
	s.metrics.observeClassification(c)
	return c
}

// Patient looks up a patient by national id together with their history.
func (s *Service) Patient(ctx context.Context, nationalID string) (*PatientHistory, bool, error) {
	p, ok, err := s.store.FindPatientByNationalID(ctx, nationalID)
	if err != nil || !ok {
		return nil, ok, err
	}
	records, err := s.store.ListTriageForPatient(ctx, p.ID)
	if err != nil {
		return nil, false, err
	}
	return &PatientHistory{Patient: *p, Records: records}, true, nil
}

// Queue lists each patient's latest triage, most urgent first. An empty tier
// means no filter.
func (s *Service) Queue(ctx context.Context, tier Tier) ([]QueueEntry, error) {
	return s.store.ListLatestByPriority(ctx, tier)
}

// Ready reports whether the record store is reachable.
func (s *Service) Ready(ctx context.Context) bool {
	return s.store.CheckConnectivity(ctx)
}

// Wait blocks until every notification started by Admit has finished, or
// until ctx is done. main calls it during shutdown, after the API listener
// has stopped accepting admissions.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify fans out to every notifier in its own span. A failed notification
// is logged and counted; the admission itself has already been committed.
func (s *Service) notify(ctx context.Context, a *Admission) {
	defer s.pending.Done()

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "intake.notify", trace.WithAttributes(
		attribute.String("kiosk.admission.id", a.ID),
	))
	defer span.End()

	for _, n := range s.notifiers {
		if err := n.Notify(ctx, a); err != nil {
			s.metrics.observeNotifyFailure(n.Name())
			span.AddEvent("notify failed", trace.WithAttributes(
				attribute.String("kiosk.notifier", n.Name()),
			))
			s.logger.Error(ctx, err, "admission notification failed",
				"notifier", n.Name(),
				"admission_id", a.ID,
			)
		}
	}
}

func admitResult(err error) string {
	switch {
	case err == nil:
		return "admitted"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrConnectivity):
		return "unavailable"
	default:
		return "error"
	}
}
