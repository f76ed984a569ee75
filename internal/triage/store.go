package triage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input the store refuses to persist.
	ErrValidation = errors.New("validation failed")

	// ErrReference marks a triage append for a patient that does not exist.
	// It is a validation failure, so errors.Is(err, ErrValidation) holds too.
	ErrReference = fmt.Errorf("%w: patient does not exist", ErrValidation)

	// ErrConnectivity marks an unreachable or failing storage backend.
	ErrConnectivity = errors.New("record store unavailable")
)

// Store is the persistence contract for patients and triage records.
//
// Implementations translate backend specific failures into ErrValidation,
// ErrReference or ErrConnectivity; driver error types never escape.
type Store interface {
	// AddPatient registers a patient and returns its id. Registering a
	// national id that already exists returns the existing patient's id.
	AddPatient(ctx context.Context, p NewPatient) (int64, error)

	// AddTriage appends a triage record stamped with the store's clock and
	// returns it as persisted, so callers see the stored triaged_at.
	AddTriage(ctx context.Context, t NewTriage) (*Record, error)

	FindPatientByNationalID(ctx context.Context, nationalID string) (*Patient, bool, error)

	// ListTriageForPatient returns the patient's records, newest first.
	ListTriageForPatient(ctx context.Context, patientID int64) ([]Record, error)

	// ListLatestByPriority returns each patient's most recent triage. An empty
	// tier lists everyone ordered by severity then recency; a tier filters to
	// patients whose latest triage has that tier, newest first.
	ListLatestByPriority(ctx context.Context, tier Tier) ([]QueueEntry, error)

	// CheckConnectivity is a liveness probe. It never returns an error.
	CheckConnectivity(ctx context.Context) bool
}
