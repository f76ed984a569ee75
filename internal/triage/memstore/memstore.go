// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

// Store holds patients and triage records in memory. Suitable for dev/testing.
type Store struct {
	mu       sync.RWMutex
	patients []triage.Patient  // index = id-1
	byNID    map[string]int64  // national id -> patient id
	records  []triage.Record   // index = id-1
	history  map[int64][]int64 // patient id -> record ids, append order
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for registered_at and triaged_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New initializes a new in-memory Store.
func New(opts ...Option) *Store {
	s := &Store{
		byNID:   make(map[string]int64),
		history: make(map[int64][]int64),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddPatient registers a patient, or returns the id already registered for
// the national id.
func (s *Store) AddPatient(_ context.Context, p triage.NewPatient) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byNID[p.NationalID]; ok {
		return id, nil
	}

	id := int64(len(s.patients) + 1)
	s.patients = append(s.patients, triage.Patient{
		ID:           id,
		FullName:     p.FullName,
		NationalID:   p.NationalID,
		BirthDate:    p.BirthDate,
		RegisteredAt: s.now().UTC(),
	})
	s.byNID[p.NationalID] = id
	return id, nil
}

// AddTriage appends a triage record for an existing patient.
func (s *Store) AddTriage(_ context.Context, t triage.NewTriage) (*triage.Record, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.PatientID > int64(len(s.patients)) {
		return nil, fmt.Errorf("%w: patient id %d", triage.ErrReference, t.PatientID)
	}

	rec := triage.Record{
		ID:            int64(len(s.records) + 1),
		PatientID:     t.PatientID,
		Symptoms:      t.Symptoms,
		Tier:          t.Tier,
		Justification: t.Justification,
		TriagedAt:     s.now().UTC(),
	}
	s.records = append(s.records, rec)
	s.history[t.PatientID] = append(s.history[t.PatientID], rec.ID)
	return &rec, nil
}

// FindPatientByNationalID returns a copy of the patient, if registered.
func (s *Store) FindPatientByNationalID(_ context.Context, nationalID string) (*triage.Patient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNID[nationalID]
	if !ok {
		return nil, false, nil
	}
	cp := s.patients[id-1]
	return &cp, true, nil
}

// ListTriageForPatient returns copies of the patient's records, newest first.
func (s *Store) ListTriageForPatient(_ context.Context, patientID int64) ([]triage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.history[patientID]
	out := make([]triage.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id-1])
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out, nil
}

// ListLatestByPriority returns each triaged patient's latest record.
func (s *Store) ListLatestByPriority(_ context.Context, tier triage.Tier) ([]triage.QueueEntry, error) {
	if tier != "" && !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown priority tier %q", triage.ErrValidation, tier)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]triage.QueueEntry, 0, len(s.history))
	for pid, ids := range s.history {
		latest := s.records[ids[0]-1]
		for _, id := range ids[1:] {
			if r := s.records[id-1]; newer(r, latest) {
				latest = r
			}
		}
		if tier != "" && latest.Tier != tier {
			continue
		}
		out = append(out, triage.QueueEntry{
			Patient:       s.patients[pid-1],
			TriageID:      latest.ID,
			Tier:          latest.Tier,
			Justification: latest.Justification,
			TriagedAt:     latest.TriagedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if ri, rj := out[i].Tier.Rank(), out[j].Tier.Rank(); ri != rj {
			return ri < rj
		}
		if !out[i].TriagedAt.Equal(out[j].TriagedAt) {
			return out[i].TriagedAt.After(out[j].TriagedAt)
		}
		return out[i].TriageID > out[j].TriageID
	})
	return out, nil
}

// CheckConnectivity always succeeds for the in-memory store.
func (s *Store) CheckConnectivity(context.Context) bool {
	return true
}

// newer orders records by triage time, then by id for equal timestamps.
func newer(a, b triage.Record) bool {
	if !a.TriagedAt.Equal(b.TriagedAt) {
		return a.TriagedAt.After(b.TriagedAt)
	}
	return a.ID > b.ID
}
