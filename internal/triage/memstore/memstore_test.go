package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// stepClock returns base, base+1m, base+2m, ... on successive calls.
func stepClock() func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := base.Add(time.Duration(n) * time.Minute)
		n++
		return t
	}
}

func patient(nid, name string) triage.NewPatient {
	return triage.NewPatient{
		FullName:   name,
		NationalID: nid,
		BirthDate:  time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func mustAddPatient(t *testing.T, s *Store, nid string) int64 {
	t.Helper()
	id, err := s.AddPatient(context.Background(), patient(nid, "Paciente "+nid))
	if err != nil {
		t.Fatalf("AddPatient(%s): %v", nid, err)
	}
	return id
}

func mustAddTriage(t *testing.T, s *Store, pid int64, tier triage.Tier) int64 {
	t.Helper()
	rec, err := s.AddTriage(context.Background(), triage.NewTriage{
		PatientID:     pid,
		Symptoms:      "sintomas",
		Tier:          tier,
		Justification: "teste",
	})
	if err != nil {
		t.Fatalf("AddTriage(%d): %v", pid, err)
	}
	return rec.ID
}

func TestStore_AddPatientIdempotent(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	first, err := s.AddPatient(ctx, patient("11122233344", "João da Silva"))
	if err != nil {
		t.Fatalf("AddPatient: %v", err)
	}
	second, err := s.AddPatient(ctx, triage.NewPatient{
		FullName:   "Outro Nome",
		NationalID: "11122233344",
		BirthDate:  time.Date(1992, 5, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AddPatient duplicate: %v", err)
	}
	if first != second {
		t.Errorf("duplicate national id returned %d, want %d", second, first)
	}
	if len(s.patients) != 1 {
		t.Errorf("patients = %d, want 1", len(s.patients))
	}

	got, ok, err := s.FindPatientByNationalID(ctx, "11122233344")
	if err != nil || !ok {
		t.Fatalf("FindPatientByNationalID: ok=%v err=%v", ok, err)
	}
	if got.FullName != "João da Silva" {
		t.Errorf("FullName = %q, want original registration kept", got.FullName)
	}
}

func TestStore_AddPatientValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   triage.NewPatient
	}{
		{"short national id", patient("123", "A")},
		{"letters in national id", patient("1112223334x", "A")},
		{"blank name", patient("11122233344", "  ")},
		{"zero birth date", triage.NewPatient{FullName: "A", NationalID: "11122233344"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New()
			if _, err := s.AddPatient(context.Background(), tt.in); !errors.Is(err, triage.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if len(s.patients) != 0 {
				t.Errorf("patients = %d, want 0", len(s.patients))
			}
		})
	}
}

func TestStore_AddTriageUnknownPatient(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.AddTriage(context.Background(), triage.NewTriage{
		PatientID: 42,
		Symptoms:  "febre",
		Tier:      triage.TierRoutine,
	})
	if !errors.Is(err, triage.ErrReference) {
		t.Fatalf("err = %v, want ErrReference", err)
	}
	if !errors.Is(err, triage.ErrValidation) {
		t.Errorf("ErrReference should also match ErrValidation")
	}
	if len(s.records) != 0 {
		t.Errorf("records = %d, want 0", len(s.records))
	}
}

func TestStore_AddTriageReturnsStoredRecord(t *testing.T) {
	t.Parallel()

	s := New(WithClock(stepClock()))
	pid := mustAddPatient(t, s, "11122233344")

	rec, err := s.AddTriage(context.Background(), triage.NewTriage{
		PatientID:     pid,
		Symptoms:      "convulsão",
		Tier:          triage.TierEmergency,
		Justification: "j",
	})
	if err != nil {
		t.Fatalf("AddTriage: %v", err)
	}

	got, err := s.ListTriageForPatient(context.Background(), pid)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListTriageForPatient = %v, %v", got, err)
	}
	if *rec != got[0] {
		t.Errorf("AddTriage returned %+v, stored %+v", *rec, got[0])
	}
	if rec.TriagedAt.IsZero() {
		t.Error("TriagedAt not stamped")
	}
}

func TestStore_AddTriageValidation(t *testing.T) {
	t.Parallel()

	s := New()
	pid := mustAddPatient(t, s, "11122233344")

	if _, err := s.AddTriage(context.Background(), triage.NewTriage{PatientID: pid, Tier: triage.TierRoutine}); !errors.Is(err, triage.ErrValidation) {
		t.Errorf("empty symptoms: err = %v, want ErrValidation", err)
	}
	if _, err := s.AddTriage(context.Background(), triage.NewTriage{PatientID: pid, Symptoms: "x", Tier: "Comum"}); !errors.Is(err, triage.ErrValidation) {
		t.Errorf("unknown tier: err = %v, want ErrValidation", err)
	}
}

func TestStore_ListTriageForPatientNewestFirst(t *testing.T) {
	t.Parallel()

	s := New(WithClock(stepClock()))
	pid := mustAddPatient(t, s, "11122233344")
	other := mustAddPatient(t, s, "55566677788")

	t1 := mustAddTriage(t, s, pid, triage.TierPriority)
	mustAddTriage(t, s, other, triage.TierRoutine)
	t2 := mustAddTriage(t, s, pid, triage.TierRoutine)
	t3 := mustAddTriage(t, s, pid, triage.TierEmergency)

	got, err := s.ListTriageForPatient(context.Background(), pid)
	if err != nil {
		t.Fatalf("ListTriageForPatient: %v", err)
	}
	want := []int64{t3, t2, t1}
	if len(got) != len(want) {
		t.Fatalf("records = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("record[%d] = %d, want %d", i, got[i].ID, want[i])
		}
	}
	if !got[0].TriagedAt.After(got[1].TriagedAt) {
		t.Errorf("records not ordered by triaged_at desc: %v, %v", got[0].TriagedAt, got[1].TriagedAt)
	}
}

func TestStore_ListTriageForPatientEmpty(t *testing.T) {
	t.Parallel()

	s := New()
	got, err := s.ListTriageForPatient(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListTriageForPatient: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestStore_ListLatestByPriority(t *testing.T) {
	t.Parallel()

	s := New(WithClock(stepClock()))
	ana := mustAddPatient(t, s, "00000000001")
	bia := mustAddPatient(t, s, "00000000002")
	caio := mustAddPatient(t, s, "00000000003")
	davi := mustAddPatient(t, s, "00000000004")
	mustAddPatient(t, s, "00000000005") // never triaged

	mustAddTriage(t, s, ana, triage.TierEmergency)
	mustAddTriage(t, s, ana, triage.TierRoutine) // latest for ana
	mustAddTriage(t, s, bia, triage.TierUrgent)
	mustAddTriage(t, s, caio, triage.TierRoutine)
	mustAddTriage(t, s, davi, triage.TierUrgent)

	got, err := s.ListLatestByPriority(context.Background(), "")
	if err != nil {
		t.Fatalf("ListLatestByPriority: %v", err)
	}

	want := []struct {
		patient int64
		tier    triage.Tier
	}{
		{davi, triage.TierUrgent},
		{bia, triage.TierUrgent},
		{caio, triage.TierRoutine},
		{ana, triage.TierRoutine},
	}
	if len(got) != len(want) {
		t.Fatalf("entries = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Patient.ID != w.patient || got[i].Tier != w.tier {
			t.Errorf("entry[%d] = (%d, %s), want (%d, %s)", i, got[i].Patient.ID, got[i].Tier, w.patient, w.tier)
		}
	}

	routine, err := s.ListLatestByPriority(context.Background(), triage.TierRoutine)
	if err != nil {
		t.Fatalf("ListLatestByPriority(Routine): %v", err)
	}
	if len(routine) != 2 || routine[0].Patient.ID != caio || routine[1].Patient.ID != ana {
		t.Errorf("Routine filter = %+v, want [caio, ana]", routine)
	}

	emergency, err := s.ListLatestByPriority(context.Background(), triage.TierEmergency)
	if err != nil {
		t.Fatalf("ListLatestByPriority(Emergency): %v", err)
	}
	if len(emergency) != 0 {
		t.Errorf("Emergency filter = %d entries, want 0 (ana's latest is Routine)", len(emergency))
	}
}

func TestStore_ListLatestByPriorityUnknownTier(t *testing.T) {
	t.Parallel()

	s := New()
	if _, err := s.ListLatestByPriority(context.Background(), "Critical"); !errors.Is(err, triage.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestStore_FindPatientMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.FindPatientByNationalID(context.Background(), "99999999999")
	if err != nil {
		t.Fatalf("FindPatientByNationalID: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for unknown national id")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	wg.Add(n * 2)

	for i := range n {
		// every goroutine pair fights over the same five national ids
		nid := fmt.Sprintf("%011d", i%5)

		go func() {
			defer wg.Done()
			id, err := s.AddPatient(ctx, patient(nid, "x"))
			if err == nil {
				_, _ = s.AddTriage(ctx, triage.NewTriage{PatientID: id, Symptoms: "tosse leve", Tier: triage.TierRoutine})
			}
		}()

		go func() {
			defer wg.Done()
			_, _, _ = s.FindPatientByNationalID(ctx, nid)
			_, _ = s.ListLatestByPriority(ctx, "")
		}()
	}

	wg.Wait()

	if len(s.patients) != 5 {
		t.Errorf("patients = %d, want 5", len(s.patients))
	}
	if len(s.records) != n {
		t.Errorf("records = %d, want %d", len(s.records), n)
	}
}
