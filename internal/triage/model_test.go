package triage

import (
	"errors"
	"testing"
	"time"
)

func TestTier_Rank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier  Tier
		rank  int
		label string
	}{
		{TierEmergency, 1, "Emergência"},
		{TierUrgent, 2, "Urgência"},
		{TierPriority, 3, "Prioridade"},
		{TierRoutine, 4, "Comum"},
		{"Critical", 0, "Critical"},
		{"", 0, ""},
	}

	for _, tt := range tests {
		if got := tt.tier.Rank(); got != tt.rank {
			t.Errorf("%q.Rank() = %d, want %d", tt.tier, got, tt.rank)
		}
		if got := tt.tier.Valid(); got != (tt.rank > 0) {
			t.Errorf("%q.Valid() = %v", tt.tier, got)
		}
		if got := tt.tier.Label(); got != tt.label {
			t.Errorf("%q.Label() = %q, want %q", tt.tier, got, tt.label)
		}
	}
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Tier
	}{
		{"Emergency", TierEmergency},
		{"urgent", TierUrgent},
		{" PRIORITY ", TierPriority},
		{"comum", TierRoutine},
		{"Emergência", TierEmergency},
		{"urgência", TierUrgent},
	}
	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		if err != nil {
			t.Errorf("ParseTier(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTier(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "critical", "alta"} {
		if _, err := ParseTier(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseTier(%q) err = %v, want ErrValidation", bad, err)
		}
	}
}

func TestValidNationalID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"11122233344", true},
		{"00000000000", true},
		{"1112223334", false},
		{"111222333445", false},
		{"111.222.333", false},
		{"1112223334a", false},
		{"", false},
		{"١١١٢٢٢٣٣٣٤٤", false}, // non-ASCII digits
	}
	for _, tt := range tests {
		if got := ValidNationalID(tt.in); got != tt.want {
			t.Errorf("ValidNationalID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewTriage_Validate(t *testing.T) {
	t.Parallel()

	ok := NewTriage{PatientID: 1, Symptoms: "febre", Tier: TierUrgent}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	missing := ok
	missing.PatientID = 0
	if err := missing.Validate(); !errors.Is(err, ErrReference) {
		t.Errorf("missing patient: err = %v, want ErrReference", err)
	}

	badTier := ok
	badTier.Tier = "Comum"
	if err := badTier.Validate(); !errors.Is(err, ErrValidation) || errors.Is(err, ErrReference) {
		t.Errorf("bad tier: err = %v, want plain ErrValidation", err)
	}
}

func TestNewPatient_Validate(t *testing.T) {
	t.Parallel()

	p := NewPatient{FullName: "Ana", NationalID: "11122233344", BirthDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	p.FullName = ""
	if err := p.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
