package triage

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultJustification is returned when no trigger phrase matches.
const DefaultJustification = "Nenhum sintoma de alta prioridade identificado explicitamente. " +
	"Classificado como comum para avaliação médica."

// Rule is one severity group of the rule table: the tier it assigns and its
// trigger phrases in match order.
type Rule struct {
	Tier    Tier     `yaml:"tier"`
	Phrases []string `yaml:"phrases"`
}

// Classification is the outcome of classifying a symptom report.
type Classification struct {
	Tier          Tier   `json:"priority_tier"`
	Justification string `json:"justification"`
	// MatchedPhrase is empty when the default policy applied.
	MatchedPhrase string `json:"matched_phrase,omitempty"`
}

// Classifier maps free-text symptoms to a priority tier by scanning an
// ordered keyword table. It is immutable once built and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a Classifier from a rule table. The table must hold
// every tier exactly once, in severity order, with non-blank phrases.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if len(rules) != len(Tiers) {
		return nil, fmt.Errorf("rule table has %d groups, want %d", len(rules), len(Tiers))
	}

	var errs []error
	frozen := make([]Rule, len(rules))
	for i, r := range rules {
		if r.Tier != Tiers[i] {
			errs = append(errs, fmt.Errorf("rule group %d is %q, want %q", i, r.Tier, Tiers[i]))
			continue
		}
		phrases := make([]string, 0, len(r.Phrases))
		for j, p := range r.Phrases {
			p = normalize(strings.TrimSpace(p))
			if p == "" {
				errs = append(errs, fmt.Errorf("rule group %q phrase %d is blank", r.Tier, j))
				continue
			}
			phrases = append(phrases, p)
		}
		frozen[i] = Rule{Tier: r.Tier, Phrases: phrases}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Classifier{rules: frozen}, nil
}

// DefaultClassifier returns a Classifier over the built-in rule table.
func DefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("built-in rule table is invalid: %v", err))
	}
	return c
}

// Rules returns a copy of the classifier's normalized rule table.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Tier: r.Tier, Phrases: append([]string(nil), r.Phrases...)}
	}
	return out
}

// Classify never fails: text matching no phrase, including empty text, is
// Routine with DefaultJustification. Groups are scanned most severe first, and
// within a group phrases are tried in declared order, so the first hit wins
// regardless of where it sits in the text.
func (c *Classifier) Classify(text string) Classification {
	norm := normalize(text)
	for _, r := range c.rules {
		for _, p := range r.Phrases {
			if strings.Contains(norm, p) {
				return Classification{
					Tier:          r.Tier,
					Justification: justify(r.Tier, p),
					MatchedPhrase: p,
				}
			}
		}
	}
	return Classification{Tier: TierRoutine, Justification: DefaultJustification}
}

func justify(t Tier, phrase string) string {
	var kind string
	switch t {
	case TierEmergency:
		kind = "emergência"
	case TierUrgent:
		kind = "urgência"
	case TierPriority:
		kind = "atendimento prioritário"
	default:
		kind = "atendimento comum"
	}
	return fmt.Sprintf("Sintoma indicativo de %s detectado: '%s'.", kind, phrase)
}

// normalize lower-cases text with Portuguese casing rules. A Caser keeps
// state, so each call gets its own.
func normalize(s string) string {
	return cases.Lower(language.BrazilianPortuguese).String(s)
}
