package triage

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultRules returns the built-in rule table. Phrases are Portuguese, as
// typed or spoken at the kiosk, and are matched in the order listed.
func DefaultRules() []Rule {
	return []Rule{
		{Tier: TierEmergency, Phrases: []string{
			"dor no peito intensa", "dor forte no peito", "aperto no peito",
			"falta de ar grave", "dificuldade respiratória severa",
			"sangramento intenso", "hemorragia",
			"perda de consciência", "desmaio",
			"convulsão",
			"parada cardíaca", "parada respiratória",
			"sintomas de avc", "dormência súbita", "fraqueza facial",
		}},
		{Tier: TierUrgent, Phrases: []string{
			"febre alta persistente", "febre acima de 39",
			"fratura exposta", "osso quebrado visível",
			"dor abdominal forte", "dor abdominal intensa",
			"vômito persistente com sangue", "diarreia com sangue",
			"queimadura grave",
			"reação alérgica grave", "inchaço na garganta",
		}},
		{Tier: TierPriority, Phrases: []string{
			"dor de cabeça forte", "dor de cabeça persistente",
			"tontura frequente", "vertigem",
			"vômitos repetidos", "náusea intensa",
			"dor moderada", "ferimento que precisa de sutura",
			"sintomas gripais intensos", "piora de condição crônica",
		}},
		{Tier: TierRoutine, Phrases: []string{
			"resfriado leve", "coriza", "espirros",
			"dor de garganta leve",
			"tosse leve", "mal-estar geral",
			"dor muscular leve", "consulta de rotina", "retorno",
		}},
	}
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules decodes a YAML rule table of the form
//
//	rules:
//	  - tier: Emergency
//	    phrases: ["dor no peito intensa", ...]
//
// The result still has to pass NewClassifier's checks.
func LoadRules(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f ruleFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("decode rules: no rule groups")
	}
	return f.Rules, nil
}

// LoadClassifier builds a Classifier from a YAML rule file, or from the
// built-in table when path is empty.
func LoadClassifier(path string) (*Classifier, error) {
	if path == "" {
		return DefaultClassifier(), nil
	}

	f, err := os.Open(path) //nolint:gosec // rules path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rules, err := LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c, err := NewClassifier(rules)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
