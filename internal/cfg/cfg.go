package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

// Config adds kiosk-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	RedisAddr             string
	PatientCacheTTL       time.Duration
	KafkaBrokers          string
	KafkaTopic            string
	SlackWebhookURL       string
	NotifyMinTier         string
	RulesFile             string
	APITokens             string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis host:port for the patient lookup cache (empty = no cache)")
	fs.DurationVar(&c.PatientCacheTTL, "patient-cache-ttl", 10*time.Minute, "how long a cached patient lookup is served from Redis")
	fs.StringVar(&c.KafkaBrokers, "kafka-brokers", "", "comma-separated Kafka brokers for admission events (empty = disabled)")
	fs.StringVar(&c.KafkaTopic, "kafka-topic", "kiosk.admissions", "Kafka topic for admission events")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for admission alerts")
	fs.StringVar(&c.NotifyMinTier, "notify-min-tier", string(triage.TierUrgent), "least severe tier that is posted to Slack")
	fs.StringVar(&c.RulesFile, "rules-file", "", "YAML classifier rule table (empty = built-in rules)")
	fs.StringVar(&c.APITokens, "api-tokens", "", "comma-separated client=token pairs allowed on the API (empty = no auth)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.DatabaseURL != "" {
		if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, errors.New("DATABASE_URL must be a postgres:// URL"))
		}
	}

	if c.RedisAddr != "" && c.PatientCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid PATIENT_CACHE_TTL %s (must be positive)", c.PatientCacheTTL))
	}

	if len(c.Brokers()) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if c.SlackWebhookURL != "" {
		if u, err := url.Parse(c.SlackWebhookURL); err != nil || u.Scheme != "https" || u.Host == "" {
			errs = append(errs, errors.New("SLACK_WEBHOOK_URL must be an https URL"))
		}
	}

	if _, err := triage.ParseTier(c.NotifyMinTier); err != nil {
		errs = append(errs, fmt.Errorf("invalid NOTIFY_MIN_TIER %q", c.NotifyMinTier))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Brokers splits KafkaBrokers into a list, dropping blanks.
func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// Tokens splits APITokens into client=token entries.
func (c *Config) Tokens() []string {
	return splitList(c.APITokens)
}

// MinTier returns the parsed NotifyMinTier. Call after Validate.
func (c *Config) MinTier() triage.Tier {
	t, _ := triage.ParseTier(c.NotifyMinTier)
	return t
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
