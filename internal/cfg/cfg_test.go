package cfg

import (
	"flag"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		PatientCacheTTL:       10 * time.Minute,
		KafkaTopic:            "kiosk.admissions",
		NotifyMinTier:         "Urgent",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.PatientCacheTTL != 10*time.Minute {
		t.Errorf("PatientCacheTTL = %s, want 10m", c.PatientCacheTTL)
	}
	if c.KafkaTopic != "kiosk.admissions" {
		t.Errorf("KafkaTopic = %q", c.KafkaTopic)
	}
	if c.NotifyMinTier != "Urgent" {
		t.Errorf("NotifyMinTier = %q, want Urgent", c.NotifyMinTier)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-database-url", "postgres://kiosk@db/kiosk",
		"-redis-addr", "redis:6379",
		"-patient-cache-ttl", "90s",
		"-kafka-brokers", "k1:9092, k2:9092",
		"-notify-min-tier", "emergência",
		"-rules-file", "/etc/kiosk/rules.yaml",
		"-api-tokens", "lobby=a,nurse=b",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.PatientCacheTTL != 90*time.Second {
		t.Errorf("PatientCacheTTL = %s, want 90s", c.PatientCacheTTL)
	}
	if got := c.Brokers(); !slices.Equal(got, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("Brokers = %q", got)
	}
	if got := c.Tokens(); !slices.Equal(got, []string{"lobby=a", "nurse=b"}) {
		t.Errorf("Tokens = %q", got)
	}
	if c.RulesFile != "/etc/kiosk/rules.yaml" {
		t.Errorf("RulesFile = %q", c.RulesFile)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.MinTier() != triage.TierEmergency {
		t.Errorf("MinTier = %s, want Emergency", c.MinTier())
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	with := func(mut func(*Config)) Config {
		c := validBase()
		mut(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "minimum valid values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 1, 2, 1
			}),
			wantErr: false,
		},
		{
			name: "maximum valid values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 299, 300, 65535
			}),
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       with(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget above max",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 60 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       with(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port overflow",
			cfg:       with(func(c *Config) { c.APIPort = math.MaxInt32 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Backends
		{
			name:      "non-postgres database url",
			cfg:       with(func(c *Config) { c.DatabaseURL = "mysql://root@db/kiosk" }),
			wantErr:   true,
			errSubstr: []string{"DATABASE_URL"},
		},
		{
			name:    "postgresql scheme",
			cfg:     with(func(c *Config) { c.DatabaseURL = "postgresql://kiosk@db:5432/kiosk?sslmode=disable" }),
			wantErr: false,
		},
		{
			name:      "cache without ttl",
			cfg:       with(func(c *Config) { c.RedisAddr, c.PatientCacheTTL = "redis:6379", 0 }),
			wantErr:   true,
			errSubstr: []string{"PATIENT_CACHE_TTL"},
		},
		{
			name:      "kafka without topic",
			cfg:       with(func(c *Config) { c.KafkaBrokers, c.KafkaTopic = "k1:9092", " " }),
			wantErr:   true,
			errSubstr: []string{"KAFKA_TOPIC"},
		},
		{
			name:      "plain http slack webhook",
			cfg:       with(func(c *Config) { c.SlackWebhookURL = "http://hooks.slack.com/services/x" }),
			wantErr:   true,
			errSubstr: []string{"SLACK_WEBHOOK_URL"},
		},
		{
			name:      "unknown notify tier",
			cfg:       with(func(c *Config) { c.NotifyMinTier = "critical" }),
			wantErr:   true,
			errSubstr: []string{"NOTIFY_MIN_TIER"},
		},
		// Multiple errors are joined
		{
			name:      "all invalid",
			cfg:       Config{DrainSeconds: 0, ShutdownBudgetSeconds: 0, APIPort: 0},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "NOTIFY_MIN_TIER"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, s := range tt.errSubstr {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error %q does not contain %q", err, s)
				}
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %q, want nil", got)
	}
	if got := splitList(" a , ,b,"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("splitList = %q", got)
	}
}
