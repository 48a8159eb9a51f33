// Package config loads the engine configuration from an optional YAML
// file overridden by SWARMSENTRY_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"swarmsentry/internal/membership"
)

// DefaultEnvPrefix is the default prefix for environment variables
const (
	DefaultEnvPrefix = "SWARMSENTRY_"
	MinPort          = 1024
	MaxPort          = 65535
	DefaultPort      = 9090
)

// Config represents the engine configuration
type Config struct {
	// HTTP/WebSocket boundary
	Host            string
	Port            uint16
	ShutdownTimeout time.Duration

	// Corroboration gate thresholds
	MinReportCount     int
	MinTimeSpan        time.Duration
	MinDistinctSources int

	// Subscriber fan-out
	MailboxCapacity int

	// Consensus membership backend: "exact" or "bloom"
	MembershipBackend string
	BloomCapacity     uint
	BloomFPRate       float64

	// Optional NATS JetStream relay; disabled when URL is empty
	NATSURL     string
	NATSStream  string
	NATSSubject string

	// Logging
	LogLevel string
	LogJSON  bool
}

// fileConfig is the YAML shape of the optional config file. File values
// act as defaults; environment variables override them.
type fileConfig struct {
	Host            string `yaml:"host"`
	Port            uint16 `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`

	Gate struct {
		MinReportCount     int    `yaml:"min_report_count"`
		MinTimeSpan        string `yaml:"min_time_span"`
		MinDistinctSources int    `yaml:"min_distinct_sources"`
	} `yaml:"gate"`

	MailboxCapacity int `yaml:"mailbox_capacity"`

	Membership struct {
		Backend       string  `yaml:"backend"`
		BloomCapacity uint    `yaml:"bloom_capacity"`
		BloomFPRate   float64 `yaml:"bloom_fp_rate"`
	} `yaml:"membership"`

	NATS struct {
		URL     string `yaml:"url"`
		Stream  string `yaml:"stream"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < MinPort || c.Port > MaxPort {
		return fmt.Errorf("port must be between %d and %d", MinPort, MaxPort)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.MinReportCount < 1 {
		return fmt.Errorf("min report count must be at least 1")
	}
	if c.MinTimeSpan < 0 {
		return fmt.Errorf("min time span must be non-negative")
	}
	if c.MinDistinctSources < 1 {
		return fmt.Errorf("min distinct sources must be at least 1")
	}
	if c.MailboxCapacity < 1 {
		return fmt.Errorf("mailbox capacity must be at least 1")
	}
	switch c.MembershipBackend {
	case membership.BackendExact:
	case membership.BackendBloom:
		if c.BloomCapacity == 0 {
			return fmt.Errorf("bloom capacity must be greater than 0")
		}
		if c.BloomFPRate <= 0 || c.BloomFPRate >= 1 {
			return fmt.Errorf("bloom false-positive rate must be between 0 and 1 exclusive")
		}
	default:
		return fmt.Errorf("unknown membership backend: %q", c.MembershipBackend)
	}
	if c.NATSURL != "" {
		if c.NATSStream == "" {
			return fmt.Errorf("NATS stream is required when NATS URL is set")
		}
		if c.NATSSubject == "" {
			return fmt.Errorf("NATS subject is required when NATS URL is set")
		}
	}
	return nil
}

// Load loads configuration from the optional YAML file named by
// SWARMSENTRY_CONFIG_FILE, then applies environment overrides.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	loader := NewEnvLoader(DefaultEnvPrefix)
	loader.LoadAll()

	var fc fileConfig
	if path := loader.GetString("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg := &Config{}
	var err error

	// Boundary
	cfg.Host = loader.GetString("HOST", defaultString(fc.Host, "0.0.0.0"))
	if cfg.Port, err = loader.GetUint16("PORT", defaultUint16(fc.Port, DefaultPort)); err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}
	shutdown, err := parseFileDuration(fc.ShutdownTimeout, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout in config file: %w", err)
	}
	if cfg.ShutdownTimeout, err = loader.GetDuration("SHUTDOWN_TIMEOUT", shutdown); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	// Gate thresholds
	if cfg.MinReportCount, err = loader.GetInt("GATE_MIN_REPORTS", defaultInt(fc.Gate.MinReportCount, 3)); err != nil {
		return nil, fmt.Errorf("invalid gate min reports: %w", err)
	}
	span, err := parseFileDuration(fc.Gate.MinTimeSpan, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid gate min time span in config file: %w", err)
	}
	if cfg.MinTimeSpan, err = loader.GetDuration("GATE_MIN_TIMESPAN", span); err != nil {
		return nil, fmt.Errorf("invalid gate min time span: %w", err)
	}
	if cfg.MinDistinctSources, err = loader.GetInt("GATE_MIN_SOURCES", defaultInt(fc.Gate.MinDistinctSources, 2)); err != nil {
		return nil, fmt.Errorf("invalid gate min sources: %w", err)
	}

	// Fan-out
	if cfg.MailboxCapacity, err = loader.GetInt("MAILBOX_CAPACITY", defaultInt(fc.MailboxCapacity, 16)); err != nil {
		return nil, fmt.Errorf("invalid mailbox capacity: %w", err)
	}

	// Membership backend
	cfg.MembershipBackend = loader.GetString("MEMBERSHIP_BACKEND",
		defaultString(fc.Membership.Backend, membership.BackendExact))
	bloomCap, err := loader.GetInt("BLOOM_CAPACITY", defaultInt(int(fc.Membership.BloomCapacity), membership.DefaultBloomCapacity))
	if err != nil {
		return nil, fmt.Errorf("invalid bloom capacity: %w", err)
	}
	if bloomCap < 0 {
		// Converting a negative value to uint would wrap to a huge
		// capacity before Validate could reject it.
		return nil, fmt.Errorf("bloom capacity must be non-negative, got %d", bloomCap)
	}
	cfg.BloomCapacity = uint(bloomCap)
	if cfg.BloomFPRate, err = loader.GetFloat64("BLOOM_FP_RATE",
		defaultFloat(fc.Membership.BloomFPRate, membership.DefaultBloomFalsePositiveRate)); err != nil {
		return nil, fmt.Errorf("invalid bloom false-positive rate: %w", err)
	}

	// NATS relay
	cfg.NATSURL = loader.GetString("NATS_URL", fc.NATS.URL)
	cfg.NATSStream = loader.GetString("NATS_STREAM", defaultString(fc.NATS.Stream, "SWARMSENTRY"))
	cfg.NATSSubject = loader.GetString("NATS_SUBJECT", defaultString(fc.NATS.Subject, "swarmsentry.snapshots"))

	// Logging
	cfg.LogLevel = loader.GetString("LOG_LEVEL", defaultString(fc.LogLevel, "info"))
	cfg.LogJSON = loader.GetBool("LOG_JSON", fc.LogJSON)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ListenAddr returns the host:port the boundary server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func defaultString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func defaultInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func defaultUint16(v, fallback uint16) uint16 {
	if v != 0 {
		return v
	}
	return fallback
}

func defaultFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func parseFileDuration(v string, fallback time.Duration) (time.Duration, error) {
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
