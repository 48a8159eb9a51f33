package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, uint16(DefaultPort), cfg.Port)
	assert.Equal(t, 3, cfg.MinReportCount)
	assert.Equal(t, time.Hour, cfg.MinTimeSpan)
	assert.Equal(t, 2, cfg.MinDistinctSources)
	assert.Equal(t, 16, cfg.MailboxCapacity)
	assert.Equal(t, "exact", cfg.MembershipBackend)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SWARMSENTRY_PORT", "9999")
	t.Setenv("SWARMSENTRY_GATE_MIN_REPORTS", "5")
	t.Setenv("SWARMSENTRY_GATE_MIN_TIMESPAN", "30m")
	t.Setenv("SWARMSENTRY_MEMBERSHIP_BACKEND", "bloom")
	t.Setenv("SWARMSENTRY_NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, uint16(9999), cfg.Port)
	assert.Equal(t, 5, cfg.MinReportCount)
	assert.Equal(t, 30*time.Minute, cfg.MinTimeSpan)
	assert.Equal(t, "bloom", cfg.MembershipBackend)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "SWARMSENTRY", cfg.NATSStream)
	assert.Equal(t, "swarmsentry.snapshots", cfg.NATSSubject)
}

func TestLoadLogJSON(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.LogJSON)

	t.Setenv("SWARMSENTRY_LOG_JSON", "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.LogJSON)
}

func TestLoadRejectsNegativeBloomCapacity(t *testing.T) {
	t.Setenv("SWARMSENTRY_BLOOM_CAPACITY", "-5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bloom capacity")
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swarmsentry.yaml")
	content := `
host: 127.0.0.1
port: 8088
gate:
  min_report_count: 4
  min_time_span: 2h
  min_distinct_sources: 3
mailbox_capacity: 32
log_level: debug
log_json: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("SWARMSENTRY_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, uint16(8088), cfg.Port)
	assert.Equal(t, 4, cfg.MinReportCount)
	assert.Equal(t, 2*time.Hour, cfg.MinTimeSpan)
	assert.Equal(t, 3, cfg.MinDistinctSources)
	assert.Equal(t, 32, cfg.MailboxCapacity)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swarmsentry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8088\n"), 0644))
	t.Setenv("SWARMSENTRY_CONFIG_FILE", path)
	t.Setenv("SWARMSENTRY_PORT", "9001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint16(9001), cfg.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero report count", func(c *Config) { c.MinReportCount = 0 }},
		{"negative time span", func(c *Config) { c.MinTimeSpan = -time.Second }},
		{"zero sources", func(c *Config) { c.MinDistinctSources = 0 }},
		{"zero mailbox", func(c *Config) { c.MailboxCapacity = 0 }},
		{"unknown backend", func(c *Config) { c.MembershipBackend = "cuckoo" }},
		{"bloom without capacity", func(c *Config) {
			c.MembershipBackend = "bloom"
			c.BloomCapacity = 0
		}},
		{"bloom bad fp rate", func(c *Config) {
			c.MembershipBackend = "bloom"
			c.BloomCapacity = 1000
			c.BloomFPRate = 1.5
		}},
		{"nats url without stream", func(c *Config) {
			c.NATSURL = "nats://localhost:4222"
			c.NATSStream = ""
		}},
		{"privileged port", func(c *Config) { c.Port = 80 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
