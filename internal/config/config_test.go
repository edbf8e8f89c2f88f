package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_WithValidConfig(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "SCAN_INTERVAL", "30s")
	setEnv(t, "ALERT_THRESHOLD", "75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, 30*time.Second, cfg.ScanInterval)
	assert.Equal(t, 75.0, cfg.AlertThreshold)
	assert.Equal(t, DefaultFetchLimit, cfg.FetchLimit)
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "SCAN_INTERVAL", "ALERT_THRESHOLD", "ML_CONFIDENCE_FLOOR", "RPC_URL"} {
		setEnv(t, key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultScanInterval, cfg.ScanInterval)
	assert.Equal(t, DefaultAlertThreshold, cfg.AlertThreshold)
	assert.Equal(t, 0.3, cfg.MLConfidenceFloor)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setEnv(t, "SCAN_INTERVAL", "not-a-duration")
	setEnv(t, "FETCH_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultScanInterval, cfg.ScanInterval)
	assert.Equal(t, DefaultFetchLimit, cfg.FetchLimit)
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		return Config{
			RPCURL:            DefaultRPCURL,
			FetchLimit:        100,
			MLConfidenceFloor: 0.3,
			AlertThreshold:    80,
			ScanInterval:      10 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing RPC URL",
			mutate:  func(c *Config) { c.RPCURL = "" },
			wantErr: "RPC_URL is required",
		},
		{
			name:    "non-positive fetch limit",
			mutate:  func(c *Config) { c.FetchLimit = 0 },
			wantErr: "FETCH_LIMIT must be positive",
		},
		{
			name:    "confidence floor out of range",
			mutate:  func(c *Config) { c.MLConfidenceFloor = 1.5 },
			wantErr: "ML_CONFIDENCE_FLOOR must be in [0, 1]",
		},
		{
			name:    "alert threshold out of range",
			mutate:  func(c *Config) { c.AlertThreshold = 150 },
			wantErr: "ALERT_THRESHOLD must be in [0, 100]",
		},
		{
			name:    "scan interval too short",
			mutate:  func(c *Config) { c.ScanInterval = 100 * time.Millisecond },
			wantErr: "SCAN_INTERVAL must be at least 1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
