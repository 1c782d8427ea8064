package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: `
monitor:
  pincode: "110001"
notifications:
  ntfy:
    topic: protein-alerts
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "110001", cfg.Monitor.Pincode)
				assert.Equal(t, "protein-alerts", cfg.Notifications.Ntfy.Topic)
				require.NoError(t, cfg.Validate())
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: `
monitor:
  pincode: "110001"
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "protein", cfg.Monitor.Category)
				assert.Equal(t, ModeAPI, cfg.Retailer.Mode)
				assert.Equal(t, "https://shop.amul.com", cfg.Retailer.BaseURL)
				assert.Equal(t, 30*time.Second, cfg.Retailer.Timeout)
				assert.Equal(t, 100, cfg.Retailer.PageLimit)
				assert.Equal(t, "https://ntfy.sh", cfg.Notifications.Ntfy.Server)
				assert.Equal(t, []string{"tada", "shopping_cart"}, cfg.Notifications.Ntfy.Tags)
				assert.Equal(t, BackendFile, cfg.State.Backend)
				assert.Equal(t, "stock_status.json", cfg.State.File)
				assert.Equal(t, 5432, cfg.State.Postgres.Port)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, time.Minute, cfg.Server.TriggerRate)
				assert.Equal(t, 1, cfg.Server.TriggerBurst)
				assert.Equal(t, 15*time.Minute, cfg.Schedule.Interval)
				assert.Equal(t, "amul-stock-tracker", cfg.Telemetry.ServiceName)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
monitor:
  pincode: "${TEST_PINCODE}"
  targets: "${TEST_TARGETS}"
`,
			envVars: map[string]string{
				"TEST_PINCODE": "560001",
				"TEST_TARGETS": "paneer-400g,lassi-200ml",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "560001", cfg.Monitor.Pincode)
				assert.Equal(t, "paneer-400g,lassi-200ml", cfg.Monitor.Targets)
			},
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadOptional(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, "stock_status.json", cfg.State.File)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("{{{"), 0o644))
	_, err = LoadOptional(bad)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "valid defaults with pincode",
			mutate: func(*Config) {},
		},
		{
			name:    "pincode too short",
			mutate:  func(cfg *Config) { cfg.Monitor.Pincode = "1100" },
			wantErr: `monitor.pincode must be exactly 6 digits (got "1100")`,
		},
		{
			name:    "pincode with letters",
			mutate:  func(cfg *Config) { cfg.Monitor.Pincode = "11000a" },
			wantErr: "monitor.pincode must be exactly 6 digits",
		},
		{
			name:    "invalid retailer mode",
			mutate:  func(cfg *Config) { cfg.Retailer.Mode = "scrape" },
			wantErr: `retailer.mode must be one of: api, browser (got "scrape")`,
		},
		{
			name:   "browser mode accepted",
			mutate: func(cfg *Config) { cfg.Retailer.Mode = ModeBrowser },
		},
		{
			name:    "invalid state backend",
			mutate:  func(cfg *Config) { cfg.State.Backend = "redis" },
			wantErr: `state.backend must be one of: file, postgres, gcs (got "redis")`,
		},
		{
			name:    "postgres backend missing host",
			mutate:  func(cfg *Config) { cfg.State.Backend = BackendPostgres },
			wantErr: "state.postgres.host is required when backend is postgres",
		},
		{
			name: "postgres backend complete",
			mutate: func(cfg *Config) {
				cfg.State.Backend = BackendPostgres
				cfg.State.Postgres.Host = "localhost"
				cfg.State.Postgres.Name = "stock"
				cfg.State.Postgres.User = "tracker"
			},
		},
		{
			name:    "gcs backend missing bucket",
			mutate:  func(cfg *Config) { cfg.State.Backend = BackendGCS },
			wantErr: "state.gcs.bucket is required when backend is gcs",
		},
		{
			name: "schedule interval too short",
			mutate: func(cfg *Config) {
				cfg.Schedule.Enabled = true
				cfg.Schedule.Interval = 10 * time.Second
			},
			wantErr: "schedule.interval must be at least 1m",
		},
		{
			name:    "negative ntfy daily limit",
			mutate:  func(cfg *Config) { cfg.Notifications.Ntfy.DailyLimit = -1 },
			wantErr: "notifications.ntfy.daily_limit must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.Monitor.Pincode = "110001"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateState_IgnoresMonitor(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.ValidateState())
	require.Error(t, cfg.Validate(), "empty pincode should fail full validation")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "stock",
				User:     "tracker",
				Password: "secret",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 dbname=stock user=tracker password=secret sslmode=disable",
		},
		{
			name: "custom port and ssl",
			cfg: DatabaseConfig{
				Host:    "db.example.com",
				Port:    5433,
				Name:    "prod",
				User:    "admin",
				SSLMode: "require",
			},
			want: "host=db.example.com port=5433 dbname=prod user=admin password= sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
