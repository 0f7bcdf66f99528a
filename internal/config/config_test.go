package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"FORKFUL_PORT", "PORT", "FORKFUL_ENV", "ENV", "GO_ENV",
	"DATABASE_DRIVER", "DATABASE_URL", "SEED_FILE", "REDIS_URL",
	"RANKING_CALIBRATION_PATH", "SEARCH_FUZZY_TAGS", "SEARCH_TIMEOUT_MS", "SEARCH_RATE_LIMIT",
	"TRACING_ENABLED", "TRACING_EXPORTER", "OTLP_ENDPOINT", "TRACING_SAMPLING_RATE", "TRACING_INSECURE",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func containsErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "memory")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if cfg.Port != DefaultPort || cfg.Env != DefaultEnv {
		t.Errorf("unexpected server defaults: %d %s", cfg.Port, cfg.Env)
	}
	if cfg.RankingCalibrationPath != DefaultRankingCalibrationPath {
		t.Errorf("unexpected calibration path %q", cfg.RankingCalibrationPath)
	}
	if !cfg.SearchFuzzyTags {
		t.Error("expected fuzzy tags on by default")
	}
	if cfg.SearchTimeout() != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.SearchTimeout())
	}
	if cfg.SearchRateLimit != DefaultSearchRateLimit {
		t.Errorf("expected rate limit %d, got %d", DefaultSearchRateLimit, cfg.SearchRateLimit)
	}
	if cfg.TracingEnabled || cfg.TracingSamplingRate != DefaultTracingSamplingRate {
		t.Errorf("unexpected tracing defaults: %v %v", cfg.TracingEnabled, cfg.TracingSamplingRate)
	}
}

func TestLoad_DatabaseValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"postgres requires url", map[string]string{}, ErrMissingDatabaseURL},
		{"sqlite requires url", map[string]string{"DATABASE_DRIVER": "sqlite"}, ErrMissingDatabaseURL},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mysql"}, ErrInvalidDatabaseDriver},
		{"postgres with url", map[string]string{"DATABASE_URL": "postgres://localhost/forkful"}, nil},
		{"driver is case-insensitive", map[string]string{"DATABASE_DRIVER": "SQLite", "DATABASE_URL": "forkful.db"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, errs := Load("")
			if tt.wantErr == nil {
				if len(errs) != 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			if !containsErr(errs, tt.wantErr) {
				t.Errorf("expected %v in %v", tt.wantErr, errs)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"port not a number", map[string]string{"PORT": "abc"}, ErrInvalidPort},
		{"port out of range", map[string]string{"PORT": "70000"}, ErrPortOutOfRange},
		{"timeout not a number", map[string]string{"SEARCH_TIMEOUT_MS": "soon"}, ErrInvalidNumber},
		{"negative timeout", map[string]string{"SEARCH_TIMEOUT_MS": "-5"}, ErrInvalidSearchTimeout},
		{"negative rate limit", map[string]string{"SEARCH_RATE_LIMIT": "-1"}, ErrInvalidSearchRateLimit},
		{"sampling rate above one", map[string]string{"TRACING_SAMPLING_RATE": "1.5"}, ErrInvalidSamplingRate},
		{"sampling rate not a number", map[string]string{"TRACING_SAMPLING_RATE": "half"}, ErrInvalidNumber},
		{"bad redis url", map[string]string{"REDIS_URL": "http://localhost:6379"}, ErrInvalidRedisURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_DRIVER", "memory")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, errs := Load("")
			if !containsErr(errs, tt.wantErr) {
				t.Errorf("expected %v in %v", tt.wantErr, errs)
			}
		})
	}
}

func TestLoad_PortPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("PORT", "9000")
	t.Setenv("FORKFUL_PORT", "9100")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if cfg.Port != 9100 {
		t.Errorf("expected FORKFUL_PORT to win, got %d", cfg.Port)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
port: 9090
env: staging
database_driver: sqlite
database_url: /var/lib/forkful/catalog.db
search_fuzzy_tags: false
search_timeout_ms: 1500
search_rate_limit: 120
tracing_enabled: true
tracing_sampling_rate: 0
`)
	t.Setenv("SEARCH_RATE_LIMIT", "30")
	t.Setenv("SEARCH_FUZZY_TAGS", "yes")

	cfg, errs := Load(path)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if cfg.Port != 9090 || cfg.Env != "staging" {
		t.Errorf("file server values not applied: %d %s", cfg.Port, cfg.Env)
	}
	if cfg.DatabaseDriver != DriverSQLite || cfg.DatabaseURL != "/var/lib/forkful/catalog.db" {
		t.Errorf("file database values not applied: %s %s", cfg.DatabaseDriver, cfg.DatabaseURL)
	}
	if cfg.SearchTimeoutMS != 1500 {
		t.Errorf("expected timeout 1500, got %d", cfg.SearchTimeoutMS)
	}
	if cfg.SearchRateLimit != 30 {
		t.Errorf("expected env rate limit 30, got %d", cfg.SearchRateLimit)
	}
	if !cfg.SearchFuzzyTags {
		t.Error("expected env to re-enable fuzzy tags")
	}
	if !cfg.TracingEnabled || cfg.TracingSamplingRate != 0 {
		t.Errorf("expected tracing enabled with explicit 0 sampling, got %v %v", cfg.TracingEnabled, cfg.TracingSamplingRate)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	cfg, errs := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg != nil {
		t.Error("expected nil config")
	}
	if len(errs) != 1 {
		t.Errorf("expected one error, got %v", errs)
	}
}

func TestLogSummary_MasksCredentials(t *testing.T) {
	cfg := &Config{
		Port:           8080,
		DatabaseDriver: DriverPostgres,
		DatabaseURL:    "postgres://forkful:s3cret@db:5432/forkful?sslmode=disable",
		RedisURL:       "redis://:hunter2@cache:6379/0",
	}

	summary := cfg.LogSummary()
	if got := summary["database_url"]; got != "postgres://forkful:****@db:5432/forkful?sslmode=disable" {
		t.Errorf("database_url not masked: %s", got)
	}
	if got := summary["redis_url"]; got != "redis://:****@cache:6379/0" {
		t.Errorf("redis_url not masked: %s", got)
	}
}

func TestMaskURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "<not set>"},
		{"postgres://localhost/forkful", "postgres://localhost/forkful"},
		{"postgres://user@localhost/forkful", "postgres://user@localhost/forkful"},
		{"postgresql://u:p@h/db", "postgresql://u:****@h/db"},
		{"catalog.db", "catalog.db"},
		{"file:catalog.db?cache=shared", "file:catalog.db?cache=shared"},
		{"user=forkful password=secretpassword", "user****"},
	}

	for _, tt := range tests {
		if got := maskURL(tt.in); got != tt.want {
			t.Errorf("maskURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
