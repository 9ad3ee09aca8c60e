package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(mapLookup(map[string]string{
		"LAZYIMG_MAX_RETRIES":    "1",
		"LAZYIMG_BASE_DELAY":     "500ms",
		"LAZYIMG_PROBE_TIMEOUT":  "3s",
		"LAZYIMG_PROBE_BACKEND":  "s3",
		"LAZYIMG_S3_BUCKET":      "docs",
		"LAZYIMG_S3_PATH_STYLE":  "true",
		"LAZYIMG_SERVE_METRICS":  "false",
		"LAZYIMG_PROBE_BASE_URL": "https://docs.example.com",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}

	if cfg.Retry.MaxRetries != 1 {
		t.Errorf("Retry.MaxRetries = %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay.Std() != 500*time.Millisecond {
		t.Errorf("Retry.BaseDelay = %v", cfg.Retry.BaseDelay.Std())
	}
	if cfg.Probe.Timeout.Std() != 3*time.Second {
		t.Errorf("Probe.Timeout = %v", cfg.Probe.Timeout.Std())
	}
	if cfg.Probe.Backend != BackendS3 || cfg.S3.Bucket != "docs" || !cfg.S3.PathStyle {
		t.Errorf("probe/s3 = %+v %+v", cfg.Probe, cfg.S3)
	}
	if cfg.Serve.Metrics {
		t.Error("Serve.Metrics should be false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestApplyEnvEmptyKeepsDefaults(t *testing.T) {
	cfg := New()
	if err := cfg.ApplyEnv(mapLookup(map[string]string{"LAZYIMG_SERVE_ADDR": ""})); err != nil {
		t.Fatal(err)
	}
	if cfg.Serve.Addr != DefaultAddr {
		t.Errorf("Serve.Addr = %q, want default", cfg.Serve.Addr)
	}
}

func TestApplyEnvErrors(t *testing.T) {
	for _, env := range []map[string]string{
		{"LAZYIMG_MAX_RETRIES": "three"},
		{"LAZYIMG_BASE_DELAY": "1 second"},
		{"LAZYIMG_S3_PATH_STYLE": "maybe"},
	} {
		err := New().ApplyEnv(mapLookup(env))
		if got := errorCode(err); got != "L004" {
			t.Errorf("ApplyEnv(%v) code = %q, want L004", env, got)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("LoadEnvFile(\"\") = %v", err)
	}
	if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LAZYIMG_TEST_ENV_FILE=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LAZYIMG_TEST_ENV_FILE", "")
	os.Unsetenv("LAZYIMG_TEST_ENV_FILE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile error: %v", err)
	}
	if got := os.Getenv("LAZYIMG_TEST_ENV_FILE"); got != "from-file" {
		t.Errorf("LAZYIMG_TEST_ENV_FILE = %q, want from-file", got)
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LAZYIMG_TEST_OVERRIDE=file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LAZYIMG_TEST_OVERRIDE", "process")

	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("LAZYIMG_TEST_OVERRIDE"); got != "process" {
		t.Errorf("LAZYIMG_TEST_OVERRIDE = %q, want process", got)
	}
}
