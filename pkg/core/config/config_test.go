package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.MaxRequestsPerSecond != 8 {
		t.Errorf("MaxRequestsPerSecond = %f, want 8", cfg.MaxRequestsPerSecond)
	}
	if cfg.HTTPTimeout() != 60*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout())
	}
	want := []time.Duration{time.Second, 5 * time.Second, 15 * time.Second, 30 * time.Second}
	got := cfg.RetryBackoff()
	if len(got) != len(want) {
		t.Fatalf("RetryBackoff = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RetryBackoff[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoadHJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.hjson")
	content := `{
  // pipeline tuning
  workers: 8
  max_requests_per_second: 5
  data_dir: /var/edgar
  retry_backoff_seconds: [2, 4]
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.MaxRequestsPerSecond != 5 {
		t.Errorf("MaxRequestsPerSecond = %f, want 5", cfg.MaxRequestsPerSecond)
	}
	if cfg.DataDir != "/var/edgar" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if len(cfg.RetryBackoffSeconds) != 2 || cfg.RetryBackoffSeconds[0] != 2 {
		t.Errorf("RetryBackoffSeconds = %v", cfg.RetryBackoffSeconds)
	}
	// Unset fields keep their defaults.
	if cfg.UserAgent == "" {
		t.Error("UserAgent default lost")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test/db")
	t.Setenv("EDGAR_WORKERS", "2")
	t.Setenv("EDGAR_MAX_RPS", "3.5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabaseURL != "postgres://test/db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.MaxRequestsPerSecond != 3.5 {
		t.Errorf("MaxRequestsPerSecond = %f", cfg.MaxRequestsPerSecond)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("EDGAR_WORKERS", "0")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for zero workers")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.hjson"); err == nil {
		t.Error("Expected error for missing config file")
	}
}
