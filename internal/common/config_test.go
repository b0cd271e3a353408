package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", config.Server.Port)
	}
	if config.Analysis.ChunkSize != 12000 {
		t.Errorf("default chunk size = %d, want 12000", config.Analysis.ChunkSize)
	}
	if config.Analysis.Lookback != 2000 {
		t.Errorf("default lookback = %d, want 2000", config.Analysis.Lookback)
	}
	if config.Analysis.Workers != 4 {
		t.Errorf("default workers = %d, want 4", config.Analysis.Workers)
	}
	if config.Clients.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("default model = %s", config.Clients.Gemini.Model)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regradar.toml")
	content := `
environment = "production"

[server]
port = 9090
max_upload_mb = 8

[analysis]
chunk_size = 6000
workers = 2
call_timeout = "45s"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Environment != "production" {
		t.Errorf("environment = %s", config.Environment)
	}
	if !config.IsProduction() {
		t.Error("IsProduction() = false for production environment")
	}
	if config.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", config.Server.Port)
	}
	if config.Server.MaxUploadBytes() != 8<<20 {
		t.Errorf("max upload = %d, want 8MiB", config.Server.MaxUploadBytes())
	}
	if config.Analysis.ChunkSize != 6000 {
		t.Errorf("chunk size = %d, want 6000", config.Analysis.ChunkSize)
	}
	if config.Analysis.GetCallTimeout() != 45*time.Second {
		t.Errorf("call timeout = %v, want 45s", config.Analysis.GetCallTimeout())
	}
	// Untouched fields keep their defaults.
	if config.Analysis.Lookback != 2000 {
		t.Errorf("lookback = %d, want default 2000", config.Analysis.Lookback)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig("/nonexistent/regradar.toml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", config.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REGRADAR_ENV", "production")
	t.Setenv("REGRADAR_PORT", "7070")
	t.Setenv("REGRADAR_LOG_LEVEL", "debug")
	t.Setenv("REGRADAR_GEMINI_MODEL", "gemini-2.5-pro")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Environment != "production" {
		t.Errorf("environment = %s", config.Environment)
	}
	if config.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", config.Server.Port)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("log level = %s", config.Logging.Level)
	}
	if config.Clients.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("model = %s", config.Clients.Gemini.Model)
	}
}

func TestDurationGetterFallbacks(t *testing.T) {
	var a AnalysisConfig

	if a.GetCallTimeout() != 90*time.Second {
		t.Errorf("call timeout fallback = %v", a.GetCallTimeout())
	}
	if a.GetBackoffBase() != 2*time.Second {
		t.Errorf("backoff fallback = %v", a.GetBackoffBase())
	}
	if a.GetRetainFor() != time.Hour {
		t.Errorf("retain fallback = %v", a.GetRetainFor())
	}

	a.BackoffBase = "250ms"
	if a.GetBackoffBase() != 250*time.Millisecond {
		t.Errorf("backoff = %v, want 250ms", a.GetBackoffBase())
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("EODHD_API_KEY", "")
	t.Setenv("REGRADAR_EODHD_API_KEY", "")

	key, err := ResolveAPIKey("gemini_api_key", "config-key")
	if err != nil {
		t.Fatalf("ResolveAPIKey failed: %v", err)
	}
	if key != "env-key" {
		t.Errorf("key = %s, environment must win over config", key)
	}

	key, err = ResolveAPIKey("eodhd_api_key", "config-key")
	if err != nil {
		t.Fatalf("ResolveAPIKey failed: %v", err)
	}
	if key != "config-key" {
		t.Errorf("key = %s, want config fallback", key)
	}

	if _, err := ResolveAPIKey("eodhd_api_key", ""); err == nil {
		t.Error("expected error when key is nowhere configured")
	}
}
