package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Fatalf("Defaults should validate: %v", err)
	}
	if config.HTTP.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.HTTP.Port)
	}
	if config.WebSocket.PingInterval != 30*time.Second {
		t.Errorf("Expected 30s ping interval, got %v", config.WebSocket.PingInterval)
	}
	if config.Storage.MaxUploadBytes != 16*1024*1024 {
		t.Errorf("Expected 16MB upload cap, got %d", config.Storage.MaxUploadBytes)
	}
	if config.Storage.UploadDir == "" || config.Storage.DatabasePath == "" {
		t.Error("Storage defaults should be populated")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil http", func(c *Config) { c.HTTP = nil }},
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"http read timeout", func(c *Config) { c.HTTP.ReadTimeout = 0 }},
		{"nil websocket", func(c *Config) { c.WebSocket = nil }},
		{"ping interval", func(c *Config) { c.WebSocket.PingInterval = -time.Second }},
		{"buffer size", func(c *Config) { c.WebSocket.BufferSize = 0 }},
		{"nil storage", func(c *Config) { c.Storage = nil }},
		{"empty upload dir", func(c *Config) { c.Storage.UploadDir = "" }},
		{"empty database path", func(c *Config) { c.Storage.DatabasePath = "" }},
		{"storage timeout", func(c *Config) { c.Storage.Timeout = 0 }},
		{"upload cap", func(c *Config) { c.Storage.MaxUploadBytes = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation failure")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SLIDECAST_HTTP_HOST", "127.0.0.1")
	t.Setenv("SLIDECAST_HTTP_PORT", "9000")
	t.Setenv("SLIDECAST_WEBSOCKET_PING_INTERVAL", "15s")
	t.Setenv("SLIDECAST_UPLOAD_DIR", "/var/slidecast/uploads")
	t.Setenv("SLIDECAST_MAX_UPLOAD_BYTES", "1048576")

	config := LoadFromEnv()

	if config.HTTP.Host != "127.0.0.1" {
		t.Errorf("Expected host override, got %q", config.HTTP.Host)
	}
	if config.HTTP.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", config.HTTP.Port)
	}
	if config.WebSocket.PingInterval != 15*time.Second {
		t.Errorf("Expected 15s ping interval, got %v", config.WebSocket.PingInterval)
	}
	if config.Storage.UploadDir != "/var/slidecast/uploads" {
		t.Errorf("Expected upload dir override, got %q", config.Storage.UploadDir)
	}
	if config.Storage.MaxUploadBytes != 1048576 {
		t.Errorf("Expected 1MB cap, got %d", config.Storage.MaxUploadBytes)
	}
}

func TestLoadFromEnv_UnparseableValuesFallBack(t *testing.T) {
	t.Setenv("SLIDECAST_HTTP_PORT", "not-a-number")
	t.Setenv("SLIDECAST_WEBSOCKET_READ_TIMEOUT", "soon")

	config := LoadFromEnv()

	if config.HTTP.Port != 8080 {
		t.Errorf("Bad port should fall back to default, got %d", config.HTTP.Port)
	}
	if config.WebSocket.ReadTimeout != 60*time.Second {
		t.Errorf("Bad duration should fall back to default, got %v", config.WebSocket.ReadTimeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"http": {"host": "10.1.2.3", "port": 9443, "read_timeout": "45s"},
		"websocket": {"buffer_size": 250},
		"storage": {"upload_dir": "/data/uploads", "max_upload_bytes": 8388608}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.HTTP.Host != "10.1.2.3" || config.HTTP.Port != 9443 {
		t.Errorf("HTTP overrides not applied: %+v", config.HTTP)
	}
	if config.HTTP.ReadTimeout != 45*time.Second {
		t.Errorf("Expected 45s read timeout, got %v", config.HTTP.ReadTimeout)
	}
	if config.HTTP.WriteTimeout != 30*time.Second {
		t.Errorf("Unset fields keep their default, got %v", config.HTTP.WriteTimeout)
	}
	if config.WebSocket.BufferSize != 250 {
		t.Errorf("Expected buffer size 250, got %d", config.WebSocket.BufferSize)
	}
	if config.Storage.UploadDir != "/data/uploads" || config.Storage.MaxUploadBytes != 8388608 {
		t.Errorf("Storage overrides not applied: %+v", config.Storage)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Missing file should error")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Malformed JSON should error")
	}
}

func TestLoadConfigWithPrecedence(t *testing.T) {
	t.Setenv("SLIDECAST_HTTP_PORT", "9000")

	// No file: environment wins over defaults.
	config := LoadConfigWithPrecedence("")
	if config.HTTP.Port != 9000 {
		t.Errorf("Expected env port 9000, got %d", config.HTTP.Port)
	}

	// File present: file wins over environment.
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"http": {"port": 9443}}`), 0o644)
	config = LoadConfigWithPrecedence(path)
	if config.HTTP.Port != 9443 {
		t.Errorf("Expected file port 9443, got %d", config.HTTP.Port)
	}

	// Unreadable file: fall back to environment.
	config = LoadConfigWithPrecedence(filepath.Join(t.TempDir(), "missing.json"))
	if config.HTTP.Port != 9000 {
		t.Errorf("Expected env fallback port 9000, got %d", config.HTTP.Port)
	}
}
