package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all system-wide settings.
type Config struct {
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Storage   *StorageConfig   `json:"storage"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	BufferSize   int           `json:"buffer_size"`
}

// StorageConfig covers the document store: where uploaded PDFs land, where
// the metadata database lives, and the upload size cap.
type StorageConfig struct {
	UploadDir      string        `json:"upload_dir"`
	DatabasePath   string        `json:"database_path"`
	Timeout        time.Duration `json:"timeout"`
	MaxUploadBytes int64         `json:"max_upload_bytes"`
}

// DefaultConfig returns the defaults: HTTP on 8080, 30s/60s websocket
// heartbeat, uploads under ./uploads with a 16MB cap (the original system's
// limit).
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			BufferSize:   100,
		},
		Storage: &StorageConfig{
			UploadDir:      "./uploads",
			DatabasePath:   "./slidecast.db",
			Timeout:        30 * time.Second,
			MaxUploadBytes: 16 * 1024 * 1024,
		},
	}
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= 0 {
		return fmt.Errorf("WebSocket read timeout must be positive")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("WebSocket buffer size must be positive")
	}

	if c.Storage == nil {
		return fmt.Errorf("storage configuration is required")
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("upload directory cannot be empty")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Storage.Timeout <= 0 {
		return fmt.Errorf("storage timeout must be positive")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	return nil
}

// LoadFromEnv returns the defaults with SLIDECAST_* environment overrides
// applied. Unparseable values fall back silently to the default.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if host := os.Getenv("SLIDECAST_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if port := os.Getenv("SLIDECAST_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if readTimeout := os.Getenv("SLIDECAST_HTTP_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.HTTP.ReadTimeout = timeout
		}
	}
	if writeTimeout := os.Getenv("SLIDECAST_HTTP_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.HTTP.WriteTimeout = timeout
		}
	}

	if pingInterval := os.Getenv("SLIDECAST_WEBSOCKET_PING_INTERVAL"); pingInterval != "" {
		if interval, err := time.ParseDuration(pingInterval); err == nil {
			config.WebSocket.PingInterval = interval
		}
	}
	if readTimeout := os.Getenv("SLIDECAST_WEBSOCKET_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.WebSocket.ReadTimeout = timeout
		}
	}
	if writeTimeout := os.Getenv("SLIDECAST_WEBSOCKET_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.WebSocket.WriteTimeout = timeout
		}
	}
	if bufferSize := os.Getenv("SLIDECAST_WEBSOCKET_BUFFER_SIZE"); bufferSize != "" {
		if size, err := strconv.Atoi(bufferSize); err == nil {
			config.WebSocket.BufferSize = size
		}
	}

	if uploadDir := os.Getenv("SLIDECAST_UPLOAD_DIR"); uploadDir != "" {
		config.Storage.UploadDir = uploadDir
	}
	if dbPath := os.Getenv("SLIDECAST_DATABASE_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}
	if storageTimeout := os.Getenv("SLIDECAST_STORAGE_TIMEOUT"); storageTimeout != "" {
		if timeout, err := time.ParseDuration(storageTimeout); err == nil {
			config.Storage.Timeout = timeout
		}
	}
	if maxUpload := os.Getenv("SLIDECAST_MAX_UPLOAD_BYTES"); maxUpload != "" {
		if n, err := strconv.ParseInt(maxUpload, 10, 64); err == nil {
			config.Storage.MaxUploadBytes = n
		}
	}

	return config
}

// configFile mirrors Config for JSON parsing; durations appear as strings
// ("30s") in the file.
type configFile struct {
	HTTP      *httpConfigFile      `json:"http"`
	WebSocket *webSocketConfigFile `json:"websocket"`
	Storage   *storageConfigFile   `json:"storage"`
}

type httpConfigFile struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type webSocketConfigFile struct {
	PingInterval string `json:"ping_interval"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
	BufferSize   int    `json:"buffer_size"`
}

type storageConfigFile struct {
	UploadDir      string `json:"upload_dir"`
	DatabasePath   string `json:"database_path"`
	Timeout        string `json:"timeout"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// LoadFromFile parses a JSON configuration file over the defaults and
// validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()

	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			config.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port > 0 {
			config.HTTP.Port = file.HTTP.Port
		}
		setDuration(&config.HTTP.ReadTimeout, file.HTTP.ReadTimeout)
		setDuration(&config.HTTP.WriteTimeout, file.HTTP.WriteTimeout)
	}

	if file.WebSocket != nil {
		if file.WebSocket.BufferSize > 0 {
			config.WebSocket.BufferSize = file.WebSocket.BufferSize
		}
		setDuration(&config.WebSocket.PingInterval, file.WebSocket.PingInterval)
		setDuration(&config.WebSocket.ReadTimeout, file.WebSocket.ReadTimeout)
		setDuration(&config.WebSocket.WriteTimeout, file.WebSocket.WriteTimeout)
	}

	if file.Storage != nil {
		if file.Storage.UploadDir != "" {
			config.Storage.UploadDir = file.Storage.UploadDir
		}
		if file.Storage.DatabasePath != "" {
			config.Storage.DatabasePath = file.Storage.DatabasePath
		}
		if file.Storage.MaxUploadBytes > 0 {
			config.Storage.MaxUploadBytes = file.Storage.MaxUploadBytes
		}
		setDuration(&config.Storage.Timeout, file.Storage.Timeout)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return config, nil
}

func setDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// LoadConfigWithPrecedence resolves configuration as file > environment >
// defaults. File errors are ignored silently so environment and defaults
// still work when no file is present.
func LoadConfigWithPrecedence(path string) *Config {
	config := LoadFromEnv()

	if path != "" {
		if fileConfig, err := LoadFromFile(path); err == nil {
			config = fileConfig
		}
	}

	return config
}
