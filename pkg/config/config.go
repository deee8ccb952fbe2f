package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the fixed port advertised to other devices on the LAN.
	DefaultPort = 8080
	// DefaultMaxFileSize caps a single uploaded file at 4 GiB.
	DefaultMaxFileSize = int64(4) * 1024 * 1024 * 1024
	DefaultChunkSize   = 64 * 1024
	// DefaultSubscriberBuffer is the per-observer event queue length.
	DefaultSubscriberBuffer = 100
	// DefaultUploadSubdir is created under the working directory when no
	// destination directory is configured.
	DefaultUploadSubdir = "uploads"
)

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Upload  UploadConfig  `yaml:"upload" json:"upload"`
	Events  EventsConfig  `yaml:"events" json:"events"`
	CORS    CORSConfig    `yaml:"cors" json:"cors"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	Address           string        `yaml:"address" json:"address"`
	Port              int           `yaml:"port" json:"port"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout" json:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
}

// UploadConfig controls where and how uploaded files are written
type UploadConfig struct {
	Dir         string `yaml:"dir" json:"dir"`
	MaxFileSize int64  `yaml:"maxFileSize" json:"maxFileSize"`
	ChunkSize   int    `yaml:"chunkSize" json:"chunkSize"`
}

// EventsConfig controls the progress event broadcaster
type EventsConfig struct {
	SubscriberBuffer int `yaml:"subscriberBuffer" json:"subscriberBuffer"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins" json:"allowedOrigins"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// DefaultConfig Default configuration values
var DefaultConfig = Config{
	Server: ServerConfig{
		Address:           "0.0.0.0",
		Port:              DefaultPort,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	},
	Upload: UploadConfig{
		Dir:         "",
		MaxFileSize: DefaultMaxFileSize,
		ChunkSize:   DefaultChunkSize,
	},
	Events: EventsConfig{
		SubscriberBuffer: DefaultSubscriberBuffer,
	},
	CORS: CORSConfig{
		AllowedOrigins: []string{"*"},
	},
	Metrics: MetricsConfig{
		Enabled: true,
	},
	Logging: LoggingConfig{
		Level:  "INFO",
		Format: "text",
		Output: "stdout",
	},
}

// Default returns a copy of DefaultConfig that is safe to mutate.
func Default() Config {
	cfg := DefaultConfig
	cfg.CORS.AllowedOrigins = append([]string(nil), DefaultConfig.CORS.AllowedOrigins...)
	return cfg
}

// LoadConfig loads configuration from multiple sources in order of precedence:
// 1. Environment variables (highest precedence)
// 2. Configuration file
// 3. Default values (lowest precedence)
func LoadConfig() (*Config, string, error) {
	config := Default()

	path, err := loadFromFile(&config)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	if e := loadFromEnv(&config); e != nil {
		return nil, "", fmt.Errorf("failed to load environment variables: %w", e)
	}

	if e := config.Validate(); e != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", e)
	}

	return &config, path, nil
}

func searchPaths() []string {
	paths := []string{
		os.Getenv("LANDROP_CONFIG_PATH"),
		"./landrop.yaml",
		"./config/landrop.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "landrop", "landrop.yaml"))
	}
	return paths
}

// loadFromFile loads configuration from the first YAML file found
func loadFromFile(config *Config) (string, error) {
	for _, path := range searchPaths() {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", path, err)
		}

		return path, nil
	}

	return "built-in defaults (no config file found)", nil
}

// loadFromEnv loads configuration from environment variables. Unparseable
// numeric values are reported instead of silently ignored.
func loadFromEnv(config *Config) error {
	if val := os.Getenv("LANDROP_ADDRESS"); val != "" {
		config.Server.Address = val
	}
	if val := os.Getenv("LANDROP_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("LANDROP_PORT: %w", err)
		}
		config.Server.Port = port
	}

	if val := os.Getenv("LANDROP_UPLOAD_DIR"); val != "" {
		config.Upload.Dir = val
	}
	if val := os.Getenv("LANDROP_MAX_FILE_SIZE"); val != "" {
		size, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("LANDROP_MAX_FILE_SIZE: %w", err)
		}
		config.Upload.MaxFileSize = size
	}
	if val := os.Getenv("LANDROP_CHUNK_SIZE"); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("LANDROP_CHUNK_SIZE: %w", err)
		}
		config.Upload.ChunkSize = size
	}

	if val := os.Getenv("LANDROP_SUBSCRIBER_BUFFER"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("LANDROP_SUBSCRIBER_BUFFER: %w", err)
		}
		config.Events.SubscriberBuffer = n
	}

	if val := os.Getenv("LANDROP_CORS_ORIGINS"); val != "" {
		origins := strings.Split(val, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		config.CORS.AllowedOrigins = origins
	}

	if val := os.Getenv("LANDROP_METRICS_ENABLED"); val != "" {
		config.Metrics.Enabled = val == "true" || val == "1"
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Upload.MaxFileSize < 1 {
		return fmt.Errorf("invalid max file size: %d", c.Upload.MaxFileSize)
	}

	if c.Upload.ChunkSize < 1 {
		return fmt.Errorf("invalid chunk size: %d", c.Upload.ChunkSize)
	}

	if c.Events.SubscriberBuffer < 1 {
		return fmt.Errorf("invalid subscriber buffer: %d", c.Events.SubscriberBuffer)
	}

	validLevels := map[string]bool{
		"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true,
	}
	if !validLevels[strings.ToUpper(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// UploadDir returns the configured destination directory, falling back to
// the uploads subdirectory of the working directory. Relative paths are
// resolved against getwd.
func (c *Config) UploadDir(getwd func() (string, error)) (string, error) {
	if filepath.IsAbs(c.Upload.Dir) {
		return filepath.Clean(c.Upload.Dir), nil
	}
	wd, err := getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	if c.Upload.Dir != "" {
		return filepath.Join(wd, c.Upload.Dir), nil
	}
	return filepath.Join(wd, DefaultUploadSubdir), nil
}

func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) SaveToFile(path string) error {
	data, err := c.ToYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a specific configuration file
func LoadFromFile(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadFromEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// GenerateDefaultConfig creates a default configuration file
func GenerateDefaultConfig(path string) error {
	config := Default()
	return config.SaveToFile(path)
}
