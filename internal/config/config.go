package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Cache     CacheConfig     `yaml:"cache"`
	Scan      ScanConfig      `yaml:"scan"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=1,lte=65535"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" validate:"oneof=stdio http"`
}

// DBConfig locates the three stores. The service and main stores are only
// read; the history store is created when missing.
type DBConfig struct {
	ServicePath string `yaml:"service_path" validate:"required"`
	MainPath    string `yaml:"main_path" validate:"required"`
	HistoryPath string `yaml:"history_path" validate:"required"`
}

type CacheConfig struct {
	DatabaseTTL time.Duration `yaml:"database_ttl" validate:"gt=0"`
	ProjectTTL  time.Duration `yaml:"project_ttl" validate:"gt=0"`
	ClientTTL   time.Duration `yaml:"client_ttl" validate:"gt=0"`
}

// ScanConfig controls scanning. An Interval of zero disables periodic scans.
type ScanConfig struct {
	Interval           time.Duration `yaml:"interval" validate:"gte=0"`
	Incremental        bool          `yaml:"incremental"`
	Timeout            time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxConcurrent      int           `yaml:"max_concurrent" validate:"gte=1,lte=64"`
	PerDatabaseTimeout time.Duration `yaml:"per_database_timeout" validate:"gt=0"`
	CountCacheSize     int           `yaml:"count_cache_size" validate:"gte=0"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Path  string `yaml:"path"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		DB: DBConfig{
			ServicePath: "service.db",
			MainPath:    "main.db",
			HistoryPath: "scan_history.db",
		},
		Cache: CacheConfig{
			DatabaseTTL: 5 * time.Minute,
			ProjectTTL:  10 * time.Minute,
			ClientTTL:   15 * time.Minute,
		},
		Scan: ScanConfig{
			Timeout:            5 * time.Minute,
			MaxConcurrent:      5,
			PerDatabaseTimeout: 5 * time.Second,
			CountCacheSize:     512,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("INVENTORY_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("INVENTORY_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("INVENTORY_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid INVENTORY_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("INVENTORY_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if p := os.Getenv("INVENTORY_SERVICE_DB"); p != "" {
		cfg.DB.ServicePath = p
	}
	if p := os.Getenv("INVENTORY_MAIN_DB"); p != "" {
		cfg.DB.MainPath = p
	}
	if p := os.Getenv("INVENTORY_HISTORY_DB"); p != "" {
		cfg.DB.HistoryPath = p
	}
	if level := os.Getenv("INVENTORY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if p := os.Getenv("INVENTORY_LOG_PATH"); p != "" {
		cfg.Log.Path = p
	}
	if v := os.Getenv("INVENTORY_SCAN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INVENTORY_SCAN_INTERVAL: %w", err)
		}
		cfg.Scan.Interval = d
	}
	if v := os.Getenv("INVENTORY_SCAN_INCREMENTAL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid INVENTORY_SCAN_INCREMENTAL: %w", err)
		}
		cfg.Scan.Incremental = b
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
