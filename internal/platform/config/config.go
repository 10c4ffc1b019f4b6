// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize is the default maximum request body size (1MB).
	DefaultMaxRequestSize = 1 << 20 // 1048576 bytes

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28

	// DefaultEngineName is published under the engineName correlation key.
	DefaultEngineName = "default"

	// DefaultJobRetries is the number of attempts an asynchronous continuation gets.
	DefaultJobRetries = 3

	// DefaultConnectorMaxAttempts is the default number of attempts per connector call.
	DefaultConnectorMaxAttempts = 3

	// DefaultConnectorMultiplier is the default exponential backoff multiplier.
	DefaultConnectorMultiplier = 2.0

	// DefaultConnectorMaxFailures is the default failures before the circuit opens.
	DefaultConnectorMaxFailures = 5

	// DefaultConnectorHalfOpenLimit is the default probe count of a half-open circuit.
	DefaultConnectorHalfOpenLimit = 1
)

// Config is the root configuration structure.
type Config struct {
	App         AppConfig         `koanf:"app"         validate:"required"`
	Server      ServerConfig      `koanf:"server"      validate:"required"`
	Log         LogConfig         `koanf:"log"         validate:"required"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Engine      EngineConfig      `koanf:"engine"      validate:"required"`
	Correlation CorrelationConfig `koanf:"correlation"`
	Connector   ConnectorConfig   `koanf:"connector"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// EngineConfig contains execution core settings.
type EngineConfig struct {
	Name       string           `koanf:"name"       validate:"required"`
	StackTrace StackTraceConfig `koanf:"stacktrace"`
	Jobs       JobsConfig       `koanf:"jobs"       validate:"required"`
}

// StackTraceConfig controls the BPMN stack trace printed on failures.
type StackTraceConfig struct {
	// Verbose prints every invocation instead of the activity path.
	Verbose bool `koanf:"verbose"`
}

// JobsConfig contains asynchronous continuation settings.
type JobsConfig struct {
	Retries  int           `koanf:"retries"  validate:"required,min=1,max=100"`
	Interval time.Duration `koanf:"interval" validate:"required,min=10ms"`
}

// CorrelationConfig holds the diagnostic context name of each correlation
// key. An empty name disables the key.
type CorrelationConfig struct {
	ActivityID      string `koanf:"activityid"`
	ActivityName    string `koanf:"activityname"`
	ApplicationName string `koanf:"applicationname"`
	BusinessKey     string `koanf:"businesskey"`
	DefinitionID    string `koanf:"definitionid"`
	InstanceID      string `koanf:"instanceid"`
	TenantID        string `koanf:"tenantid"`
	EngineName      string `koanf:"enginename"`
}

// ConnectorConfig configures the HTTP connector used by service activities.
type ConnectorConfig struct {
	Enabled bool          `koanf:"enabled"`
	Name    string        `koanf:"name"    validate:"required_if=Enabled true"`
	URL     string        `koanf:"url"     validate:"required_if=Enabled true"`
	Path    string        `koanf:"path"    validate:"required_if=Enabled true"`
	Timeout time.Duration `koanf:"timeout" validate:"min=100ms"`
	Retry   RetryConfig   `koanf:"retry"`
	Circuit CircuitConfig `koanf:"circuit"`
}

// RetryConfig contains connector retry settings.
type RetryConfig struct {
	Attempts   int           `koanf:"attempts"   validate:"min=1,max=10"`
	Initial    time.Duration `koanf:"initial"    validate:"min=10ms"`
	Max        time.Duration `koanf:"max"        validate:"gtefield=Initial"`
	Multiplier float64       `koanf:"multiplier" validate:"min=1,max=10"`
}

// CircuitConfig contains connector circuit breaker settings.
type CircuitConfig struct {
	Failures int           `koanf:"failures" validate:"min=1"`
	Cooldown time.Duration `koanf:"cooldown" validate:"min=1s"`
	HalfOpen int           `koanf:"halfopen" validate:"min=1"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "process-engine",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/engine.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.insecure":      false,
		"telemetry.service_name":  "process-engine",
		"telemetry.sampling_rate": 1.0,

		"engine.name":               DefaultEngineName,
		"engine.stacktrace.verbose": false,
		"engine.jobs.retries":       DefaultJobRetries,
		"engine.jobs.interval":      "500ms",

		"correlation.activityid":      "activityId",
		"correlation.activityname":    "",
		"correlation.applicationname": "",
		"correlation.businesskey":     "",
		"correlation.definitionid":    "",
		"correlation.instanceid":      "instanceId",
		"correlation.tenantid":        "",
		"correlation.enginename":      "",

		"connector.enabled":          false,
		"connector.name":             "",
		"connector.url":              "",
		"connector.path":             "",
		"connector.timeout":          "10s",
		"connector.retry.attempts":   DefaultConnectorMaxAttempts,
		"connector.retry.initial":    "100ms",
		"connector.retry.max":        "5s",
		"connector.retry.multiplier": DefaultConnectorMultiplier,
		"connector.circuit.failures": DefaultConnectorMaxFailures,
		"connector.circuit.cooldown": "30s",
		"connector.circuit.halfopen": DefaultConnectorHalfOpenLimit,
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	err := k.Load(confmap.Provider(defaults(), "."), nil)
	if err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Load base config file if it exists
	err = loadFileIfExists(k, "configs/base.yaml")
	if err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	// 3. Load profile config file if it exists
	if profile != "" {
		profilePath := fmt.Sprintf("configs/%s.yaml", profile)

		err := loadFileIfExists(k, profilePath)
		if err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	// 4. Load environment variables with APP_ prefix
	err = k.Load(env.Provider("APP_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "APP_")),
			"_",
			".",
		)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// loadFileIfExists loads a YAML config file if it exists.
// Returns nil if the file doesn't exist, error only for parse/read failures.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil // File doesn't exist, that's fine
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
