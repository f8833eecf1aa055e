// Package config loads the t4a configuration: defaults, then a YAML file,
// then environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/recognizer"
	"transcribe4all/internal/app/storage"
)

const (
	DefaultName          = "files/wildshort"
	DefaultEngine        = "sphinx"
	DefaultAcousticModel = "cmusphinx-en-us"
	DefaultDictionary    = "cmudict-en-us.dict"
	DefaultLanguageModel = "en-us.lm"
)

type Config struct {
	// Name is the input base name: audio is read from Name.wav.
	Name   string `yaml:"name"`
	Engine string `yaml:"engine"`

	Recognizer recognizer.Configuration `yaml:"recognizer"`

	// Engines holds per-engine settings merged over Recognizer.Settings.
	Engines map[string]map[string]string `yaml:"engines,omitempty"`

	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Progress bool           `yaml:"progress"`
}

type DatabaseConfig struct {
	// Driver is "sqlite", "postgres" or "none".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"`
	URL    string `yaml:"url,omitempty"`
}

type StorageConfig struct {
	Enabled        bool `yaml:"enabled"`
	storage.Config `yaml:",inline"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	Mode           string        `yaml:"mode"`
	TaskExpiration time.Duration `yaml:"task_expiration"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

// Default replicates the demo constants: the bundled en-us models and the
// files/wildshort recording.
func Default() *Config {
	return &Config{
		Name:   DefaultName,
		Engine: DefaultEngine,
		Recognizer: recognizer.Configuration{
			AcousticModelPath: DefaultAcousticModel,
			DictionaryPath:    DefaultDictionary,
			LanguageModelPath: DefaultLanguageModel,
		},
		Database: DatabaseConfig{Driver: "sqlite"},
		Server: ServerConfig{
			Addr:           ":8080",
			Mode:           "release",
			TaskExpiration: 24 * time.Hour,
			SweepInterval:  30 * time.Minute,
		},
	}
}

// DefaultPaths returns the config files Load looks for when no path is
// given.
func DefaultPaths() []string {
	if path := os.Getenv("T4A_CONFIG"); path != "" {
		return []string{path}
	}

	paths := []string{"t4a.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".transcribe4all", "config.yaml"))
	}
	return paths
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path searches DefaultPaths and falls back to the
// defaults when none exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	candidates := DefaultPaths()
	if path != "" {
		candidates = []string{os.ExpandEnv(path)}
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if os.IsNotExist(err) && path == "" {
			continue
		}
		if err != nil {
			return nil, apperrors.Kind(apperrors.ErrMissingConfig, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Kind(apperrors.ErrInvalidConfig, fmt.Errorf("parse %s: %w", candidate, err))
		}
		break
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from T4A_* and MINIO_* variables.
func (c *Config) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.Name, "T4A_NAME")
	setString(&c.Engine, "T4A_ENGINE")
	setString(&c.Recognizer.AcousticModelPath, "T4A_ACOUSTIC_MODEL")
	setString(&c.Recognizer.DictionaryPath, "T4A_DICTIONARY")
	setString(&c.Recognizer.LanguageModelPath, "T4A_LANGUAGE_MODEL")
	if v := os.Getenv("T4A_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			c.Recognizer.SampleRate = rate
		}
	}
	if v := os.Getenv("T4A_SPHINX_BINARY"); v != "" {
		c.setEngineSetting("sphinx", "binary", v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.setEngineSetting("openai", "api_key", v)
	}

	setString(&c.Database.Driver, "T4A_DATABASE_DRIVER")
	setString(&c.Database.Path, "T4A_DATABASE_PATH")
	if v := os.Getenv("T4A_DATABASE_URL"); v != "" {
		c.Database.URL = v
		if os.Getenv("T4A_DATABASE_DRIVER") == "" {
			c.Database.Driver = "postgres"
		}
	}

	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.Storage.Enabled = true
		c.Storage.Endpoint = v
	}
	setString(&c.Storage.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Storage.Bucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.Storage.UseSSL = v == "true"
	}

	setString(&c.Server.Addr, "T4A_ADDR")
	setString(&c.Server.Mode, "GIN_MODE")
}

func (c *Config) setEngineSetting(engine, key, value string) {
	if c.Engines == nil {
		c.Engines = map[string]map[string]string{}
	}
	if c.Engines[engine] == nil {
		c.Engines[engine] = map[string]string{}
	}
	c.Engines[engine][key] = value
}

// RecognizerConfig returns the recognizer configuration for engine with that
// engine's settings merged in.
func (c *Config) RecognizerConfig(engine string) recognizer.Configuration {
	rc := c.Recognizer
	settings := make(map[string]string, len(rc.Settings)+len(c.Engines[engine]))
	for k, v := range rc.Settings {
		settings[k] = v
	}
	for k, v := range c.Engines[engine] {
		settings[k] = v
	}
	rc.Settings = settings
	return rc
}

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	if c.Name == "" {
		return apperrors.Kind(apperrors.ErrInvalidConfig, apperrors.RequiredField("name"))
	}
	if c.Engine == "" {
		return apperrors.Kind(apperrors.ErrInvalidConfig, apperrors.RequiredField("engine"))
	}
	if c.Recognizer.SampleRate < 0 {
		return apperrors.Kind(apperrors.ErrInvalidConfig, apperrors.InvalidField("recognizer.sample_rate", "must not be negative"))
	}

	switch c.Database.Driver {
	case "sqlite", "none", "":
	case "postgres":
		if c.Database.URL == "" {
			return apperrors.Kind(apperrors.ErrInvalidConfig, apperrors.RequiredField("database.url"))
		}
	default:
		return apperrors.Kind(apperrors.ErrInvalidConfig,
			apperrors.InvalidField("database.driver", fmt.Sprintf("unknown driver %q", c.Database.Driver)))
	}

	if c.Storage.Enabled && c.Storage.Endpoint == "" {
		return apperrors.Kind(apperrors.ErrInvalidConfig, apperrors.RequiredField("storage.endpoint"))
	}
	if c.Server.TaskExpiration < 0 {
		return apperrors.Kind(apperrors.ErrInvalidConfig, apperrors.InvalidField("server.task_expiration", "must not be negative"))
	}
	return nil
}

// Save writes the configuration as YAML, creating the directory.
func Save(cfg *Config, path string) error {
	path = os.ExpandEnv(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
