package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	loggerpkg "github.com/minhyannv/echo-bot-go/pkg/logger"
)

const (
	DefaultModel        = "openai/gpt-4.1"
	DefaultEndpoint     = "https://models.github.ai/inference"
	DefaultTimeout      = 30 * time.Second
	DefaultSystemPrompt = "You are Echo a helpful assistant."
	DefaultTokenEnv     = "GITHUB_TOKEN"

	// DefaultFile is read when present and no explicit path is given.
	DefaultFile = "echo-bot.yaml"
	// PathEnv names the variable holding an explicit options file path.
	PathEnv = "ECHO_BOT_CONFIG"
)

// Config holds all runtime configuration for the chat client.
type Config struct {
	Model        string        `yaml:"model"`
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	SystemPrompt string        `yaml:"system_prompt"`
	TokenEnv     string        `yaml:"token_env"`
	EnvFiles     []string      `yaml:"env_files"`
	Color        *bool         `yaml:"color"`
	Log          Log           `yaml:"log"`
}

// Log configures the injected logger.
type Log struct {
	Level      string `yaml:"level"`
	Output     string `yaml:"output"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns a baseline configuration without side effects.
func DefaultConfig() Config {
	return Config{
		Model:        DefaultModel,
		Endpoint:     DefaultEndpoint,
		Timeout:      DefaultTimeout,
		SystemPrompt: DefaultSystemPrompt,
		TokenEnv:     DefaultTokenEnv,
		EnvFiles:     []string{".env"},
		Log: Log{
			Level:      "info",
			Output:     loggerpkg.OutputNone,
			File:       "logs/echo-bot.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	defaults := DefaultConfig()

	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	cfg.SystemPrompt = strings.TrimSpace(cfg.SystemPrompt)
	cfg.TokenEnv = strings.TrimSpace(cfg.TokenEnv)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Output = strings.ToLower(strings.TrimSpace(cfg.Log.Output))
	cfg.Log.File = strings.TrimSpace(cfg.Log.File)

	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaults.SystemPrompt
	}
	if cfg.TokenEnv == "" {
		cfg.TokenEnv = defaults.TokenEnv
	}

	envFiles := make([]string, 0, len(cfg.EnvFiles))
	for _, f := range cfg.EnvFiles {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		envFiles = append(envFiles, f)
	}
	cfg.EnvFiles = envFiles

	if cfg.Log.Output == "" {
		cfg.Log.Output = loggerpkg.OutputNone
	}
	return cfg
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("endpoint must be an absolute URL, got %q", c.Endpoint)
	}
	if _, err := loggerpkg.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Output {
	case loggerpkg.OutputNone, loggerpkg.OutputStderr:
	case loggerpkg.OutputFile:
		if c.Log.File == "" {
			return errors.New("log.file is required when log.output is file")
		}
	default:
		return fmt.Errorf("unknown log output %q", c.Log.Output)
	}
	return nil
}

// LoggerOptions converts the log section for logger.New.
func (c Config) LoggerOptions() loggerpkg.Options {
	return loggerpkg.Options{
		Level:      c.Log.Level,
		Output:     c.Log.Output,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// Load builds a Config from defaults, an optional YAML file and environment
// overrides. An empty path falls back to ECHO_BOT_CONFIG and then to
// DefaultFile; only the default file may be absent.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := true
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(PathEnv))
	}
	if path == "" {
		path = DefaultFile
		explicit = false
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	cfg = Normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ECHO_BOT_MODEL")); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("ECHO_BOT_ENDPOINT")); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ECHO_BOT_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("ECHO_BOT_LOG_FILE")); v != "" {
		cfg.Log.File = v
		cfg.Log.Output = loggerpkg.OutputFile
	}
}
