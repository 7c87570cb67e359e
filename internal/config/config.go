// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (HARA_* prefix, runtime override)
//  2. Config file (~/.hara/config.yaml)
//  3. Default values
//
// The API credential is a special case: a user-set override stored in the
// data directory wins over the configured/environment value. Its prefix
// decides which chat backend is used (see the provider package).
//
// Error Handling: sentinel errors checked with errors.Is(), wrapped with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidChatModel indicates the chat model name is empty or malformed.
	ErrInvalidChatModel = errors.New("invalid chat model")

	// ErrInvalidSpeechModel indicates the speech model name is empty or malformed.
	ErrInvalidSpeechModel = errors.New("invalid speech model")

	// ErrInvalidTheme indicates the theme is neither "light" nor "dark".
	ErrInvalidTheme = errors.New("invalid theme")

	// ErrInvalidDataDir indicates the data directory cannot be resolved.
	ErrInvalidDataDir = errors.New("invalid data directory")
)

// Theme preference values persisted in the config file.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

const (
	configDirName  = ".hara"
	configFileName = "config"
	configFileType = "yaml"

	// keyOverrideFile holds the user-set credential override inside the
	// data directory. It wins over HARA_API_KEY.
	keyOverrideFile = "api_key"

	// DefaultChatModel is the Gemini model used by the native backend.
	DefaultChatModel = "gemini-2.0-flash-lite-preview-02-05"

	// DefaultSpeechModel is the Gemini model used for speech synthesis.
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"

	// DefaultReferrer identifies this client to the OpenRouter endpoint
	// (sent as the HTTP-Referer header next to X-Title).
	DefaultReferrer = "https://hara.chat"
)

// Config stores application configuration.
// SECURITY: the API key is masked by String() and never logged.
type Config struct {
	// Model configuration
	ChatModel   string  `mapstructure:"chat_model"`
	SpeechModel string  `mapstructure:"speech_model"`
	Temperature float32 `mapstructure:"temperature"`

	// Credential (environment-level default; the data-dir override wins)
	APIKey string `mapstructure:"api_key"`

	// OpenRouter referrer/title pair
	Referrer string `mapstructure:"referrer"`

	// Local state
	DataDir string `mapstructure:"data_dir"`
	Theme   string `mapstructure:"theme"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// String implements fmt.Stringer with the credential masked.
func (c *Config) String() string {
	key := "(unset)"
	if c.APIKey != "" {
		key = "***"
	}
	return fmt.Sprintf("Config{ChatModel:%s SpeechModel:%s Theme:%s DataDir:%s APIKey:%s}",
		c.ChatModel, c.SpeechModel, c.Theme, c.DataDir, key)
}

// Load reads configuration from defaults, the config file and environment.
// A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()

	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataDir, err)
	}

	v.SetDefault("chat_model", DefaultChatModel)
	v.SetDefault("speech_model", DefaultSpeechModel)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("referrer", DefaultReferrer)
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("theme", ThemeDark)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dataDir)

	v.SetEnvPrefix("HARA")
	v.AutomaticEnv()
	// GEMINI_API_KEY is honoured as a conventional fallback for the
	// environment-level credential.
	_ = v.BindEnv("api_key", "HARA_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrInvalidDataDir, cfg.DataDir, err)
	}

	return cfg, nil
}

// Validate checks configuration invariants. Range/format checks only; a
// missing API key is legal at load time and surfaces later as a chat-level
// error when a send is attempted.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if strings.TrimSpace(c.ChatModel) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidChatModel)
	}
	if strings.TrimSpace(c.SpeechModel) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSpeechModel)
	}
	if c.Theme != ThemeLight && c.Theme != ThemeDark {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, c.Theme)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDataDir)
	}
	return nil
}

// ResolveAPIKey returns the effective credential: the user-set override in
// the data directory first, then the environment-level default. An empty
// result means no key is configured.
func (c *Config) ResolveAPIKey() string {
	if key, err := c.OverrideKey(); err == nil && key != "" {
		return key
	}
	return strings.TrimSpace(c.APIKey)
}

// OverrideKey reads the user-set credential override, if any.
// A missing override file returns ("", nil).
func (c *Config) OverrideKey() (string, error) {
	data, err := os.ReadFile(filepath.Join(c.DataDir, keyOverrideFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read key override: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetOverrideKey persists the user-set credential override. An empty key
// clears the override.
func (c *Config) SetOverrideKey(key string) error {
	path := filepath.Join(c.DataDir, keyOverrideFile)
	key = strings.TrimSpace(key)
	if key == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear key override: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key override: %w", err)
	}
	return nil
}

// SaveTheme persists the theme preference back to the config file.
func (c *Config) SaveTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	c.Theme = theme

	v := viper.New()
	v.SetConfigFile(filepath.Join(c.DataDir, configFileName+"."+configFileType))
	v.SetConfigType(configFileType)
	_ = v.ReadInConfig() // merge into existing file when present
	v.Set("theme", theme)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("write theme: %w", err)
	}
	return nil
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}
