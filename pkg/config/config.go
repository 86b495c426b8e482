package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/cyberpulse/pkg/credentials"
	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/logging"
)

// DefaultAPIBase is the metered API used when nothing else is configured
const DefaultAPIBase = "https://6kq6c7p4r4.execute-api.us-east-1.amazonaws.com/prod"

// Environment overrides
const (
	EnvAPIBase   = "CP_API_BASE"
	EnvAPIKey    = "CYBERPULSE_API_KEY"
	EnvGeminiKey = "GOOGLE_API_KEY"
)

const (
	dirName         = ".cyberpulse"
	fileName        = "config.yaml"
	historyFileName = "history.db"
	defaultModel    = "gemini-1.5-flash"
	defaultTimeout  = 30 * time.Second
	defaultAddr     = "127.0.0.1:8080"
)

// CredentialConfig is the header credential sent with metered calls
type CredentialConfig struct {
	HeaderName string `yaml:"header_name"`
	APIKey     string `yaml:"api_key"`
}

// ServerConfig configures `cyberpulse serve`
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	CrosswalkFile string `yaml:"crosswalk_file"`
}

type Config struct {
	APIBase       string           `yaml:"api_base"`
	Credential    CredentialConfig `yaml:"credential"`
	Frameworks    []string         `yaml:"frameworks"`
	CrosswalkURL  string           `yaml:"crosswalk_url,omitempty"`
	Timeout       time.Duration    `yaml:"timeout"`
	HistoryPath   string           `yaml:"history_path,omitempty"`
	SelectedModel string           `yaml:"selected_model"`
	GeminiAPIKey  string           `yaml:"gemini_api_key,omitempty"`
	Server        ServerConfig     `yaml:"server"`
	LogFormat     string           `yaml:"log_format"`
}

// Default returns the configuration used when no file exists yet
func Default() *Config {
	fws := make([]string, len(engine.SupportedFrameworks))
	for i, fw := range engine.SupportedFrameworks {
		fws[i] = string(fw)
	}
	return &Config{
		APIBase:       DefaultAPIBase,
		Credential:    CredentialConfig{HeaderName: credentials.HeaderAPIKey},
		Frameworks:    fws,
		Timeout:       defaultTimeout,
		SelectedModel: defaultModel,
		Server:        ServerConfig{Addr: defaultAddr},
		LogFormat:     logging.FormatText,
	}
}

// GetConfigDir returns ~/.cyberpulse, creating it with owner-only access
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// LoadConfig reads the default config file
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file. A missing file yields the defaults; fields
// absent from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Credential.HeaderName == "" {
		cfg.Credential.HeaderName = credentials.HeaderAPIKey
	}
	return cfg, nil
}

// SaveConfig writes cfg to the default config file
func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// keys live in this file
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overlays environment overrides. getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIBase); v != "" {
		c.APIBase = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.Credential.APIKey = v
		if c.Credential.HeaderName == "" {
			c.Credential.HeaderName = credentials.HeaderAPIKey
		}
	}
	if v := getenv(EnvGeminiKey); v != "" {
		c.GeminiAPIKey = v
	}
}

// Validate checks the fields that would otherwise fail later at request time
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBase)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base %q is not an http(s) URL", c.APIBase)
	}
	if c.CrosswalkURL != "" {
		if u, err := url.Parse(c.CrosswalkURL); err != nil || u.Host == "" {
			return fmt.Errorf("crosswalk_url %q is not a URL", c.CrosswalkURL)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("log_format %q must be text or json", c.LogFormat)
	}
	if h := c.Credential.HeaderName; h != "" && !credentials.SupportedHeader(h) {
		return fmt.Errorf("credential header %q must be %s or %s", h, credentials.HeaderAPIKey, credentials.HeaderAuthorization)
	}
	return nil
}

// SetCredential stores the key under the given header
func (c *Config) SetCredential(header, key string) {
	c.Credential = CredentialConfig{HeaderName: credentials.CanonicalHeader(header), APIKey: key}
}

// HeaderCredential returns the configured header credential
func (c *Config) HeaderCredential() credentials.Credential {
	return credentials.Static(c.Credential.HeaderName, c.Credential.APIKey)
}

// EngineFrameworks converts the configured framework names
func (c *Config) EngineFrameworks() []engine.Framework {
	out := make([]engine.Framework, 0, len(c.Frameworks))
	for _, fw := range c.Frameworks {
		if fw = strings.TrimSpace(fw); fw != "" {
			out = append(out, engine.Framework(fw))
		}
	}
	return out
}

// HistoryDBPath returns history_path or ~/.cyberpulse/history.db
func (c *Config) HistoryDBPath() (string, error) {
	if c.HistoryPath != "" {
		return c.HistoryPath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, historyFileName), nil
}
