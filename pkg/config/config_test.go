package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cyberpulse/pkg/credentials"
	"github.com/user/cyberpulse/pkg/engine"
)

func TestLoadFromMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIBase, cfg.APIBase)
	assert.Equal(t, credentials.HeaderAPIKey, cfg.Credential.HeaderName)
	assert.Len(t, cfg.Frameworks, len(engine.SupportedFrameworks))
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.SetCredential("authorization", "Bearer abc")
	cfg.Frameworks = []string{"GDPR"}
	cfg.Timeout = 5 * time.Second
	require.NoError(t, SaveTo(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, credentials.Credential{Header: credentials.HeaderAuthorization, Value: "Bearer abc"}, got.HeaderCredential())
}

func TestLoadFromPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crosswalk_url: https://cw.example.com/cw.json\ntimeout: 2s\n"), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://cw.example.com/cw.json", cfg.CrosswalkURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultAPIBase, cfg.APIBase)
	assert.Equal(t, credentials.HeaderAPIKey, cfg.Credential.HeaderName)
}

func TestLoadFromBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frameworks: {"), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIBase:   "http://localhost:9000",
		EnvAPIKey:    "key-1",
		EnvGeminiKey: "g-key",
	}
	cfg := Default()
	cfg.Credential.HeaderName = ""
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "http://localhost:9000", cfg.APIBase)
	assert.Equal(t, "key-1", cfg.Credential.APIKey)
	assert.Equal(t, credentials.HeaderAPIKey, cfg.Credential.HeaderName)
	assert.Equal(t, "g-key", cfg.GeminiAPIKey)

	untouched := Default()
	untouched.ApplyEnv(func(string) string { return "" })
	assert.Equal(t, Default(), untouched)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative api base", func(c *Config) { c.APIBase = "/prod" }},
		{"ftp api base", func(c *Config) { c.APIBase = "ftp://example.com" }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad crosswalk url", func(c *Config) { c.CrosswalkURL = "not a url" }},
		{"unsupported header", func(c *Config) { c.Credential.HeaderName = "X-Token" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineFrameworks(t *testing.T) {
	cfg := &Config{Frameworks: []string{" GDPR ", "", "SOC 2"}}
	assert.Equal(t, []engine.Framework{engine.FrameworkGDPR, engine.FrameworkSOC2}, cfg.EngineFrameworks())
}

func TestHistoryDBPath(t *testing.T) {
	cfg := &Config{HistoryPath: "/tmp/runs.db"}
	p, err := cfg.HistoryDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/runs.db", p)

	t.Setenv("HOME", t.TempDir())
	p, err = Default().HistoryDBPath()
	require.NoError(t, err)
	assert.Equal(t, "history.db", filepath.Base(p))
	assert.Equal(t, ".cyberpulse", filepath.Base(filepath.Dir(p)))
}
