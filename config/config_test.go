package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kcolemangt/gemini-proxy/model"
	"go.uber.org/zap"
)

// clearEnv blanks every variable LoadConfig reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		EnvPort, EnvAPIKey, EnvRahbanAPIKey, EnvGhararbanAPIKey, EnvProfile,
		EnvUpstreamBaseURL, EnvUpstreamModel, EnvUpstreamTimeout, EnvLogFile,
	} {
		t.Setenv(env, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestMissingConfigFile(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	clearEnv(t)

	config, err := LoadConfig("non_existent_config.yaml", 0, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("Failed to handle missing config file: %s", err)
	}

	if config.ListeningPort != 3001 {
		t.Errorf("Expected default ListeningPort 3001, got %d", config.ListeningPort)
	}
	if config.Profile != model.ProfileSingle {
		t.Errorf("Expected single profile, got %q", config.Profile)
	}
	if config.Upstream.Model != "gemini-1.5-flash-latest" {
		t.Errorf("Expected default model, got %q", config.Upstream.Model)
	}
	if config.Logger == nil {
		t.Error("Expected logger to be set")
	}
}

func TestPortPrecedence(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	clearEnv(t)
	path := writeConfig(t, "listening_port: 4000\n")

	config, err := LoadConfig(path, 0, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if config.ListeningPort != 4000 {
		t.Errorf("Expected file ListeningPort 4000, got %d", config.ListeningPort)
	}

	t.Setenv(EnvPort, "5000")
	config, err = LoadConfig(path, 0, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if config.ListeningPort != 5000 {
		t.Errorf("Expected env ListeningPort 5000, got %d", config.ListeningPort)
	}

	config, err = LoadConfig(path, 8080, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if config.ListeningPort != 8080 {
		t.Errorf("Expected overridden ListeningPort 8080, got %d", config.ListeningPort)
	}
}

func TestInvalidPort(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	clearEnv(t)
	t.Setenv(EnvPort, "http")

	if _, err := LoadConfig("non_existent_config.yaml", 0, DefaultConfig(), logger); err == nil {
		t.Error("Expected an error for a non-numeric PORT")
	}
}

func TestCredentialsFromEnvironment(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	clearEnv(t)
	t.Setenv(EnvAPIKey, " single-key ")
	t.Setenv(EnvRahbanAPIKey, "rahban-key")
	t.Setenv(EnvGhararbanAPIKey, "ghararban-key")

	config, err := LoadConfig("non_existent_config.yaml", 0, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}

	want := model.Credentials{Single: "single-key", Rahban: "rahban-key", Ghararban: "ghararban-key"}
	if config.Credentials != want {
		t.Errorf("Expected credentials %+v, got %+v", want, config.Credentials)
	}
	if config.Profile != model.ProfileSingle {
		t.Errorf("Expected single profile when API_KEY is set, got %q", config.Profile)
	}
}

func TestProfileDetection(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	clearEnv(t)
	t.Setenv(EnvRahbanAPIKey, "rahban-key")

	config, err := LoadConfig("non_existent_config.yaml", 0, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if config.Profile != model.ProfileMulti {
		t.Errorf("Expected multi profile, got %q", config.Profile)
	}

	t.Setenv(EnvProfile, "Single")
	config, err = LoadConfig("non_existent_config.yaml", 0, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if config.Profile != model.ProfileSingle {
		t.Errorf("Expected explicit single profile, got %q", config.Profile)
	}

	t.Setenv(EnvProfile, "triple")
	if _, err := LoadConfig("non_existent_config.yaml", 0, DefaultConfig(), logger); err == nil {
		t.Error("Expected an error for an unknown profile")
	}
}

func TestConfigFileUpstream(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	clearEnv(t)
	path := writeConfig(t, `
profile: multi
max_body_bytes: 2048
upstream:
  base_url: http://localhost:9999
  model: gemini-pro
  timeout: 30s
`)

	config, err := LoadConfig(path, 0, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if config.Profile != model.ProfileMulti {
		t.Errorf("Expected multi profile, got %q", config.Profile)
	}
	if config.Upstream.BaseURL != "http://localhost:9999" || config.Upstream.Model != "gemini-pro" {
		t.Errorf("Unexpected upstream %+v", config.Upstream)
	}
	if config.Upstream.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", config.Upstream.Timeout)
	}
	if config.MaxBodyBytes != 2048 {
		t.Errorf("Expected MaxBodyBytes 2048, got %d", config.MaxBodyBytes)
	}

	t.Setenv(EnvUpstreamModel, "gemini-env")
	t.Setenv(EnvUpstreamTimeout, "5s")
	config, err = LoadConfig(path, 0, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if config.Upstream.Model != "gemini-env" || config.Upstream.Timeout != 5*time.Second {
		t.Errorf("Expected env overrides, got %+v", config.Upstream)
	}
}

func TestMalformedConfigFile(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	clearEnv(t)
	path := writeConfig(t, "listening_port: [not, a, port]\n")

	if _, err := LoadConfig(path, 0, DefaultConfig(), logger); err == nil {
		t.Error("Expected an error for a malformed config file")
	}
}
