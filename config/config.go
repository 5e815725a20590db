package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kcolemangt/gemini-proxy/model"
	"github.com/kcolemangt/gemini-proxy/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Environment variables read at startup.
const (
	EnvPort            = "PORT"
	EnvAPIKey          = "API_KEY"
	EnvRahbanAPIKey    = "RAHBAN_API_KEY"
	EnvGhararbanAPIKey = "GHARARBAN_API_KEY"
	EnvProfile         = "PROXY_PROFILE"
	EnvUpstreamBaseURL = "UPSTREAM_BASE_URL"
	EnvUpstreamModel   = "UPSTREAM_MODEL"
	EnvUpstreamTimeout = "UPSTREAM_TIMEOUT"
	EnvLogFile         = "LOG_FILE"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() model.Config {
	return model.Config{
		ListeningPort: 3001,
		Upstream: model.UpstreamConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-1.5-flash-latest",
		},
		MaxBodyBytes: 1 << 20,
	}
}

// LoadConfig builds the proxy configuration. Precedence is flags, then the
// environment (including .env), then the YAML file, then defaultConfig.
func LoadConfig(configFile string, listeningPort int, defaultConfig model.Config, logger *zap.Logger) (*model.Config, error) {
	// godotenv.Load never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found or unable to load it, continuing with system environment variables", zap.Error(err))
	} else {
		logger.Info(".env file loaded successfully")
	}

	logger.Info("Starting configuration loading", zap.String("configFile", configFile))

	cfg := defaultConfig
	fileData, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(fileData, &cfg); err != nil {
			logger.Error("Failed to unmarshal config data", zap.String("file", configFile), zap.Error(err))
			return nil, fmt.Errorf("parse %s: %w", configFile, err)
		}
		logger.Info("Config file loaded and parsed", zap.String("file", configFile))
	case errors.Is(err, os.ErrNotExist):
		logger.Info("Config file not found, using default configuration", zap.String("file", configFile))
	default:
		logger.Error("Failed to read config file", zap.String("file", configFile), zap.Error(err))
		return nil, fmt.Errorf("read %s: %w", configFile, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if listeningPort != 0 {
		cfg.ListeningPort = listeningPort
		logger.Info("Listening port override applied", zap.Int("port", listeningPort))
	}

	cfg.Credentials = model.Credentials{
		Single:    strings.TrimSpace(os.Getenv(EnvAPIKey)),
		Rahban:    strings.TrimSpace(os.Getenv(EnvRahbanAPIKey)),
		Ghararban: strings.TrimSpace(os.Getenv(EnvGhararbanAPIKey)),
	}

	if cfg.Profile == "" {
		cfg.Profile = detectProfile(cfg.Credentials)
	}
	if !cfg.Profile.Valid() {
		return nil, fmt.Errorf("unknown profile %q", cfg.Profile)
	}
	if cfg.Upstream.BaseURL == "" || cfg.Upstream.Model == "" {
		return nil, errors.New("upstream base_url and model are required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultConfig.MaxBodyBytes
	}

	logCredentials(logger, cfg)

	cfg.Logger = logger

	logger.Info("Configuration loading completed successfully",
		zap.Int("port", cfg.ListeningPort),
		zap.String("profile", string(cfg.Profile)),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("model", cfg.Upstream.Model))
	return &cfg, nil
}

func applyEnv(cfg *model.Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.ListeningPort = port
	}
	if v := os.Getenv(EnvProfile); v != "" {
		cfg.Profile = model.Profile(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv(EnvUpstreamBaseURL); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv(EnvUpstreamModel); v != "" {
		cfg.Upstream.Model = v
	}
	if v := os.Getenv(EnvUpstreamTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvUpstreamTimeout, v, err)
		}
		cfg.Upstream.Timeout = d
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.LogFile = v
	}
	return nil
}

// detectProfile picks multi only when the assistant keys are the sole keys present.
func detectProfile(c model.Credentials) model.Profile {
	if c.Single == "" && (c.Rahban != "" || c.Ghararban != "") {
		return model.ProfileMulti
	}
	return model.ProfileSingle
}

// Missing keys are a warning, not an error: health checks must keep working.
func logCredentials(logger *zap.Logger, cfg model.Config) {
	keys := map[string]string{}
	switch cfg.Profile {
	case model.ProfileSingle:
		keys[EnvAPIKey] = cfg.Credentials.Single
	case model.ProfileMulti:
		keys[EnvRahbanAPIKey] = cfg.Credentials.Rahban
		keys[EnvGhararbanAPIKey] = cfg.Credentials.Ghararban
	}
	for env, key := range keys {
		if key == "" {
			logger.Warn("API key not set, generate requests needing it will fail", zap.String("envVar", env))
			continue
		}
		logger.Info("API key loaded", zap.String("envVar", env), zap.String("key", utils.RedactKey(key)))
	}
}

// InitFlags initializes and parses the command-line flags.
func InitFlags() (string, int, string) {
	configFile := flag.String("config", "config.yaml", "Path to the optional YAML configuration file")
	listeningPort := flag.Int("port", 0, "Listening port (overrides PORT and config file)")
	logLevel := flag.String("log-level", "info", "define the log level: debug, info, warn, error, dpanic, panic, fatal")

	flag.Parse()

	return *configFile, *listeningPort, *logLevel
}
