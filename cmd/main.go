package main

import (
	"fmt"
	"net/http"

	"github.com/kcolemangt/gemini-proxy/config"
	"github.com/kcolemangt/gemini-proxy/handler"
	"github.com/kcolemangt/gemini-proxy/logging"
	"github.com/kcolemangt/gemini-proxy/metrics"
	"github.com/kcolemangt/gemini-proxy/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Initialize command-line flags
	configFile, listeningPort, logLevel := config.InitFlags()

	// Initialize the logger
	logger, err := logging.NewLogger(logLevel, "")
	if err != nil {
		panic(err)
	}

	// Load the configuration
	cfg, err := config.LoadConfig(configFile, listeningPort, config.DefaultConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Rebuild the logger once we know whether to also log to a file
	if cfg.LogFile != "" {
		fileLogger, err := logging.NewLogger(logLevel, cfg.LogFile)
		if err != nil {
			logger.Fatal("Failed to open log file", zap.String("file", cfg.LogFile), zap.Error(err))
		}
		logger = fileLogger
		cfg.Logger = logger
	}
	defer logger.Sync()

	client, err := proxy.NewClient(cfg.Upstream, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialize upstream client", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := handler.New(cfg, client, metrics.New(reg))

	// Start the server
	addr := fmt.Sprintf(":%d", cfg.ListeningPort)
	logger.Info("Proxy server is running", zap.String("addr", addr), zap.String("profile", string(cfg.Profile)))
	if err := http.ListenAndServe(addr, h.Routes()); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
