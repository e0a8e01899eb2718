package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/api"
	"github.com/healthscore-analysis-server/internal/config"
	"github.com/healthscore-analysis-server/internal/domain"
	"github.com/healthscore-analysis-server/internal/extract"
	"github.com/healthscore-analysis-server/internal/service"
	"github.com/healthscore-analysis-server/internal/setup"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(&cfg.Logging)

	// Build the rule library: compiled defaults, or a versioned YAML file.
	lib := service.DefaultRuleLibrary()
	if cfg.Engine.RulesFile != "" {
		lib, err = service.LoadRuleLibrary(cfg.Engine.RulesFile)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load rule library")
		}
		logger.WithFields(logrus.Fields{
			"file":    cfg.Engine.RulesFile,
			"version": lib.Version,
		}).Info("Loaded rule library override")
	}

	analyzer, err := service.NewAnalyzerService(logger, lib)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize analysis engine")
	}

	// OCR degrades gracefully: images are rejected as unsupported when no
	// tesseract binary is found.
	tesseractPath := ""
	if cfg.Upload.OCREnabled {
		tesseractPath, err = setup.FindTesseract(cfg.Upload.TesseractPath)
		if err != nil {
			logger.WithError(err).Warn("OCR disabled")
		}
	}

	extractors := extract.NewRegistry(logger, analyzer.ReferenceTable(), &cfg.Upload, tesseractPath)

	server := api.NewServer(configManager, logger, analyzer, extractors)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting HealthScore analysis server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg *domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return logger
}
