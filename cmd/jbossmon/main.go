package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"jbossmon/internal/config"
	"jbossmon/internal/jboss"
	"jbossmon/internal/metrics"
	"jbossmon/internal/monitor"
	"jbossmon/internal/reports"
	"jbossmon/internal/store"
	"jbossmon/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("JBoss Monitor %s\nCommit: %s\nBuilt: %s\n", web.Version, web.GitCommit, web.BuildTime)
		os.Exit(0)
	}

	cfg := config.Default()
	if _, err := os.Stat(*configFile); err == nil {
		cfg, err = config.Load(*configFile)
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
	} else {
		logrus.WithField("config_file", *configFile).Info("Config file not found, using defaults")
	}

	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"workers":     cfg.Monitoring.MaxWorkers,
		"interval":    cfg.Monitoring.Interval,
	}).Info("Starting JBoss monitor")

	db, err := store.NewBoltStore(cfg.Database.Path)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	metricsCollector := metrics.NewCollector(db)

	client := jboss.NewClient()
	pool := monitor.NewPool(client, metricsCollector, cfg.Monitoring.MaxWorkers, cfg.Monitoring.CheckTimeout)
	agg := monitor.NewAggregator(db, pool, cfg.Monitoring.BatchTimeout)
	scheduler := monitor.NewScheduler(agg, db, metricsCollector, cfg.Monitoring.Interval)
	engine := reports.NewEngine(db, agg, metricsCollector, cfg.Reports.MaxPerEnvironment, cfg.Reports.DefaultFormat)

	webServer := web.NewServer(cfg, db, agg, engine, metricsCollector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start(ctx)
	webServer.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Web server shutdown failed")
	}

	// Let in-flight report jobs reach a terminal state before the store
	// closes underneath them.
	engine.Wait()
	pool.Stop()

	logrus.Info("Shutdown complete")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
