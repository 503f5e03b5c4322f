// Command cellserver serves cell counting over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"cell-counter/internal/config"
	"cell-counter/internal/logging"
	"cell-counter/internal/monitor"
	"cell-counter/internal/server"
	"cell-counter/internal/version"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}

	log, err := logging.Init(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if cfg.Server.Workers > runtime.NumCPU() {
		log.Warn("workers exceed CPU cores, detection will contend",
			zap.Int("workers", cfg.Server.Workers), zap.Int("cpus", runtime.NumCPU()))
	}
	log.Info("starting", zap.String("version", version.String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitor.New()
	go metrics.Run(ctx, 500*time.Millisecond, log)

	srv := server.New(cfg.Server, cfg.NewCounter(log), metrics, log)
	srv.Start()
	defer srv.Close()

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("safely exited")
}
