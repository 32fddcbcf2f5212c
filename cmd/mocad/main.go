package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/dewgenenny/gocoax-stats/internal/api"
	"github.com/dewgenenny/gocoax-stats/internal/daemon"
	"github.com/dewgenenny/gocoax-stats/internal/logging"
	"github.com/dewgenenny/gocoax-stats/internal/version"
)

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file path")
		debugMode  = flag.Bool("debug", false, "Enable debug mode")
		once       = flag.Bool("once", false, "Run a single poll cycle and exit")
		dryRun     = flag.Bool("dry-run", false, "Poll without publishing to MQTT")
		showVer    = flag.Bool("version", false, "Show version and exit")
		host       = flag.String("host", "", "Poll a single adapter, print a report and exit")
	)

	flag.Parse()

	if *showVer {
		fmt.Printf("mocad %s\n", version.GetFullVersionInfo())
		os.Exit(0)
	}

	fs := afero.NewOsFs()
	cfg, err := daemon.LoadConfig(fs, *configFile)
	if err != nil {
		if *host == "" {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = daemon.DefaultConfig()
	}

	// Override with command line flags
	if *debugMode {
		cfg.Logging.Level = "debug"
	}
	cfg.Daemon.RunOnce = *once
	cfg.Daemon.DryRun = *dryRun
	if *host != "" {
		cfg.Daemon.DryRun = true
		cfg.API.Enabled = false
		if len(cfg.Device.Hosts) == 0 {
			cfg.Device.Hosts = []string{*host}
		}
	}
	cfg.Version = version.GetFullVersionInfo()

	d, err := daemon.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize daemon: %v", err)
	}

	if *host != "" {
		err := d.PollSingleHost(context.Background(), *host, os.Stdout)
		d.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Poll of %s failed: %v\n", *host, err)
			os.Exit(1)
		}
		return
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var srv *http.Server
	if cfg.API.Enabled && !cfg.Daemon.RunOnce {
		srv = startAPIServer(cfg.API, d)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGHUP {
				logging.Info("Received SIGHUP, reloading configuration")
				if err := d.ReloadConfig(fs, *configFile); err != nil {
					logging.Error("Configuration reload failed", logging.Err(err))
				}
				continue
			}
			logging.Infof("Received signal %v, shutting down...", sig)
			cancel()
			return
		}
	}()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("Daemon error", logging.Err(err))
	}

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("API server shutdown failed", logging.Err(err))
		}
		done()
	}

	logging.Info("Daemon stopped")
}

func startAPIServer(cfg daemon.APIConfig, d *daemon.Daemon) *http.Server {
	server := api.New(d)
	server.SetMetricsHandler(d.Metrics().Handler())

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Infof("API server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("API server failed", logging.Err(err))
		}
	}()
	return srv
}
