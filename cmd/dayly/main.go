package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"dayly/internal/config"
	appLog "dayly/internal/log"
	"dayly/internal/store"
	"dayly/internal/web"
)

// flagConfig holds CLI flag values overriding the config file.
type flagConfig struct {
	configPath string
	listen     string
	dbPath     string
}

func main() {
	appLog.Info("dayly starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override config file values if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dbPath != "" {
		conf.DBPath = flags.dbPath
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"db_path", conf.DBPath,
	)

	st, err := store.Open(conf.DBPath)
	if err != nil {
		appLog.Error("failed to open task store", err, "db_path", conf.DBPath)
		os.Exit(1)
	}
	defer st.Close()

	srv := web.NewServer(conf, st)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Warm the snapshot once, then keep it fresh on the configured cron
	// schedule so long-idle processes do not serve stale task sets.
	if _, err := srv.RefreshSnapshot(ctx); err != nil {
		appLog.Error("initial snapshot fetch failed", err)
	}

	cr := cron.New()
	if _, err := cr.AddFunc(conf.RefreshCron, func() {
		if _, err := srv.RefreshSnapshot(context.Background()); err != nil {
			appLog.Error("scheduled snapshot refresh failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	cr.Start()
	defer cr.Stop()

	httpSrv := &http.Server{
		Addr:    conf.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}

	appLog.Info("dayly exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/dayly/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.dbPath, "db", "", "SQLite database path (overrides config if set)")

	flag.Parse()

	return cfg
}
