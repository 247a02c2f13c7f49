// winlens serves a single application window to remote viewers: it
// streams change notifications over WebSocket and relays viewer input
// back into the window.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"winlens/internal/capture"
	"winlens/internal/clients"
	"winlens/internal/config"
	"winlens/internal/frame"
	"winlens/internal/input"
	"winlens/internal/logging"
	"winlens/internal/server"
	"winlens/internal/window"
)

func main() {
	var (
		addr       = flag.String("addr", "", "listen address (default :6222)")
		app        = flag.String("app", "", "target application name")
		pid        = flag.Int("pid", 0, "target process id (takes precedence over -app)")
		list       = flag.Bool("list", false, "list windowed applications and exit")
		threshold  = flag.Float64("threshold", -1, "change-detection threshold in [0,1] (default 0.01)")
		interval   = flag.Duration("interval", 0, "capture poll interval (default 100ms)")
		configPath = flag.String("config", "", "path to YAML config file")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fatal(err)
		}
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *app != "" {
		cfg.App = *app
	}
	if *pid != 0 {
		cfg.PID = *pid
	}
	if *threshold >= 0 {
		cfg.Threshold = *threshold
	}
	if *interval > 0 {
		cfg.Interval = *interval
	}
	if *verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	logger := logging.Setup(cfg.Verbose)

	if *list {
		entries, err := window.List()
		if err != nil {
			fatal(err)
		}
		for _, e := range entries {
			fmt.Printf("%8d  %s\n", e.PID, e.Name)
		}
		return
	}

	var (
		handle *window.Handle
		err    error
	)
	switch {
	case cfg.PID != 0:
		handle, err = window.FindByPID(cfg.PID)
	case cfg.App != "":
		handle, err = window.FindByApp(cfg.App)
	default:
		fatal(fmt.Errorf("select a target window with -app or -pid (see -list)"))
	}
	if err != nil {
		fatal(err)
	}
	logger.Info("bound window", "window", handle.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	window.WakeDisplay(ctx)

	registry := clients.NewRegistry(logging.Component(logger, "clients"))
	monitor := frame.NewMonitor(
		capture.NewWindow(handle),
		registry,
		cfg.Threshold,
		cfg.Interval,
		logging.Component(logger, "frame"),
	)
	translator := input.NewTranslator(
		input.NewRobotPort(),
		handle,
		logging.Component(logger, "input"),
	)
	srv := server.New(monitor, registry, translator, logging.Component(logger, "server"))

	go monitor.Run(ctx)

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: srv.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Info("serving", "addr", cfg.Addr, "url", fmt.Sprintf("http://localhost%s/", cfg.Addr))

	select {
	case err := <-errCh:
		// Startup failure (cannot bind) is the only fatal runtime error.
		if err != nil && err != http.ErrServerClosed {
			fatal(err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "winlens:", err)
	os.Exit(1)
}
