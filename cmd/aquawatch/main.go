package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"aquawatch/internal/config"
	httpapi "aquawatch/internal/http"
	"aquawatch/internal/logger"
	"aquawatch/internal/metrics"
	"aquawatch/internal/service"
)

const usage = `usage: aquawatch <command> [flags]

commands:
  settings show [-json]
  settings save [-recipients LIST] [-set KEY=MIN:MAX]... [-enable KEY]... [-disable KEY]...
  settings toggle KEY on|off
  settings test -recipients LIST
  settings reset
  report -from FROM -to TO [-mode date|month] [-metrics a,b] [-o PATH]
  today [-json]
  serve
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "aquawatch:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "aquawatch")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	switch args[0] {
	case "settings":
		return a.settingsCmd(ctx, args[1:], stdout, stderr)
	case "report":
		return a.reportCmd(ctx, args[1:], stdout, stderr)
	case "today":
		return a.todayCmd(ctx, args[1:], stdout, stderr)
	case "serve":
		return a.serve(ctx)
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

// serve keeps one page session behind the console API until SIGINT/SIGTERM.
func (a *app) serve(ctx context.Context) error {
	a.recorder = metrics.NewRecorder()
	session := a.newSession()
	_ = session.Load(ctx)

	today, err := a.today()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go today.Poll(ctx, a.cfg.RefreshInterval)

	handler := httpapi.NewConsoleHandler(httpapi.Console{
		Catalog:  a.catalog,
		Session:  session,
		Reports:  a.reports(),
		Today:    today,
		Recorder: a.recorder,
	}, a.logger)
	srv := service.NewServer(a.cfg.HTTP, handler, a.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}
	cancel()

	if err := srv.Stop(context.Background()); err != nil {
		a.logger.Warn("Console API did not drain in time", zap.Error(err))
	}
	return serveErr
}
