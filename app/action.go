package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/GlebZemlyanikin/RowingModel/internal/bot"
	"github.com/GlebZemlyanikin/RowingModel/internal/config"
	"github.com/GlebZemlyanikin/RowingModel/internal/dialog"
	"github.com/GlebZemlyanikin/RowingModel/internal/report"
	"github.com/GlebZemlyanikin/RowingModel/internal/store"
)

const shutdownTimeout = 5 * time.Second

// runAction starts the bot, the periodic snapshotter, and the health
// endpoint, and blocks until interrupted.
func runAction(ctx *cli.Context) error {
	confPath := ctx.String("config")
	if confPath == "" {
		var err error

		confPath, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	conf, err := config.New(config.WithViperConfig(confPath))
	if err != nil {
		return err
	}

	if ctx.Bool("debug") {
		conf.Debug = true
	}

	initLogging(conf)

	snapDB, err := store.NewClient(conf.SnapshotDBPath())
	if err != nil {
		return err
	}
	defer snapDB.Close()

	mem := store.NewMemory()
	snapshotter := store.NewSnapshotter(
		snapDB, mem, conf.SnapshotInterval, conf.SnapshotKeep,
	)
	engine := dialog.New(mem, report.NewExporter())

	b, err := bot.New(conf.BotToken, engine, mem, snapshotter, snapDB)
	if err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(
		ctx.Context, os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	go snapshotter.Run(runCtx)
	go healthServer(runCtx, conf.HealthAddr)

	err = b.Run(runCtx)

	slog.InfoContext(runCtx, "exiting rowingmodel")

	return err
}

// healthServer exposes the liveness probe. It carries no payload semantics
// beyond process-is-up.
func healthServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "OK")
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("health endpoint listening", slog.String("addr", addr))

	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("health endpoint failed", slog.Any("error", err))
	}
}
