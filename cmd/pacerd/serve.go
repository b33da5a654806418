package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mallathon/coach"
	"mallathon/config"
	"mallathon/logging"
	"mallathon/network"
	"mallathon/room"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket and coach API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.InitConfig(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !verbose {
		if logger, err = logging.New(cfg.Log.Level, cfg.Log.Dev); err != nil {
			return err
		}
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode, err := config.ParseCollectMode(cfg.Course.CollectMode)
	if err != nil {
		return err
	}
	rooms := room.NewManager(room.Settings{
		Tuning:  cfg.PacerTuning(),
		Orbs:    cfg.Course.Orbs,
		Spacing: cfg.Course.Spacing,
		Horizon: cfg.Course.Horizon,
		Mode:    mode,
		Seed:    cfg.Course.Seed,
		Logger:  logger,
	})

	var gen coach.Generator
	if cfg.AI.APIKey != "" {
		g, err := coach.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			logger.Warn("coach offline", zap.Error(err))
		} else {
			gen = g
		}
	} else {
		logger.Info("no API key set, coach runs offline")
	}
	c := coach.New(gen, coach.Options{Timeout: cfg.AI.Timeout, Logger: logger})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           network.NewServer(rooms, c, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// websockets are hijacked, so Shutdown does not wait for them
		rooms.Close()
		return err
	})
	return g.Wait()
}
