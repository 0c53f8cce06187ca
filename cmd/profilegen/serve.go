package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/api"
	"github.com/dusk-indust/profilegen/internal/notify"
	"github.com/dusk-indust/profilegen/internal/session"
	"github.com/dusk-indust/profilegen/internal/stream"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with live progress streaming",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return runServe(a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func runServe(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := session.NewStore(session.WithTTL(a.cfg.Session.TTL))
	streamer := stream.NewStreamer(store, a.logger)
	streamer.PollInterval = a.cfg.Server.PollInterval
	streamer.GracePeriod = a.cfg.Server.GracePeriod

	var notifiers []api.SessionNotifier
	if url := a.cfg.Notify.RedisURL; url != "" {
		rdb, err := notify.DialRedis(ctx, url)
		if err != nil {
			return err
		}
		defer rdb.Close()
		notifiers = append(notifiers, notify.NewRedisPublisher(rdb, "", a.logger))
		a.logger.Info("redis progress fan-out enabled")
	}
	if url := a.cfg.Notify.NATSURL; url != "" {
		nc, err := notify.DialNATS(url)
		if err != nil {
			return err
		}
		defer nc.Drain()
		notifiers = append(notifiers, notify.NewNATSPublisher(nc, "", a.logger))
		a.logger.Info("nats progress fan-out enabled")
	}

	srv := api.New(api.Deps{
		Orchestrator: a.orchestrator(),
		Store:        store,
		Streamer:     streamer,
		Notifiers:    notifiers,
		Metrics:      a.metrics.Handler(),
		BaseContext:  ctx,
		Logger:       a.logger,
	})

	printStep("Serving on %s", a.cfg.Server.Addr)
	if err := srv.ListenAndServe(ctx, a.cfg.Server.Addr); err != nil {
		a.logger.Error("server stopped", zap.Error(err))
		return err
	}
	printSuccess("Server stopped")
	return nil
}
