package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estore/internal/config"
	"estore/internal/event"
	"estore/internal/infra/mailer"
	"estore/internal/infra/pubsub"
	"estore/internal/job"
	"estore/internal/logger"
	"estore/internal/notify"
	"estore/internal/server"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the outbox dispatcher and the daily report job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newRedisBridge(rdb *redis.Client) *pubsub.RedisBridge {
	return pubsub.NewRedisBridge(rdb, cfg.Redis.Channel)
}

type stopFunc func(context.Context) error

func runServe(ctx context.Context) error {
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	hub := notify.NewHub(0)
	var stops []stopFunc

	// 複数台構成ではredisで受けた分だけSSEに流す
	if rt.rdb != nil {
		stopListen, err := newRedisBridge(rt.rdb).Listen(ctx, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		})
		if err != nil {
			return err
		}
		stops = append(stops, stopListen)
	}

	stops = append(stops, rt.newDispatcher(hub).Start(ctx))

	if cfg.Report.Enabled {
		mail, err := mailer.New(ctx, cfg.AWS)
		if err != nil {
			return err
		}
		hour, minute, err := config.ParseClock(cfg.Report.DailyAt)
		if err != nil {
			return err
		}
		sched := job.NewReportScheduler(rt.uc.Reports, mail, cfg.Report.AdminEmail, hour, minute)
		stops = append(stops, sched.Start(ctx))
	}

	e := server.NewEcho(cfg, rt.uc, hub)
	serveErr := server.Start(ctx, e, server.Addr(cfg.App.Port))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(stops) - 1; i >= 0; i-- {
		if err := stops[i](shutdownCtx); err != nil {
			logger.Warn("background worker stop failed", zap.Error(err))
		}
	}

	logger.Info("server stopped")
	return serveErr
}
