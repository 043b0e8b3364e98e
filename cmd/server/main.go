package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Digitalmx/mattibud-web/internal/api"
	"github.com/Digitalmx/mattibud-web/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("bootstrap failed")
	}
	defer a.Close()

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     a.Cfg.RedisAddr,
		Password: a.Cfg.RedisPassword,
		DB:       a.Cfg.RedisDB,
	})
	defer queueClient.Close()

	srv := api.New(a.Cfg, a.Service, a.Blobs, queueClient, a.Log)
	if err := srv.Run(ctx); err != nil {
		a.Log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
	a.Log.Info("server shut down")
}
