package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Digitalmx/mattibud-web/internal/app"
	"github.com/Digitalmx/mattibud-web/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("bootstrap failed")
	}
	defer a.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     a.Cfg.RedisAddr,
			Password: a.Cfg.RedisPassword,
			DB:       a.Cfg.RedisDB,
		},
		asynq.Config{Concurrency: a.Cfg.Workers},
	)

	processor := worker.NewProcessor(a.Service, a.Log)
	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	a.Log.WithField("concurrency", a.Cfg.Workers).Info("worker starting")
	if err := srv.Run(processor.Handler()); err != nil {
		a.Log.WithError(err).Fatal("worker stopped")
	}
	a.Log.Info("worker shut down")
}
