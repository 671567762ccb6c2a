package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/screening-seat-booking/internal/app"
	"github.com/iliyamo/screening-seat-booking/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	config.InitLogging(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("start")
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Error("server stopped")
		a.Close()
		os.Exit(1)
	}
	logrus.Info("shut down cleanly")
}
