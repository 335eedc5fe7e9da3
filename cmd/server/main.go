package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/cinegate/theatre-booking/internal/config"
	"github.com/cinegate/theatre-booking/internal/database"
	"github.com/cinegate/theatre-booking/internal/handler"
	"github.com/cinegate/theatre-booking/internal/middleware"
	"github.com/cinegate/theatre-booking/internal/queue"
	"github.com/cinegate/theatre-booking/internal/repository"
	"github.com/cinegate/theatre-booking/internal/router"
	"github.com/cinegate/theatre-booking/internal/service"
	"github.com/cinegate/theatre-booking/internal/worker"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.Env == "prod" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logrus.Warn("redis unreachable, rate limiting and caching disabled")
	}

	orders := repository.NewOrderRepo(db)
	seats := repository.NewSeatRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	users := repository.NewUserRepo(db)
	notifier := service.NewNotifier(orders)

	h := router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users),
		Seats:   handler.NewSeatHandler(seats),
		Booking: handler.NewBookingHandler(cfg, orders, showtimes),
		Payment: handler.NewPaymentHandler(orders, notifier),
		Admin:   handler.NewAdminHandler(orders),
	}
	mw := router.Middlewares{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		SeatCache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, mw, cfg.JWTSecret)

	// Background pieces: the expiration reconciler and the confirmation
	// consumer.  Both stop when the root context is cancelled; the
	// consumer additionally survives broker restarts on its own.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	rec := worker.NewReconciler(orders, cfg.SweepInterval)
	rec.Start(rootCtx)

	go func() {
		if err := queue.StartBookingConsumer(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Error("booking consumer terminated")
		}
	}()

	go func() {
		addr := ":" + cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	rootCancel()
	rec.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
