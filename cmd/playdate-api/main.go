package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/playdate-api/internal/config"
	"github.com/dimitrije/playdate-api/internal/database"
	"github.com/dimitrije/playdate-api/internal/logging"
	"github.com/dimitrije/playdate-api/internal/notify"
	"github.com/dimitrije/playdate-api/internal/server"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/dimitrije/playdate-api/internal/sse"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	logging.Setup(cfg.LogLevel, cfg.IsProduction())

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	db.TxTimeout = cfg.TxTimeout

	if err := db.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	hub := sse.NewHub()
	go hub.Run()

	directoryService := services.NewDirectoryService(db)

	dispatchers := notify.Multi{notify.Log{}, notify.NewHub(hub)}
	if cfg.Redis.URL != "" {
		queue, err := notify.NewRedisQueue(ctx, cfg.Redis.URL, cfg.Redis.Queue)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer func() { _ = queue.Close() }()
		dispatchers = append(dispatchers, queue)
		log.WithField("queue", cfg.Redis.Queue).Info("publishing notifications to redis")
	}
	if email := notify.NewEmail(cfg.SMTP, directoryService, cfg.BaseURL); email.IsConfigured() {
		dispatchers = append(dispatchers, email)
		log.WithField("host", cfg.SMTP.Host).Info("email notifications enabled")
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry)
	engine := services.NewResolutionEngine()
	connectionService := services.NewConnectionService(db, engine, dispatchers)
	activityService := services.NewActivityService(db, services.NewSeriesSplitter(cfg.MaxSeriesOccurrences), dispatchers)
	invitationService := services.NewInvitationService(db, dispatchers)

	router := server.NewRouter(cfg, server.Deps{
		JWT:         jwtService,
		Directory:   directoryService,
		Connections: connectionService,
		Activities:  activityService,
		Invitations: invitationService,
		Hub:         hub,
	})

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			pruned, err := invitationService.PrunePending(context.Background())
			if err != nil {
				log.WithError(err).Warn("failed to prune pending invitations")
				continue
			}
			if pruned > 0 {
				log.WithField("pruned", pruned).Info("pruned stale pending invitations")
			}
		}
	}()

	srv := &http.Server{
		Handler:           router,
		Addr:              net.JoinHostPort("0.0.0.0", cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.WithField("signal", sig.String()).Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
}
