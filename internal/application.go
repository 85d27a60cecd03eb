package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/ozxo-backend/internal/config"
	"github.com/rocketscienceinc/ozxo-backend/internal/repository"
	"github.com/rocketscienceinc/ozxo-backend/internal/repository/storage"
	"github.com/rocketscienceinc/ozxo-backend/internal/service"
	"github.com/rocketscienceinc/ozxo-backend/internal/usecase"
	"github.com/rocketscienceinc/ozxo-backend/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisClient, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	gameRepo := repository.NewGameRepository(redisClient)
	sessionRepo := repository.NewSessionRepository(redisClient)

	gameService := service.NewGameService(gameRepo, conf.Game.MinSize, conf.Game.MaxSize)
	authService := service.NewAuthService(sessionRepo, conf.Session.TTL())
	reaper := service.NewReaper(logger, gameRepo, sessionRepo, conf.Game.StaleAfter())

	gameUseCase := usecase.NewGameUseCase(logger, gameService, authService, reaper)

	server := rest.New(logger, gameUseCase)

	log.Info("Starting HTTP server", "port", conf.HTTPPort)
	if err = server.Start(ctx, conf.HTTPPort); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}
