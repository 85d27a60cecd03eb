package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/ozxo-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger *slog.Logger

	game usecase.GameUseCase
}

func New(logger *slog.Logger, game usecase.GameUseCase) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		game:   game,
	}
}

func (that *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ping", that.handlePing).Methods(http.MethodGet)

	games := router.PathPrefix("/games").Subrouter()
	games.HandleFunc("/new", that.handleCreate).Methods(http.MethodPost)
	games.HandleFunc("/list", that.handleList).Methods(http.MethodGet)
	games.HandleFunc("/join", that.handleJoin).Methods(http.MethodPost)
	games.HandleFunc("/do_step", that.handleStep).Methods(http.MethodPost)
	games.HandleFunc("/state", that.handleState).Methods(http.MethodGet)
	games.HandleFunc("/update", that.handleRefresh).Methods(http.MethodPost)
	games.HandleFunc("/clear", that.handleClear).Methods(http.MethodDelete)

	return router
}

func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}

		return nil
	}
}
