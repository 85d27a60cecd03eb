package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/ozxo-backend/internal/entity"
)

type reaperGameRepo interface {
	List(ctx context.Context) ([]*entity.Game, error)
	DeleteByToken(ctx context.Context, token string) error
}

type reaperSessionRepo interface {
	DeleteByGameToken(ctx context.Context, gameToken string) error
}

// Reaper - removes finished and abandoned games together with their
// sessions. It is best-effort cleanup: it runs after unrelated reads,
// reports nothing to their callers and swallows its own failures.
type Reaper struct {
	logger *slog.Logger

	gameRepo    reaperGameRepo
	sessionRepo reaperSessionRepo

	staleAfter time.Duration
}

func NewReaper(logger *slog.Logger, gameRepo reaperGameRepo, sessionRepo reaperSessionRepo, staleAfter time.Duration) *Reaper {
	return &Reaper{
		logger:      logger.With("component", "reaper"),
		gameRepo:    gameRepo,
		sessionRepo: sessionRepo,
		staleAfter:  staleAfter,
	}
}

// Sweep - deletes every game that is done or stale past the activity
// threshold. Sessions go first so no session is left pointing at a
// vanished game; a game whose sessions failed to delete is kept for
// the next sweep. Returns the number of games removed.
func (that *Reaper) Sweep(ctx context.Context) int {
	log := that.logger.With("method", "Sweep")

	games, err := that.gameRepo.List(ctx)
	if err != nil {
		log.Error("failed to list games", "error", err)
		return 0
	}

	now := time.Now()
	removed := 0

	for _, game := range games {
		if !game.IsDone() && !game.IsStale(now, that.staleAfter) {
			continue
		}

		if err = that.sessionRepo.DeleteByGameToken(ctx, game.Token); err != nil {
			log.Error("failed to delete sessions", "gameToken", game.Token, "error", err)
			continue
		}

		if err = that.gameRepo.DeleteByToken(ctx, game.Token); err != nil {
			log.Error("failed to delete game", "gameToken", game.Token, "error", err)
			continue
		}

		removed++
	}

	if removed > 0 {
		log.Info("swept games", "removed", removed)
	}

	return removed
}
