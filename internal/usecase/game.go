package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/ozxo-backend/internal/apperror"
	"github.com/rocketscienceinc/ozxo-backend/internal/entity"
	"github.com/rocketscienceinc/ozxo-backend/internal/service"
)

// sweepTimeout bounds the opportunistic cleanup that runs detached
// from the request that triggered it.
const sweepTimeout = 10 * time.Second

type GameUseCase interface {
	CreateGame(ctx context.Context, name string, size int) (*entity.Game, *entity.Session, error)
	ListGames(ctx context.Context) ([]*entity.Game, error)
	JoinGame(ctx context.Context, gameToken, name string) (*entity.Session, error)
	Step(ctx context.Context, accessToken, name string, row, col int) (*service.Snapshot, error)
	GameState(ctx context.Context, accessToken, name, gameToken string) (*service.Snapshot, error)
	Refresh(ctx context.Context, refreshToken, name string) (*entity.Session, error)
	Clear(ctx context.Context) error
}

type gameUseCaseGameService interface {
	CreateGame(ctx context.Context, ownerName string, size int) (*entity.Game, error)
	JoinGame(ctx context.Context, token, name string) (*entity.Game, error)
	Step(ctx context.Context, token, role string, row, col int) (*entity.Game, error)
	GameState(ctx context.Context, token, role string) (*service.Snapshot, error)
	ListGames(ctx context.Context) ([]*entity.Game, error)
}

type gameUseCaseAuthService interface {
	CreateSession(ctx context.Context, name, gameToken, role string) (*entity.Session, error)
	CheckAccess(ctx context.Context, accessToken, name string) (*entity.Session, error)
	Refresh(ctx context.Context, refreshToken, name string) (*entity.Session, error)
}

type sweeper interface {
	Sweep(ctx context.Context) int
}

type gameUseCase struct {
	logger *slog.Logger

	gameService gameUseCaseGameService
	authService gameUseCaseAuthService
	reaper      sweeper
}

func NewGameUseCase(logger *slog.Logger, gameService gameUseCaseGameService, authService gameUseCaseAuthService, reaper sweeper) GameUseCase {
	return &gameUseCase{
		logger:      logger.With("component", "usecase"),
		gameService: gameService,
		authService: authService,
		reaper:      reaper,
	}
}

// CreateGame - creates a waiting game and the owner's session for it.
// An orphaned game from a failed session write is left for the reaper.
func (that *gameUseCase) CreateGame(ctx context.Context, name string, size int) (*entity.Game, *entity.Session, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("%w: empty name", apperror.ErrBadInput)
	}

	game, err := that.gameService.CreateGame(ctx, name, size)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create game: %w", err)
	}

	session, err := that.authService.CreateSession(ctx, name, game.Token, entity.RoleOwner)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create owner session: %w", err)
	}

	return game, session, nil
}

func (that *gameUseCase) ListGames(ctx context.Context) ([]*entity.Game, error) {
	games, err := that.gameService.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	that.sweepLater()

	return games, nil
}

func (that *gameUseCase) JoinGame(ctx context.Context, gameToken, name string) (*entity.Session, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", apperror.ErrBadInput)
	}

	if _, err := that.gameService.JoinGame(ctx, gameToken, name); err != nil {
		return nil, fmt.Errorf("failed to join game: %w", err)
	}

	session, err := that.authService.CreateSession(ctx, name, gameToken, entity.RoleOpponent)
	if err != nil {
		return nil, fmt.Errorf("failed to create opponent session: %w", err)
	}

	return session, nil
}

func (that *gameUseCase) Step(ctx context.Context, accessToken, name string, row, col int) (*service.Snapshot, error) {
	session, err := that.authService.CheckAccess(ctx, accessToken, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check access: %w", err)
	}

	game, err := that.gameService.Step(ctx, session.GameToken, session.Role, row, col)
	if err != nil {
		return nil, fmt.Errorf("failed to make step: %w", err)
	}

	youTurn := game.IsPlaying() && game.Turn == session.Role

	return &service.Snapshot{
		Field:   game.Field(),
		State:   game.State,
		Winner:  game.Winner,
		YouTurn: &youTurn,
	}, nil
}

// GameState - an authenticated read when the credentials resolve, an
// anonymous view read by game token otherwise. Bad credentials never
// fail a read, they just demote it to a view.
func (that *gameUseCase) GameState(ctx context.Context, accessToken, name, gameToken string) (*service.Snapshot, error) {
	role := entity.RoleViewer
	token := gameToken

	if session, err := that.authService.CheckAccess(ctx, accessToken, name); err == nil {
		role = session.Role
		token = session.GameToken
	}

	snapshot, err := that.gameService.GameState(ctx, token, role)
	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	that.sweepLater()

	return snapshot, nil
}

func (that *gameUseCase) Refresh(ctx context.Context, refreshToken, name string) (*entity.Session, error) {
	session, err := that.authService.Refresh(ctx, refreshToken, name)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh tokens: %w", err)
	}

	return session, nil
}

// Clear - forces a synchronous sweep of done and stale games.
func (that *gameUseCase) Clear(ctx context.Context) error {
	that.reaper.Sweep(ctx)
	return nil
}

// sweepLater - fires the reaper detached from the calling request so
// cleanup latency and cleanup failures never reach the caller.
func (that *gameUseCase) sweepLater() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		that.reaper.Sweep(ctx)
	}()
}
