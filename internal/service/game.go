package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/ozxo-backend/internal/apperror"
	"github.com/rocketscienceinc/ozxo-backend/internal/entity"
	"github.com/rocketscienceinc/ozxo-backend/internal/pkg"
	"github.com/rocketscienceinc/ozxo-backend/internal/repository"
)

// tokenAttempts bounds retries when a fresh game token collides with a
// stored one.
const tokenAttempts = 3

type GameService interface {
	CreateGame(ctx context.Context, ownerName string, size int) (*entity.Game, error)
	JoinGame(ctx context.Context, token, name string) (*entity.Game, error)
	Step(ctx context.Context, token, role string, row, col int) (*entity.Game, error)
	GameState(ctx context.Context, token, role string) (*Snapshot, error)
	ListGames(ctx context.Context) ([]*entity.Game, error)
}

// Snapshot - a read of one game. YouTurn is set for the two playing
// roles only; a viewer never learns whose move it is.
type Snapshot struct {
	Field   [][]string
	State   string
	Winner  string
	YouTurn *bool
}

type gameRepo interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByToken(ctx context.Context, token string) (*entity.Game, error)
	Update(ctx context.Context, token string, mutate func(*entity.Game) error) (*entity.Game, error)
	List(ctx context.Context) ([]*entity.Game, error)
}

type gameService struct {
	gameRepo gameRepo

	minSize int
	maxSize int
}

func NewGameService(gameRepo gameRepo, minSize, maxSize int) GameService {
	return &gameService{
		gameRepo: gameRepo,
		minSize:  minSize,
		maxSize:  maxSize,
	}
}

func (that *gameService) CreateGame(ctx context.Context, ownerName string, size int) (*entity.Game, error) {
	if size < that.minSize || size > that.maxSize {
		return nil, fmt.Errorf("%w: %d", apperror.ErrInvalidSize, size)
	}

	for attempt := 0; attempt < tokenAttempts; attempt++ {
		token, err := pkg.GenerateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate game token: %w", err)
		}

		game := entity.NewGame(token, ownerName, size, time.Now())

		err = that.gameRepo.Create(ctx, game)
		if errors.Is(err, repository.ErrGameExists) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create game: %w", err)
		}

		return game, nil
	}

	return nil, fmt.Errorf("failed to create game: %w", repository.ErrGameExists)
}

// JoinGame - claims the opponent seat. The conditional store update
// resolves two concurrent joins so exactly one of them wins.
func (that *gameService) JoinGame(ctx context.Context, token, name string) (*entity.Game, error) {
	game, err := that.gameRepo.Update(ctx, token, func(game *entity.Game) error {
		if err := game.Join(name); err != nil {
			return err
		}

		game.Touch(time.Now())

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join game: %w", err)
	}

	return game, nil
}

func (that *gameService) Step(ctx context.Context, token, role string, row, col int) (*entity.Game, error) {
	game, err := that.gameRepo.Update(ctx, token, func(game *entity.Game) error {
		if err := game.Step(role, row, col); err != nil {
			return err
		}

		game.Touch(time.Now())

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to make step: %w", err)
	}

	return game, nil
}

func (that *gameService) GameState(ctx context.Context, token, role string) (*Snapshot, error) {
	game, err := that.gameRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	snapshot := &Snapshot{
		Field:  game.Field(),
		State:  game.State,
		Winner: game.Winner,
	}

	if role == entity.RoleOwner || role == entity.RoleOpponent {
		youTurn := game.IsPlaying() && game.Turn == role
		snapshot.YouTurn = &youTurn
	}

	return snapshot, nil
}

func (that *gameService) ListGames(ctx context.Context) ([]*entity.Game, error) {
	games, err := that.gameRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	return games, nil
}
