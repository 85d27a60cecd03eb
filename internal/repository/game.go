package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/ozxo-backend/internal/apperror"
	"github.com/rocketscienceinc/ozxo-backend/internal/entity"
)

// ErrGameExists - the freshly generated token collided with a stored
// game; the caller retries with a new token.
var ErrGameExists = errors.New("game already exists")

const (
	gameKeyPrefix = "game:"
	gameIndexKey  = "games:index"

	// Optimistic transactions retry on write conflicts; past this many
	// attempts the game is contended enough to give up.
	maxTxRetries = 5
)

type GameRepository interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByToken(ctx context.Context, token string) (*entity.Game, error)
	Update(ctx context.Context, token string, mutate func(*entity.Game) error) (*entity.Game, error)
	List(ctx context.Context) ([]*entity.Game, error)
	DeleteByToken(ctx context.Context, token string) error
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func (that *dbGame) Create(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	created, err := that.client.SetNX(ctx, gameKeyPrefix+game.Token, gameJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	if !created {
		return fmt.Errorf("%w: token %s", ErrGameExists, game.Token)
	}

	member := redis.Z{Score: float64(game.CreatedAt.UnixNano()), Member: game.Token}
	if err = that.client.ZAdd(ctx, gameIndexKey, member).Err(); err != nil {
		return fmt.Errorf("failed to index game: %w", err)
	}

	return nil
}

func (that *dbGame) GetByToken(ctx context.Context, token string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKeyPrefix+token).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by token: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}

// Update - runs mutate inside a WATCH-guarded read-modify-write on the
// game record, so two concurrent mutations of the same game are
// serialized: the loser re-reads the fresh state and mutate decides
// again against it. A domain error from mutate aborts without writing.
func (that *dbGame) Update(ctx context.Context, token string, mutate func(*entity.Game) error) (*entity.Game, error) {
	gameKey := gameKeyPrefix + token

	var game *entity.Game

	txn := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, gameKey).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrGameNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get game by token: %w", err)
		}

		game = &entity.Game{}
		if err = json.Unmarshal([]byte(response), game); err != nil {
			return fmt.Errorf("failed to unmarshal game: %w", err)
		}

		if err = mutate(game); err != nil {
			return err
		}

		gameJSON, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey, gameJSON, 0)
			return nil
		})

		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := that.client.Watch(ctx, txn, gameKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return game, nil
	}

	return nil, fmt.Errorf("failed to update game %s: %w", token, redis.TxFailedErr)
}

// List - all stored games in creation order.
func (that *dbGame) List(ctx context.Context) ([]*entity.Game, error) {
	tokens, err := that.client.ZRange(ctx, gameIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read game index: %w", err)
	}

	if len(tokens) == 0 {
		return nil, nil
	}

	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = gameKeyPrefix + token
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}

	games := make([]*entity.Game, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry raced a deletion, skip it
			continue
		}

		var game entity.Game
		if err = json.Unmarshal([]byte(raw), &game); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game: %w", err)
		}

		games = append(games, &game)
	}

	return games, nil
}

func (that *dbGame) DeleteByToken(ctx context.Context, token string) error {
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, gameKeyPrefix+token)
		pipe.ZRem(ctx, gameIndexKey, token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete game by token: %w", err)
	}

	return nil
}
