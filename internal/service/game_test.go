package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/ozxo-backend/internal/apperror"
	"github.com/rocketscienceinc/ozxo-backend/internal/entity"
	"github.com/rocketscienceinc/ozxo-backend/internal/repository"
	"github.com/rocketscienceinc/ozxo-backend/testing/suite"
)

func TestGameService_CreateGame(t *testing.T) {
	t.Run("Creates a waiting game with a token", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameService := NewGameService(repository.NewGameRepository(st.Storage), 3, 10)

		// When: a game is created
		game, err := gameService.CreateGame(ctx, "Pamela", 3)

		// Then: it waits with an empty board and an 8-char token
		require.NoError(t, err)
		assert.Len(t, game.Token, 8)
		assert.Len(t, game.Board, 9)
		assert.Equal(t, entity.StateWaiting, game.State)
		assert.Equal(t, entity.RoleOwner, game.Turn)
	})

	t.Run("Rejects an unsupported size before touching storage", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := repository.NewGameRepository(st.Storage)
		gameService := NewGameService(gameRepo, 3, 10)

		// When: sizes outside the supported range are requested
		_, errSmall := gameService.CreateGame(ctx, "Pamela", 2)
		_, errBig := gameService.CreateGame(ctx, "Pamela", 11)

		// Then: both fail with the size error and nothing is stored
		require.ErrorIs(t, errSmall, apperror.ErrInvalidSize)
		require.ErrorIs(t, errBig, apperror.ErrInvalidSize)

		games, err := gameRepo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, games)
	})
}

func TestGameService_JoinAndStep(t *testing.T) {
	t.Run("Join flips the game to playing", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameService := NewGameService(repository.NewGameRepository(st.Storage), 3, 10)

		game, err := gameService.CreateGame(ctx, "Pamela", 3)
		require.NoError(t, err)

		// When: an opponent joins
		joined, err := gameService.JoinGame(ctx, game.Token, "Benedict")

		// Then: the game plays and the joiner moves first
		require.NoError(t, err)
		assert.Equal(t, entity.StatePlaying, joined.State)
		assert.Equal(t, entity.RoleOpponent, joined.Turn)
	})

	t.Run("Join of an unknown game fails", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameService := NewGameService(repository.NewGameRepository(st.Storage), 3, 10)

		// When: joining a token that does not exist
		_, err := gameService.JoinGame(ctx, "missing1", "Benedict")

		// Then: the game is not found
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Step persists the move and advances activity", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameService := NewGameService(repository.NewGameRepository(st.Storage), 3, 10)

		game, err := gameService.CreateGame(ctx, "Pamela", 3)
		require.NoError(t, err)
		_, err = gameService.JoinGame(ctx, game.Token, "Benedict")
		require.NoError(t, err)

		// When: the opponent steps
		stepped, err := gameService.Step(ctx, game.Token, entity.RoleOpponent, 0, 0)

		// Then: the mark is persisted and the turn moved on
		require.NoError(t, err)
		assert.Equal(t, entity.MarkOpponent, stepped.Board[0])
		assert.Equal(t, entity.RoleOwner, stepped.Turn)
		assert.True(t, stepped.LastActivityAt.After(game.LastActivityAt))
	})
}

func TestGameService_GameState(t *testing.T) {
	t.Run("Player snapshots carry youTurn, view snapshots do not", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameService := NewGameService(repository.NewGameRepository(st.Storage), 3, 10)

		game, err := gameService.CreateGame(ctx, "Pamela", 3)
		require.NoError(t, err)
		_, err = gameService.JoinGame(ctx, game.Token, "Benedict")
		require.NoError(t, err)

		// When: each audience reads the state
		opponentView, err := gameService.GameState(ctx, game.Token, entity.RoleOpponent)
		require.NoError(t, err)
		ownerView, err := gameService.GameState(ctx, game.Token, entity.RoleOwner)
		require.NoError(t, err)
		anonView, err := gameService.GameState(ctx, game.Token, entity.RoleViewer)
		require.NoError(t, err)

		// Then: only players learn whose move it is
		require.NotNil(t, opponentView.YouTurn)
		assert.True(t, *opponentView.YouTurn)
		require.NotNil(t, ownerView.YouTurn)
		assert.False(t, *ownerView.YouTurn)
		assert.Nil(t, anonView.YouTurn)
		assert.Equal(t, entity.StatePlaying, anonView.State)
	})
}
