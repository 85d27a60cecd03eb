package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/ozxo-backend/internal/apperror"
	"github.com/rocketscienceinc/ozxo-backend/internal/entity"
	"github.com/rocketscienceinc/ozxo-backend/internal/repository"
	"github.com/rocketscienceinc/ozxo-backend/internal/service"
	"github.com/rocketscienceinc/ozxo-backend/testing/suite"
)

func newTestUseCase(st *suite.Suite) GameUseCase {
	gameRepo := repository.NewGameRepository(st.Storage)
	sessionRepo := repository.NewSessionRepository(st.Storage)

	gameService := service.NewGameService(gameRepo, 3, 10)
	authService := service.NewAuthService(sessionRepo, 15*time.Minute)
	reaper := service.NewReaper(st.Logger, gameRepo, sessionRepo, time.Hour)

	return NewGameUseCase(st.Logger, gameService, authService, reaper)
}

func TestGameUseCase_CreateGame(t *testing.T) {
	t.Run("Creates a game with an owner session", func(t *testing.T) {
		ctx, st := suite.New(t)

		useCase := newTestUseCase(st)

		// When: a game is created
		game, session, err := useCase.CreateGame(ctx, "Pamela", 3)

		// Then: game token and owner credentials come back together
		require.NoError(t, err)
		assert.Len(t, game.Token, 8)
		assert.Equal(t, entity.RoleOwner, session.Role)
		assert.Equal(t, game.Token, session.GameToken)
	})

	t.Run("Rejects an empty name before touching state", func(t *testing.T) {
		ctx, st := suite.New(t)

		useCase := newTestUseCase(st)

		// When: a game is created without a name
		_, _, err := useCase.CreateGame(ctx, "", 3)

		// Then: the input is rejected
		require.ErrorIs(t, err, apperror.ErrBadInput)

		games, err := useCase.ListGames(ctx)
		require.NoError(t, err)
		assert.Empty(t, games)
	})
}

func TestGameUseCase_JoinGame(t *testing.T) {
	t.Run("Second join is rejected with the full-game error", func(t *testing.T) {
		ctx, st := suite.New(t)

		useCase := newTestUseCase(st)

		game, _, err := useCase.CreateGame(ctx, "Pamela", 3)
		require.NoError(t, err)

		// When: two opponents join one after another
		_, err = useCase.JoinGame(ctx, game.Token, "Benedict")
		require.NoError(t, err)

		_, err = useCase.JoinGame(ctx, game.Token, "Lisa")

		// Then: the second join sees a full game
		require.ErrorIs(t, err, apperror.ErrGameFull)
	})
}

func TestGameUseCase_Step(t *testing.T) {
	t.Run("Step with a bad token is unauthorized", func(t *testing.T) {
		ctx, st := suite.New(t)

		useCase := newTestUseCase(st)

		// When: a step arrives with an unknown access token
		_, err := useCase.Step(ctx, "nosuchtk", "Pamela", 0, 0)

		// Then: it is rejected as unauthorized
		require.ErrorIs(t, err, apperror.ErrUnauthorized)
	})
}

func TestGameUseCase_GameState(t *testing.T) {
	t.Run("Bad credentials demote the read to an anonymous view", func(t *testing.T) {
		ctx, st := suite.New(t)

		useCase := newTestUseCase(st)

		game, _, err := useCase.CreateGame(ctx, "Pamela", 3)
		require.NoError(t, err)

		// When: the state is read with junk credentials but a valid game token
		snapshot, err := useCase.GameState(ctx, "nosuchtk", "Mallory", game.Token)

		// Then: the view snapshot comes back without youTurn
		require.NoError(t, err)
		assert.Equal(t, entity.StateWaiting, snapshot.State)
		assert.Nil(t, snapshot.YouTurn)
	})

	t.Run("No credentials and no game token is not found", func(t *testing.T) {
		ctx, st := suite.New(t)

		useCase := newTestUseCase(st)

		// When: a state read carries nothing usable
		_, err := useCase.GameState(ctx, "", "", "")

		// Then: there is no game to show
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})
}

func TestGameUseCase_Refresh(t *testing.T) {
	t.Run("Rotated credentials keep working, spent ones do not", func(t *testing.T) {
		ctx, st := suite.New(t)

		useCase := newTestUseCase(st)

		game, owner, err := useCase.CreateGame(ctx, "Pamela", 3)
		require.NoError(t, err)
		_, err = useCase.JoinGame(ctx, game.Token, "Benedict")
		require.NoError(t, err)

		// When: the owner rotates tokens
		rotated, err := useCase.Refresh(ctx, owner.RefreshToken, "Pamela")
		require.NoError(t, err)

		// Then: the old refresh token is spent
		_, err = useCase.Refresh(ctx, owner.RefreshToken, "Pamela")
		require.ErrorIs(t, err, apperror.ErrRefreshDenied)

		// And: the new access token authorizes a state read
		snapshot, err := useCase.GameState(ctx, rotated.AccessToken, "Pamela", "")
		require.NoError(t, err)
		require.NotNil(t, snapshot.YouTurn)
	})
}

func TestGameUseCase_Clear(t *testing.T) {
	t.Run("Clear sweeps finished games synchronously", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := repository.NewGameRepository(st.Storage)
		sessionRepo := repository.NewSessionRepository(st.Storage)
		gameService := service.NewGameService(gameRepo, 3, 10)
		authService := service.NewAuthService(sessionRepo, 15*time.Minute)
		reaper := service.NewReaper(st.Logger, gameRepo, sessionRepo, time.Hour)
		useCase := NewGameUseCase(st.Logger, gameService, authService, reaper)

		// Given: a game driven to a finish
		game, _, err := useCase.CreateGame(ctx, "Pamela", 3)
		require.NoError(t, err)
		_, err = useCase.JoinGame(ctx, game.Token, "Benedict")
		require.NoError(t, err)
		playToOpponentWin(ctx, t, useCase, gameRepo, game.Token)

		// When: clear runs
		require.NoError(t, useCase.Clear(ctx))

		// Then: the finished game is gone
		_, err = gameRepo.GetByToken(ctx, game.Token)
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})
}

// TestGameUseCase_FullMatch drives a complete match through the facade
// the way two clients would.
func TestGameUseCase_FullMatch(t *testing.T) {
	ctx, st := suite.New(t)

	useCase := newTestUseCase(st)

	// create(size=3, name=A) and join(name=B)
	game, ownerSession, err := useCase.CreateGame(ctx, "A", 3)
	require.NoError(t, err)

	opponentSession, err := useCase.JoinGame(ctx, game.Token, "B")
	require.NoError(t, err)

	// B moves first
	snapshot, err := useCase.Step(ctx, opponentSession.AccessToken, "B", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, entity.StatePlaying, snapshot.State)

	// A steps out of bounds and the board stays intact
	_, err = useCase.Step(ctx, ownerSession.AccessToken, "A", 5, 2)
	require.ErrorIs(t, err, apperror.ErrOutOfBounds)

	// A plays a legal cell
	_, err = useCase.Step(ctx, ownerSession.AccessToken, "A", 0, 2)
	require.NoError(t, err)

	// A tries to double-step
	_, err = useCase.Step(ctx, ownerSession.AccessToken, "A", 1, 1)
	require.ErrorIs(t, err, apperror.ErrNotYourTurn)

	// the match plays out to B's diagonal
	_, err = useCase.Step(ctx, opponentSession.AccessToken, "B", 1, 1)
	require.NoError(t, err)
	_, err = useCase.Step(ctx, ownerSession.AccessToken, "A", 1, 2)
	require.NoError(t, err)
	snapshot, err = useCase.Step(ctx, opponentSession.AccessToken, "B", 2, 2)
	require.NoError(t, err)

	assert.Equal(t, entity.StateDone, snapshot.State)
	assert.Equal(t, entity.RoleOpponent, snapshot.Winner)

	// no further step is accepted, valid token or not
	_, err = useCase.Step(ctx, ownerSession.AccessToken, "A", 2, 0)
	require.ErrorIs(t, err, apperror.ErrGameFinished)

	// the viewer sees the result without a turn flag
	view, err := useCase.GameState(ctx, "", "", game.Token)
	require.NoError(t, err)
	assert.Equal(t, entity.StateDone, view.State)
	assert.Equal(t, entity.RoleOpponent, view.Winner)
	assert.Nil(t, view.YouTurn)
}

func playToOpponentWin(ctx context.Context, t *testing.T, useCase GameUseCase, gameRepo repository.GameRepository, token string) {
	t.Helper()

	// fetch both sessions through direct steps: the opponent takes the
	// first column while the owner fills elsewhere
	game, err := gameRepo.GetByToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, entity.StatePlaying, game.State)

	moves := []struct {
		role     string
		row, col int
	}{
		{entity.RoleOpponent, 0, 0}, {entity.RoleOwner, 0, 1},
		{entity.RoleOpponent, 1, 0}, {entity.RoleOwner, 1, 1},
		{entity.RoleOpponent, 2, 0},
	}

	for _, move := range moves {
		_, err = gameRepo.Update(ctx, token, func(game *entity.Game) error {
			return game.Step(move.role, move.row, move.col)
		})
		require.NoError(t, err)
	}
}
