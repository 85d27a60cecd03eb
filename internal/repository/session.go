package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/ozxo-backend/internal/apperror"
	"github.com/rocketscienceinc/ozxo-backend/internal/entity"
)

// ErrSessionNotFound - no stored session matches the lookup. The
// service layer decides whether that means unauthorized or a spent
// refresh token.
var ErrSessionNotFound = errors.New("session not found")

const (
	sessionsKeyPrefix = "sessions:"
	accessKeyPrefix   = "token:access:"
	refreshKeyPrefix  = "token:refresh:"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByAccessToken(ctx context.Context, accessToken string) (*entity.Session, error)
	Rotate(ctx context.Context, refreshToken, name, newAccess, newRefresh string, expiresAt time.Time) (*entity.Session, error)
	DeleteByGameToken(ctx context.Context, gameToken string) error
}

// Sessions live in a per-game hash keyed by role, so HSetNX is the
// compare-and-set that keeps each role single-occupancy. Two index
// keys point each credential back at its (game, role) slot.
type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

// tokenRef - the value stored under a credential index key.
type tokenRef struct {
	GameToken string `json:"game_token"`
	Role      string `json:"role"`
}

func (that *dbSession) Create(ctx context.Context, session *entity.Session) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	claimed, err := that.client.HSetNX(ctx, sessionsKeyPrefix+session.GameToken, session.Role, sessionJSON).Result()
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	if !claimed {
		return fmt.Errorf("%w: game %s role %s", apperror.ErrDuplicateRole, session.GameToken, session.Role)
	}

	if err = that.writeTokenRefs(ctx, that.client, session); err != nil {
		return err
	}

	return nil
}

func (that *dbSession) GetByAccessToken(ctx context.Context, accessToken string) (*entity.Session, error) {
	session, err := that.getByRef(ctx, accessKeyPrefix+accessToken)
	if err != nil {
		return nil, err
	}

	// a stale index entry from a lost rotation write must not resolve
	if session.AccessToken != accessToken {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// Rotate - atomically replaces both credentials of the session bound
// to refreshToken and extends its expiry. The WATCH on the refresh
// index key makes rotation single-use: a concurrent rotation or an
// access check racing through the old token cannot both win.
func (that *dbSession) Rotate(ctx context.Context, refreshToken, name, newAccess, newRefresh string, expiresAt time.Time) (*entity.Session, error) {
	refreshKey := refreshKeyPrefix + refreshToken

	var session *entity.Session

	txn := func(tx *redis.Tx) error {
		found, err := that.getByRefTx(ctx, tx, refreshKey)
		if err != nil {
			return err
		}

		if found.RefreshToken != refreshToken || found.Name != name {
			return ErrSessionNotFound
		}

		oldAccess := found.AccessToken
		found.AccessToken = newAccess
		found.RefreshToken = newRefresh
		found.ExpiresAt = expiresAt

		sessionJSON, err := json.Marshal(found)
		if err != nil {
			return fmt.Errorf("could not marshal session: %w", err)
		}

		ref, err := json.Marshal(tokenRef{GameToken: found.GameToken, Role: found.Role})
		if err != nil {
			return fmt.Errorf("could not marshal token ref: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, sessionsKeyPrefix+found.GameToken, found.Role, sessionJSON)
			pipe.Del(ctx, accessKeyPrefix+oldAccess, refreshKey)
			pipe.Set(ctx, accessKeyPrefix+newAccess, ref, 0)
			pipe.Set(ctx, refreshKeyPrefix+newRefresh, ref, 0)
			return nil
		})
		if err != nil {
			return err
		}

		session = found

		return nil
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := that.client.Watch(ctx, txn, refreshKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return session, nil
	}

	return nil, fmt.Errorf("failed to rotate tokens: %w", redis.TxFailedErr)
}

// DeleteByGameToken - removes both role sessions of a game and their
// credential index keys.
func (that *dbSession) DeleteByGameToken(ctx context.Context, gameToken string) error {
	sessionsKey := sessionsKeyPrefix + gameToken

	stored, err := that.client.HGetAll(ctx, sessionsKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get sessions by game token: %w", err)
	}

	keys := []string{sessionsKey}
	for _, raw := range stored {
		var session entity.Session
		if err = json.Unmarshal([]byte(raw), &session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		keys = append(keys, accessKeyPrefix+session.AccessToken, refreshKeyPrefix+session.RefreshToken)
	}

	if err = that.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	return nil
}

type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func (that *dbSession) getByRef(ctx context.Context, refKey string) (*entity.Session, error) {
	return resolveRef(ctx, that.client, refKey)
}

func (that *dbSession) getByRefTx(ctx context.Context, tx *redis.Tx, refKey string) (*entity.Session, error) {
	return resolveRef(ctx, tx, refKey)
}

func resolveRef(ctx context.Context, client redisCmdable, refKey string) (*entity.Session, error) {
	raw, err := client.Get(ctx, refKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}

	var ref tokenRef
	if err = json.Unmarshal([]byte(raw), &ref); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token ref: %w", err)
	}

	response, err := client.HGet(ctx, sessionsKeyPrefix+ref.GameToken, ref.Role).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session entity.Session
	if err = json.Unmarshal([]byte(response), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (that *dbSession) writeTokenRefs(ctx context.Context, client *redis.Client, session *entity.Session) error {
	ref, err := json.Marshal(tokenRef{GameToken: session.GameToken, Role: session.Role})
	if err != nil {
		return fmt.Errorf("could not marshal token ref: %w", err)
	}

	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, accessKeyPrefix+session.AccessToken, ref, 0)
		pipe.Set(ctx, refreshKeyPrefix+session.RefreshToken, ref, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index session tokens: %w", err)
	}

	return nil
}
