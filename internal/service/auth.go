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

type AuthService interface {
	CreateSession(ctx context.Context, name, gameToken, role string) (*entity.Session, error)
	CheckAccess(ctx context.Context, accessToken, name string) (*entity.Session, error)
	Refresh(ctx context.Context, refreshToken, name string) (*entity.Session, error)
}

type sessionRepo interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByAccessToken(ctx context.Context, accessToken string) (*entity.Session, error)
	Rotate(ctx context.Context, refreshToken, name, newAccess, newRefresh string, expiresAt time.Time) (*entity.Session, error)
}

type authService struct {
	sessionRepo sessionRepo

	sessionTTL time.Duration
}

func NewAuthService(sessionRepo sessionRepo, sessionTTL time.Duration) AuthService {
	return &authService{
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
	}
}

func (that *authService) CreateSession(ctx context.Context, name, gameToken, role string) (*entity.Session, error) {
	access, refresh, err := pkg.GenerateTokenPair()
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	session := &entity.Session{
		Name:         name,
		Role:         role,
		GameToken:    gameToken,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(that.sessionTTL),
	}

	if err = that.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// CheckAccess - resolves a live access token plus the claimed name
// into its (game, role) binding. Every mismatch collapses into the
// same unauthorized error so a caller cannot probe which part of the
// credential was wrong.
func (that *authService) CheckAccess(ctx context.Context, accessToken, name string) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByAccessToken(ctx, accessToken)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, apperror.ErrUnauthorized
	}

	if err != nil {
		return nil, fmt.Errorf("failed to check access: %w", err)
	}

	if session.Name != name || !session.IsLive(time.Now()) {
		return nil, apperror.ErrUnauthorized
	}

	return session, nil
}

// Refresh - rotates both credentials. The old refresh token is spent
// by the rotation, win or lose: a second refresh with it is denied.
func (that *authService) Refresh(ctx context.Context, refreshToken, name string) (*entity.Session, error) {
	access, refresh, err := pkg.GenerateTokenPair()
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	session, err := that.sessionRepo.Rotate(ctx, refreshToken, name, access, refresh, time.Now().Add(that.sessionTTL))
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, apperror.ErrRefreshDenied
	}

	if err != nil {
		return nil, fmt.Errorf("failed to rotate tokens: %w", err)
	}

	return session, nil
}
