package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nawsaafa/talents-acting-sub003/internal/config"
	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	"github.com/nawsaafa/talents-acting-sub003/internal/repository"
	apperrors "github.com/nawsaafa/talents-acting-sub003/pkg/errors"
	"github.com/nawsaafa/talents-acting-sub003/pkg/jwt"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, email, password, displayName string, role domain.Role) (*domain.Actor, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*domain.Actor, error)
	Logout(ctx context.Context, refreshToken string) error
}

type LoginResponse struct {
	Actor        *domain.Actor `json:"actor"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authService struct {
	actorRepo repository.ActorRepository
	jwtCfg    config.JWTConfig
	log       logger.Logger
}

func NewAuthService(actorRepo repository.ActorRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		actorRepo: actorRepo,
		jwtCfg:    jwtCfg,
		log:       log,
	}
}

func (s *authService) Register(ctx context.Context, email, password, displayName string, role domain.Role) (*domain.Actor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	password = strings.TrimSpace(password)

	if email == "" {
		return nil, errors.New("email is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if displayName == "" {
		return nil, errors.New("display name is required")
	}
	if len(displayName) > 100 {
		return nil, errors.New("display name is too long (max 100 characters)")
	}
	if len(email) > 255 {
		return nil, errors.New("email is too long")
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return nil, errors.New("invalid email format")
	}
	// Admin accounts are provisioned out of band, never through registration.
	if !role.IsValid() || role == domain.RoleAdmin {
		return nil, errors.New("role must be talent, professional or company")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, errors.New("failed to hash password")
	}

	// Professionals and companies start unsubscribed; they hit the messaging
	// gate until billing reports an entitled status. Talents carry no
	// subscription at all.
	var status domain.SubscriptionStatus
	if role.Subscribable() {
		status = domain.SubscriptionNone
	}

	actor := &domain.Actor{
		ID:                 uuid.New(),
		Email:              email,
		PasswordHash:       string(passwordHash),
		DisplayName:        displayName,
		Role:               role,
		SubscriptionStatus: status,
		IsActive:           true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	if err := s.actorRepo.Create(ctx, actor); err != nil {
		if errors.Is(err, apperrors.ErrActorAlreadyExists) {
			return nil, errors.New("account with this email already exists")
		}
		s.log.Error("Failed to create actor", "error", err, "email", email)
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	actor.PasswordHash = ""
	return actor, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	if email == "" {
		return nil, errors.New("email is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	actor, err := s.actorRepo.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the account exists.
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !actor.IsActive {
		return nil, errors.New("account is disabled")
	}

	accessToken, err := jwt.GenerateAccessToken(actor.ID, actor.Email, string(actor.Role), s.jwtCfg.AccessSecret, s.jwtCfg.AccessTTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, errors.New("failed to generate access token")
	}

	refreshToken, err := jwt.GenerateRefreshToken(actor.ID, s.jwtCfg.RefreshSecret, s.jwtCfg.RefreshTTL)
	if err != nil {
		s.log.Error("Failed to generate refresh token", "error", err)
		return nil, errors.New("failed to generate refresh token")
	}

	session := &domain.UserSession{
		ID:               uuid.New(),
		ActorID:          actor.ID,
		RefreshTokenHash: hashToken(refreshToken),
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(s.jwtCfg.RefreshTTL),
	}

	if err := s.actorRepo.CreateSession(ctx, session); err != nil {
		s.log.Error("Failed to create session", "error", err)
		return nil, errors.New("failed to create session")
	}

	now := time.Now()
	actor.LastLoginAt = &now
	if err := s.actorRepo.Update(ctx, actor); err != nil {
		s.log.Warn("Failed to update last login", "error", err)
	}

	actor.PasswordHash = ""
	return &LoginResponse{
		Actor:        actor,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.jwtCfg.RefreshSecret)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	actorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	session, err := s.actorRepo.GetSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, errors.New("session not found or expired")
	}

	actor, err := s.actorRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, apperrors.ErrActorNotFound
	}

	if !actor.IsActive {
		return nil, errors.New("account is disabled")
	}

	accessToken, err := jwt.GenerateAccessToken(actor.ID, actor.Email, string(actor.Role), s.jwtCfg.AccessSecret, s.jwtCfg.AccessTTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, errors.New("failed to generate access token")
	}

	newRefreshToken, err := jwt.GenerateRefreshToken(actor.ID, s.jwtCfg.RefreshSecret, s.jwtCfg.RefreshTTL)
	if err != nil {
		s.log.Error("Failed to generate refresh token", "error", err)
		return nil, errors.New("failed to generate refresh token")
	}

	if err := s.actorRepo.RevokeSession(ctx, session.ID, "refreshed"); err != nil {
		s.log.Warn("Failed to revoke old session", "error", err)
	}

	newSession := &domain.UserSession{
		ID:               uuid.New(),
		ActorID:          actor.ID,
		RefreshTokenHash: hashToken(newRefreshToken),
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(s.jwtCfg.RefreshTTL),
	}

	if err := s.actorRepo.CreateSession(ctx, newSession); err != nil {
		s.log.Error("Failed to create new session", "error", err)
		return nil, errors.New("failed to create new session")
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.Actor, error) {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.AccessSecret)
	if err != nil {
		return nil, err
	}

	actor, err := s.actorRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrActorNotFound
	}

	if !actor.IsActive {
		return nil, errors.New("account is disabled")
	}

	return actor, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.actorRepo.GetSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return errors.New("session not found")
	}

	return s.actorRepo.RevokeSession(ctx, session.ID, "logout")
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
