package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	apperrors "github.com/nawsaafa/talents-acting-sub003/pkg/errors"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

type ActorRepository interface {
	Create(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Actor, error)
	GetByEmail(ctx context.Context, email string) (*domain.Actor, error)
	Update(ctx context.Context, actor *domain.Actor) error
	UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error
	CreateSession(ctx context.Context, session *domain.UserSession) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error)
	RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error
}

type actorRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewActorRepository(db *pgxpool.Pool, log logger.Logger) ActorRepository {
	return &actorRepository{db: db, log: log}
}

const actorColumns = `id, email, password_hash, display_name, role, subscription_status, is_active, last_login_at, created_at, updated_at`

func (r *actorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	query := `
		INSERT INTO actors (id, email, password_hash, display_name, role, subscription_status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		actor.ID, actor.Email, actor.PasswordHash, actor.DisplayName,
		actor.Role, actor.SubscriptionStatus, actor.IsActive,
		actor.CreatedAt, actor.UpdatedAt,
	).Scan(&actor.CreatedAt, &actor.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.log.Warn("Actor already exists", "email", actor.Email, "constraint", pgErr.ConstraintName)
			return apperrors.ErrActorAlreadyExists
		}
		r.log.Error("Failed to create actor", "error", err, "email", actor.Email)
		return err
	}

	return nil
}

func (r *actorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE id = $1`
	return r.scanActor(r.db.QueryRow(ctx, query, id))
}

func (r *actorRepository) GetByEmail(ctx context.Context, email string) (*domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE email = $1`
	return r.scanActor(r.db.QueryRow(ctx, query, email))
}

func (r *actorRepository) scanActor(row pgx.Row) (*domain.Actor, error) {
	actor := &domain.Actor{}
	err := row.Scan(
		&actor.ID, &actor.Email, &actor.PasswordHash, &actor.DisplayName,
		&actor.Role, &actor.SubscriptionStatus, &actor.IsActive,
		&actor.LastLoginAt, &actor.CreatedAt, &actor.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrActorNotFound
		}
		r.log.Error("Failed to get actor", "error", err)
		return nil, err
	}
	return actor, nil
}

func (r *actorRepository) Update(ctx context.Context, actor *domain.Actor) error {
	query := `
		UPDATE actors
		SET display_name = $2, is_active = $3, last_login_at = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		actor.ID, actor.DisplayName, actor.IsActive, actor.LastLoginAt,
	).Scan(&actor.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrActorNotFound
		}
		r.log.Error("Failed to update actor", "error", err, "actor_id", actor.ID)
		return err
	}

	return nil
}

func (r *actorRepository) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error {
	query := `
		UPDATE actors
		SET subscription_status = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update subscription status", "error", err, "actor_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrActorNotFound
	}

	return nil
}

func (r *actorRepository) CreateSession(ctx context.Context, session *domain.UserSession) error {
	query := `
		INSERT INTO sessions (id, actor_id, refresh_token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.ActorID, session.RefreshTokenHash,
		session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		r.log.Error("Failed to create session", "error", err, "actor_id", session.ActorID)
		return err
	}

	return nil
}

func (r *actorRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error) {
	query := `
		SELECT id, actor_id, refresh_token_hash, created_at, expires_at, revoked_at, revoked_reason
		FROM sessions
		WHERE refresh_token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`

	session := &domain.UserSession{}
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID, &session.ActorID, &session.RefreshTokenHash,
		&session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.RevokedReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get session", "error", err)
		return nil, err
	}

	return session, nil
}

func (r *actorRepository) RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	query := `
		UPDATE sessions
		SET revoked_at = NOW(), revoked_reason = $2
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, sessionID, reason)
	if err != nil {
		r.log.Error("Failed to revoke session", "error", err, "session_id", sessionID)
		return err
	}

	return nil
}
