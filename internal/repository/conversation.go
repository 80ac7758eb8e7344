package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	apperrors "github.com/nawsaafa/talents-acting-sub003/pkg/errors"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

type ConversationRepository interface {
	// CreateWithFirstMessage inserts the conversation and its first message in
	// one transaction. If another writer already created a conversation for the
	// same pair, the message is appended to the existing row instead.
	CreateWithFirstMessage(ctx context.Context, initiatorID, targetID uuid.UUID, content string) (*domain.Conversation, *domain.Message, error)
	AddMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*domain.Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	FindByParticipants(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error)
	ListForActor(ctx context.Context, actorID uuid.UUID) ([]*domain.ConversationSummary, error)
	GetMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) error
	IsParticipant(ctx context.Context, conversationID, actorID uuid.UUID) (bool, error)
	ParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([2]uuid.UUID, error)
}

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

func (r *conversationRepository) CreateWithFirstMessage(ctx context.Context, initiatorID, targetID uuid.UUID, content string) (*domain.Conversation, *domain.Message, error) {
	a, b := domain.NormalizePair(initiatorID, targetID)
	now := time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	// The unique constraint on (participant_a, participant_b) makes concurrent
	// first-contact attempts converge on a single row. The no-op DO UPDATE lets
	// RETURNING yield the surviving row either way.
	convQuery := `
		INSERT INTO conversations (id, participant_a, participant_b, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (participant_a, participant_b)
		DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id, participant_a, participant_b, created_at, updated_at
	`

	conv := &domain.Conversation{}
	err = tx.QueryRow(ctx, convQuery, uuid.New(), a, b, now).Scan(
		&conv.ID, &conv.ParticipantA, &conv.ParticipantB, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to upsert conversation", "error", err)
		return nil, nil, err
	}

	msg, err := insertMessage(ctx, tx, conv.ID, initiatorID, content, now)
	if err != nil {
		r.log.Error("Failed to insert first message", "error", err, "conversation_id", conv.ID)
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit first contact", "error", err)
		return nil, nil, err
	}

	return conv, msg, nil
}

func (r *conversationRepository) AddMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*domain.Message, error) {
	now := time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return nil, err
	}
	defer tx.Rollback(ctx)

	msg, err := insertMessage(ctx, tx, conversationID, senderID, content, now)
	if err != nil {
		r.log.Error("Failed to insert message", "error", err, "conversation_id", conversationID)
		return nil, err
	}

	// updated_at advances on every message so list ordering stays current.
	_, err = tx.Exec(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, conversationID, now)
	if err != nil {
		r.log.Error("Failed to bump conversation", "error", err, "conversation_id", conversationID)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit message", "error", err)
		return nil, err
	}

	return msg, nil
}

func insertMessage(ctx context.Context, tx pgx.Tx, conversationID, senderID uuid.UUID, content string, now time.Time) (*domain.Message, error) {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, conversation_id, sender_id, content, created_at
	`

	msg := &domain.Message{}
	err := tx.QueryRow(ctx, query, uuid.New(), conversationID, senderID, content, now).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, participant_a, participant_b, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	conv := &domain.Conversation{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conv.ID, &conv.ParticipantA, &conv.ParticipantB, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to get conversation", "error", err, "conversation_id", id)
		return nil, err
	}

	return conv, nil
}

func (r *conversationRepository) FindByParticipants(ctx context.Context, x, y uuid.UUID) (*domain.Conversation, error) {
	a, b := domain.NormalizePair(x, y)
	query := `
		SELECT id, participant_a, participant_b, created_at, updated_at
		FROM conversations
		WHERE participant_a = $1 AND participant_b = $2
	`

	conv := &domain.Conversation{}
	err := r.db.QueryRow(ctx, query, a, b).Scan(
		&conv.ID, &conv.ParticipantA, &conv.ParticipantB, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to find conversation by pair", "error", err)
		return nil, err
	}

	return conv, nil
}

func (r *conversationRepository) ListForActor(ctx context.Context, actorID uuid.UUID) ([]*domain.ConversationSummary, error) {
	query := `
		SELECT c.id, c.participant_a, c.participant_b, c.created_at, c.updated_at,
			m.id, m.sender_id, m.content, m.created_at, m.read_at,
			(SELECT COUNT(*) FROM messages u
				WHERE u.conversation_id = c.id AND u.sender_id <> $1 AND u.read_at IS NULL)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, created_at, read_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON true
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY c.updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err, "actor_id", actorID)
		return nil, err
	}
	defer rows.Close()

	var summaries []*domain.ConversationSummary
	for rows.Next() {
		s := &domain.ConversationSummary{}
		var lastID, lastSender *uuid.UUID
		var lastContent *string
		var lastCreated, lastRead *time.Time

		err := rows.Scan(
			&s.Conversation.ID, &s.Conversation.ParticipantA, &s.Conversation.ParticipantB,
			&s.Conversation.CreatedAt, &s.Conversation.UpdatedAt,
			&lastID, &lastSender, &lastContent, &lastCreated, &lastRead,
			&s.UnreadCount,
		)
		if err != nil {
			r.log.Error("Failed to scan conversation summary", "error", err)
			return nil, err
		}

		if lastID != nil {
			s.LastMessage = &domain.Message{
				ID:             *lastID,
				ConversationID: s.Conversation.ID,
				SenderID:       *lastSender,
				Content:        *lastContent,
				CreatedAt:      *lastCreated,
				ReadAt:         lastRead,
			}
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *conversationRepository) GetMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, created_at, read_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg := &domain.Message{}
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.CreatedAt, &msg.ReadAt)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (r *conversationRepository) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) error {
	// Only the counterpart's messages become read; a sender never marks their own.
	query := `
		UPDATE messages
		SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL
	`

	_, err := r.db.Exec(ctx, query, conversationID, readerID)
	if err != nil {
		r.log.Error("Failed to mark messages read", "error", err, "conversation_id", conversationID)
		return err
	}

	return nil
}

func (r *conversationRepository) IsParticipant(ctx context.Context, conversationID, actorID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM conversations
			WHERE id = $1 AND (participant_a = $2 OR participant_b = $2)
		)
	`

	var ok bool
	if err := r.db.QueryRow(ctx, query, conversationID, actorID).Scan(&ok); err != nil {
		r.log.Error("Failed to check participation", "error", err, "conversation_id", conversationID)
		return false, err
	}

	return ok, nil
}

func (r *conversationRepository) ParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([2]uuid.UUID, error) {
	query := `SELECT participant_a, participant_b FROM conversations WHERE id = $1`

	var pair [2]uuid.UUID
	err := r.db.QueryRow(ctx, query, conversationID).Scan(&pair[0], &pair[1])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pair, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to get participants", "error", err, "conversation_id", conversationID)
		return pair, err
	}

	return pair, nil
}
