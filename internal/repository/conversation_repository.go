package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/repository/common"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ConversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// OpenOrGet создаёт беседу со статусом OPEN или возвращает существующую
// без изменений. Закрытая беседа НИКОГДА не переоткрывается: уникальный
// индекс (listing_id, buyer_id) плюс DO NOTHING гарантируют это даже при
// конкурирующих запросах.
func (r *ConversationRepository) OpenOrGet(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `
		INSERT INTO conversations (listing_id, buyer_id, seller_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, buyer_id) DO NOTHING
		RETURNING *
	`, listingID, buyerID, sellerID)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation repository: open %w", err)
	}

	// Вставка не прошла — беседа уже существует.
	err = r.db.GetContext(ctx, &conv,
		`SELECT * FROM conversations WHERE listing_id = $1 AND buyer_id = $2`, listingID, buyerID)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: get existing %w", err)
	}
	return &conv, nil
}

// GetByID возвращает беседу по ID.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	return common.GetByID[models.Conversation](ctx, r.db, "conversations", id, ErrConversationNotFound)
}

// GetByListingAndBuyer возвращает беседу пары (listing, buyer) или nil.
func (r *ConversationRepository) GetByListingAndBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT * FROM conversations WHERE listing_id = $1 AND buyer_id = $2`, listingID, buyerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation repository: get by listing and buyer %w", err)
	}
	return &conv, nil
}

// CloseIfOpen закрывает беседу, если она открыта. closed_at выставляется
// только при реальном переходе OPEN → CLOSED и больше не перезаписывается.
func (r *ConversationRepository) CloseIfOpen(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET status = $2, closed_at = NOW(), closed_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, models.ConversationStatusClosed, reason, models.ConversationStatusOpen)
	if err != nil {
		return false, fmt.Errorf("conversation repository: close %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CreateMessage сохраняет сообщение и в той же транзакции сдвигает
// водяной знак прочтения отправителя: собственные сообщения не должны
// считаться непрочитанными.
func (r *ConversationRepository) CreateMessage(ctx context.Context, conv *models.Conversation, msg *models.Message) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO messages (conversation_id, sender_id, text)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, msg.ConversationID, msg.SenderID, msg.Text).Scan(&msg.ID, &msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("conversation repository: insert message %w", err)
		}

		watermark := "seller_last_read_at"
		if msg.SenderID == conv.BuyerID {
			watermark = "buyer_last_read_at"
		}
		query := fmt.Sprintf(
			`UPDATE conversations SET %s = $2, updated_at = NOW() WHERE id = $1`, watermark)
		if _, err := tx.ExecContext(ctx, query, msg.ConversationID, msg.CreatedAt); err != nil {
			return fmt.Errorf("conversation repository: bump watermark %w", err)
		}
		return nil
	})
}

// ListMessages возвращает сообщения беседы в хронологическом порядке.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages WHERE conversation_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	return messages, err
}

// ListSummariesByUser возвращает беседы пользователя со счётчиком
// непрочитанных: сообщения собеседника новее моего водяного знака.
func (r *ConversationRepository) ListSummariesByUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	var summaries []models.ConversationSummary
	err := r.db.SelectContext(ctx, &summaries, `
		SELECT c.*,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id
		          AND m.sender_id <> $1
		          AND m.created_at > COALESCE(
		              CASE WHEN c.buyer_id = $1 THEN c.buyer_last_read_at ELSE c.seller_last_read_at END,
		              'epoch'::timestamptz)
		       ) AS unread_count
		FROM conversations c
		WHERE c.buyer_id = $1 OR c.seller_id = $1
		ORDER BY c.updated_at DESC
	`, userID)
	return summaries, err
}

// MarkRead сдвигает водяной знак прочтения участника на текущий момент.
func (r *ConversationRepository) MarkRead(ctx context.Context, conv *models.Conversation, userID uuid.UUID) error {
	watermark := "seller_last_read_at"
	if userID == conv.BuyerID {
		watermark = "buyer_last_read_at"
	}
	query := fmt.Sprintf(`UPDATE conversations SET %s = NOW() WHERE id = $1`, watermark)
	_, err := r.db.ExecContext(ctx, query, conv.ID)
	if err != nil {
		return fmt.Errorf("conversation repository: mark read %w", err)
	}
	return nil
}

// UnreadTotal возвращает суммарное количество непрочитанных сообщений
// пользователя по всем его беседам (для бейджа в шапке).
func (r *ConversationRepository) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(cnt), 0) FROM (
			SELECT (SELECT COUNT(*) FROM messages m
			        WHERE m.conversation_id = c.id
			          AND m.sender_id <> $1
			          AND m.created_at > COALESCE(
			              CASE WHEN c.buyer_id = $1 THEN c.buyer_last_read_at ELSE c.seller_last_read_at END,
			              'epoch'::timestamptz)
			       ) AS cnt
			FROM conversations c
			WHERE c.buyer_id = $1 OR c.seller_id = $1
		) t
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("conversation repository: unread total %w", err)
	}
	return total, nil
}
