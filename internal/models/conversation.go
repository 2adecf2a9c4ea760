package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation описывает чат между арендатором и владельцем объявления.
// На пару (listing_id, buyer_id) существует не более одной беседы,
// сколько бы бронирований между ними ни случилось.
type Conversation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ListingID uuid.UUID `db:"listing_id" json:"listing_id"`
	BuyerID   uuid.UUID `db:"buyer_id" json:"buyer_id"`
	SellerID  uuid.UUID `db:"seller_id" json:"seller_id"`
	Status    string    `db:"status" json:"status"`

	ClosedAt     *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	ClosedReason *string    `db:"closed_reason" json:"closed_reason,omitempty"`

	// Водяные знаки прочтения: сообщение не прочитано участником,
	// если оно новее его собственной отметки и отправлено собеседником.
	BuyerLastReadAt  *time.Time `db:"buyer_last_read_at" json:"buyer_last_read_at,omitempty"`
	SellerLastReadAt *time.Time `db:"seller_last_read_at" json:"seller_last_read_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsParticipant проверяет, участвует ли пользователь в беседе.
func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// Counterpart возвращает собеседника для данного участника.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// Message описывает сообщение в чате.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID `db:"sender_id" json:"sender_id"`
	Text           string    `db:"text" json:"text"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ConversationSummary — беседа со счётчиком непрочитанных для конкретного участника.
type ConversationSummary struct {
	Conversation
	UnreadCount int      `db:"unread_count" json:"unread_count"`
	LastMessage *Message `db:"-" json:"last_message,omitempty"`
}
