package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing описывает вещь, доступную для аренды на даты.
// Ядро бронирований читает объявления, но никогда их не изменяет.
type Listing struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Title     string    `db:"title" json:"title"`
	Available bool      `db:"available" json:"available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
