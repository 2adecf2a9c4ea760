package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/repository/common"
)

var ErrListingNotFound = errors.New("listing not found")

// ListingRepository — read-model объявлений. Ядро бронирований читает
// объявления, запись выполняет только синхронизация с провайдером каталога.
type ListingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// GetByID возвращает объявление по ID.
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return common.GetByID[models.Listing](ctx, r.db, "listings", id, ErrListingNotFound)
}

// List возвращает доступные объявления.
func (r *ListingRepository) List(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings WHERE available = TRUE ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return listings, err
}

// Upsert обновляет локальную копию объявления данными провайдера каталога.
func (r *ListingRepository) Upsert(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listings (id, owner_id, title, available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    title = EXCLUDED.title,
		    available = EXCLUDED.available,
		    updated_at = NOW()
		RETURNING created_at, updated_at
	`
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	return r.db.QueryRowxContext(ctx, query,
		listing.ID, listing.OwnerID, listing.Title, listing.Available,
	).Scan(&listing.CreatedAt, &listing.UpdatedAt)
}
