package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/repository/common"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview — пара (бронирование, автор) уже оставила отзыв.
	ErrDuplicateReview = errors.New("review already exists")
)

const uniqueViolation = "23505"

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create сохраняет отзыв. Уникальность по (booking_id, reviewer_id,
// reviewee_id) обеспечивает база: конкурирующая вставка получает
// ErrDuplicateReview, а не вторую строку.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO reviews (booking_id, reviewer_id, reviewee_id, role, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, review.BookingID, review.ReviewerID, review.RevieweeID, review.Role, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateReview
		}
		return fmt.Errorf("review repository: create %w", err)
	}
	return nil
}

// GetByID возвращает отзыв по ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return common.GetByID[models.Review](ctx, r.db, "reviews", id, ErrReviewNotFound)
}

// GetByBookingAndReviewer возвращает отзыв автора по бронированию или nil.
func (r *ReviewRepository) GetByBookingAndReviewer(ctx context.Context, bookingID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review,
		`SELECT * FROM reviews WHERE booking_id = $1 AND reviewer_id = $2`, bookingID, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review repository: get by booking and reviewer %w", err)
	}
	return &review, nil
}

// ListByReviewee возвращает отзывы о пользователе, новые первыми.
func (r *ReviewRepository) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE reviewee_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, revieweeID, limit, offset)
	return reviews, err
}

// ListByBooking возвращает отзывы по бронированию (их не больше двух).
func (r *ReviewRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews,
		`SELECT * FROM reviews WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	return reviews, err
}

// GetAverageRating возвращает средний рейтинг и количество отзывов.
func (r *ReviewRepository) GetAverageRating(ctx context.Context, revieweeID uuid.UUID) (float64, int, error) {
	var result struct {
		Average float64 `db:"average"`
		Count   int     `db:"count"`
	}
	err := r.db.GetContext(ctx, &result, `
		SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count
		FROM reviews WHERE reviewee_id = $1
	`, revieweeID)
	if err != nil {
		return 0, 0, fmt.Errorf("review repository: average rating %w", err)
	}
	return result.Average, result.Count, nil
}
