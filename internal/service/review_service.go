package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/pkg/apperror"
	"github.com/mojaszafa/rental-backend/internal/repository"
)

type ReviewRepo interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByBookingAndReviewer(ctx context.Context, bookingID, reviewerID uuid.UUID) (*models.Review, error)
	ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Review, error)
	GetAverageRating(ctx context.Context, revieweeID uuid.UUID) (float64, int, error)
}

type BookingRepoForReview interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}

type ListingRepoForReview interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type ReviewService struct {
	repo     ReviewRepo
	bookings BookingRepoForReview
	listings ListingRepoForReview
	now      func() time.Time
}

func NewReviewService(repo ReviewRepo, bookings BookingRepoForReview, listings ListingRepoForReview) *ReviewService {
	return &ReviewService{repo: repo, bookings: bookings, listings: listings, now: time.Now}
}

// CreateReview создаёт отзыв по завершённой аренде. Получатель отзыва
// выводится на сервере: арендатор оценивает владельца и наоборот, роль
// в отзыве принадлежит оцениваемому. На пару (бронирование, автор)
// допускается один отзыв.
func (s *ReviewService) CreateReview(ctx context.Context, bookingID, reviewerID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "рейтинг должен быть от 1 до 5")
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, err
	}

	if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusPaid {
		return nil, apperror.New(apperror.ErrCodeValidation, "отзыв можно оставить только по состоявшейся аренде")
	}
	if !booking.EndDate.Before(s.now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "отзыв можно оставить только после окончания аренды")
	}

	listing, err := s.listings.GetByID(ctx, booking.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}

	var revieweeID uuid.UUID
	var role string
	switch reviewerID {
	case booking.RenterID:
		revieweeID = listing.OwnerID
		role = models.ReviewRoleOwner
	case listing.OwnerID:
		revieweeID = booking.RenterID
		role = models.ReviewRoleRenter
	default:
		return nil, apperror.ErrForbidden
	}

	existing, err := s.repo.GetByBookingAndReviewer(ctx, bookingID, reviewerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyReviewed
	}

	review := &models.Review{
		BookingID:  bookingID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Role:       role,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, apperror.ErrAlreadyReviewed
		}
		return nil, err
	}

	return review, nil
}

// GetReview возвращает отзыв по ID.
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

// ListUserReviews возвращает отзывы о пользователе.
func (s *ReviewService) ListUserReviews(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error) {
	return s.repo.ListByReviewee(ctx, revieweeID, normalizeLimit(limit), offset)
}

// ListBookingReviews возвращает отзывы по бронированию.
func (s *ReviewService) ListBookingReviews(ctx context.Context, bookingID uuid.UUID) ([]models.Review, error) {
	return s.repo.ListByBooking(ctx, bookingID)
}

// GetUserRating возвращает средний рейтинг и количество отзывов.
func (s *ReviewService) GetUserRating(ctx context.Context, revieweeID uuid.UUID) (float64, int, error) {
	return s.repo.GetAverageRating(ctx, revieweeID)
}

// CanLeaveReview проверяет, доступен ли пользователю отзыв по бронированию.
// Отсутствие бронирования означает «нельзя», инфраструктурные ошибки
// пробрасываются наверх.
func (s *ReviewService) CanLeaveReview(ctx context.Context, bookingID, userID uuid.UUID) (bool, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return false, nil
		}
		return false, err
	}
	if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusPaid {
		return false, nil
	}
	if !booking.EndDate.Before(s.now()) {
		return false, nil
	}
	listing, err := s.listings.GetByID(ctx, booking.ListingID)
	if err != nil {
		return false, err
	}
	if userID != booking.RenterID && userID != listing.OwnerID {
		return false, nil
	}
	existing, err := s.repo.GetByBookingAndReviewer(ctx, bookingID, userID)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}
