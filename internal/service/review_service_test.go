package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/pkg/apperror"
	"github.com/mojaszafa/rental-backend/internal/repository"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetByBookingAndReviewer(ctx context.Context, bookingID, reviewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, bookingID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, revieweeID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Review, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetAverageRating(ctx context.Context, revieweeID uuid.UUID) (float64, int, error) {
	args := m.Called(ctx, revieweeID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

type reviewFixture struct {
	reviewRepo  *mockReviewRepo
	bookingRepo *mockBookingRepo
	listingRepo *mockListingRepo
	svc         *ReviewService

	listingID uuid.UUID
	bookingID uuid.UUID
	ownerID   uuid.UUID
	renterID  uuid.UUID
}

// newReviewFixture готовит состоявшуюся аренду: оплачено, срок вышел вчера.
func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		reviewRepo:  new(mockReviewRepo),
		bookingRepo: new(mockBookingRepo),
		listingRepo: new(mockListingRepo),
		listingID:   uuid.New(),
		bookingID:   uuid.New(),
		ownerID:     uuid.New(),
		renterID:    uuid.New(),
	}
	f.svc = NewReviewService(f.reviewRepo, f.bookingRepo, f.listingRepo)

	booking := &models.Booking{
		ID:        f.bookingID,
		ListingID: f.listingID,
		RenterID:  f.renterID,
		Status:    models.BookingStatusPaid,
		EndDate:   time.Now().AddDate(0, 0, -1),
	}
	f.bookingRepo.On("GetByID", mock.Anything, f.bookingID).Return(booking, nil)
	f.listingRepo.On("GetByID", mock.Anything, f.listingID).Return(&models.Listing{ID: f.listingID, OwnerID: f.ownerID}, nil)
	return f
}

func TestReviewService_CreateReview_RenterReviewsOwner(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	f.reviewRepo.On("GetByBookingAndReviewer", ctx, f.bookingID, f.renterID).Return(nil, nil)
	f.reviewRepo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	comment := "Отличное платье, всё как на фото!"
	review, err := f.svc.CreateReview(ctx, f.bookingID, f.renterID, 5, &comment)

	assert.NoError(t, err)
	assert.Equal(t, f.ownerID, review.RevieweeID)
	assert.Equal(t, models.ReviewRoleOwner, review.Role)
	assert.Equal(t, 5, review.Rating)
}

func TestReviewService_CreateReview_OwnerReviewsRenter(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	f.reviewRepo.On("GetByBookingAndReviewer", ctx, f.bookingID, f.ownerID).Return(nil, nil)
	f.reviewRepo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	review, err := f.svc.CreateReview(ctx, f.bookingID, f.ownerID, 4, nil)

	assert.NoError(t, err)
	assert.Equal(t, f.renterID, review.RevieweeID)
	assert.Equal(t, models.ReviewRoleRenter, review.Role)
}

func TestReviewService_CreateReview_InvalidRating(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateReview(ctx, f.bookingID, f.renterID, 0, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "от 1 до 5")

	_, err = f.svc.CreateReview(ctx, f.bookingID, f.renterID, 6, nil)
	assert.Error(t, err)
}

func TestReviewService_CreateReview_BookingNotFinished(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	bookingRepo := new(mockBookingRepo)
	listingRepo := new(mockListingRepo)
	svc := NewReviewService(reviewRepo, bookingRepo, listingRepo)
	ctx := context.Background()

	bookingID := uuid.New()
	booking := &models.Booking{
		ID:      bookingID,
		Status:  models.BookingStatusPaid,
		EndDate: time.Now().AddDate(0, 0, 3),
	}
	bookingRepo.On("GetByID", ctx, bookingID).Return(booking, nil)

	_, err := svc.CreateReview(ctx, bookingID, uuid.New(), 5, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "после окончания")
}

func TestReviewService_CreateReview_BookingNotConfirmed(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	bookingRepo := new(mockBookingRepo)
	listingRepo := new(mockListingRepo)
	svc := NewReviewService(reviewRepo, bookingRepo, listingRepo)
	ctx := context.Background()

	for _, status := range []string{models.BookingStatusPending, models.BookingStatusCancelled} {
		bookingID := uuid.New()
		booking := &models.Booking{
			ID:      bookingID,
			Status:  status,
			EndDate: time.Now().AddDate(0, 0, -1),
		}
		bookingRepo.On("GetByID", ctx, bookingID).Return(booking, nil)

		_, err := svc.CreateReview(ctx, bookingID, uuid.New(), 5, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "состоявшейся аренде")
	}
}

func TestReviewService_CreateReview_NotParticipant(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateReview(ctx, f.bookingID, uuid.New(), 5, nil)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestReviewService_CreateReview_AlreadyReviewed(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	f.reviewRepo.On("GetByBookingAndReviewer", ctx, f.bookingID, f.renterID).Return(&models.Review{ID: uuid.New()}, nil)

	_, err := f.svc.CreateReview(ctx, f.bookingID, f.renterID, 5, nil)
	assert.ErrorIs(t, err, apperror.ErrAlreadyReviewed)
}

func TestReviewService_CreateReview_DuplicateRace(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	// Предварительная проверка ничего не нашла, но вставка упёрлась
	// в уникальный индекс: конкурент успел первым.
	f.reviewRepo.On("GetByBookingAndReviewer", ctx, f.bookingID, f.renterID).Return(nil, nil)
	f.reviewRepo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(repository.ErrDuplicateReview)

	_, err := f.svc.CreateReview(ctx, f.bookingID, f.renterID, 5, nil)
	assert.ErrorIs(t, err, apperror.ErrAlreadyReviewed)
}

func TestReviewService_CanLeaveReview(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	f.reviewRepo.On("GetByBookingAndReviewer", ctx, f.bookingID, f.renterID).Return(nil, nil)

	canReview, err := f.svc.CanLeaveReview(ctx, f.bookingID, f.renterID)
	assert.NoError(t, err)
	assert.True(t, canReview)

	// Посторонний пользователь не может.
	canReview, err = f.svc.CanLeaveReview(ctx, f.bookingID, uuid.New())
	assert.NoError(t, err)
	assert.False(t, canReview)
}

func TestReviewService_CanLeaveReview_PropagatesErrors(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	bookingRepo := new(mockBookingRepo)
	listingRepo := new(mockListingRepo)
	svc := NewReviewService(reviewRepo, bookingRepo, listingRepo)
	ctx := context.Background()

	// Отсутствие бронирования означает «нельзя», без ошибки.
	missingID := uuid.New()
	bookingRepo.On("GetByID", ctx, missingID).Return(nil, repository.ErrBookingNotFound)

	canReview, err := svc.CanLeaveReview(ctx, missingID, uuid.New())
	assert.NoError(t, err)
	assert.False(t, canReview)

	// Инфраструктурная ошибка не маскируется под «нельзя».
	brokenID := uuid.New()
	dbErr := errors.New("connection reset")
	bookingRepo.On("GetByID", ctx, brokenID).Return(nil, dbErr)

	_, err = svc.CanLeaveReview(ctx, brokenID, uuid.New())
	assert.ErrorIs(t, err, dbErr)
}

func TestReviewService_GetUserRating(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	f.reviewRepo.On("GetAverageRating", ctx, f.ownerID).Return(4.7, 12, nil)

	avg, count, err := f.svc.GetUserRating(ctx, f.ownerID)
	assert.NoError(t, err)
	assert.Equal(t, 4.7, avg)
	assert.Equal(t, 12, count)
}
