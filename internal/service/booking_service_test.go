package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/pkg/apperror"
	"github.com/mojaszafa/rental-backend/internal/repository"
)

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) CreateWithNoOverlap(ctx context.Context, booking *models.Booking) error {
	args := m.Called(ctx, booking)
	if args.Error(0) == nil {
		booking.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookingRepo) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string, amountCents int64) (*models.Booking, bool, error) {
	args := m.Called(ctx, id, paymentRef, amountCents)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Booking), args.Bool(1), args.Error(2)
}

func (m *mockBookingRepo) UpdateShipping(ctx context.Context, id uuid.UUID, upd models.ShippingUpdate) (*models.Booking, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) UpdateReturn(ctx context.Context, id uuid.UUID, upd models.ReturnUpdate) (*models.Booking, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ClaimNotifyFlag(ctx context.Context, id uuid.UUID, flag models.NotifyFlag) (bool, error) {
	args := m.Called(ctx, id, flag)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookingRepo) ListByRenter(ctx context.Context, renterID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	args := m.Called(ctx, renterID, limit, offset)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListActiveByListing(ctx context.Context, listingID uuid.UUID) ([]models.Booking, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]models.Booking), args.Error(1)
}

type mockListingRepo struct {
	mock.Mock
}

func (m *mockListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

type mockConversationRepoForBooking struct {
	mock.Mock
}

func (m *mockConversationRepoForBooking) GetByListingAndBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, listingID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *mockConversationRepoForBooking) CloseIfOpen(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	args := m.Called(ctx, id, reason)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, event string, recipient uuid.UUID, payload any) {
	m.Called(ctx, event, recipient, payload)
}

func newBookingFixture() (*mockBookingRepo, *mockListingRepo, *mockConversationRepoForBooking, *BookingService) {
	bookingRepo := new(mockBookingRepo)
	listingRepo := new(mockListingRepo)
	convRepo := new(mockConversationRepoForBooking)
	svc := NewBookingService(bookingRepo, listingRepo, convRepo, nil, uuid.Nil)
	return bookingRepo, listingRepo, convRepo, svc
}

func futureDates() (time.Time, time.Time) {
	start := time.Now().AddDate(0, 0, 7)
	return start, start.AddDate(0, 0, 3)
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	renterID := uuid.New()
	start, end := futureDates()

	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID, Available: true}, nil)
	bookingRepo.On("CreateWithNoOverlap", ctx, mock.AnythingOfType("*models.Booking")).Return(nil)

	booking, err := svc.CreateBooking(ctx, listingID, renterID, start, end)

	assert.NoError(t, err)
	assert.NotNil(t, booking)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.True(t, booking.StartDate.Before(booking.EndDate))
}

func TestBookingService_CreateBooking_InvalidDates(t *testing.T) {
	_, _, _, svc := newBookingFixture()
	ctx := context.Background()

	start, end := futureDates()

	// Начало после конца.
	_, err := svc.CreateBooking(ctx, uuid.New(), uuid.New(), end, start)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "раньше даты окончания")

	// Начало равно концу.
	_, err = svc.CreateBooking(ctx, uuid.New(), uuid.New(), start, start)
	assert.Error(t, err)

	// Начало в прошлом.
	past := time.Now().AddDate(0, 0, -2)
	_, err = svc.CreateBooking(ctx, uuid.New(), uuid.New(), past, end)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "в прошлом")
}

func TestBookingService_CreateBooking_SelfBooking(t *testing.T) {
	_, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	start, end := futureDates()

	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID, Available: true}, nil)

	_, err := svc.CreateBooking(ctx, listingID, ownerID, start, end)
	assert.ErrorIs(t, err, apperror.ErrSelfBooking)
}

func TestBookingService_CreateBooking_ListingUnavailable(t *testing.T) {
	_, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	start, end := futureDates()

	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: uuid.New(), Available: false}, nil)

	_, err := svc.CreateBooking(ctx, listingID, uuid.New(), start, end)
	assert.ErrorIs(t, err, apperror.ErrListingUnavailable)
}

func TestBookingService_CreateBooking_Overlap(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	start, end := futureDates()

	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: uuid.New(), Available: true}, nil)
	bookingRepo.On("CreateWithNoOverlap", ctx, mock.AnythingOfType("*models.Booking")).Return(repository.ErrBookingOverlap)

	_, err := svc.CreateBooking(ctx, listingID, uuid.New(), start, end)
	assert.ErrorIs(t, err, apperror.ErrBookingConflict)
}

func TestBookingService_CreateBooking_NotifiesOncePerRecipient(t *testing.T) {
	bookingRepo := new(mockBookingRepo)
	listingRepo := new(mockListingRepo)
	convRepo := new(mockConversationRepoForBooking)
	notifier := new(mockNotifier)
	svc := NewBookingService(bookingRepo, listingRepo, convRepo, notifier, uuid.Nil)
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	renterID := uuid.New()
	start, end := futureDates()

	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID, Available: true}, nil)
	bookingRepo.On("CreateWithNoOverlap", ctx, mock.AnythingOfType("*models.Booking")).Return(nil)

	// Флаг владельца свободен, флаг арендатора уже захвачен.
	bookingRepo.On("ClaimNotifyFlag", ctx, mock.Anything, models.FlagRequestedOwner).Return(true, nil)
	bookingRepo.On("ClaimNotifyFlag", ctx, mock.Anything, models.FlagRequestedRenter).Return(false, nil)
	notifier.On("Notify", ctx, models.EventBookingRequested, ownerID, mock.Anything).Once()

	_, err := svc.CreateBooking(ctx, listingID, renterID, start, end)

	assert.NoError(t, err)
	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestBookingService_ApproveBooking_Success(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	bookingID := uuid.New()

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, RenterID: uuid.New(), Status: models.BookingStatusPending}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID}, nil)
	bookingRepo.On("UpdateStatusIf", ctx, bookingID, models.BookingStatusPending, models.BookingStatusConfirmed).Return(true, nil)

	booking, err := svc.ApproveBooking(ctx, bookingID, ownerID)

	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
}

func TestBookingService_ApproveBooking_AlreadyProcessed(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	bookingID := uuid.New()

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, Status: models.BookingStatusCancelled}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID}, nil)
	bookingRepo.On("UpdateStatusIf", ctx, bookingID, models.BookingStatusPending, models.BookingStatusConfirmed).Return(false, nil)

	_, err := svc.ApproveBooking(ctx, bookingID, ownerID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyProcessed)
}

func TestBookingService_ApproveBooking_NotOwner(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	bookingID := uuid.New()

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, Status: models.BookingStatusPending}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: uuid.New()}, nil)

	_, err := svc.ApproveBooking(ctx, bookingID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestBookingService_RejectBooking_ClosesConversation(t *testing.T) {
	bookingRepo, listingRepo, convRepo, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	renterID := uuid.New()
	bookingID := uuid.New()
	convID := uuid.New()

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, RenterID: renterID, Status: models.BookingStatusPending}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID}, nil)
	bookingRepo.On("UpdateStatusIf", ctx, bookingID, models.BookingStatusPending, models.BookingStatusCancelled).Return(true, nil)
	convRepo.On("GetByListingAndBuyer", ctx, listingID, renterID).Return(&models.Conversation{ID: convID, Status: models.ConversationStatusOpen}, nil)
	convRepo.On("CloseIfOpen", ctx, convID, models.ClosedReasonBookingCancelledByOwner).Return(true, nil)

	booking, err := svc.RejectBooking(ctx, bookingID, ownerID)

	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, booking.Status)
	convRepo.AssertCalled(t, "CloseIfOpen", ctx, convID, models.ClosedReasonBookingCancelledByOwner)
}

func TestBookingService_RejectBooking_NoConversation(t *testing.T) {
	bookingRepo, listingRepo, convRepo, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	renterID := uuid.New()
	bookingID := uuid.New()

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, RenterID: renterID, Status: models.BookingStatusPending}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID}, nil)
	bookingRepo.On("UpdateStatusIf", ctx, bookingID, models.BookingStatusPending, models.BookingStatusCancelled).Return(true, nil)
	convRepo.On("GetByListingAndBuyer", ctx, listingID, renterID).Return(nil, nil)

	_, err := svc.RejectBooking(ctx, bookingID, ownerID)

	assert.NoError(t, err)
	convRepo.AssertNotCalled(t, "CloseIfOpen", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_MarkPaid_StatusMismatch(t *testing.T) {
	bookingRepo, _, _, svc := newBookingFixture()
	ctx := context.Background()

	bookingID := uuid.New()
	bookingRepo.On("MarkPaid", ctx, bookingID, "pay_1", int64(5000)).Return(nil, false, repository.ErrStatusMismatch)

	_, err := svc.MarkPaid(ctx, bookingID, uuid.New(), "pay_1", 5000)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "подтверждённое")
}

func TestBookingService_MarkPaid_WebhookRetryDoesNotRenotify(t *testing.T) {
	bookingRepo := new(mockBookingRepo)
	listingRepo := new(mockListingRepo)
	convRepo := new(mockConversationRepoForBooking)
	notifier := new(mockNotifier)
	svc := NewBookingService(bookingRepo, listingRepo, convRepo, notifier, uuid.Nil)
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	renterID := uuid.New()
	bookingID := uuid.New()

	paid := &models.Booking{ID: bookingID, ListingID: listingID, RenterID: renterID, Status: models.BookingStatusPaid}
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID}, nil)

	// Первая доставка вебхука совершает переход, повторная попадает
	// в уже оплаченное бронирование.
	bookingRepo.On("MarkPaid", ctx, bookingID, "pay_1", int64(5000)).Return(paid, true, nil).Once()
	bookingRepo.On("MarkPaid", ctx, bookingID, "pay_1", int64(5000)).Return(paid, false, nil).Once()

	notifier.On("Notify", ctx, models.EventBookingPaid, ownerID, mock.Anything).Once()
	notifier.On("Notify", ctx, models.EventBookingPaid, renterID, mock.Anything).Once()

	first, err := svc.MarkPaid(ctx, bookingID, uuid.New(), "pay_1", 5000)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaid, first.Status)

	second, err := svc.MarkPaid(ctx, bookingID, uuid.New(), "pay_1", 5000)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaid, second.Status)

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestBookingService_MarkPaid_PaymentCallerOnly(t *testing.T) {
	bookingRepo := new(mockBookingRepo)
	listingRepo := new(mockListingRepo)
	convRepo := new(mockConversationRepoForBooking)
	paymentCaller := uuid.New()
	svc := NewBookingService(bookingRepo, listingRepo, convRepo, nil, paymentCaller)
	ctx := context.Background()

	listingID := uuid.New()
	bookingID := uuid.New()
	paid := &models.Booking{ID: bookingID, ListingID: listingID, Status: models.BookingStatusPaid}

	// Посторонний (в том числе арендатор) не может зафиксировать оплату.
	_, err := svc.MarkPaid(ctx, bookingID, uuid.New(), "pay_1", 5000)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	bookingRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	bookingRepo.On("MarkPaid", ctx, bookingID, "pay_1", int64(5000)).Return(paid, true, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: uuid.New()}, nil)

	booking, err := svc.MarkPaid(ctx, bookingID, paymentCaller, "pay_1", 5000)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaid, booking.Status)
}

func TestBookingService_UpdateShipping_Locked(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	bookingID := uuid.New()
	upd := models.ShippingUpdate{Status: models.ShippingStatusShipped}

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, Status: models.BookingStatusPaid}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID}, nil)
	bookingRepo.On("UpdateShipping", ctx, bookingID, upd).Return(nil, repository.ErrShippingLocked)

	_, err := svc.UpdateShipping(ctx, bookingID, ownerID, upd)
	assert.ErrorIs(t, err, apperror.ErrShippingLocked)
}

func TestBookingService_UpdateShipping_UnknownStatus(t *testing.T) {
	_, _, _, svc := newBookingFixture()
	ctx := context.Background()

	_, err := svc.UpdateShipping(ctx, uuid.New(), uuid.New(), models.ShippingUpdate{Status: "FLYING"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "неизвестный статус")
}

func TestBookingService_UpdateShipping_NotOwner(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	bookingID := uuid.New()

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, Status: models.BookingStatusPaid}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: uuid.New()}, nil)

	_, err := svc.UpdateShipping(ctx, bookingID, uuid.New(), models.ShippingUpdate{Status: models.ShippingStatusShipped})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestBookingService_UpdateReturn_Locked(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	renterID := uuid.New()
	bookingID := uuid.New()
	upd := models.ReturnUpdate{Status: models.ReturnStatusShipped}

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, RenterID: renterID, Status: models.BookingStatusPaid}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: uuid.New()}, nil)
	bookingRepo.On("UpdateReturn", ctx, bookingID, upd).Return(nil, repository.ErrReturnLocked)

	_, err := svc.UpdateReturn(ctx, bookingID, renterID, upd)
	assert.ErrorIs(t, err, apperror.ErrReturnLocked)
}

func TestBookingService_UpdateReturn_NotRenter(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	bookingID := uuid.New()

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, RenterID: uuid.New(), Status: models.BookingStatusPaid}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: uuid.New()}, nil)

	_, err := svc.UpdateReturn(ctx, bookingID, uuid.New(), models.ReturnUpdate{Status: models.ReturnStatusShipped})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestBookingService_GetBooking_Participant(t *testing.T) {
	bookingRepo, listingRepo, _, svc := newBookingFixture()
	ctx := context.Background()

	listingID := uuid.New()
	ownerID := uuid.New()
	renterID := uuid.New()
	bookingID := uuid.New()

	bookingRepo.On("GetByID", ctx, bookingID).Return(&models.Booking{ID: bookingID, ListingID: listingID, RenterID: renterID}, nil)
	listingRepo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID, OwnerID: ownerID}, nil)

	_, err := svc.GetBooking(ctx, bookingID, renterID)
	assert.NoError(t, err)

	_, err = svc.GetBooking(ctx, bookingID, ownerID)
	assert.NoError(t, err)

	_, err = svc.GetBooking(ctx, bookingID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
