package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mojaszafa/rental-backend/internal/logger"
	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/notify"
	"github.com/mojaszafa/rental-backend/internal/pkg/apperror"
	"github.com/mojaszafa/rental-backend/internal/repository"
)

type BookingRepo interface {
	CreateWithNoOverlap(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string, amountCents int64) (*models.Booking, bool, error)
	UpdateShipping(ctx context.Context, id uuid.UUID, upd models.ShippingUpdate) (*models.Booking, error)
	UpdateReturn(ctx context.Context, id uuid.UUID, upd models.ReturnUpdate) (*models.Booking, error)
	ClaimNotifyFlag(ctx context.Context, id uuid.UUID, flag models.NotifyFlag) (bool, error)
	ListByRenter(ctx context.Context, renterID uuid.UUID, limit, offset int) ([]models.Booking, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Booking, error)
	ListActiveByListing(ctx context.Context, listingID uuid.UUID) ([]models.Booking, error)
}

type ListingRepoForBooking interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type ConversationRepoForBooking interface {
	GetByListingAndBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*models.Conversation, error)
	CloseIfOpen(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

type BookingService struct {
	repo          BookingRepo
	listings      ListingRepoForBooking
	conversations ConversationRepoForBooking
	notifier      notify.Notifier

	// paymentCaller — учётная запись платёжного сервиса. Если задана,
	// фиксировать оплату может только она.
	paymentCaller uuid.UUID
}

func NewBookingService(repo BookingRepo, listings ListingRepoForBooking, conversations ConversationRepoForBooking, notifier notify.Notifier, paymentCaller uuid.UUID) *BookingService {
	return &BookingService{repo: repo, listings: listings, conversations: conversations, notifier: notifier, paymentCaller: paymentCaller}
}

// CreateBooking создаёт запрос на бронирование со статусом PENDING.
// Даты занимают полуинтервал [start, end): соприкасающиеся бронирования
// не конфликтуют. Повторная доставка запроса не дублирует уведомления.
func (s *BookingService) CreateBooking(ctx context.Context, listingID, renterID uuid.UUID, startDate, endDate time.Time) (*models.Booking, error) {
	startDate = truncateToDay(startDate)
	endDate = truncateToDay(endDate)

	if !startDate.Before(endDate) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата начала должна быть раньше даты окончания")
	}
	if startDate.Before(truncateToDay(time.Now())) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата начала не может быть в прошлом")
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}
	if listing.OwnerID == renterID {
		return nil, apperror.ErrSelfBooking
	}
	if !listing.Available {
		return nil, apperror.ErrListingUnavailable
	}

	booking := &models.Booking{
		ListingID: listingID,
		RenterID:  renterID,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    models.BookingStatusPending,
	}
	if err := s.repo.CreateWithNoOverlap(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrBookingOverlap) {
			return nil, apperror.ErrBookingConflict
		}
		return nil, err
	}

	s.notifyOnce(ctx, booking.ID, models.FlagRequestedOwner, models.EventBookingRequested, listing.OwnerID, booking)
	s.notifyOnce(ctx, booking.ID, models.FlagRequestedRenter, models.EventBookingRequested, renterID, booking)

	return booking, nil
}

// ApproveBooking переводит PENDING → CONFIRMED. Решение принимает только
// владелец объявления, и только один раз: повторный вызов или гонка двух
// решений получает ErrAlreadyProcessed.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID, ownerID uuid.UUID) (*models.Booking, error) {
	booking, listing, err := s.getForOwner(ctx, bookingID, ownerID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatusIf(ctx, bookingID, models.BookingStatusPending, models.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrAlreadyProcessed
	}
	booking.Status = models.BookingStatusConfirmed

	s.notifyOnce(ctx, bookingID, models.FlagDecisionRenter, models.EventBookingApproved, booking.RenterID, booking)
	s.notifyOnce(ctx, bookingID, models.FlagDecisionOwner, models.EventBookingApproved, listing.OwnerID, booking)

	return booking, nil
}

// RejectBooking переводит PENDING → CANCELLED и закрывает беседу пары
// (объявление, арендатор), если она открыта. Закрытая беседа хранит
// причину и больше никогда не переоткрывается.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, ownerID uuid.UUID) (*models.Booking, error) {
	booking, listing, err := s.getForOwner(ctx, bookingID, ownerID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatusIf(ctx, bookingID, models.BookingStatusPending, models.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrAlreadyProcessed
	}
	booking.Status = models.BookingStatusCancelled

	conv, err := s.conversations.GetByListingAndBuyer(ctx, booking.ListingID, booking.RenterID)
	if err != nil {
		logger.Log.WithError(err).Warn("booking: не удалось найти беседу для закрытия")
	} else if conv != nil {
		if _, err := s.conversations.CloseIfOpen(ctx, conv.ID, models.ClosedReasonBookingCancelledByOwner); err != nil {
			logger.Log.WithError(err).Warn("booking: не удалось закрыть беседу")
		}
	}

	s.notifyOnce(ctx, bookingID, models.FlagDecisionRenter, models.EventBookingRejected, booking.RenterID, booking)
	s.notifyOnce(ctx, bookingID, models.FlagDecisionOwner, models.EventBookingRejected, listing.OwnerID, booking)

	return booking, nil
}

// MarkPaid фиксирует оплату подтверждённого бронирования. Повторы вебхука
// платёжного провайдера по уже оплаченному бронированию идемпотентны:
// уведомления уходят только в том вызове, который реально совершил переход.
func (s *BookingService) MarkPaid(ctx context.Context, bookingID, callerID uuid.UUID, paymentRef string, amountCents int64) (*models.Booking, error) {
	if s.paymentCaller != uuid.Nil && callerID != s.paymentCaller {
		return nil, apperror.ErrForbidden
	}

	booking, transitioned, err := s.repo.MarkPaid(ctx, bookingID, paymentRef, amountCents)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return nil, apperror.ErrBookingNotFound
		case errors.Is(err, repository.ErrStatusMismatch):
			return nil, apperror.New(apperror.ErrCodeValidation, "оплатить можно только подтверждённое бронирование")
		}
		return nil, err
	}
	if !transitioned {
		return booking, nil
	}

	listing, err := s.listings.GetByID(ctx, booking.ListingID)
	if err == nil && s.notifier != nil {
		s.notifier.Notify(ctx, models.EventBookingPaid, listing.OwnerID, booking)
		s.notifier.Notify(ctx, models.EventBookingPaid, booking.RenterID, booking)
	}

	return booking, nil
}

// UpdateShipping изменяет машину доставки. Право на запись имеет только
// владелец объявления; после DELIVERED машина заморожена навсегда.
func (s *BookingService) UpdateShipping(ctx context.Context, bookingID, userID uuid.UUID, upd models.ShippingUpdate) (*models.Booking, error) {
	if _, ok := models.ValidShippingStatuses[upd.Status]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус доставки")
	}

	_, listing, err := s.getWithListing(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != userID {
		return nil, apperror.ErrForbidden
	}

	updated, err := s.repo.UpdateShipping(ctx, bookingID, upd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrShippingLocked):
			return nil, apperror.ErrShippingLocked
		case errors.Is(err, repository.ErrStatusMismatch):
			return nil, apperror.New(apperror.ErrCodeValidation, "доставка доступна только для подтверждённого или оплаченного бронирования")
		}
		return nil, err
	}
	return updated, nil
}

// UpdateReturn изменяет машину возврата. Право на запись имеет только
// арендатор; после RETURNED машина заморожена навсегда.
func (s *BookingService) UpdateReturn(ctx context.Context, bookingID, userID uuid.UUID, upd models.ReturnUpdate) (*models.Booking, error) {
	if _, ok := models.ValidReturnStatuses[upd.Status]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус возврата")
	}

	booking, _, err := s.getWithListing(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.RenterID != userID {
		return nil, apperror.ErrForbidden
	}

	updated, err := s.repo.UpdateReturn(ctx, bookingID, upd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReturnLocked):
			return nil, apperror.ErrReturnLocked
		case errors.Is(err, repository.ErrStatusMismatch):
			return nil, apperror.New(apperror.ErrCodeValidation, "возврат доступен только для подтверждённого или оплаченного бронирования")
		}
		return nil, err
	}
	return updated, nil
}

// GetBooking возвращает бронирование участнику сделки.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error) {
	booking, listing, err := s.getWithListing(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.RenterID != userID && listing.OwnerID != userID {
		return nil, apperror.ErrForbidden
	}
	return booking, nil
}

// ListMyBookings возвращает бронирования арендатора.
func (s *BookingService) ListMyBookings(ctx context.Context, renterID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	return s.repo.ListByRenter(ctx, renterID, normalizeLimit(limit), offset)
}

// ListOwnerBookings возвращает бронирования на объявления владельца.
func (s *BookingService) ListOwnerBookings(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	return s.repo.ListByOwner(ctx, ownerID, normalizeLimit(limit), offset)
}

// ListingCalendar возвращает занятые интервалы объявления.
func (s *BookingService) ListingCalendar(ctx context.Context, listingID uuid.UUID) ([]models.Booking, error) {
	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}
	return s.repo.ListActiveByListing(ctx, listingID)
}

// notifyOnce отправляет уведомление, только если флаг (бронирование,
// получатель, событие) ещё не захвачен.
func (s *BookingService) notifyOnce(ctx context.Context, bookingID uuid.UUID, flag models.NotifyFlag, event string, recipient uuid.UUID, payload any) {
	if s.notifier == nil {
		return
	}
	claimed, err := s.repo.ClaimNotifyFlag(ctx, bookingID, flag)
	if err != nil {
		logger.Log.WithError(err).WithField("flag", flag).Warn("booking: не удалось захватить флаг уведомления")
		return
	}
	if !claimed {
		return
	}
	s.notifier.Notify(ctx, event, recipient, payload)
}

func (s *BookingService) getWithListing(ctx context.Context, bookingID uuid.UUID) (*models.Booking, *models.Listing, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, nil, apperror.ErrBookingNotFound
		}
		return nil, nil, err
	}
	listing, err := s.listings.GetByID(ctx, booking.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, nil, apperror.ErrListingNotFound
		}
		return nil, nil, err
	}
	return booking, listing, nil
}

func (s *BookingService) getForOwner(ctx context.Context, bookingID, ownerID uuid.UUID) (*models.Booking, *models.Listing, error) {
	booking, listing, err := s.getWithListing(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if listing.OwnerID != ownerID {
		return nil, nil, apperror.ErrForbidden
	}
	return booking, listing, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
