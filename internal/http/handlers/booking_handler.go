package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mojaszafa/rental-backend/internal/http/handlers/common"
	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/service"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// CreateBooking POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		ListingID string `json:"listing_id" binding:"required,uuid"`
		StartDate string `json:"start_date" binding:"required"`
		EndDate   string `json:"end_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "нужны listing_id, start_date и end_date")
		return
	}

	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		common.RespondBadRequest(c, "неверный listing_id")
		return
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		common.RespondBadRequest(c, "start_date должна быть в формате YYYY-MM-DD")
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		common.RespondBadRequest(c, "end_date должна быть в формате YYYY-MM-DD")
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), listingID, userID, startDate, endDate)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный booking_id")
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListMyBookings GET /bookings/my
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	bookings, err := h.bookings.ListMyBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// ListOwnerBookings GET /bookings/owner
func (h *BookingHandler) ListOwnerBookings(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	bookings, err := h.bookings.ListOwnerBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// ApproveBooking POST /bookings/:id/approve
func (h *BookingHandler) ApproveBooking(c *gin.Context) {
	h.decide(c, h.bookings.ApproveBooking)
}

// RejectBooking POST /bookings/:id/reject
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	h.decide(c, h.bookings.RejectBooking)
}

// MarkPaid POST /bookings/:id/paid
// Вызывается платёжным коллаборатором после успешного списания.
// Повторная доставка вебхука безопасна.
func (h *BookingHandler) MarkPaid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный booking_id")
		return
	}

	var req struct {
		PaymentRef  string `json:"payment_ref" binding:"required"`
		AmountCents int64  `json:"amount_cents" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "нужны payment_ref и amount_cents")
		return
	}

	booking, err := h.bookings.MarkPaid(c.Request.Context(), bookingID, userID, req.PaymentRef, req.AmountCents)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// UpdateShipping PATCH /bookings/:id/shipping
func (h *BookingHandler) UpdateShipping(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный booking_id")
		return
	}

	var req models.ShippingUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "нужен shipping_status")
		return
	}

	booking, err := h.bookings.UpdateShipping(c.Request.Context(), bookingID, userID, req)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// UpdateReturn PATCH /bookings/:id/return
func (h *BookingHandler) UpdateReturn(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный booking_id")
		return
	}

	var req models.ReturnUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "нужен return_status")
		return
	}

	booking, err := h.bookings.UpdateReturn(c.Request.Context(), bookingID, userID, req)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListingCalendar GET /listings/:id/calendar
func (h *BookingHandler) ListingCalendar(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный listing_id")
		return
	}

	bookings, err := h.bookings.ListingCalendar(c.Request.Context(), listingID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	type busyInterval struct {
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
	}
	intervals := make([]busyInterval, 0, len(bookings))
	for _, b := range bookings {
		intervals = append(intervals, busyInterval{StartDate: b.StartDate, EndDate: b.EndDate})
	}

	c.JSON(http.StatusOK, gin.H{"busy": intervals})
}

// decide — общий каркас для approve/reject: владелец решает судьбу
// бронирования ровно один раз.
func (h *BookingHandler) decide(c *gin.Context, decision func(ctx context.Context, bookingID, ownerID uuid.UUID) (*models.Booking, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный booking_id")
		return
	}

	booking, err := decision(c.Request.Context(), bookingID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}