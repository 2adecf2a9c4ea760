package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mojaszafa/rental-backend/internal/dto"
	"github.com/mojaszafa/rental-backend/internal/http/handlers/common"
	"github.com/mojaszafa/rental-backend/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// CreateReview POST /bookings/:id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
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
		Rating  int     `json:"rating" binding:"required,min=1,max=5"`
		Comment *string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "рейтинг должен быть от 1 до 5")
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), bookingID, userID, req.Rating, req.Comment)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// ListBookingReviews GET /bookings/:id/reviews
func (h *ReviewHandler) ListBookingReviews(c *gin.Context) {
	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный booking_id")
		return
	}

	reviews, err := h.reviews.ListBookingReviews(c.Request.Context(), bookingID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// ListUserReviews GET /users/:id/reviews
func (h *ReviewHandler) ListUserReviews(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный user_id")
		return
	}

	limit, offset := common.GetPagination(c)
	reviews, err := h.reviews.ListUserReviews(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	avg, count, _ := h.reviews.GetUserRating(c.Request.Context(), userID)

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"rating": dto.UserRatingResponse{
			AverageRating: avg,
			TotalReviews:  count,
		},
	})
}

// CanLeaveReview GET /bookings/:id/can-review
func (h *ReviewHandler) CanLeaveReview(c *gin.Context) {
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

	canReview, err := h.reviews.CanLeaveReview(c.Request.Context(), bookingID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"can_review": canReview})
}
