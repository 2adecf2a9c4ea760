package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mojaszafa/rental-backend/internal/http/handlers/common"
	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/service"
)

type ListingHandler struct {
	listings *service.ListingService
}

func NewListingHandler(listings *service.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// GetListing GET /listings/:id
func (h *ListingHandler) GetListing(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный listing_id")
		return
	}

	listing, err := h.listings.GetListing(c.Request.Context(), listingID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// ListListings GET /listings
func (h *ListingHandler) ListListings(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	listings, err := h.listings.ListListings(c.Request.Context(), limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// SyncListing PUT /listings/sync
// Принимает снимок объявления от провайдера каталога.
func (h *ListingHandler) SyncListing(c *gin.Context) {
	var req struct {
		ID        string `json:"id"`
		OwnerID   string `json:"owner_id" binding:"required,uuid"`
		Title     string `json:"title" binding:"required"`
		Available bool   `json:"available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "нужны owner_id и title")
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		common.RespondBadRequest(c, "неверный owner_id")
		return
	}

	listing := &models.Listing{
		OwnerID:   ownerID,
		Title:     req.Title,
		Available: req.Available,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			common.RespondBadRequest(c, "неверный id")
			return
		}
		listing.ID = id
	}

	if err := h.listings.SyncListing(c.Request.Context(), listing); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}
