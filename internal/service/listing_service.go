package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/pkg/apperror"
	"github.com/mojaszafa/rental-backend/internal/repository"
)

type ListingRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	List(ctx context.Context, limit, offset int) ([]models.Listing, error)
	Upsert(ctx context.Context, listing *models.Listing) error
}

// ListingService — чтение каталога объявлений. Содержимое каталога
// поддерживает внешний провайдер, сюда оно попадает через SyncListing.
type ListingService struct {
	repo ListingRepo
}

func NewListingService(repo ListingRepo) *ListingService {
	return &ListingService{repo: repo}
}

// GetListing возвращает объявление по ID.
func (s *ListingService) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

// ListListings возвращает доступные объявления.
func (s *ListingService) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	return s.repo.List(ctx, normalizeLimit(limit), offset)
}

// SyncListing обновляет локальную копию объявления данными провайдера.
func (s *ListingService) SyncListing(ctx context.Context, listing *models.Listing) error {
	if listing.OwnerID == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "у объявления должен быть владелец")
	}
	if listing.Title == "" {
		return apperror.New(apperror.ErrCodeValidation, "у объявления должно быть название")
	}
	return s.repo.Upsert(ctx, listing)
}
