package service

import (
	"context"
	"fmt"
	"strings"

	"marketplace_go/internal/domain"
)

// ListingService manages service listings.
type ListingService struct {
	services domain.ServiceRepository
}

func NewListingService(services domain.ServiceRepository) *ListingService {
	return &ListingService{services: services}
}

type ListingCreateInput struct {
	Title       string
	Description string
	Category    string
	Price       float64
}

func (s *ListingService) Create(ctx context.Context, ownerID int64, in ListingCreateInput) (*domain.Service, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", domain.ErrInvalidInput)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("price must not be negative: %w", domain.ErrInvalidInput)
	}

	svc := &domain.Service{
		UserID:      ownerID,
		Title:       title,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *ListingService) Get(ctx context.Context, id int64) (*domain.Service, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, domain.ErrNotFound
	}
	return svc, nil
}

func (s *ListingService) List(ctx context.Context) ([]*domain.Service, error) {
	return s.services.List(ctx)
}

func (s *ListingService) ListMine(ctx context.Context, ownerID int64) ([]*domain.Service, error) {
	return s.services.ListByOwner(ctx, ownerID)
}
