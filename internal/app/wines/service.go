// Package wines serves the featured catalog and each club's cellar list.
package wines

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"vinoclub/internal/apperr"
	"vinoclub/internal/hostcode"
	"vinoclub/internal/store"
	"vinoclub/shared/go/models"
)

const (
	DefaultFeaturedLimit = 10
	MaxFeaturedLimit     = 50
)

var (
	ErrClubNotFound   = apperr.NotFound("Club not found")
	ErrNotHost        = apperr.Forbidden("Only hosts can manage wines")
	ErrWineNotFound   = apperr.NotFound("Wine not found")
	ErrNameRequired   = apperr.Validation("Wine name is required")
	ErrInvalidVintage = apperr.Validation("Vintage must be between 1800 and 2100")
	ErrInvalidPrice   = apperr.Validation("Price cannot be negative")
	ErrFeaturedFetch  = apperr.Internal("Failed to fetch featured wines", nil)
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Store defines the persistence hooks for wines.
type Store interface {
	FeaturedWines(ctx context.Context, limit int) ([]models.Wine, error)
	HostByCode(ctx context.Context, code string) (models.Host, error)
	HostByUserID(ctx context.Context, userID string) (models.Host, error)
	WinesByHost(ctx context.Context, hostID string) ([]models.Wine, error)
	CreateWine(ctx context.Context, wine models.Wine) (models.Wine, error)
	SetWineFeatured(ctx context.Context, hostID, wineID string, featured bool) (models.Wine, error)
}

// Input is a new cellar entry.
type Input struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Vineyard     string   `json:"vineyard" validate:"max=200"`
	Vintage      *int     `json:"vintage" validate:"omitempty,min=1800,max=2100"`
	Varietal     string   `json:"varietal" validate:"max=100"`
	Region       string   `json:"region" validate:"max=200"`
	TastingNotes string   `json:"tasting_notes" validate:"max=2000"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	ImageURL     string   `json:"image_url" validate:"omitempty,url"`
	IsFeatured   bool     `json:"is_featured"`
}

// Service exposes wine reads and host cellar management.
type Service interface {
	Featured(ctx context.Context, limit int) ([]models.Wine, error)
	ClubWines(ctx context.Context, code string) ([]models.Wine, error)
	HostWines(ctx context.Context, hostID string) ([]models.Wine, error)
	Create(ctx context.Context, hostID string, in Input) (models.Wine, error)
	Feature(ctx context.Context, hostID, wineID string, featured bool) (models.Wine, error)
}

type service struct {
	store Store
}

// New constructs a wines Service backed by the given Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Featured(ctx context.Context, limit int) ([]models.Wine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	limit = min(limit, MaxFeaturedLimit)

	wines, err := s.store.FeaturedWines(ctx, limit)
	if err != nil {
		return nil, ErrFeaturedFetch.Wrap(err)
	}
	return wines, nil
}

func (s *service) ClubWines(ctx context.Context, code string) ([]models.Wine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	host, err := s.store.HostByCode(ctx, hostcode.Normalize(code))
	if err != nil {
		if errors.Is(err, store.ErrHostNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	return s.store.WinesByHost(ctx, host.UserID)
}

func (s *service) HostWines(ctx context.Context, hostID string) ([]models.Wine, error) {
	if err := s.requireHost(ctx, hostID); err != nil {
		return nil, err
	}
	return s.store.WinesByHost(ctx, hostID)
}

func (s *service) Create(ctx context.Context, hostID string, in Input) (models.Wine, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return models.Wine{}, err
	}
	if err := s.requireHost(ctx, hostID); err != nil {
		return models.Wine{}, err
	}

	return s.store.CreateWine(ctx, models.Wine{
		HostID:       &hostID,
		Name:         in.Name,
		Vineyard:     blankToNil(in.Vineyard),
		Vintage:      in.Vintage,
		Varietal:     blankToNil(in.Varietal),
		Region:       blankToNil(in.Region),
		TastingNotes: blankToNil(in.TastingNotes),
		Price:        in.Price,
		ImageURL:     blankToNil(in.ImageURL),
		IsFeatured:   in.IsFeatured,
	})
}

// Feature sets or clears the featured flag on one of the host's wines.
func (s *service) Feature(ctx context.Context, hostID, wineID string, featured bool) (models.Wine, error) {
	if err := ctx.Err(); err != nil {
		return models.Wine{}, err
	}
	wine, err := s.store.SetWineFeatured(ctx, hostID, wineID, featured)
	if err != nil {
		if errors.Is(err, store.ErrWineNotFound) {
			return models.Wine{}, ErrWineNotFound
		}
		return models.Wine{}, err
	}
	return wine, nil
}

func (s *service) requireHost(ctx context.Context, hostID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.store.HostByUserID(ctx, hostID); err != nil {
		if errors.Is(err, store.ErrHostNotFound) {
			return ErrNotHost
		}
		return err
	}
	return nil
}

func validateInput(in Input) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("Invalid wine").Wrap(err)
	}
	switch verrs[0].Field() {
	case "Name":
		return ErrNameRequired
	case "Vintage":
		return ErrInvalidVintage
	case "Price":
		return ErrInvalidPrice
	default:
		return apperr.Validation("Invalid " + strings.ToLower(verrs[0].Field()))
	}
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
