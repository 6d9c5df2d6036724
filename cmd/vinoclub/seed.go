package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"vinoclub/shared/go/models"
)

type demoWine struct {
	name     string
	vineyard string
	vintage  int
	varietal string
	region   string
	notes    string
	price    float64
}

var demoWines = []demoWine{
	{"Estate Cabernet Sauvignon", "Silver Oak", 2019, "Cabernet Sauvignon", "Napa Valley", "Black currant, cedar and a long dusty finish.", 85},
	{"Russian River Pinot Noir", "Williams Selyem", 2021, "Pinot Noir", "Sonoma County", "Bright cherry with forest floor and baking spice.", 65},
	{"Sancerre Les Monts Damnés", "Domaine Vacheron", 2022, "Sauvignon Blanc", "Loire Valley", "Flinty, citrus peel, saline finish.", 48},
	{"Barolo Brunate", "Marcarini", 2018, "Nebbiolo", "Piedmont", "Rose petal, tar and firm tannins.", 72},
	{"Willamette Valley Chardonnay", "Domaine Drouhin", 2020, "Chardonnay", "Oregon", "Pear, hazelnut and lifted acidity.", 38},
}

// seedDemoWines fills an empty catalog with featured house wines.
func seedDemoWines(ctx context.Context, s interface {
	CountWines(ctx context.Context) (int, error)
	CreateWine(ctx context.Context, wine models.Wine) (models.Wine, error)
}) error {
	count, err := s.CountWines(ctx)
	if err != nil {
		return fmt.Errorf("seed wines: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, d := range demoWines {
		wine := models.Wine{
			Name:         d.name,
			Vineyard:     &d.vineyard,
			Vintage:      &d.vintage,
			Varietal:     &d.varietal,
			Region:       &d.region,
			TastingNotes: &d.notes,
			Price:        &d.price,
			IsFeatured:   true,
		}
		if _, err := s.CreateWine(ctx, wine); err != nil {
			return fmt.Errorf("seed wine %q: %w", d.name, err)
		}
	}
	log.Info().Int("wines", len(demoWines)).Msg("seeded demo wine catalog")
	return nil
}
