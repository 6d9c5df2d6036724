package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinoclub/shared/go/models"
)

const wineColumns = `w.id, w.host_id, w.name, w.vineyard, w.vintage, w.varietal, w.region, w.tasting_notes,
		       w.price, w.image_url, w.is_featured, w.featured_at, w.created_at`

const featuredWinesSQL = `
		SELECT ` + wineColumns + `
		FROM wines w
		WHERE w.is_featured
		ORDER BY w.featured_at DESC NULLS LAST
		LIMIT $1
	`

// FeaturedWines returns up to limit featured wines, most recently featured first.
func (s *Store) FeaturedWines(ctx context.Context, limit int) ([]models.Wine, error) {
	rows, err := s.db.QueryContext(ctx, featuredWinesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list featured wines: %w", err)
	}
	defer rows.Close()
	return scanWines(rows)
}

const winesByHostSQL = `
		SELECT ` + wineColumns + `
		FROM wines w
		WHERE w.host_id = $1
		ORDER BY w.is_featured DESC, w.created_at DESC
	`

// WinesByHost lists a club's wines, featured first.
func (s *Store) WinesByHost(ctx context.Context, hostID string) ([]models.Wine, error) {
	rows, err := s.db.QueryContext(ctx, winesByHostSQL, hostID)
	if err != nil {
		return nil, fmt.Errorf("list host wines: %w", err)
	}
	defer rows.Close()
	return scanWines(rows)
}

const insertWineSQL = `
		INSERT INTO wines AS w (host_id, name, vineyard, vintage, varietal, region, tasting_notes,
		                        price, image_url, is_featured, featured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CASE WHEN $10 THEN NOW() END)
		RETURNING ` + wineColumns

// CreateWine inserts a catalog entry. HostID may be nil for house wines.
func (s *Store) CreateWine(ctx context.Context, wine models.Wine) (models.Wine, error) {
	out, err := scanWine(s.db.QueryRowContext(ctx, insertWineSQL,
		wine.HostID,
		wine.Name,
		wine.Vineyard,
		wine.Vintage,
		wine.Varietal,
		wine.Region,
		wine.TastingNotes,
		wine.Price,
		wine.ImageURL,
		wine.IsFeatured,
	))
	if err != nil {
		return models.Wine{}, fmt.Errorf("insert wine: %w", err)
	}
	return out, nil
}

const setWineFeaturedSQL = `
		UPDATE wines AS w
		SET is_featured = $3,
		    featured_at = CASE WHEN $3 THEN NOW() ELSE NULL END
		WHERE w.id = $1 AND w.host_id = $2
		RETURNING ` + wineColumns

// SetWineFeatured toggles the featured flag on a wine owned by hostID.
func (s *Store) SetWineFeatured(ctx context.Context, hostID, wineID string, featured bool) (models.Wine, error) {
	wine, err := scanWine(s.db.QueryRowContext(ctx, setWineFeaturedSQL, wineID, hostID, featured))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wine{}, ErrWineNotFound
		}
		return models.Wine{}, fmt.Errorf("feature wine: %w", err)
	}
	return wine, nil
}

// CountWines returns the size of the catalog.
func (s *Store) CountWines(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wines`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count wines: %w", err)
	}
	return count, nil
}

func scanWines(rows *sql.Rows) ([]models.Wine, error) {
	wines := make([]models.Wine, 0)
	for rows.Next() {
		w, err := scanWine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wine: %w", err)
		}
		wines = append(wines, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wines: %w", err)
	}
	return wines, nil
}

func scanWine(row rowScanner) (models.Wine, error) {
	var w models.Wine
	err := row.Scan(
		&w.ID,
		&w.HostID,
		&w.Name,
		&w.Vineyard,
		&w.Vintage,
		&w.Varietal,
		&w.Region,
		&w.TastingNotes,
		&w.Price,
		&w.ImageURL,
		&w.IsFeatured,
		&w.FeaturedAt,
		&w.CreatedAt,
	)
	return w, err
}
