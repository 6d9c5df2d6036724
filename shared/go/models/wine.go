package models

import "time"

// Wine is a catalog entry, optionally tied to a host's club.
type Wine struct {
	ID           string     `json:"id"`
	HostID       *string    `json:"host_id"`
	Name         string     `json:"name"`
	Vineyard     *string    `json:"vineyard"`
	Vintage      *int       `json:"vintage"`
	Varietal     *string    `json:"varietal"`
	Region       *string    `json:"region"`
	TastingNotes *string    `json:"tasting_notes"`
	Price        *float64   `json:"price"`
	ImageURL     *string    `json:"image_url"`
	IsFeatured   bool       `json:"is_featured"`
	FeaturedAt   *time.Time `json:"featured_at"`
	CreatedAt    time.Time  `json:"created_at"`
}
