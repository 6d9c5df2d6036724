package search

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Store defines the persistence operations required by the search handler.
type Store interface {
	Search(ctx context.Context, query string, limit int) (Results, error)
}

// Results captures the different result buckets surfaced by the handler.
type Results struct {
	Clubs  []ClubResult
	Wines  []WineResult
	Events []EventResult
}

// ClubResult summarises a discoverable club.
type ClubResult struct {
	HostID          string
	HostCode        string
	HostName        string
	ClubAddress     string
	WinePreferences string
	MemberCount     int
}

// WineResult summarises a wine match.
type WineResult struct {
	ID       string
	Name     string
	Vineyard string
	Vintage  int
	Varietal string
	Region   string
	HostCode string
}

// EventResult summarises an upcoming event match.
type EventResult struct {
	ID        string
	Title     string
	EventDate time.Time
	Location  string
	HostName  string
	HostCode  string
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore creates a Store backed by the supplied database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// Search runs the club, wine and event queries concurrently. Private clubs
// and their events never appear.
func (s *PGStore) Search(ctx context.Context, query string, limit int) (Results, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + query + "%"

	var results Results
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results.Clubs, err = s.fetchClubs(gctx, like, limit)
		return err
	})
	g.Go(func() error {
		var err error
		results.Wines, err = s.fetchWines(gctx, like, limit)
		return err
	})
	g.Go(func() error {
		var err error
		results.Events, err = s.fetchEvents(gctx, like, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Results{}, err
	}
	return results, nil
}

const searchClubsSQL = `
		SELECT h.user_id, h.host_code, COALESCE(u.full_name, ''), COALESCE(h.club_address, ''),
		       COALESCE(h.wine_preferences, ''),
		       (SELECT COUNT(*) FROM memberships m WHERE m.host_id = h.user_id AND m.status = 'active')
		FROM hosts h
		JOIN users u ON u.id = h.user_id
		WHERE h.join_mode <> 'private'
		  AND (u.full_name ILIKE $1 OR h.host_code ILIKE $1 OR h.club_address ILIKE $1
		       OR h.about_club ILIKE $1 OR h.wine_preferences ILIKE $1)
		ORDER BY u.full_name ASC
		LIMIT $2
	`

func (s *PGStore) fetchClubs(ctx context.Context, like string, limit int) ([]ClubResult, error) {
	rows, err := s.db.QueryContext(ctx, searchClubsSQL, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search clubs: %w", err)
	}
	defer rows.Close()

	results := make([]ClubResult, 0)
	for rows.Next() {
		var c ClubResult
		if err := rows.Scan(&c.HostID, &c.HostCode, &c.HostName, &c.ClubAddress, &c.WinePreferences, &c.MemberCount); err != nil {
			return nil, fmt.Errorf("scan club: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clubs: %w", err)
	}
	return results, nil
}

const searchWinesSQL = `
		SELECT w.id, w.name, COALESCE(w.vineyard, ''), COALESCE(w.vintage, 0), COALESCE(w.varietal, ''),
		       COALESCE(w.region, ''), COALESCE(h.host_code, '')
		FROM wines w
		LEFT JOIN hosts h ON h.user_id = w.host_id
		WHERE (h.user_id IS NULL OR h.join_mode <> 'private')
		  AND (w.name ILIKE $1 OR w.vineyard ILIKE $1 OR w.varietal ILIKE $1 OR w.region ILIKE $1)
		ORDER BY w.is_featured DESC, w.name ASC
		LIMIT $2
	`

func (s *PGStore) fetchWines(ctx context.Context, like string, limit int) ([]WineResult, error) {
	rows, err := s.db.QueryContext(ctx, searchWinesSQL, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search wines: %w", err)
	}
	defer rows.Close()

	results := make([]WineResult, 0)
	for rows.Next() {
		var w WineResult
		if err := rows.Scan(&w.ID, &w.Name, &w.Vineyard, &w.Vintage, &w.Varietal, &w.Region, &w.HostCode); err != nil {
			return nil, fmt.Errorf("scan wine: %w", err)
		}
		results = append(results, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wines: %w", err)
	}
	return results, nil
}

const searchEventsSQL = `
		SELECT e.id, e.title, e.event_date, COALESCE(e.location, ''), COALESCE(u.full_name, ''), h.host_code
		FROM events e
		JOIN hosts h ON h.user_id = e.host_id
		JOIN users u ON u.id = e.host_id
		WHERE e.status = 'scheduled' AND e.event_date >= NOW() AND h.join_mode <> 'private'
		  AND (e.title ILIKE $1 OR e.wines_theme ILIKE $1 OR e.location ILIKE $1)
		ORDER BY e.event_date ASC
		LIMIT $2
	`

func (s *PGStore) fetchEvents(ctx context.Context, like string, limit int) ([]EventResult, error) {
	rows, err := s.db.QueryContext(ctx, searchEventsSQL, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	results := make([]EventResult, 0)
	for rows.Next() {
		var e EventResult
		if err := rows.Scan(&e.ID, &e.Title, &e.EventDate, &e.Location, &e.HostName, &e.HostCode); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return results, nil
}
