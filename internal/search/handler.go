package search

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"vinoclub/shared/go/logging"
)

const maxLimit = 50

// Handler responds to search requests backed by the Store.
type Handler struct {
	store Store
}

// NewHandler builds a handler using the provided store implementation.
func NewHandler(store Store) http.Handler {
	return &Handler{store: store}
}

// Response models the payload returned by the search handler.
type Response struct {
	Sections []Section `json:"sections"`
}

// Section groups related search results.
type Section struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Item represents a single search result entry.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Href        string `json:"href,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, Response{Sections: []Section{}})
		return
	}

	limit := 10
	if rawLimit := strings.TrimSpace(r.URL.Query().Get("limit")); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil && parsed > 0 {
			limit = min(parsed, maxLimit)
		}
	}

	results, err := h.store.Search(r.Context(), query, limit)
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Str("query", query).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
		return
	}

	writeJSON(w, http.StatusOK, buildResponse(results))
}

func buildResponse(results Results) Response {
	sections := make([]Section, 0, 3)

	if len(results.Clubs) > 0 {
		items := make([]Item, 0, len(results.Clubs))
		for _, club := range results.Clubs {
			title := club.HostName
			if title == "" {
				title = club.HostCode
			}
			items = append(items, Item{
				ID:          club.HostID,
				Title:       title,
				Subtitle:    pluralize(club.MemberCount, "member"),
				Description: club.WinePreferences,
				Href:        "/api/clubs/" + club.HostCode,
			})
		}
		sections = append(sections, Section{Name: "clubs", Items: items})
	}

	if len(results.Wines) > 0 {
		items := make([]Item, 0, len(results.Wines))
		for _, wine := range results.Wines {
			title := wine.Name
			if wine.Vintage > 0 {
				title = title + " " + strconv.Itoa(wine.Vintage)
			}
			item := Item{
				ID:          wine.ID,
				Title:       title,
				Subtitle:    joinNonEmpty(" • ", wine.Vineyard, wine.Varietal),
				Description: wine.Region,
			}
			if wine.HostCode != "" {
				item.Href = "/api/clubs/" + wine.HostCode + "/wines"
			}
			items = append(items, item)
		}
		sections = append(sections, Section{Name: "wines", Items: items})
	}

	if len(results.Events) > 0 {
		items := make([]Item, 0, len(results.Events))
		for _, event := range results.Events {
			items = append(items, Item{
				ID:          event.ID,
				Title:       event.Title,
				Subtitle:    joinNonEmpty(" • ", event.EventDate.Format("Jan 2, 2006"), event.HostName),
				Description: event.Location,
				Href:        "/api/clubs/" + event.HostCode + "/events",
			})
		}
		sections = append(sections, Section{Name: "events", Items: items})
	}

	return Response{Sections: sections}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pluralize(count int, singular string) string {
	switch count {
	case 0:
		return ""
	case 1:
		return "1 " + singular
	default:
		return strconv.Itoa(count) + " " + singular + "s"
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
