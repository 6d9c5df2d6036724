package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	query   string
	limit   int
	results Results
	err     error
}

func (s *stubStore) Search(ctx context.Context, query string, limit int) (Results, error) {
	s.query = query
	s.limit = limit
	return s.results, s.err
}

func TestHandlerBuildsSections(t *testing.T) {
	st := &stubStore{results: Results{
		Clubs:  []ClubResult{{HostID: "h1", HostCode: "NAPA2024", HostName: "Ada", MemberCount: 2}},
		Wines:  []WineResult{{ID: "w1", Name: "Reserve", Vintage: 2019, Vineyard: "Stag", HostCode: "NAPA2024"}},
		Events: []EventResult{{ID: "e1", Title: "Napa night", EventDate: time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC), HostName: "Ada", HostCode: "NAPA2024"}},
	}}

	rec := httptest.NewRecorder()
	NewHandler(st).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=+napa+&limit=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "napa", st.query)
	assert.Equal(t, maxLimit, st.limit)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sections, 3)
	assert.Equal(t, "clubs", resp.Sections[0].Name)
	assert.Equal(t, "2 members", resp.Sections[0].Items[0].Subtitle)
	assert.Equal(t, "/api/clubs/NAPA2024", resp.Sections[0].Items[0].Href)
	assert.Equal(t, "Reserve 2019", resp.Sections[1].Items[0].Title)
	assert.Equal(t, "Nov 5, 2026 • Ada", resp.Sections[2].Items[0].Subtitle)
}

func TestHandlerEmptyQuery(t *testing.T) {
	st := &stubStore{}
	rec := httptest.NewRecorder()
	NewHandler(st).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sections":[]}`, rec.Body.String())
	assert.Empty(t, st.query)
}

func TestHandlerErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&stubStore{err: errors.New("db down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=a", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(&stubStore{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search?q=a", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
