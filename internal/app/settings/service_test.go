package settings

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinoclub/internal/store"
	"vinoclub/shared/go/models"
)

type recordingStore struct {
	update store.HostSettingsUpdate
	calls  int
	exists bool
}

func (r *recordingStore) HostSettings(ctx context.Context, userID string) (models.HostSettings, error) {
	if !r.exists {
		return models.HostSettings{}, store.ErrHostNotFound
	}
	return models.HostSettings{JoinMode: models.JoinModePublic}, nil
}

func (r *recordingStore) UpdateHostSettings(ctx context.Context, userID string, update store.HostSettingsUpdate) (models.HostSettings, error) {
	r.calls++
	r.update = update
	if !r.exists {
		return models.HostSettings{}, store.ErrHostNotFound
	}
	return models.HostSettings{VenmoUsername: update.VenmoUsername, JoinMode: update.JoinMode}, nil
}

func TestNormalizeVenmo(t *testing.T) {
	tests := []struct {
		in      string
		want    *string
		wantErr bool
	}{
		{in: "@abc12", want: ptr("abc12")},
		{in: "  wine-lover_9 ", want: ptr("wine-lover_9")},
		{in: "abcd", wantErr: true},
		{in: "@abcd", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "", want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeVenmo(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidVenmo)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeZelle(t *testing.T) {
	tests := []struct {
		in      string
		want    *string
		wantErr bool
	}{
		{in: "Host@Example.com", want: ptr("Host@Example.com")},
		{in: "(555) 123-4567", want: ptr("5551234567")},
		{in: "555.123.4567", want: ptr("5551234567")},
		{in: "12345", wantErr: true},
		{in: "not an email", wantErr: true},
		{in: "   ", want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeZelle(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidZelle)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePaypal(t *testing.T) {
	got, err := NormalizePaypal("ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", *got)

	_, err = NormalizePaypal("ab")
	require.ErrorIs(t, err, ErrInvalidPaypal)
}

func TestPatchDistinguishesAbsentFromNull(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"venmo_username": null, "accepts_cash": true}`), &p))

	assert.True(t, p.VenmoUsername.Set)
	assert.Nil(t, p.VenmoUsername.Value)
	assert.False(t, p.PaypalUsername.Set)
	assert.True(t, *p.AcceptsCash.Value)

	update, err := BuildUpdate(p)
	require.NoError(t, err)
	assert.True(t, update.SetVenmo)
	assert.Nil(t, update.VenmoUsername)
	assert.False(t, update.SetPaypal)
	assert.True(t, update.SetCash)
	assert.True(t, update.AcceptsCash)
	assert.False(t, update.SetJoinMode)
}

func TestUpdateRejectsBeforeWriting(t *testing.T) {
	st := &recordingStore{exists: true}
	svc := New(st)

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"venmo_username": "@abc12", "join_mode": "secret"}`), &p))
	_, err := svc.Update(context.Background(), "host-1", p)
	require.ErrorIs(t, err, ErrInvalidJoinMode)
	assert.Equal(t, 0, st.calls)

	require.NoError(t, json.Unmarshal([]byte(`{"venmo_username": "@abc12", "join_mode": "request"}`), &p))
	settings, err := svc.Update(context.Background(), "host-1", p)
	require.NoError(t, err)
	assert.Equal(t, "abc12", *settings.VenmoUsername)
	assert.Equal(t, models.JoinModeRequest, settings.JoinMode)
}

func TestMissingHost(t *testing.T) {
	svc := New(&recordingStore{})

	_, err := svc.Get(context.Background(), "host-1")
	require.ErrorIs(t, err, ErrHostNotFound)

	_, err = svc.Update(context.Background(), "host-1", Patch{})
	require.ErrorIs(t, err, ErrHostNotFound)
}

func ptr[T any](v T) *T { return &v }
