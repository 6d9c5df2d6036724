package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinoclub/internal/store"
	"vinoclub/shared/go/models"
)

func ptr[T any](v T) *T { return &v }

type memStore struct {
	user     models.User
	member   *models.Member
	prefs    models.Preferences
	upserts  int
	contacts int
	failName bool
}

func (m *memStore) UserByID(ctx context.Context, id string) (models.User, error) {
	if id != m.user.ID {
		return models.User{}, store.ErrUserNotFound
	}
	return m.user, nil
}

func (m *memStore) RoleStatus(ctx context.Context, userID string) (models.DualRoleStatus, error) {
	return models.DualRoleStatus{HasMemberProfile: m.member != nil}, nil
}

func (m *memStore) UpdateContactInfo(ctx context.Context, id string, fullName, phone *string) error {
	if m.failName {
		return errors.New("db down")
	}
	m.contacts++
	m.user.FullName, m.user.Phone = fullName, phone
	return nil
}

func (m *memStore) MemberByUserID(ctx context.Context, userID string) (models.Member, error) {
	if m.member == nil {
		return models.Member{}, store.ErrMemberNotFound
	}
	return *m.member, nil
}

func (m *memStore) UpsertMember(ctx context.Context, member models.Member) (models.Member, error) {
	m.upserts++
	m.member = &member
	return member, nil
}

func (m *memStore) Preferences(ctx context.Context, id string) (models.Preferences, error) {
	return m.prefs, nil
}

func (m *memStore) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) (models.Preferences, error) {
	if prefs.LastDashboard != nil {
		m.prefs.LastDashboard = prefs.LastDashboard
	}
	if prefs.SearchRadius != nil {
		m.prefs.SearchRadius = prefs.SearchRadius
	}
	return m.prefs, nil
}

func TestMemberProfileMissingIsNil(t *testing.T) {
	svc := New(&memStore{user: models.User{ID: "u1"}})
	member, err := svc.MemberProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, member)
}

func TestPersonalInfoWithoutMemberRow(t *testing.T) {
	svc := New(&memStore{user: models.User{ID: "u1", Email: "a@example.com", FullName: ptr("Ada")}})
	info, err := svc.PersonalInfo(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", info.Email)
	assert.Nil(t, info.Address)

	_, err = svc.PersonalInfo(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdatePersonalInfoSkipsEmptyAddress(t *testing.T) {
	st := &memStore{user: models.User{ID: "u1"}}
	svc := New(st)

	info, err := svc.UpdatePersonalInfo(context.Background(), "u1", PersonalInfoInput{FullName: ptr("Ada"), Phone: ptr("555")})
	require.NoError(t, err)
	assert.Equal(t, 0, st.upserts)
	assert.Equal(t, "Ada", *info.FullName)

	info, err = svc.UpdatePersonalInfo(context.Background(), "u1", PersonalInfoInput{
		FullName:     ptr("Ada"),
		AddressInput: AddressInput{City: ptr("Napa"), Latitude: ptr(38.29), Longitude: ptr(-122.28)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, st.upserts)
	assert.Equal(t, "Napa", *info.City)
	assert.Equal(t, 38.29, *info.Latitude)
	assert.Nil(t, info.Address)
}

func TestUpdatePersonalInfoFailure(t *testing.T) {
	svc := New(&memStore{user: models.User{ID: "u1"}, failName: true})
	_, err := svc.UpdatePersonalInfo(context.Background(), "u1", PersonalInfoInput{})
	require.ErrorIs(t, err, ErrPersonalInfoNotSaved)
}

func TestUpdatePreferencesValidates(t *testing.T) {
	st := &memStore{user: models.User{ID: "u1"}}
	svc := New(st)

	_, err := svc.UpdatePreferences(context.Background(), "u1", models.Preferences{LastDashboard: ptr("admin")})
	require.ErrorIs(t, err, ErrInvalidDashboard)

	_, err = svc.UpdatePreferences(context.Background(), "u1", models.Preferences{SearchRadius: ptr(0)})
	require.ErrorIs(t, err, ErrInvalidSearchRadius)
	assert.Equal(t, "search_radius must be between 1 and 500", err.Error())

	prefs, err := svc.UpdatePreferences(context.Background(), "u1", models.Preferences{LastDashboard: ptr(models.DashboardHost)})
	require.NoError(t, err)
	assert.Equal(t, models.DashboardHost, *prefs.LastDashboard)

	prefs, err = svc.UpdatePreferences(context.Background(), "u1", models.Preferences{SearchRadius: ptr(25)})
	require.NoError(t, err)
	assert.Equal(t, models.DashboardHost, *prefs.LastDashboard)
	assert.Equal(t, 25, *prefs.SearchRadius)
}

func TestAccount(t *testing.T) {
	st := &memStore{user: models.User{ID: "u1"}, member: &models.Member{UserID: "u1"}}
	acct, err := New(st).Account(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", acct.User.ID)
	assert.True(t, acct.Status.HasMemberProfile)
}
