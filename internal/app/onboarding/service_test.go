package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinoclub/internal/identity"
	"vinoclub/internal/session"
	"vinoclub/internal/store"
	"vinoclub/shared/go/models"
)

type fakeStore struct {
	profileAfter int // UserByID succeeds from this call on; 0 means never
	userCalls    int

	hostErrs      []error
	hostCalls     int
	hostCodes     []string
	memberErr     error
	memberCalls   int
	ensureCalls   int
	joinErr       error
	joinCalls     int
	codeExists    bool
	fullNameCalls int
}

func (f *fakeStore) UserByID(ctx context.Context, id string) (models.User, error) {
	f.userCalls++
	if f.profileAfter == 0 || f.userCalls < f.profileAfter {
		return models.User{}, store.ErrUserNotFound
	}
	return models.User{ID: id, Email: "host@example.com"}, nil
}

func (f *fakeStore) UpdateUserFullName(ctx context.Context, id, fullName string) error {
	f.fullNameCalls++
	return nil
}

func (f *fakeStore) CreateHost(ctx context.Context, host models.Host) (models.Host, error) {
	f.hostCalls++
	f.hostCodes = append(f.hostCodes, host.HostCode)
	if len(f.hostErrs) > 0 {
		err := f.hostErrs[0]
		f.hostErrs = f.hostErrs[1:]
		if err != nil {
			return models.Host{}, err
		}
	}
	host.JoinMode = models.JoinModePublic
	return host, nil
}

func (f *fakeStore) HostCodeExists(ctx context.Context, code string) (bool, error) {
	return f.codeExists, nil
}

func (f *fakeStore) UpsertMember(ctx context.Context, member models.Member) (models.Member, error) {
	f.memberCalls++
	return member, f.memberErr
}

func (f *fakeStore) EnsureMember(ctx context.Context, userID string, address *string) error {
	f.ensureCalls++
	return f.memberErr
}

func (f *fakeStore) JoinClub(ctx context.Context, memberID, hostID, status string, requestMessage *string) (models.Membership, error) {
	f.joinCalls++
	return models.Membership{MemberID: memberID, HostID: hostID, Status: status}, f.joinErr
}

func (f *fakeStore) RoleStatus(ctx context.Context, userID string) (models.DualRoleStatus, error) {
	return models.DualRoleStatus{HasHostProfile: true, HasMemberProfile: true, IsDualRole: true}, nil
}

type fakeIdentities struct {
	createErr   error
	createCalls int
	authErr     error
	verifyErr   error
	updated     string
}

func (f *fakeIdentities) CreateIdentity(ctx context.Context, email, password string, metadata map[string]string) (identity.Identity, error) {
	f.createCalls++
	if f.createErr != nil {
		return identity.Identity{}, f.createErr
	}
	return identity.Identity{ID: "user-1", Email: email}, nil
}

func (f *fakeIdentities) Authenticate(ctx context.Context, email, password string) (identity.Identity, error) {
	if f.authErr != nil {
		return identity.Identity{}, f.authErr
	}
	return identity.Identity{ID: "user-1", Email: email}, nil
}

func (f *fakeIdentities) VerifyPassword(ctx context.Context, id, password string) error {
	return f.verifyErr
}

func (f *fakeIdentities) UpdatePassword(ctx context.Context, id, password string) error {
	f.updated = password
	return nil
}

type fakeSessions struct{ revoked string }

func (f *fakeSessions) Issue(ctx context.Context, userID string) (session.Token, error) {
	return session.Token{Value: "token-" + userID}, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, raw string) error {
	f.revoked = raw
	return nil
}

type sleepRecorder struct{ waits []time.Duration }

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestService(st *fakeStore, ids *fakeIdentities) (*service, *sleepRecorder) {
	svc := New(st, ids, &fakeSessions{}).(*service)
	rec := &sleepRecorder{}
	svc.sleep = rec.sleep
	return svc, rec
}

func validHostSignup() HostSignup {
	lat, lon := 38.29, -122.28
	return HostSignup{
		FullName:        "Ada Vintner",
		Email:           "host@example.com",
		Password:        "Cabernet1",
		ConfirmPassword: "Cabernet1",
		ClubType:        models.ClubTypeFixed,
		ClubAddress:     "123 Vine St, Napa, CA 94558",
		Latitude:        &lat,
		Longitude:       &lon,
	}
}

func TestSignupHostGivesUpWhenProfileNeverAppears(t *testing.T) {
	st := &fakeStore{}
	svc, sleeps := newTestService(st, &fakeIdentities{})

	res, err := svc.SignupHost(context.Background(), validHostSignup())

	require.ErrorIs(t, err, ErrProfileMissing)
	assert.Equal(t, "Database error: User profile creation failed", err.Error())
	assert.False(t, res.Success)
	assert.Equal(t, DefaultPollAttempts, st.userCalls)
	require.Len(t, sleeps.waits, DefaultPollAttempts-1)
	for _, d := range sleeps.waits {
		assert.Equal(t, 200*time.Millisecond, d)
	}
	assert.Zero(t, st.hostCalls, "host row must not be written")
	assert.Zero(t, st.memberCalls, "member row must not be written")
	assert.Zero(t, st.joinCalls, "membership must not be written")
	assert.Zero(t, st.fullNameCalls)
}

func TestSignupHostRetriesHostCodeAndReportsWarnings(t *testing.T) {
	st := &fakeStore{
		profileAfter: 3,
		hostErrs:     []error{store.ErrHostCodeTaken, nil},
		joinErr:      errors.New("insert failed"),
	}
	svc, sleeps := newTestService(st, &fakeIdentities{})

	res, err := svc.SignupHost(context.Background(), validHostSignup())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, sleeps.waits, 2)
	assert.Equal(t, 2, st.hostCalls)
	require.Len(t, st.hostCodes, 2)
	assert.NotEmpty(t, res.HostCode)
	assert.Equal(t, st.hostCodes[1], res.HostCode)
	assert.Equal(t, "Ada Vintner", *res.User.FullName)
	assert.Equal(t, []string{WarnMembership}, res.Warnings)
	assert.Equal(t, 1, st.memberCalls)
}

func TestSignupHostHostInsertFailure(t *testing.T) {
	st := &fakeStore{profileAfter: 1, hostErrs: []error{errors.New("boom")}}
	svc, _ := newTestService(st, &fakeIdentities{})

	_, err := svc.SignupHost(context.Background(), validHostSignup())

	require.ErrorIs(t, err, ErrHostProfileFailed)
	assert.Zero(t, st.memberCalls)
}

func TestSignupHostValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*HostSignup)
		want   string
	}{
		{"no uppercase", func(in *HostSignup) { in.Password, in.ConfirmPassword = "cabernet1", "cabernet1" }, "Password must contain at least one uppercase letter"},
		{"no digit", func(in *HostSignup) { in.Password, in.ConfirmPassword = "Cabernets", "Cabernets" }, "Password must contain at least one number"},
		{"mismatch", func(in *HostSignup) { in.ConfirmPassword = "Merlot123" }, "Passwords do not match"},
		{"short name", func(in *HostSignup) { in.FullName = "A" }, "Full name must be at least 2 characters"},
		{"bad email", func(in *HostSignup) { in.Email = "nope" }, "Please enter a valid email address"},
		{"fixed without address", func(in *HostSignup) { in.ClubAddress = "" }, "Club address is required for fixed location clubs"},
		{"short address", func(in *HostSignup) { in.ClubAddress = "Napa" }, "Please provide a complete club address"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ids := &fakeIdentities{}
			svc, _ := newTestService(&fakeStore{profileAfter: 1}, ids)
			in := validHostSignup()
			tc.mutate(&in)

			_, err := svc.SignupHost(context.Background(), in)

			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
			assert.Zero(t, ids.createCalls)
		})
	}
}

func TestSignupHostSurfacesDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(&fakeStore{profileAfter: 1}, &fakeIdentities{createErr: identity.ErrEmailTaken})

	_, err := svc.SignupHost(context.Background(), validHostSignup())

	require.Error(t, err)
	assert.Equal(t, "User already registered", err.Error())
}

func TestSignupMemberRejectsUnknownHostCode(t *testing.T) {
	ids := &fakeIdentities{}
	svc, _ := newTestService(&fakeStore{profileAfter: 1, codeExists: false}, ids)

	_, err := svc.SignupMember(context.Background(), MemberSignup{
		FullName:        "Member One",
		Email:           "member@example.com",
		Password:        "Riesling7",
		ConfirmPassword: "Riesling7",
		HostCode:        "abcd2345",
	})

	require.ErrorIs(t, err, ErrInvalidHostCode)
	assert.Zero(t, ids.createCalls, "identity must not be created for an unknown code")
}

func TestSignupMemberNeedsCodeOrNearby(t *testing.T) {
	svc, _ := newTestService(&fakeStore{profileAfter: 1}, &fakeIdentities{})

	_, err := svc.SignupMember(context.Background(), MemberSignup{
		FullName:        "Member One",
		Email:           "member@example.com",
		Password:        "Riesling7",
		ConfirmPassword: "Riesling7",
	})
	require.ErrorIs(t, err, ErrHostCodeOrNearby)

	_, err = svc.SignupMember(context.Background(), MemberSignup{
		FullName:        "Member One",
		Email:           "member@example.com",
		Password:        "Riesling7",
		ConfirmPassword: "Riesling7",
		FindNearbyHosts: true,
		Address:         "1 Main St",
	})
	require.ErrorIs(t, err, ErrNearbyNeedsLocation)
}

func TestSignupMemberWithLocation(t *testing.T) {
	lat, lon := 38.5, -122.4
	st := &fakeStore{profileAfter: 1}
	svc, _ := newTestService(st, &fakeIdentities{})

	res, err := svc.SignupMember(context.Background(), MemberSignup{
		FullName:        "Member One",
		Email:           "member@example.com",
		Password:        "Riesling7",
		ConfirmPassword: "Riesling7",
		FindNearbyHosts: true,
		Address:         "1 Main St",
		Latitude:        &lat,
		Longitude:       &lon,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, st.memberCalls)
	assert.Zero(t, st.joinCalls, "membership is created by the join endpoints")
}

func TestCreateClubExistingHost(t *testing.T) {
	st := &fakeStore{hostErrs: []error{store.ErrHostExists}}
	svc, _ := newTestService(st, &fakeIdentities{})

	_, err := svc.CreateClub(context.Background(), "user-1", ClubCreation{ClubName: "Napa Sippers", ClubType: models.ClubTypeMultiHost})

	require.ErrorIs(t, err, ErrAlreadyHost)
}

func TestCreateClubWarnsOnMemberFailure(t *testing.T) {
	st := &fakeStore{memberErr: errors.New("members unavailable")}
	svc, _ := newTestService(st, &fakeIdentities{})

	res, err := svc.CreateClub(context.Background(), "user-1", ClubCreation{ClubName: "Napa Sippers", ClubType: models.ClubTypeMultiHost})

	require.NoError(t, err)
	assert.Equal(t, "user-1", res.HostID)
	assert.Equal(t, []string{WarnMemberProfile}, res.Warnings)
	assert.Equal(t, 1, st.joinCalls)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(&fakeStore{profileAfter: 1}, &fakeIdentities{authErr: identity.ErrInvalidCredentials})
	_, err := svc.Login(context.Background(), "a@b.co", "wrong")
	require.ErrorIs(t, err, ErrInvalidLogin)

	svc, _ = newTestService(&fakeStore{profileAfter: 1}, &fakeIdentities{})
	res, err := svc.Login(context.Background(), "a@b.co", "Right123")
	require.NoError(t, err)
	assert.Equal(t, "token-user-1", res.Token.Value)
	assert.Equal(t, "user-1", res.User.ID)
}

func TestChangePassword(t *testing.T) {
	ids := &fakeIdentities{verifyErr: identity.ErrInvalidCredentials}
	svc, _ := newTestService(&fakeStore{}, ids)

	require.ErrorIs(t, svc.ChangePassword(context.Background(), "user-1", "", "x"), ErrPasswordsRequired)
	require.ErrorIs(t, svc.ChangePassword(context.Background(), "user-1", "old", "NewPass123"), ErrWrongPassword)

	ids.verifyErr = nil
	require.NoError(t, svc.ChangePassword(context.Background(), "user-1", "old", "NewPass123"))
	assert.Equal(t, "NewPass123", ids.updated)
}
