// Package clubs serves club pages and proximity discovery.
package clubs

import (
	"context"
	"errors"
	"sort"

	"vinoclub/internal/apperr"
	"vinoclub/internal/geo"
	"vinoclub/internal/hostcode"
	"vinoclub/internal/store"
	"vinoclub/shared/go/models"
)

var (
	ErrClubNotFound = apperr.NotFound("Club not found")
	ErrNoLocation   = apperr.Validation("Member location not found. Please update your profile with your address.")
)

// Store defines the persistence hooks for club reads.
type Store interface {
	HostByCode(ctx context.Context, code string) (models.Host, error)
	HostByUserID(ctx context.Context, userID string) (models.Host, error)
	CountActiveMembers(ctx context.Context, hostID string) (int, error)
	IsActiveMember(ctx context.Context, memberID, hostID string) (bool, error)
	MemberByUserID(ctx context.Context, userID string) (models.Member, error)
	DiscoverableClubs(ctx context.Context, viewerID string) ([]models.NearbyClub, error)
	UpcomingEventsByHost(ctx context.Context, hostID string) ([]models.EventWithCount, error)
}

// Service exposes club reads.
type Service interface {
	Profile(ctx context.Context, code, viewerID string) (models.ClubProfile, error)
	Events(ctx context.Context, code string) ([]models.EventWithCount, error)
	Nearby(ctx context.Context, userID, radius string) ([]models.NearbyClub, error)
	Detail(ctx context.Context, userID, hostID string) (models.NearbyClub, error)
}

type service struct {
	store Store
}

// New constructs a clubs Service backed by the given Store.
func New(store Store) Service {
	return &service{store: store}
}

// Profile returns the public page for code. Payment handles are only shown to
// active members; viewerID is empty for anonymous callers.
func (s *service) Profile(ctx context.Context, code, viewerID string) (models.ClubProfile, error) {
	if err := ctx.Err(); err != nil {
		return models.ClubProfile{}, err
	}

	host, err := s.hostByCode(ctx, code)
	if err != nil {
		return models.ClubProfile{}, err
	}

	count, err := s.store.CountActiveMembers(ctx, host.UserID)
	if err != nil {
		return models.ClubProfile{}, err
	}

	profile := models.ClubProfile{
		HostID:          host.UserID,
		HostCode:        host.HostCode,
		HostName:        host.HostName,
		ClubAddress:     host.ClubAddress,
		AboutClub:       host.AboutClub,
		WinePreferences: host.WinePreferences,
		JoinMode:        host.JoinMode,
		MemberCount:     count,
		IsLoggedIn:      viewerID != "",
		IsHost:          viewerID != "" && viewerID == host.UserID,
	}

	if viewerID != "" {
		profile.IsMember, err = s.store.IsActiveMember(ctx, viewerID, host.UserID)
		if err != nil {
			return models.ClubProfile{}, err
		}
	}

	if profile.IsMember {
		profile.VenmoUsername = host.VenmoUsername
		profile.PaypalUsername = host.PaypalUsername
		profile.ZelleHandle = host.ZelleHandle
		profile.AcceptsCash = host.AcceptsCash
	}
	return profile, nil
}

func (s *service) Events(ctx context.Context, code string) ([]models.EventWithCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	host, err := s.hostByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.store.UpcomingEventsByHost(ctx, host.UserID)
}

// Nearby lists discoverable clubs sorted by distance. radius is the raw query
// value: miles, "all", or empty for the default.
func (s *service) Nearby(ctx context.Context, userID, radius string) ([]models.NearbyClub, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	member, err := s.memberWithLocation(ctx, userID)
	if err != nil {
		return nil, err
	}

	clubs, err := s.store.DiscoverableClubs(ctx, userID)
	if err != nil {
		return nil, err
	}

	miles, limited := geo.ParseRadius(radius)
	out := make([]models.NearbyClub, 0, len(clubs))
	for _, club := range clubs {
		if club.Latitude == nil || club.Longitude == nil {
			continue
		}
		d := geo.Distance(*member.Latitude, *member.Longitude, *club.Latitude, *club.Longitude)
		if limited && d > miles {
			continue
		}
		club.Distance = geo.Round1(d)
		out = append(out, club)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func (s *service) Detail(ctx context.Context, userID, hostID string) (models.NearbyClub, error) {
	if err := ctx.Err(); err != nil {
		return models.NearbyClub{}, err
	}

	member, err := s.memberWithLocation(ctx, userID)
	if err != nil {
		return models.NearbyClub{}, err
	}

	host, err := s.store.HostByUserID(ctx, hostID)
	if err != nil {
		if errors.Is(err, store.ErrHostNotFound) {
			return models.NearbyClub{}, ErrClubNotFound
		}
		return models.NearbyClub{}, err
	}

	count, err := s.store.CountActiveMembers(ctx, hostID)
	if err != nil {
		return models.NearbyClub{}, err
	}
	joined, err := s.store.IsActiveMember(ctx, userID, hostID)
	if err != nil {
		return models.NearbyClub{}, err
	}

	club := models.NearbyClub{
		HostID:          host.UserID,
		HostName:        host.HostName,
		HostCode:        host.HostCode,
		ClubAddress:     host.ClubAddress,
		AboutClub:       host.AboutClub,
		WinePreferences: host.WinePreferences,
		JoinMode:        host.JoinMode,
		MemberCount:     count,
		IsJoined:        joined,
	}
	if host.Latitude != nil && host.Longitude != nil {
		club.Distance = geo.Round1(geo.Distance(*member.Latitude, *member.Longitude, *host.Latitude, *host.Longitude))
	}
	return club, nil
}

func (s *service) hostByCode(ctx context.Context, code string) (models.Host, error) {
	host, err := s.store.HostByCode(ctx, hostcode.Normalize(code))
	if err != nil {
		if errors.Is(err, store.ErrHostNotFound) {
			return models.Host{}, ErrClubNotFound
		}
		return models.Host{}, err
	}
	return host, nil
}

func (s *service) memberWithLocation(ctx context.Context, userID string) (models.Member, error) {
	member, err := s.store.MemberByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrMemberNotFound) {
			return models.Member{}, ErrNoLocation
		}
		return models.Member{}, err
	}
	if !member.HasLocation() {
		return models.Member{}, ErrNoLocation
	}
	return member, nil
}
