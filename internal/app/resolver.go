package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"party_radar/internal/domain"
	"party_radar/internal/geo"
)

const (
	defaultSearchQuery = "restaurant"
	defaultRadiusKm    = 5.0
	defaultWorkers     = 4
	topLocations       = 3

	ResolutionNearest = "nearest"
	ResolutionChain   = "chain"
)

// Resolver finds the restaurant closest to the geographic center of a party.
// geocoder and places may be nil when no API key is configured; details is
// optional enrichment.
type Resolver struct {
	geocoder domain.Geocoder
	places   domain.PlaceSearcher
	details  domain.PlaceDetailer
	parties  domain.PartyRepository
	radiusKm float64
	workers  int64
}

func NewResolver(g domain.Geocoder, p domain.PlaceSearcher, d domain.PlaceDetailer, parties domain.PartyRepository, radiusKm float64, workers int) *Resolver {
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Resolver{geocoder: g, places: p, details: d, parties: parties, radiusKm: radiusKm, workers: int64(workers)}
}

func (r *Resolver) available() error {
	if r.geocoder == nil || r.places == nil {
		return fmt.Errorf("%w: maps API key not configured", domain.ErrExternalServiceUnavailable)
	}
	return nil
}

// usableAddresses keeps the members that have something to geocode.
func usableAddresses(members []domain.MemberAddress) ([]domain.MemberAddress, error) {
	out := make([]domain.MemberAddress, 0, len(members))
	for _, m := range members {
		if m.AddressString() != "" {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: members need to complete profile", domain.ErrNoAddresses)
	}
	return out, nil
}

// GeocodeAll geocodes every member address with at most r.workers calls in
// flight. Failed lookups are logged and dropped; the result keeps input order.
func (r *Resolver) GeocodeAll(ctx context.Context, members []domain.MemberAddress) ([]domain.GeocodedMember, error) {
	if err := r.available(); err != nil {
		return nil, err
	}
	usable, err := usableAddresses(members)
	if err != nil {
		return nil, err
	}

	type slot struct {
		gm domain.GeocodedMember
		ok bool
	}
	results := make([]slot, len(usable))
	sem := semaphore.NewWeighted(r.workers)
	for i, m := range usable {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func(i int, m domain.MemberAddress) {
			defer sem.Release(1)
			addr := m.AddressString()
			c, gerr := r.geocoder.Geocode(ctx, addr)
			if gerr == nil && !c.Valid() {
				gerr = fmt.Errorf("coordinate out of range: %v,%v", c.Lat, c.Lon)
			}
			if gerr != nil {
				log.Warn().Err(gerr).Str("member_id", m.MemberID).Str("address", addr).Msg("geocode failed, member skipped")
				return
			}
			results[i] = slot{gm: domain.GeocodedMember{MemberID: m.MemberID, Address: addr, Coordinate: c}, ok: true}
		}(i, m)
	}
	// wait for in-flight lookups
	if err := sem.Acquire(context.Background(), r.workers); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := make([]domain.GeocodedMember, 0, len(results))
	for _, s := range results {
		if s.ok {
			out = append(out, s.gm)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d addresses tried", domain.ErrNoGeocodableAddresses, len(usable))
	}
	return out, nil
}

func (r *Resolver) centroid(ctx context.Context, members []domain.MemberAddress) (domain.GeoCoordinate, []domain.GeocodedMember, error) {
	located, err := r.GeocodeAll(ctx, members)
	if err != nil {
		return domain.GeoCoordinate{}, nil, err
	}
	c, _ := geo.Centroid(located)
	return c, located, nil
}

// FindNearestRestaurant picks the restaurant closest to the party centroid.
// With a hint, results whose name matches it are preferred.
func (r *Resolver) FindNearestRestaurant(ctx context.Context, members []domain.MemberAddress, hint string) (domain.NearestRestaurant, error) {
	center, located, err := r.centroid(ctx, members)
	if err != nil {
		return domain.NearestRestaurant{}, err
	}

	query := hint
	if query == "" {
		query = defaultSearchQuery
	}
	candidates, err := r.places.SearchPlaces(ctx, center, r.radiusKm, query)
	if err != nil {
		return domain.NearestRestaurant{}, err
	}
	if hint != "" {
		if len(candidates) == 0 {
			return domain.NearestRestaurant{}, fmt.Errorf("%w: %s", domain.ErrPlaceNotFound, hint)
		}
		if named := geo.FilterChain(candidates, hint); len(named) > 0 {
			candidates = named
		}
	}

	sel, err := geo.Nearest(center, candidates)
	if err != nil {
		if hint != "" && errors.Is(err, domain.ErrNoCandidates) {
			return domain.NearestRestaurant{}, fmt.Errorf("%w: %s", domain.ErrPlaceNotFound, hint)
		}
		return domain.NearestRestaurant{}, err
	}

	return domain.NearestRestaurant{
		Restaurant:      r.enrich(ctx, sel.Candidate),
		DistanceKm:      sel.DistanceKm,
		Centroid:        center,
		MemberLocations: located,
	}, nil
}

// FindNearestChainLocation ranks every location of a chain by distance from
// the party centroid.
func (r *Resolver) FindNearestChainLocation(ctx context.Context, members []domain.MemberAddress, chainQuery string, original *domain.PlaceCandidate) (domain.ChainLocations, error) {
	if chainQuery == "" && original != nil {
		chainQuery = original.Name
	}
	if chainQuery == "" {
		return domain.ChainLocations{}, fmt.Errorf("%w: empty chain name", domain.ErrPlaceNotFound)
	}
	center, located, err := r.centroid(ctx, members)
	if err != nil {
		return domain.ChainLocations{}, err
	}

	candidates, err := r.places.SearchPlaces(ctx, center, r.radiusKm, chainQuery)
	if err != nil {
		return domain.ChainLocations{}, err
	}
	ranked := geo.Rank(center, geo.FilterChain(candidates, chainQuery))
	if len(ranked) == 0 {
		return domain.ChainLocations{}, fmt.Errorf("%w: %s", domain.ErrPlaceNotFound, chainQuery)
	}
	ranked[0].PlaceCandidate = r.enrich(ctx, ranked[0].PlaceCandidate)

	return domain.ChainLocations{
		NearestLocation:    ranked[0],
		AllLocations:       ranked,
		TopLocations:       geo.Top(ranked, topLocations),
		OriginalRestaurant: original,
		Centroid:           center,
		MemberLocations:    located,
		IsChain:            len(ranked) > 1,
	}, nil
}

// enrich merges place details into c. Failures only cost the extra fields.
func (r *Resolver) enrich(ctx context.Context, c domain.PlaceCandidate) domain.PlaceCandidate {
	if r.details == nil || c.ID == "" {
		return c
	}
	d, err := r.details.GetPlaceDetails(ctx, c.ID)
	if err != nil {
		log.Warn().Err(err).Str("place_id", c.ID).Msg("place details unavailable")
		return c
	}
	return c.WithDetails(d)
}

// ResolveForParty loads the party's member addresses, resolves the nearest
// restaurant (or chain location when chain is set) and stores the result.
func (r *Resolver) ResolveForParty(ctx context.Context, partyID, hint string, chain bool) (any, error) {
	if r.parties == nil {
		return nil, errors.New("party repository not configured")
	}
	members, err := r.parties.ListMemberAddresses(ctx, partyID)
	if err != nil {
		return nil, err
	}

	var (
		out  any
		kind string
	)
	if chain {
		out, err = r.FindNearestChainLocation(ctx, members, hint, nil)
		kind = ResolutionChain
	} else {
		out, err = r.FindNearestRestaurant(ctx, members, hint)
		kind = ResolutionNearest
	}
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Str("party_id", partyID).Msg("marshal resolution failed")
		return out, nil
	}
	res := domain.Resolution{PartyID: partyID, Kind: kind, Payload: payload, ResolvedAt: time.Now().UTC()}
	if err := r.parties.SaveResolution(ctx, res); err != nil {
		log.Error().Err(err).Str("party_id", partyID).Msg("save resolution failed")
	}
	return out, nil
}
