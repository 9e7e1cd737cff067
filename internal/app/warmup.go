package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"party_radar/internal/domain"
)

// WarmStats counts what a warm-up run did for one party.
type WarmStats struct {
	Geocoded int
	Missed   int
}

// GeocodeWarmer pre-fills the geocode cache for a party so that the first
// "find restaurant" request does not pay for every member lookup.
type GeocodeWarmer struct {
	geocoder domain.Geocoder // usually a *CachedGeocoder
	repo     domain.PartyRepository
}

func NewGeocodeWarmer(g domain.Geocoder, r domain.PartyRepository) *GeocodeWarmer {
	return &GeocodeWarmer{geocoder: g, repo: r}
}

func (w *GeocodeWarmer) WarmParty(ctx context.Context, partyID string) (WarmStats, error) {
	var st WarmStats
	if w.geocoder == nil {
		return st, fmt.Errorf("%w: maps API key not configured", domain.ErrExternalServiceUnavailable)
	}
	members, err := w.repo.ListMemberAddresses(ctx, partyID)
	if err != nil {
		return st, err
	}

	for _, m := range members {
		addr := m.AddressString()
		if addr == "" {
			// profile incomplete -> record miss and move on
			st.Missed++
			_ = w.repo.LogGeocodeMiss(ctx, partyID, m.MemberID, "no address")
			continue
		}

		_, gerr := w.geocoder.Geocode(ctx, addr)
		switch {
		case gerr == nil:
			st.Geocoded++
		case errors.Is(gerr, domain.ErrGeocodeNotFound):
			st.Missed++
			_ = w.repo.LogGeocodeMiss(ctx, partyID, m.MemberID, "not found")
		case errors.Is(gerr, domain.ErrExternalServiceUnavailable):
			// key rejected: every further call fails the same way
			_ = w.repo.LogGeocodeMiss(ctx, partyID, m.MemberID, "unavailable")
			return st, gerr
		default:
			// network/5xx/JSON -> bubble up
			return st, gerr
		}
	}

	log.Debug().Str("party_id", partyID).Int("geocoded", st.Geocoded).Int("missed", st.Missed).Msg("party warmed")
	return st, nil
}
