package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"party_radar/internal/domain"
)

// CachedGeocoder remembers geocode results. The cache is best effort: a
// broken cache never fails a lookup.
type CachedGeocoder struct {
	next  domain.Geocoder
	cache domain.Cache
	ttl   time.Duration
}

func NewCachedGeocoder(next domain.Geocoder, c domain.Cache, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: c, ttl: ttl}
}

func geocodeKey(address string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(address))))
	return "geocode:" + hex.EncodeToString(sum[:])
}

func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.GeoCoordinate, error) {
	key := geocodeKey(address)
	var c domain.GeoCoordinate
	if ok, err := g.cache.Get(ctx, key, &c); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("geocode cache read failed")
	} else if ok {
		return c, nil
	}

	c, err := g.next.Geocode(ctx, address)
	if err != nil {
		return c, err
	}
	if err := g.cache.Set(ctx, key, c, int(g.ttl.Seconds())); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
	return c, nil
}
