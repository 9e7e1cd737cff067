// Package geo has the distance math behind restaurant resolution.
package geo

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"party_radar/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b domain.GeoCoordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sLat := math.Sin(dLat / 2)
	sLon := math.Sin(dLon / 2)
	h := sLat*sLat + math.Cos(lat1)*math.Cos(lat2)*sLon*sLon
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Centroid is the arithmetic mean of the member coordinates. ok is false for
// an empty input.
func Centroid(members []domain.GeocodedMember) (c domain.GeoCoordinate, ok bool) {
	if len(members) == 0 {
		return domain.GeoCoordinate{}, false
	}
	if len(members) == 1 {
		return members[0].Coordinate, true
	}
	var lat, lon float64
	for _, m := range members {
		lat += m.Coordinate.Lat
		lon += m.Coordinate.Lon
	}
	n := float64(len(members))
	return domain.GeoCoordinate{Lat: lat / n, Lon: lon / n}, true
}

// Nearest scans candidates linearly and keeps the first strictly smaller
// distance, so exact ties go to the earlier candidate. Candidates with
// out-of-range coordinates are ignored.
func Nearest(center domain.GeoCoordinate, candidates []domain.PlaceCandidate) (domain.NearestSelection, error) {
	best := -1
	bestDist := 0.0
	for i, c := range candidates {
		if !c.Coordinate.Valid() {
			continue
		}
		d := Haversine(center, c.Coordinate)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return domain.NearestSelection{}, domain.ErrNoCandidates
	}
	return domain.NearestSelection{Candidate: candidates[best], DistanceKm: bestDist}, nil
}

// Rank returns every valid candidate with its distance, closest first.
// Equal distances keep input order.
func Rank(center domain.GeoCoordinate, candidates []domain.PlaceCandidate) []domain.RankedLocation {
	out := make([]domain.RankedLocation, 0, len(candidates))
	for _, c := range candidates {
		if !c.Coordinate.Valid() {
			continue
		}
		out = append(out, domain.RankedLocation{PlaceCandidate: c, DistanceKm: Haversine(center, c.Coordinate)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// Top returns at most n leading entries of ranked.
func Top(ranked []domain.RankedLocation, n int) []domain.RankedLocation {
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// MatchesChain reports whether a place name belongs to the chain named by
// query, ignoring case, punctuation and spacing ("McDonald's" ~ "mcdonalds").
func MatchesChain(name, query string) bool {
	q := fold(query)
	if q == "" {
		return false
	}
	return strings.Contains(fold(name), q)
}

// FilterChain keeps the candidates whose name matches query, in input order.
func FilterChain(candidates []domain.PlaceCandidate, query string) []domain.PlaceCandidate {
	var out []domain.PlaceCandidate
	for _, c := range candidates {
		if MatchesChain(c.Name, query) {
			out = append(out, c)
		}
	}
	return out
}

func fold(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
