package googleapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"party_radar/internal/domain"
)

const maxRadiusMeters = 50000

// Maps talks to the Google Geocoding and Places web services.
type Maps struct {
	c   *client
	key string
}

func NewMaps(base, key string, rps int) (*Maps, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = "https://maps.googleapis.com"
	}
	return &Maps{c: newClient("google_maps", base, rps, 20*time.Second), key: key}, nil
}

// The services report errors in a status field next to a 200.
type statusEnvelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (e statusEnvelope) err(what string) error {
	switch e.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "REQUEST_DENIED", "OVER_DAILY_LIMIT":
		return fmt.Errorf("%w: %s %s: %s", domain.ErrExternalServiceUnavailable, what, e.Status, e.ErrorMessage)
	case "NOT_FOUND":
		return domain.ErrNotFound
	default:
		return fmt.Errorf("%s: %s %s", what, e.Status, e.ErrorMessage)
	}
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l latLng) coord() domain.GeoCoordinate { return domain.GeoCoordinate{Lat: l.Lat, Lon: l.Lng} }

func (m *Maps) url(path string, q url.Values) string {
	q.Set("key", m.key)
	return m.c.base + path + "?" + q.Encode()
}

// ---- Geocoding ----

func (m *Maps) Geocode(ctx context.Context, address string) (domain.GeoCoordinate, error) {
	var out struct {
		statusEnvelope
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location latLng `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	u := m.url("/maps/api/geocode/json", url.Values{"address": {address}})
	if err := m.c.do(ctx, "GET", "geocode", u, nil, &out); err != nil {
		return domain.GeoCoordinate{}, err
	}
	if err := out.err("geocode"); err != nil {
		return domain.GeoCoordinate{}, err
	}
	if len(out.Results) == 0 {
		return domain.GeoCoordinate{}, fmt.Errorf("%w: %q", domain.ErrGeocodeNotFound, address)
	}
	return out.Results[0].Geometry.Location.coord(), nil
}

// ---- Places ----

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Rating           *float64 `json:"rating"`
	Types            []string `json:"types"`
	Geometry         struct {
		Location latLng `json:"location"`
	} `json:"geometry"`
	OpeningHours *struct {
		OpenNow     *bool    `json:"open_now"`
		WeekdayText []string `json:"weekday_text"`
	} `json:"opening_hours"`
	FormattedPhone string `json:"formatted_phone_number"`
	Website        string `json:"website"`
}

func (p placeResult) candidate() domain.PlaceCandidate {
	c := domain.PlaceCandidate{
		ID:         p.PlaceID,
		Name:       p.Name,
		Address:    p.FormattedAddress,
		Coordinate: p.Geometry.Location.coord(),
		Rating:     p.Rating,
		Types:      p.Types,
		Phone:      p.FormattedPhone,
		Website:    p.Website,
	}
	if c.Address == "" {
		c.Address = p.Vicinity
	}
	if p.OpeningHours != nil {
		c.OpenNow = p.OpeningHours.OpenNow
		c.OpeningHours = p.OpeningHours.WeekdayText
	}
	return c
}

// SearchPlaces uses text search for a query and nearby search otherwise,
// both restricted to restaurants.
func (m *Maps) SearchPlaces(ctx context.Context, center domain.GeoCoordinate, radiusKm float64, query string) ([]domain.PlaceCandidate, error) {
	radius := int(radiusKm * 1000)
	if radius <= 0 || radius > maxRadiusMeters {
		radius = maxRadiusMeters
	}
	q := url.Values{
		"location": {strconv.FormatFloat(center.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(center.Lon, 'f', 6, 64)},
		"radius":   {strconv.Itoa(radius)},
		"type":     {"restaurant"},
	}
	path, endpoint := "/maps/api/place/nearbysearch/json", "nearbysearch"
	if query != "" {
		q.Set("query", query)
		path, endpoint = "/maps/api/place/textsearch/json", "textsearch"
	}

	var out struct {
		statusEnvelope
		Results []placeResult `json:"results"`
	}
	if err := m.c.do(ctx, "GET", endpoint, m.url(path, q), nil, &out); err != nil {
		return nil, err
	}
	if err := out.err(endpoint); err != nil {
		return nil, err
	}
	cands := make([]domain.PlaceCandidate, 0, len(out.Results))
	for _, r := range out.Results {
		cands = append(cands, r.candidate())
	}
	return cands, nil
}

func (m *Maps) GetPlaceDetails(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	q := url.Values{
		"place_id": {placeID},
		"fields":   {"formatted_address,formatted_phone_number,website,rating,opening_hours"},
	}
	var out struct {
		statusEnvelope
		Result placeResult `json:"result"`
	}
	if err := m.c.do(ctx, "GET", "details", m.url("/maps/api/place/details/json", q), nil, &out); err != nil {
		return domain.PlaceDetails{}, err
	}
	if err := out.err("details"); err != nil {
		return domain.PlaceDetails{}, err
	}
	c := out.Result.candidate()
	return domain.PlaceDetails{
		OpeningHours: c.OpeningHours,
		OpenNow:      c.OpenNow,
		Phone:        c.Phone,
		Website:      c.Website,
		Rating:       c.Rating,
		Address:      c.Address,
	}, nil
}
