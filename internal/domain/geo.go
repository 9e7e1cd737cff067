package domain

import "strings"

type GeoCoordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c GeoCoordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// MemberAddress is either a structured postal address or a free-text location.
type MemberAddress struct {
	MemberID string `json:"memberId"`
	Street   string `json:"street,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	ZipCode  string `json:"zipCode,omitempty"`
	Country  string `json:"country,omitempty"`
	Location string `json:"location,omitempty"`
}

// AddressString joins the structured fields with ", " (street, city, state,
// zip, country), skipping empty ones. Without any structured field the raw
// location is used verbatim. "" means the member cannot be geocoded.
func (a MemberAddress) AddressString() string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if strings.TrimSpace(a.Location) == "" {
		return ""
	}
	return a.Location
}

type GeocodedMember struct {
	MemberID   string        `json:"memberId"`
	Address    string        `json:"address"`
	Coordinate GeoCoordinate `json:"coordinate"`
}

type PlaceCandidate struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Address      string        `json:"address,omitempty"`
	Coordinate   GeoCoordinate `json:"coordinate"`
	Rating       *float64      `json:"rating,omitempty"`
	OpenNow      *bool         `json:"openNow,omitempty"`
	OpeningHours []string      `json:"openingHours,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Website      string        `json:"website,omitempty"`
	Types        []string      `json:"types,omitempty"`
}

// PlaceDetails is the subset of a place-details lookup merged into a candidate.
type PlaceDetails struct {
	OpeningHours []string
	OpenNow      *bool
	Phone        string
	Website      string
	Rating       *float64
	Address      string
}

// WithDetails returns a copy of p enriched with the non-empty fields of d.
func (p PlaceCandidate) WithDetails(d PlaceDetails) PlaceCandidate {
	if len(d.OpeningHours) > 0 {
		p.OpeningHours = append([]string(nil), d.OpeningHours...)
	}
	if d.OpenNow != nil {
		p.OpenNow = d.OpenNow
	}
	if d.Phone != "" {
		p.Phone = d.Phone
	}
	if d.Website != "" {
		p.Website = d.Website
	}
	if d.Rating != nil {
		p.Rating = d.Rating
	}
	if p.Address == "" {
		p.Address = d.Address
	}
	return p
}

type NearestSelection struct {
	Candidate  PlaceCandidate `json:"candidate"`
	DistanceKm float64        `json:"distanceKm"`
}

// Read models returned by the resolver.

type NearestRestaurant struct {
	Restaurant      PlaceCandidate   `json:"restaurant"`
	DistanceKm      float64          `json:"distanceKm"`
	Centroid        GeoCoordinate    `json:"centroid"`
	MemberLocations []GeocodedMember `json:"memberLocations"`
}

type RankedLocation struct {
	PlaceCandidate
	DistanceKm float64 `json:"distanceKm"`
}

type ChainLocations struct {
	NearestLocation    RankedLocation   `json:"nearestLocation"`
	AllLocations       []RankedLocation `json:"allLocations"`
	TopLocations       []RankedLocation `json:"topLocations"`
	OriginalRestaurant *PlaceCandidate  `json:"originalRestaurant,omitempty"`
	Centroid           GeoCoordinate    `json:"centroid"`
	MemberLocations    []GeocodedMember `json:"memberLocations"`
	IsChain            bool             `json:"isChain"`
}
