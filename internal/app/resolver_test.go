package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"party_radar/internal/app"
	"party_radar/internal/domain"
)

var (
	ana = domain.MemberAddress{MemberID: "ana", Street: "1 Main St", City: "Gilroy"}
	ben = domain.MemberAddress{MemberID: "ben", Location: "Morgan Hill"}
	cal = domain.MemberAddress{MemberID: "cal"} // profile incomplete
)

func scenarioGeocoder() *fakeGeocoder {
	return &fakeGeocoder{coords: map[string]domain.GeoCoordinate{
		"1 Main St, Gilroy": {Lat: 37.00, Lon: -122.0},
		"Morgan Hill":       {Lat: 37.04, Lon: -122.0},
	}}
}

func TestFindNearestRestaurant_PicksClosestToCentroid(t *testing.T) {
	places := &fakePlaces{out: []domain.PlaceCandidate{
		{ID: "far", Name: "Far Diner", Coordinate: domain.GeoCoordinate{Lat: 37.04, Lon: -122.0}},
		{ID: "near", Name: "Near Bistro", Coordinate: domain.GeoCoordinate{Lat: 37.0245, Lon: -122.0}},
		{ID: "bad", Name: "Broken", Coordinate: domain.GeoCoordinate{Lat: 120, Lon: 0}},
	}}
	r := app.NewResolver(scenarioGeocoder(), places, nil, nil, 5, 2)

	out, err := r.FindNearestRestaurant(context.Background(), []domain.MemberAddress{ana, ben, cal}, "")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if math.Abs(out.Centroid.Lat-37.02) > 1e-9 || out.Centroid.Lon != -122.0 {
		t.Fatalf("unexpected centroid: %+v", out.Centroid)
	}
	if out.Restaurant.ID != "near" {
		t.Fatalf("expected near, got %s", out.Restaurant.ID)
	}
	if math.Abs(out.DistanceKm-0.5) > 0.01 {
		t.Fatalf("expected ~0.5 km, got %f", out.DistanceKm)
	}
	if len(out.MemberLocations) != 2 || out.MemberLocations[0].MemberID != "ana" || out.MemberLocations[1].MemberID != "ben" {
		t.Fatalf("member locations not in input order: %+v", out.MemberLocations)
	}
	if places.queries[0] != "restaurant" {
		t.Fatalf("expected default query, got %q", places.queries[0])
	}
}

func TestFindNearestRestaurant_NoGeocodableAddresses(t *testing.T) {
	g := &fakeGeocoder{errs: map[string]error{
		"1 Main St, Gilroy": errors.New("boom"),
		"Morgan Hill":       domain.ErrGeocodeNotFound,
	}}
	r := app.NewResolver(g, &fakePlaces{}, nil, nil, 5, 4)

	_, err := r.FindNearestRestaurant(context.Background(), []domain.MemberAddress{ana, ben}, "")
	if !errors.Is(err, domain.ErrNoGeocodableAddresses) {
		t.Fatalf("expected ErrNoGeocodableAddresses, got %v", err)
	}
	if g.calls != 2 {
		t.Fatalf("expected every address tried, got %d calls", g.calls)
	}
}

func TestFindNearestRestaurant_ErrorTaxonomy(t *testing.T) {
	ctx := context.Background()

	r := app.NewResolver(scenarioGeocoder(), &fakePlaces{}, nil, nil, 5, 4)
	if _, err := r.FindNearestRestaurant(ctx, []domain.MemberAddress{cal}, ""); !errors.Is(err, domain.ErrNoAddresses) {
		t.Fatalf("expected ErrNoAddresses, got %v", err)
	}
	if _, err := r.FindNearestRestaurant(ctx, []domain.MemberAddress{ana}, ""); !errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	if _, err := r.FindNearestRestaurant(ctx, []domain.MemberAddress{ana}, "Chez Nobody"); !errors.Is(err, domain.ErrPlaceNotFound) {
		t.Fatalf("expected ErrPlaceNotFound, got %v", err)
	}

	off := app.NewResolver(nil, nil, nil, nil, 5, 4)
	if _, err := off.FindNearestRestaurant(ctx, []domain.MemberAddress{ana}, ""); !errors.Is(err, domain.ErrExternalServiceUnavailable) {
		t.Fatalf("expected ErrExternalServiceUnavailable, got %v", err)
	}
}

func TestFindNearestRestaurant_HintPrefersMatchingNames(t *testing.T) {
	places := &fakePlaces{out: []domain.PlaceCandidate{
		{ID: "other", Name: "Taco Stand", Coordinate: domain.GeoCoordinate{Lat: 37.0, Lon: -122.0}},
		{ID: "hit", Name: "Luigi's Trattoria", Coordinate: domain.GeoCoordinate{Lat: 37.03, Lon: -122.0}},
	}}
	det := &fakeDetails{d: domain.PlaceDetails{Phone: "+1 555 0100", OpenNow: ptr(true)}}
	r := app.NewResolver(scenarioGeocoder(), places, det, nil, 5, 4)

	out, err := r.FindNearestRestaurant(context.Background(), []domain.MemberAddress{ana}, "luigis")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Restaurant.ID != "hit" {
		t.Fatalf("expected name match, got %s", out.Restaurant.ID)
	}
	if out.Restaurant.Phone != "+1 555 0100" || out.Restaurant.OpenNow == nil || !*out.Restaurant.OpenNow {
		t.Fatalf("details not merged: %+v", out.Restaurant)
	}
}

func TestFindNearestRestaurant_DetailsFailureIsNotFatal(t *testing.T) {
	places := &fakePlaces{out: []domain.PlaceCandidate{{ID: "p1", Name: "Solo", Coordinate: domain.GeoCoordinate{Lat: 37.01, Lon: -122.0}}}}
	r := app.NewResolver(scenarioGeocoder(), places, &fakeDetails{err: errors.New("quota")}, nil, 5, 4)

	out, err := r.FindNearestRestaurant(context.Background(), []domain.MemberAddress{ana}, "")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Restaurant.ID != "p1" || out.Restaurant.Phone != "" {
		t.Fatalf("unexpected restaurant: %+v", out.Restaurant)
	}
}

func TestFindNearestChainLocation_RanksEveryLocation(t *testing.T) {
	at := func(id string, lat float64) domain.PlaceCandidate {
		return domain.PlaceCandidate{ID: id, Name: "Joe's Pizza", Coordinate: domain.GeoCoordinate{Lat: lat, Lon: -122.0}}
	}
	places := &fakePlaces{out: []domain.PlaceCandidate{
		at("d", 37.10), at("a", 37.021), at("c", 37.06), at("b", 36.99),
		{ID: "x", Name: "Pizza Hut", Coordinate: domain.GeoCoordinate{Lat: 37.02, Lon: -122.0}},
	}}
	orig := &domain.PlaceCandidate{ID: "orig", Name: "Joe's Pizza"}
	r := app.NewResolver(scenarioGeocoder(), places, nil, nil, 5, 4)

	out, err := r.FindNearestChainLocation(context.Background(), []domain.MemberAddress{ana, ben}, "", orig)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !out.IsChain || len(out.AllLocations) != 4 || len(out.TopLocations) != 3 {
		t.Fatalf("unexpected chain result: chain=%v all=%d top=%d", out.IsChain, len(out.AllLocations), len(out.TopLocations))
	}
	want := []string{"a", "b", "c", "d"}
	for i, loc := range out.AllLocations {
		if loc.ID != want[i] {
			t.Fatalf("rank %d: want %s got %s", i, want[i], loc.ID)
		}
		if i > 0 && loc.DistanceKm < out.AllLocations[i-1].DistanceKm {
			t.Fatalf("not sorted at %d", i)
		}
	}
	if out.NearestLocation.ID != "a" || out.OriginalRestaurant != orig {
		t.Fatalf("unexpected nearest/original: %+v", out)
	}
	if places.queries[0] != "Joe's Pizza" {
		t.Fatalf("chain query should fall back to original name, got %q", places.queries[0])
	}
}

func TestFindNearestChainLocation_NoMatch(t *testing.T) {
	places := &fakePlaces{out: []domain.PlaceCandidate{{ID: "x", Name: "Pizza Hut"}}}
	r := app.NewResolver(scenarioGeocoder(), places, nil, nil, 5, 4)

	_, err := r.FindNearestChainLocation(context.Background(), []domain.MemberAddress{ana}, "In-N-Out", nil)
	if !errors.Is(err, domain.ErrPlaceNotFound) {
		t.Fatalf("expected ErrPlaceNotFound, got %v", err)
	}
}

func TestResolveForParty_SavesResolution(t *testing.T) {
	parties := &fakeParties{members: map[string][]domain.MemberAddress{"p1": {ana, ben}}}
	places := &fakePlaces{out: []domain.PlaceCandidate{{ID: "near", Name: "Near Bistro", Coordinate: domain.GeoCoordinate{Lat: 37.02, Lon: -122.0}}}}
	r := app.NewResolver(scenarioGeocoder(), places, nil, parties, 5, 4)

	out, err := r.ResolveForParty(context.Background(), "p1", "", false)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if _, ok := out.(domain.NearestRestaurant); !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if len(parties.saved) != 1 || parties.saved[0].Kind != app.ResolutionNearest {
		t.Fatalf("resolution not saved: %+v", parties.saved)
	}
	var stored domain.NearestRestaurant
	if err := json.Unmarshal(parties.saved[0].Payload, &stored); err != nil || stored.Restaurant.ID != "near" {
		t.Fatalf("bad payload: %v %+v", err, stored)
	}

	if _, err := r.ResolveForParty(context.Background(), "missing", "", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCachedGeocoder_HitsCacheSecondTime(t *testing.T) {
	g := scenarioGeocoder()
	cg := app.NewCachedGeocoder(g, &fakeCache{}, time.Hour)
	ctx := context.Background()

	first, err := cg.Geocode(ctx, "Morgan Hill")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	second, err := cg.Geocode(ctx, "  MORGAN HILL ")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if first != second || g.calls != 1 {
		t.Fatalf("expected one upstream call, got %d (%v vs %v)", g.calls, first, second)
	}

	if _, err := cg.Geocode(ctx, "Atlantis"); !errors.Is(err, domain.ErrGeocodeNotFound) {
		t.Fatalf("expected ErrGeocodeNotFound, got %v", err)
	}
}

func TestGeocodeWarmer_LogsMisses(t *testing.T) {
	lost := domain.MemberAddress{MemberID: "dee", Location: "Atlantis"}
	parties := &fakeParties{members: map[string][]domain.MemberAddress{"p1": {ana, cal, lost}}}
	w := app.NewGeocodeWarmer(scenarioGeocoder(), parties)

	st, err := w.WarmParty(context.Background(), "p1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if st.Geocoded != 1 || st.Missed != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if len(parties.misses) != 2 || parties.misses[0] != "cal:no address" || parties.misses[1] != "dee:not found" {
		t.Fatalf("unexpected misses: %v", parties.misses)
	}
}
