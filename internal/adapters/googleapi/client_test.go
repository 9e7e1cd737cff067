package googleapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"party_radar/internal/adapters/googleapi"
	"party_radar/internal/domain"
)

func ctx2s(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGeocode_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/api/geocode/json" || r.URL.Query().Get("key") != "test-key" {
			t.Errorf("unexpected request %s", r.URL)
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			_, _ = io.WriteString(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":37.02,"lng":-122.0}}}]}`)
		}
	}))
	defer ts.Close()

	m, err := googleapi.NewMaps(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, err := m.Geocode(ctx2s(t), "1 Main St")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Lat != 37.02 || got.Lon != -122.0 {
		t.Fatalf("unexpected coordinate: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestGeocode_StatusMapping(t *testing.T) {
	cases := []struct {
		body string
		code int
		want error
	}{
		{`{"status":"ZERO_RESULTS","results":[]}`, 200, domain.ErrGeocodeNotFound},
		{`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`, 200, domain.ErrExternalServiceUnavailable},
		{``, 403, domain.ErrExternalServiceUnavailable},
		{``, 404, domain.ErrNotFound},
	}
	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
			_, _ = io.WriteString(w, tc.body)
		}))
		m, _ := googleapi.NewMaps(ts.URL, "k", 100)
		_, err := m.Geocode(ctx2s(t), "nowhere")
		ts.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d %s: expected %v, got %v", tc.code, tc.body, tc.want, err)
		}
	}
}

func TestNewMaps_RequiresKey(t *testing.T) {
	if _, err := googleapi.NewMaps("", "", 1); err == nil {
		t.Fatalf("expected error without key")
	}
}

func TestSearchPlaces_TextAndNearby(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		q := r.URL.Query()
		if q.Get("radius") != "5000" || q.Get("type") != "restaurant" || q.Get("location") != "37.020000,-122.000000" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []any{map[string]any{
				"place_id": "abc", "name": "Joe's Pizza", "vicinity": "12 Elm St", "rating": 4.5,
				"geometry":      map[string]any{"location": map[string]any{"lat": 37.03, "lng": -122.01}},
				"opening_hours": map[string]any{"open_now": true},
			}},
		})
	}))
	defer ts.Close()

	m, _ := googleapi.NewMaps(ts.URL, "k", 100)
	center := domain.GeoCoordinate{Lat: 37.02, Lon: -122.0}

	got, err := m.SearchPlaces(ctx2s(t), center, 5, "Joe's Pizza")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].ID != "abc" || got[0].Address != "12 Elm St" || got[0].Coordinate.Lon != -122.01 {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if got[0].Rating == nil || *got[0].Rating != 4.5 || got[0].OpenNow == nil || !*got[0].OpenNow {
		t.Fatalf("optional fields not mapped: %+v", got[0])
	}

	if _, err := m.SearchPlaces(ctx2s(t), center, 5, ""); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if paths[0] != "/maps/api/place/textsearch/json" || paths[1] != "/maps/api/place/nearbysearch/json" {
		t.Fatalf("unexpected endpoints: %v", paths)
	}
}

func TestGetPlaceDetails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") != "abc" {
			t.Errorf("missing place_id")
		}
		_, _ = io.WriteString(w, `{"status":"OK","result":{"formatted_phone_number":"(408) 555-0100","website":"https://joes.example",
			"opening_hours":{"open_now":false,"weekday_text":["Monday: 11AM-10PM"]}}}`)
	}))
	defer ts.Close()

	m, _ := googleapi.NewMaps(ts.URL, "k", 100)
	d, err := m.GetPlaceDetails(ctx2s(t), "abc")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Phone != "(408) 555-0100" || d.Website != "https://joes.example" || len(d.OpeningHours) != 1 || d.OpenNow == nil || *d.OpenNow {
		t.Fatalf("unexpected details: %+v", d)
	}
}

func TestGemini_ExtractReceipt(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "gk" {
			t.Errorf("missing api key header")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !strings.Contains(mustJSON(body), `"mime_type":"image/jpeg"`) {
			t.Errorf("image part missing: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"text": "```json\n{\"merchant\":\"Cafe\",\"items\":[{\"name\":\"Latte\",\"unitPrice\":4.5}]}\n```"},
			}}}},
		})
	}))
	defer ts.Close()

	g, err := googleapi.NewGemini(ts.URL, "gk", "test-model", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	out, err := g.ExtractReceipt(ctx2s(t), []byte{0xff, 0xd8}, "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out["merchant"] != "Cafe" {
		t.Fatalf("unexpected payload: %v", out)
	}
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
