package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "party_radar/internal/adapters/redis"
	"party_radar/internal/bill"
	"party_radar/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestCache_RoundTripAndTTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	want := domain.GeoCoordinate{Lat: 37.02, Lon: -122.0}
	if err := c.Set(ctx, "geocode:abc", want, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("party_radar:geocode:abc") {
		t.Fatalf("expected prefixed key, have %v", mr.Keys())
	}

	var got domain.GeoCoordinate
	ok, err := c.Get(ctx, "geocode:abc", &got)
	if err != nil || !ok || got != want {
		t.Fatalf("get: ok=%v err=%v got=%+v", ok, err, got)
	}

	mr.FastForward(61 * time.Second)
	ok, err = c.Get(ctx, "geocode:abc", &got)
	if err != nil || ok {
		t.Fatalf("expected expiry, ok=%v err=%v", ok, err)
	}
}

func TestCache_SessionSurvivesRoundTrip(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	s, err := bill.NewSession("r-1", []string{"ana", "ben"}, 2)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := s.SelectPayer("ben"); err != nil {
		t.Fatalf("payer: %v", err)
	}
	if err := c.Set(ctx, "split:r-1", s, 3600); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got bill.Session
	if ok, err := c.Get(ctx, "split:r-1", &got); err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.PaidBy != "ben" || got.Phase != bill.PhaseAssigning || len(got.Items) != 2 || got.Items[0].AssignedAmounts == nil {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := c.Del(ctx, "split:r-1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := c.Get(ctx, "split:r-1", &got); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestCache_PingAndDown(t *testing.T) {
	c, mr := newCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	var v any
	if _, err := c.Get(context.Background(), "geocode:x", &v); err == nil {
		t.Fatalf("expected error with redis down")
	}
}
