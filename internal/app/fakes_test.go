package app_test

import (
	"context"
	"encoding/json"
	"sync"

	"party_radar/internal/domain"
)

// ---- fakes ----

type fakeGeocoder struct {
	mu     sync.Mutex
	coords map[string]domain.GeoCoordinate
	errs   map[string]error
	calls  int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (domain.GeoCoordinate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.errs[address]; ok {
		return domain.GeoCoordinate{}, err
	}
	c, ok := f.coords[address]
	if !ok {
		return domain.GeoCoordinate{}, domain.ErrGeocodeNotFound
	}
	return c, nil
}

type fakePlaces struct {
	out     []domain.PlaceCandidate
	err     error
	queries []string
}

func (f *fakePlaces) SearchPlaces(ctx context.Context, center domain.GeoCoordinate, radiusKm float64, query string) ([]domain.PlaceCandidate, error) {
	f.queries = append(f.queries, query)
	return f.out, f.err
}

type fakeDetails struct {
	d   domain.PlaceDetails
	err error
}

func (f *fakeDetails) GetPlaceDetails(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	return f.d, f.err
}

type fakeParties struct {
	members map[string][]domain.MemberAddress
	saved   []domain.Resolution
	misses  []string
}

func (f *fakeParties) ListPartyIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.members))
	for id := range f.members {
		ids = append(ids, id)
	}
	return ids, nil
}
func (f *fakeParties) ListMemberAddresses(ctx context.Context, partyID string) ([]domain.MemberAddress, error) {
	m, ok := f.members[partyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}
func (f *fakeParties) SaveResolution(ctx context.Context, r domain.Resolution) error {
	f.saved = append(f.saved, r)
	return nil
}
func (f *fakeParties) LogGeocodeMiss(ctx context.Context, partyID, memberID, reason string) error {
	f.misses = append(f.misses, memberID+":"+reason)
	return nil
}

type fakeReceipts struct {
	byID map[string]domain.Receipt
}

func (f *fakeReceipts) CreateReceipt(ctx context.Context, r domain.Receipt) error {
	if f.byID == nil {
		f.byID = map[string]domain.Receipt{}
	}
	f.byID[r.ID] = r
	return nil
}
func (f *fakeReceipts) GetReceipt(ctx context.Context, id string) (domain.Receipt, error) {
	r, ok := f.byID[id]
	if !ok {
		return domain.Receipt{}, domain.ErrNotFound
	}
	return r, nil
}
func (f *fakeReceipts) UpdateAnalysis(ctx context.Context, id string, a domain.ReceiptAnalysis) error {
	r, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Analysis = a
	f.byID[id] = r
	return nil
}
func (f *fakeReceipts) SaveSplit(ctx context.Context, id string, s domain.SplitResult) error {
	r, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Analysis.Items = s.Items
	r.IsAssigned = s.IsAssigned
	r.MemberAmounts = s.MemberAmounts
	r.PaidBy = s.PaidBy
	f.byID[id] = r
	return nil
}

// fakeCache stores JSON like the redis adapter does, so values never alias.
type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

func ptr[T any](v T) *T { return &v }
