package domain

import "context"

type Geocoder interface {
	// Geocode returns ErrGeocodeNotFound when the address has no match.
	Geocode(ctx context.Context, address string) (GeoCoordinate, error)
}

type PlaceSearcher interface {
	// SearchPlaces lists places around center. An empty query means any restaurant.
	SearchPlaces(ctx context.Context, center GeoCoordinate, radiusKm float64, query string) ([]PlaceCandidate, error)
}

type PlaceDetailer interface {
	GetPlaceDetails(ctx context.Context, placeID string) (PlaceDetails, error)
}

// ReceiptExtractor turns a receipt photo into the loosely shaped JSON object
// produced by the OCR/LLM collaborator.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type PartyRepository interface {
	ListPartyIDs(ctx context.Context) ([]string, error)
	ListMemberAddresses(ctx context.Context, partyID string) ([]MemberAddress, error)
	SaveResolution(ctx context.Context, r Resolution) error
	LogGeocodeMiss(ctx context.Context, partyID, memberID, reason string) error
}

type ReceiptRepository interface {
	CreateReceipt(ctx context.Context, r Receipt) error
	GetReceipt(ctx context.Context, id string) (Receipt, error)
	UpdateAnalysis(ctx context.Context, id string, a ReceiptAnalysis) error
	SaveSplit(ctx context.Context, id string, s SplitResult) error
}
