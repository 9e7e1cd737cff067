package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// GeoResolver
	ErrNoAddresses                = errors.New("no members with addresses")
	ErrNoGeocodableAddresses      = errors.New("could not geocode any member address")
	ErrExternalServiceUnavailable = errors.New("external service unavailable")
	ErrNoCandidates               = errors.New("no restaurants found near the party location")
	ErrPlaceNotFound              = errors.New("place not found")
	ErrGeocodeNotFound            = errors.New("address not found")

	// BillSplitter
	ErrInvalidAssignmentState = errors.New("invalid assignment state")
	ErrMalformedReceiptField  = errors.New("malformed receipt field")
)
