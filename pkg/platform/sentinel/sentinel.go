package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches, and backend
// adapters return these (optionally wrapped) so services can translate them
// into coded domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: a requested record or endpoint does not exist
// - ErrTimeout: a remote call exceeded its per-call deadline
// - ErrUnavailable: backend or store temporarily unreachable
// - ErrBadResponse: a backend response could not be decoded
// - ErrRateLimited: the backend rejected the call for rate reasons
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrTimeout     = errors.New("timeout")
	ErrUnavailable = errors.New("unavailable")
	ErrBadResponse = errors.New("bad response")
	ErrRateLimited = errors.New("rate limited")
)
