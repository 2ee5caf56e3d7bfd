package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound            = errors.New("domain: not found")
	ErrLogUnavailable      = errors.New("domain: event log unavailable")
	ErrMetadataUnavailable = errors.New("domain: metadata store unavailable")
	ErrInvalidSession      = errors.New("domain: session absent from event log")
)
