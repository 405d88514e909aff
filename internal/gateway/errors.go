// Package gateway defines the contract shared by the outbound service
// clients. Each client translates its remote failure modes into these
// sentinels so the orchestrator can classify errors without knowing which
// transport or service produced them.
package gateway

import "errors"

var (
	// ErrNotFound: the remote service has no such resource (HTTP 404).
	ErrNotFound = errors.New("gateway: not found")
	// ErrInsufficientStock: the catalog refused a decrement that would
	// drive stock below zero (HTTP 409). Only stock adjustments with a
	// negative delta can produce it.
	ErrInsufficientStock = errors.New("gateway: insufficient stock")
	// ErrUnavailable: the service could not be reached, or answered with
	// an unexpected status. Never retried by callers.
	ErrUnavailable = errors.New("gateway: service unavailable")
)
