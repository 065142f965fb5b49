package dataoracle

import "errors"

var (
	// ErrNotInitialized is returned when Run is called before Initialize.
	ErrNotInitialized = errors.New("dataoracle: engine not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("dataoracle: engine already initialized")

	// ErrStoreUnavailable is returned when the backing store is unreachable.
	// It is systemic: the orchestrator aborts the whole run.
	ErrStoreUnavailable = errors.New("dataoracle: store unavailable")

	// ErrNoSources is returned when the run filter matches no configured sources.
	ErrNoSources = errors.New("dataoracle: no sources matched the run filter")

	// ErrRunDeadline is returned when the run-wide deadline expires before
	// all sources complete.
	ErrRunDeadline = errors.New("dataoracle: run deadline exceeded")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("dataoracle: invalid configuration")
)

// ErrorKind classifies a per-item failure for the run's error list.
type ErrorKind string

const (
	// ErrorKindFetch covers network failures, timeouts, non-success HTTP
	// status, and suspiciously short bodies, after retries are exhausted.
	ErrorKindFetch ErrorKind = "fetch_error"

	// ErrorKindParse means no extraction strategy yielded a valid card name.
	ErrorKindParse ErrorKind = "parse_error"

	// ErrorKindQuality means the extracted record scored under the
	// configured minimum and was not written.
	ErrorKindQuality ErrorKind = "quality_below_threshold"

	// ErrorKindStore means a single store write failed; the run continues.
	ErrorKindStore ErrorKind = "store_error"

	// ErrorKindCancelled means the run deadline or cancellation abandoned
	// the item mid-flight.
	ErrorKindCancelled ErrorKind = "cancelled"
)
