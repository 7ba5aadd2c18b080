// Package apperr defines the error kinds used across speakcast in place of
// custom exception types. Each kind is a sentinel value; callers wrap it with
// context via fmt.Errorf("...: %w", ErrNotFound) and test for it with
// errors.Is, the same way the store package tests for driver-level sentinels.
package apperr

import "errors"

var (
	// ErrNotFound signals a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState signals an operation disallowed in the entity's current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptyContent signals the chunker produced zero chunks.
	ErrEmptyContent = errors.New("empty content")

	// ErrFetchFailed signals an ingestion fetch (url/git) could not complete.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrTimeout signals an ingestion operation exceeded its wall-clock budget.
	ErrTimeout = errors.New("timeout")

	// ErrTooLarge signals ingested content exceeded the configured size cap.
	ErrTooLarge = errors.New("too large")

	// ErrUnsupportedType signals ingested content's type is not on the allow-list.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSynthesisFailed is recorded on a chunk when synthesize() fails; it
	// never aborts the owning episode.
	ErrSynthesisFailed = errors.New("synthesis failed")

	// ErrAudioContractMismatch signals PCM whose sample rate or channel count
	// disagrees with the TTS collaborator's contract.
	ErrAudioContractMismatch = errors.New("audio contract mismatch")

	// ErrUndoExpired signals an UndoTicket past its window.
	ErrUndoExpired = errors.New("undo expired")

	// ErrInvalidIndex signals a chunk_index outside the bounds of an episode's chunks.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrInternal is the catch-all for programmer errors and storage
	// corruption; it is logged with detail and surfaced to callers as opaque.
	ErrInternal = errors.New("internal error")
)

// Kind returns the short name of the error kind understood by the caller,
// mirroring the {error_kind, message} contract of spec §7. It walks err with
// errors.Is against each known sentinel and defaults to "Internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidState):
		return "InvalidState"
	case errors.Is(err, ErrEmptyContent):
		return "EmptyContent"
	case errors.Is(err, ErrFetchFailed):
		return "FetchFailed"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrTooLarge):
		return "TooLarge"
	case errors.Is(err, ErrUnsupportedType):
		return "UnsupportedType"
	case errors.Is(err, ErrSynthesisFailed):
		return "SynthesisFailed"
	case errors.Is(err, ErrAudioContractMismatch):
		return "AudioContractMismatch"
	case errors.Is(err, ErrUndoExpired):
		return "UndoExpired"
	case errors.Is(err, ErrInvalidIndex):
		return "InvalidIndex"
	default:
		return "Internal"
	}
}
