package images

import "fmt"

// FetchFailureKind classifies why an image could not be fetched.
type FetchFailureKind string

const (
	// FetchNotFound means the origin answered 404 for every strategy.
	FetchNotFound FetchFailureKind = "not_found"
	// FetchBlocked covers other non-2xx answers and responses whose
	// Content-Type is not an image, the usual signature of anti-bot walls.
	FetchBlocked FetchFailureKind = "blocked"
	// FetchTimeout means an attempt exceeded its per-request deadline.
	FetchTimeout FetchFailureKind = "timeout"
	// FetchTransport covers connection-level failures.
	FetchTransport FetchFailureKind = "transport"
)

// FetchError reports a failed fetch attempt together with its classification.
// Timeout and transport failures are transient and retried; not-found and
// blocked responses are not.
type FetchError struct {
	Kind   FetchFailureKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("images: fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("images: fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("images: fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether retrying the same strategy could succeed.
func (e *FetchError) Transient() bool {
	return e.Kind == FetchTimeout || e.Kind == FetchTransport
}

// DecodeError reports bytes that could not be decoded as an image. It is
// distinct from fetch errors and never retried.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("images: decode: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
