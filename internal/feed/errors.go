package feed

import "fmt"

// ValidationError reports a pre-fetch configuration problem. It is fatal and
// aborts the run.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// FetchError wraps a failure to retrieve remote content. Per-item fetch
// failures degrade to the item summary instead of aborting the run.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError wraps a failure to isolate the content sub-tree. The
// caller degrades to the raw fetched HTML.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract content: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ProcessingError wraps a failure to sanitize or format extracted content.
// The caller degrades to the unprocessed extracted HTML.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process content: %v", e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// VendorAPIError reports a vendor API failure (quota exceeded, invalid
// credentials). Fatal for vendor-API sources: no meaningful partial result
// exists.
type VendorAPIError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *VendorAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s api: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s api: %v", e.Provider, e.Err)
}

func (e *VendorAPIError) Unwrap() error { return e.Err }

// CacheError reports a cache bookkeeping failure. It is never surfaced to
// callers; cache failures are treated as misses.
type CacheError struct {
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache: %v", e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
