package viewer

import (
	"errors"
	"fmt"
)

var (
	ErrModelNotFound    = errors.New("model not found")
	ErrAlreadyLoaded    = errors.New("model already loaded")
	ErrLoadInProgress   = errors.New("model load in progress")
	ErrLoadSuperseded   = errors.New("model load superseded")
	ErrNoSectionBounds  = errors.New("no section bounds")
	ErrGroupNotFound    = errors.New("classification group not found")
	ErrCategoryNotFound = errors.New("classification category not found")
	ErrInvalidAxis      = errors.New("invalid section axis")
	ErrInvalidOffset    = errors.New("invalid section offset")
	ErrElementNotFound  = errors.New("element not found")
)

// LoadReason classifies why a model failed to load
type LoadReason string

const (
	ReasonFetchFailed       LoadReason = "fetch-failed"
	ReasonHTTPStatus        LoadReason = "http-status"
	ReasonConversionFailed  LoadReason = "conversion-failed"
	ReasonInstantiateFailed LoadReason = "instantiate-failed"
)

// LoadError is returned by Registry.Load
type LoadError struct {
	ModelID string
	Reason  LoadReason
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model %s (%s): %v", e.ModelID, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FetchError is a failed model retrieval. Status is the HTTP status or 0.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConversionError is a failed IFC import
type ConversionError struct {
	ModelID string
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.ModelID, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// RaycastError is a failed ray test against one model
type RaycastError struct {
	ModelID string
	Err     error
}

func (e *RaycastError) Error() string {
	return fmt.Sprintf("raycast %s: %v", e.ModelID, e.Err)
}

func (e *RaycastError) Unwrap() error { return e.Err }

// PropertyFetchError is a failed name or property query for an element
type PropertyFetchError struct {
	ModelID string
	LocalID int64
	Err     error
}

func (e *PropertyFetchError) Error() string {
	return fmt.Sprintf("properties of %s #%d: %v", e.ModelID, e.LocalID, e.Err)
}

func (e *PropertyFetchError) Unwrap() error { return e.Err }

// DisposalError is a failed engine cleanup
type DisposalError struct {
	ModelID string
	Err     error
}

func (e *DisposalError) Error() string {
	return fmt.Sprintf("dispose %s: %v", e.ModelID, e.Err)
}

func (e *DisposalError) Unwrap() error { return e.Err }
