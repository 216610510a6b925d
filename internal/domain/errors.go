package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to clients
type ErrorKind string

const (
	KindValidation            ErrorKind = "validation"
	KindExtraction            ErrorKind = "extraction"
	KindTransfer              ErrorKind = "transfer"
	KindPostProcess           ErrorKind = "post_process"
	KindUnavailableCapability ErrorKind = "unavailable_capability"
	KindCancelled             ErrorKind = "cancelled"
	KindInternal              ErrorKind = "internal"
)

// Remediation hints attached to failed events
const (
	HintRetryOriginal = "retry with the original format, which skips re-encoding"
	HintInstallFFmpeg = "install ffmpeg or choose the original format"
	HintUseEmbedded   = "retry with the embedded backend or another quality"
)

// ErrCancelled is returned by cancellable transfers that were stopped by the client
var ErrCancelled = errors.New("download cancelled")

// ErrNoUsableFormat is returned when no candidate format can be fetched directly
var ErrNoUsableFormat = errors.New("no usable format")

// ValidationError rejects a request before it reaches the worker pool
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Kind returns the error kind
func (e *ValidationError) Kind() ErrorKind { return KindValidation }

// ExtractionError wraps metadata or format resolution failures
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Kind returns the error kind
func (e *ExtractionError) Kind() ErrorKind { return KindExtraction }

// TransferError wraps backend failures during the transfer
type TransferError struct {
	Backend Backend
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s transfer failed: %v", e.Backend, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Kind returns the error kind
func (e *TransferError) Kind() ErrorKind { return KindTransfer }

// PostProcessError wraps re-encoding failures
type PostProcessError struct {
	Err error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("post-processing failed: %v", e.Err)
}

func (e *PostProcessError) Unwrap() error { return e.Err }

// Kind returns the error kind
func (e *PostProcessError) Kind() ErrorKind { return KindPostProcess }

// Hint returns the remediation hint
func (e *PostProcessError) Hint() string { return HintRetryOriginal }

// UnavailableCapabilityError reports a missing external tool
type UnavailableCapabilityError struct {
	Capability string
	Reason     string
	Remedy     string
}

func (e *UnavailableCapabilityError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Capability, e.Reason)
}

// Kind returns the error kind
func (e *UnavailableCapabilityError) Kind() ErrorKind { return KindUnavailableCapability }

// Hint returns the remediation hint
func (e *UnavailableCapabilityError) Hint() string { return e.Remedy }

type kinded interface {
	Kind() ErrorKind
}

type hinted interface {
	Hint() string
}

// KindOf returns the kind of the first typed error in the chain
func KindOf(err error) ErrorKind {
	if errors.Is(err, ErrCancelled) {
		return KindCancelled
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// HintOf returns the remediation hint of the first hinted error in the chain
func HintOf(err error) string {
	var h hinted
	if errors.As(err, &h) {
		return h.Hint()
	}
	return ""
}
