package data

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Standard errors that handlers and backends should use.
var (
	// Caller errors, detected before any external call
	ErrMissingParameter    = errors.New("carupload: missing parameter")
	ErrInvalidParameter    = errors.New("carupload: invalid parameter")
	ErrMalformedIdentifier = errors.New("carupload: malformed content identifier")
	ErrUnsupportedKind     = errors.New("carupload: unsupported upload type")
	ErrChecksumUnsupported = errors.New("carupload: checksum algorithm unsupported")

	// Storage errors
	ErrStorageWriteFailed = errors.New("carupload: storage write failed")
	ErrPartialPrune       = errors.New("carupload: superseded records not pruned")

	// Backend errors
	ErrBackendUnsupported = errors.New("carupload: backend capability unsupported")
	ErrBackendClosed      = errors.New("carupload: backend closed")
)

// ParameterError names a request field that is absent or unusable.
type ParameterError struct {
	Field string
	// Err is ErrMissingParameter or ErrInvalidParameter.
	Err error
}

func MissingParameter(field string) error {
	return &ParameterError{Field: field, Err: ErrMissingParameter}
}

func InvalidParameter(field string) error {
	return &ParameterError{Field: field, Err: ErrInvalidParameter}
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%v '%s'", e.Err, e.Field)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

// IdentifierError is returned when text cannot be decoded as a content identifier.
type IdentifierError struct {
	Text string
	Err  error
}

func (e *IdentifierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v '%s': %v", ErrMalformedIdentifier, e.Text, e.Err)
	}
	return fmt.Sprintf("%v '%s'", ErrMalformedIdentifier, e.Text)
}

func (e *IdentifierError) Is(target error) bool {
	return target == ErrMalformedIdentifier
}

func (e *IdentifierError) Unwrap() error {
	return e.Err
}

// KindError is returned for upload types outside data, file and meta.
type KindError struct {
	Kind string
}

func UnsupportedKind(kind string) error {
	return &KindError{Kind: kind}
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%v '%s'", ErrUnsupportedKind, e.Kind)
}

func (e *KindError) Is(target error) bool {
	return target == ErrUnsupportedKind
}

// ChecksumError is returned when a CID's hash function cannot be bound as an
// integrity header by the configured store.
type ChecksumError struct {
	Algorithm string
}

func UnsupportedChecksum(algorithm string) error {
	return &ChecksumError{Algorithm: algorithm}
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v '%s'", ErrChecksumUnsupported, e.Algorithm)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumUnsupported
}

// StorageError reports a failed table write. The mutation was aborted.
type StorageError struct {
	Op  string
	Err error
}

func StorageWriteFailed(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%v during %s: %v", ErrStorageWriteFailed, e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageWriteFailed
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PruneError is a soft failure: the new record was written but some
// superseded records could not be deleted.
type PruneError struct {
	Failed []string
	Err    error
}

func PartialPruneFailure(failed []string, err error) error {
	return &PruneError{Failed: failed, Err: err}
}

func (e *PruneError) Error() string {
	return fmt.Sprintf("%v [%s]: %v", ErrPartialPrune, strings.Join(e.Failed, ", "), e.Err)
}

func (e *PruneError) Is(target error) bool {
	return target == ErrPartialPrune
}

func (e *PruneError) Unwrap() error {
	return e.Err
}

// IsCallerError reports whether err was caused by request input rather than storage.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrMissingParameter) ||
		errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrMalformedIdentifier) ||
		errors.Is(err, ErrUnsupportedKind) ||
		errors.Is(err, ErrChecksumUnsupported)
}

type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.errors)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
