package lingocache

import (
	"errors"
	"fmt"
)

// InvalidArgumentError reports a key segment or operation argument that is
// empty or whitespace-only.
type InvalidArgumentError struct {
	Param string // name of the offending parameter
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s must not be empty", e.Param)
}

// CancelledError indicates the caller's context was already done when the
// operation started. No tier was touched.
type CancelledError struct {
	Op    string // operation that was about to run, e.g. "get project"
	Cause error  // the context's error
}

func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s cancelled: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s cancelled", e.Op)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// StorageUnavailableError indicates a durable tier that cannot be used at
// all: an unreachable server, an undialable URL, or a backing directory
// that cannot be created.
type StorageUnavailableError struct {
	Backend string // "file" or "redis"
	Cause   error
}

func (e *StorageUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s storage unavailable: %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("%s storage unavailable", e.Backend)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Cause
}

// QuotaExceededError indicates the durable tier refused a write for lack of
// space. Callers may react by clearing the cache or shrinking payloads.
type QuotaExceededError struct {
	Project string
	Lang    string
	Cause   error
}

func (e *QuotaExceededError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage quota exceeded caching %s/%s: %v", e.Project, e.Lang, e.Cause)
	}
	return fmt.Sprintf("storage quota exceeded caching %s/%s", e.Project, e.Lang)
}

func (e *QuotaExceededError) Unwrap() error {
	return e.Cause
}

// IOError indicates a read or write against the durable tier failed in
// transit: filesystem errors, connection drops, serialization failures.
type IOError struct {
	Dir     string // cache directory involved, when known
	Project string
	Lang    string
	Cause   error
}

func (e *IOError) Error() string {
	msg := "cache i/o failure"
	if e.Project != "" {
		msg = fmt.Sprintf("%s for %s/%s", msg, e.Project, e.Lang)
	}
	if e.Dir != "" {
		msg = fmt.Sprintf("%s in %s", msg, e.Dir)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *IOError) Unwrap() error {
	return e.Cause
}

// CorruptedEntryError indicates a stored payload that exists but cannot be
// decoded. The entry's metadata claimed it was valid, so this is an
// integrity failure rather than a miss.
type CorruptedEntryError struct {
	Path    string // file path or storage key of the bad payload
	Project string
	Lang    string
	Cause   error
}

func (e *CorruptedEntryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corrupted cache entry %s for %s/%s: %v", e.Path, e.Project, e.Lang, e.Cause)
	}
	return fmt.Sprintf("corrupted cache entry %s for %s/%s", e.Path, e.Project, e.Lang)
}

func (e *CorruptedEntryError) Unwrap() error {
	return e.Cause
}

// IsCancelled reports whether err is a CancelledError anywhere in its chain.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}

// IsQuotaExceeded reports whether err is a QuotaExceededError anywhere in
// its chain.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsStorageUnavailable reports whether err is a StorageUnavailableError
// anywhere in its chain.
func IsStorageUnavailable(err error) bool {
	var se *StorageUnavailableError
	return errors.As(err, &se)
}
