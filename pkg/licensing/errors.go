package licensing

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound indicates no user record exists for the given id
	ErrUserNotFound = errors.New("user not found")
	// ErrKeyNotFound indicates no license record exists for the given key
	ErrKeyNotFound = errors.New("license key not found")
	// ErrInvalidCount indicates a batch size below 1
	ErrInvalidCount = errors.New("key count must be at least 1")
	// ErrNilStore indicates the manager was constructed without a store
	ErrNilStore = errors.New("document store is required")
)

// StorageError wraps a persistence read/write failure. This is the one
// failure class that propagates as a hard error: there is no safe
// partial state to report and callers cannot proceed without durable
// state. Domain-rule violations are returned as structured results.
type StorageError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("license store %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is (or wraps) a StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
