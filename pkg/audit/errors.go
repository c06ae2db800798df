package audit

import "errors"

var (
	// ErrStorageNotAvailable wraps every failure of the storage backend.
	// Callers usually treat it as a warning rather than failing the operation.
	ErrStorageNotAvailable = errors.New("audit: storage backend is unavailable")
	ErrEventValidation     = errors.New("audit: event validation failed")
	ErrWriterClosed        = errors.New("audit: async writer is closed")
	ErrQueryNotSupported   = errors.New("audit: storage does not support queries")
)
