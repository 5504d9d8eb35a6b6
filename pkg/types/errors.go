package types

import "errors"

// Error categories shared across components. Components wrap these with
// fmt.Errorf("%w: ...") so callers can classify failures with errors.Is.
var (
	// ErrConfiguration is fatal at startup (missing docs dir, invalid settings).
	ErrConfiguration = errors.New("configuration error")

	// ErrFileAccess covers unreadable, vanished or unhashable files.
	ErrFileAccess = errors.New("file access error")

	// ErrDecode means no text decoding strategy accepted the file bytes.
	ErrDecode = errors.New("decode error")

	// ErrEmbeddingService is returned once embedding retries are exhausted.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrStorage covers vector store and metadata store failures.
	ErrStorage = errors.New("storage error")

	// ErrValidation rejects malformed requests before any collaborator call.
	ErrValidation = errors.New("validation error")
)

// Data validation errors
var (
	ErrEmptyPath    = errors.New("path cannot be empty")
	ErrEmptyHash    = errors.New("hash cannot be empty")
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrNegativeIdx  = errors.New("chunk index must be >= 0")
)
