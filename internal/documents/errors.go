package documents

import "errors"

var (
	// ErrNotFound means the document ID is unknown to the store.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyAnalyzed means processing is already attached; it is write-once.
	ErrAlreadyAnalyzed = errors.New("document already analyzed")
	// ErrInvalidInput marks caller mistakes detected before any store write.
	ErrInvalidInput = errors.New("invalid input")
)
