// Package store holds what the persistence backends share.
package store

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrCodeConflict reports an insert that lost the race for a short code.
	ErrCodeConflict = errors.New("short code already exists")
	ErrEmailTaken   = errors.New("email already registered")
)

// Page converts a page of results into the LIMIT/OFFSET pair used by the backends.
func Page(page, pageSize int) (limit, offset int) {
	return pageSize, (page - 1) * pageSize
}
