package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres duplicate-key error.
// Concurrent signups race at the check-then-insert gap; the unique indexes
// are the backstop and surface through here.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
