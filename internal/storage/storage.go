// Package storage defines the Storage interface, a read-only contract
// over user profiles that any database backend must satisfy.
//
// Services depend only on this interface, so the Mongo and SQLite
// backends are interchangeable and tests can pass in-memory fakes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/aanand-mishra/alumni-match-api/internal/types"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("storage: user not found")

	// ErrInvalidID is returned when an id is not a 24-character hex ObjectID.
	ErrInvalidID = errors.New("storage: invalid user id")
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidateID reports ErrInvalidID unless id looks like a Mongo ObjectID.
// Every backend uses the same id format so records can move between them.
func ValidateID(id string) error {
	if !objectIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Storage is the profile store contract.
type Storage interface {
	// StudentsWithResume returns every student whose profile.resume field
	// exists and is not null. Returns an empty slice (not nil) when none match.
	StudentsWithResume(ctx context.Context) ([]types.User, error)

	// StudentWithResume is StudentsWithResume narrowed to a single id.
	StudentWithResume(ctx context.Context, id string) (types.User, error)

	// Student returns the student with the given id, résumé or not.
	Student(ctx context.Context, id string) (types.User, error)

	// ApprovedAlumni returns every alumnus whose approvalStatus is "approved".
	ApprovedAlumni(ctx context.Context) ([]types.User, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases connections held by the backend.
	Close() error
}
