package entities

import (
	"time"

	"engram/domain/core/valueobjects"
	pkgerrors "engram/pkg/errors"
)

// User represents an account whose memories the engine manages
type User struct {
	id           string
	createdAt    time.Time
	lastActiveAt time.Time
}

// NewUser creates a new user record
func NewUser(id string) (*User, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("user ID cannot be empty")
	}
	if id == valueobjects.SystemOwnerID {
		return nil, pkgerrors.ErrReservedOwner
	}

	now := time.Now().UTC()
	return &User{
		id:           id,
		createdAt:    now,
		lastActiveAt: now,
	}, nil
}

// ReconstructUser reconstructs a user from repository data
func ReconstructUser(id string, createdAt, lastActiveAt time.Time) (*User, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("user ID cannot be empty")
	}
	return &User{
		id:           id,
		createdAt:    createdAt,
		lastActiveAt: lastActiveAt,
	}, nil
}

// ID returns the user's identifier
func (u *User) ID() string {
	return u.id
}

// CreatedAt returns when the user was first seen
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// LastActiveAt returns the user's most recent write activity
func (u *User) LastActiveAt() time.Time {
	return u.lastActiveAt
}

// Touch records write activity
func (u *User) Touch(at time.Time) {
	u.lastActiveAt = at.UTC()
}
