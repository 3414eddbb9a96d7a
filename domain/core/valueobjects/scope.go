package valueobjects

import (
	pkgerrors "engram/pkg/errors"
)

// Scope represents the visibility of a memory
type Scope string

const (
	// ScopePrivate memories are visible only to their owner
	ScopePrivate Scope = "private"

	// ScopeShared memories belong to the system singleton and are
	// visible to every user
	ScopeShared Scope = "shared"
)

// SystemOwnerID is the reserved owner of all shared memories. Regular
// users cannot claim this id.
const SystemOwnerID = "system"

// ParseScope parses a scope string
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopePrivate, ScopeShared:
		return Scope(s), nil
	default:
		return "", pkgerrors.ErrInvalidScope
	}
}

// String returns the string representation
func (s Scope) String() string {
	return string(s)
}

// IsValid checks if the scope is a known value
func (s Scope) IsValid() bool {
	return s == ScopePrivate || s == ScopeShared
}

// IsShared reports whether the scope is the shared scope
func (s Scope) IsShared() bool {
	return s == ScopeShared
}

// OwnerKey returns the storage owner for a memory written by userID
// under this scope. Shared memories are keyed under the system
// singleton so that every user reads the same partition.
func (s Scope) OwnerKey(userID string) string {
	if s == ScopeShared {
		return SystemOwnerID
	}
	return userID
}
