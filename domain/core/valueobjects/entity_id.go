package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// EntityID is a value object representing a unique entity identifier
type EntityID struct {
	value string
}

// NewEntityID creates a new random EntityID
func NewEntityID() EntityID {
	return EntityID{value: uuid.New().String()}
}

// NewEntityIDFromString creates an EntityID from an existing string
func NewEntityIDFromString(id string) (EntityID, error) {
	if id == "" {
		return EntityID{}, errors.New("entity ID cannot be empty")
	}
	if !isValidUUID(id) {
		return EntityID{}, errors.New("entity ID must be a valid UUID")
	}
	return EntityID{value: id}, nil
}

// String returns the string representation of the EntityID
func (id EntityID) String() string {
	return id.value
}

// Equals checks if two EntityIDs are equal
func (id EntityID) Equals(other EntityID) bool {
	return id.value == other.value
}

// IsZero checks if the EntityID is the zero value
func (id EntityID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id EntityID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *EntityID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("EntityID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
