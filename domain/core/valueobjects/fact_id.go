package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// FactID is a value object representing a unique fact identifier
// Value objects are immutable and have no identity beyond their value
type FactID struct {
	value string
}

// NewFactID creates a new random FactID
func NewFactID() FactID {
	return FactID{value: uuid.New().String()}
}

// NewFactIDFromString creates a FactID from an existing string
func NewFactIDFromString(id string) (FactID, error) {
	if id == "" {
		return FactID{}, errors.New("fact ID cannot be empty")
	}
	if !isValidUUID(id) {
		return FactID{}, errors.New("fact ID must be a valid UUID")
	}
	return FactID{value: id}, nil
}

// String returns the string representation of the FactID
func (id FactID) String() string {
	return id.value
}

// Equals checks if two FactIDs are equal
func (id FactID) Equals(other FactID) bool {
	return id.value == other.value
}

// IsZero checks if the FactID is the zero value
func (id FactID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id FactID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *FactID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("FactID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
