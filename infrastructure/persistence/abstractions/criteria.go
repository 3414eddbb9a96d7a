// Package abstractions holds store-agnostic query primitives shared by
// read paths that filter client-side instead of pushing predicates to
// the store. The legacy reader depends on these; the index-backed
// reader compiles its predicates into store expressions instead.
package abstractions

import "strings"

// FilterOperator defines the type of comparison
type FilterOperator string

const (
	OpEqual              FilterOperator = "eq"
	OpNotEqual           FilterOperator = "ne"
	OpGreaterThanOrEqual FilterOperator = "gte"
	OpLessThan           FilterOperator = "lt"
	OpContains           FilterOperator = "contains"
)

// Filter represents a single filter condition over a named field
type Filter struct {
	Field    string
	Operator FilterOperator
	Value    interface{}
}

// SortOrder defines the sorting direction
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// QueryCriteria represents store-agnostic query parameters
type QueryCriteria struct {
	Filters []Filter
	Sort    SortOrder
	Limit   int
}

// FieldReader exposes the named fields of a record to filter matching
type FieldReader func(field string) (interface{}, bool)

// Matches evaluates every filter of the criteria against a record.
// Unknown fields fail the match rather than passing silently.
func (c QueryCriteria) Matches(read FieldReader) bool {
	for _, f := range c.Filters {
		value, ok := read(f.Field)
		if !ok || !f.matches(value) {
			return false
		}
	}
	return true
}

func (f Filter) matches(value interface{}) bool {
	switch f.Operator {
	case OpEqual:
		return value == f.Value
	case OpNotEqual:
		return value != f.Value
	case OpGreaterThanOrEqual:
		a, b, ok := asStrings(value, f.Value)
		return ok && a >= b
	case OpLessThan:
		a, b, ok := asStrings(value, f.Value)
		return ok && a < b
	case OpContains:
		a, b, ok := asStrings(value, f.Value)
		return ok && strings.Contains(a, b)
	default:
		return false
	}
}

func asStrings(a, b interface{}) (string, string, bool) {
	as, aok := a.(string)
	bs, bok := b.(string)
	return as, bs, aok && bok
}
