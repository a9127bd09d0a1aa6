package model

import (
	"encoding/json"
	"strings"
)

type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (r *PriceRange) empty() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// Contains reports whether price lies in the closed interval. Unset bounds are open.
func (r *PriceRange) Contains(price float64) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && price < *r.Min {
		return false
	}
	if r.Max != nil && price > *r.Max {
		return false
	}
	return true
}

// Filters is one browsing session's active constraints. Zero value means no constraint.
type Filters struct {
	Rating     *float64    `json:"rating,omitempty"`
	ArtType    string      `json:"artType,omitempty"`
	PriceRange *PriceRange `json:"priceRange,omitempty"`
	SearchTerm string      `json:"searchTerm,omitempty"`
}

func (f Filters) Equal(o Filters) bool {
	return floatPtrEqual(f.Rating, o.Rating) &&
		f.ArtType == o.ArtType &&
		f.SearchTerm == o.SearchTerm &&
		priceRangeEqual(f.PriceRange, o.PriceRange)
}

// Apply merges patch into a copy of f.
func (f Filters) Apply(patch FilterPatch) Filters {
	if patch.Rating.Present {
		f.Rating = nil
		if !patch.Rating.Null {
			v := patch.Rating.Value
			f.Rating = &v
		}
	}
	if patch.ArtType.Present {
		f.ArtType = ""
		if !patch.ArtType.Null {
			f.ArtType = patch.ArtType.Value
		}
	}
	if patch.PriceRange.Present {
		f.PriceRange = nil
		if !patch.PriceRange.Null && !patch.PriceRange.Value.empty() {
			r := patch.PriceRange.Value
			f.PriceRange = &PriceRange{Min: copyFloat(r.Min), Max: copyFloat(r.Max)}
		}
	}
	if patch.SearchTerm.Present {
		f.SearchTerm = ""
		if !patch.SearchTerm.Null {
			f.SearchTerm = strings.TrimSpace(patch.SearchTerm.Value)
		}
	}
	return f
}

// Field is one entry of a patch: absent, set to Value, or explicitly cleared.
// A JSON null decodes as cleared; a missing key leaves the field absent.
type Field[T any] struct {
	Present bool
	Null    bool
	Value   T
}

func Set[T any](v T) Field[T] {
	return Field[T]{Present: true, Value: v}
}

func Clear[T any]() Field[T] {
	return Field[T]{Present: true, Null: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Present = true
	if string(data) == "null" {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

type FilterPatch struct {
	Rating     Field[float64]    `json:"rating"`
	ArtType    Field[string]     `json:"artType"`
	PriceRange Field[PriceRange] `json:"priceRange"`
	SearchTerm Field[string]     `json:"searchTerm"`
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func priceRangeEqual(a, b *PriceRange) bool {
	if a.empty() || b.empty() {
		return a.empty() && b.empty()
	}
	return floatPtrEqual(a.Min, b.Min) && floatPtrEqual(a.Max, b.Max)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
