package dsl

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Dim is one tensor dimension. Unknown marks an unresolved (None) dimension.
type Dim int

// Unknown is the value of an unresolved dimension.
const Unknown Dim = -1

// IsKnown reports whether d is a resolved size.
func (d Dim) IsKnown() bool { return d >= 0 }

func (d Dim) String() string {
	if !d.IsKnown() {
		return "None"
	}
	return strconv.Itoa(int(d))
}

// Shape is an ordered sequence of dimensions. A nil Shape means the shape is
// not known at all (for example when a network declares no input).
type Shape []Dim

// String formats s the way it is written in source: "(26, 26, 32)", with a
// trailing comma for single dimensions as in "(10,)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s) }

// Last returns the final dimension, or Unknown for an empty shape.
func (s Shape) Last() Dim {
	if len(s) == 0 {
		return Unknown
	}
	return s[len(s)-1]
}

// Clone returns an independent copy of s, preserving nil.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Known reports whether every dimension is resolved.
func (s Shape) Known() bool {
	for _, d := range s {
		if !d.IsKnown() {
			return false
		}
	}
	return true
}

// Product multiplies all dimensions. ok is false when any is unknown or the
// product does not fit in an int64; use Known to tell the two apart.
func (s Shape) Product() (n int64, ok bool) {
	n = 1
	for _, d := range s {
		if !d.IsKnown() {
			return 0, false
		}
		if d != 0 && n > math.MaxInt64/int64(d) {
			return 0, false
		}
		n *= int64(d)
	}
	return n, true
}

// MarshalJSON encodes unknown dimensions as null.
func (s Shape) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	out := make([]*int, len(s))
	for i, d := range s {
		if d.IsKnown() {
			v := int(d)
			out[i] = &v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var raw []*int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Shape, len(raw))
	for i, v := range raw {
		out[i] = Unknown
		if v != nil {
			out[i] = Dim(*v)
		}
	}
	*s = out
	return nil
}
