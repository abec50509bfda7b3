package dsl

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	StringValue ValueKind = iota
	NumberValue
	NullValue
	TupleValue
	BoolValue
	IdentValue
	ListValue
	CallValue
)

var valueKindNames = [...]string{
	StringValue: "string",
	NumberValue: "number",
	NullValue:   "None",
	TupleValue:  "tuple",
	BoolValue:   "boolean",
	IdentValue:  "identifier",
	ListValue:   "list",
	CallValue:   "call",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "value(" + strconv.Itoa(int(k)) + ")"
}

// Value is a literal argument or field value. Which fields are meaningful
// depends on Kind:
//
//	StringValue  Str
//	NumberValue  Num, Text (source spelling), IsInt
//	BoolValue    Bool
//	IdentValue   Str
//	TupleValue   Items
//	ListValue    Items
//	CallValue    Str (callee), Items (positional), Named
type Value struct {
	Kind  ValueKind
	Str   string
	Text  string
	Num   float64
	IsInt bool
	Bool  bool
	Items []Value
	Named []NamedArg
	Pos   Position
}

// NamedArg is a name=value argument.
type NamedArg struct {
	Name  string   `json:"name"`
	Value Value    `json:"value"`
	Pos   Position `json:"pos"`
}

// Int returns the value as an int when it is an integer literal.
func (v Value) Int() (int, bool) {
	if v.Kind != NumberValue || !v.IsInt {
		return 0, false
	}
	if v.Num > math.MaxInt32 || v.Num < math.MinInt32 {
		return 0, false
	}
	return int(v.Num), true
}

// Float returns the value of any numeric literal.
func (v Value) Float() (float64, bool) {
	if v.Kind != NumberValue {
		return 0, false
	}
	return v.Num, true
}

// Name returns the text of a string or identifier value.
func (v Value) Name() (string, bool) {
	switch v.Kind {
	case StringValue, IdentValue:
		return v.Str, true
	}
	return "", false
}

// Truth returns the value of a boolean literal. The strings "true" and
// "false" are accepted as well.
func (v Value) Truth() (bool, bool) {
	switch v.Kind {
	case BoolValue:
		return v.Bool, true
	case StringValue:
		switch strings.ToLower(v.Str) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Ints returns an integer literal as a one-element slice or a tuple of
// integer literals element-wise.
func (v Value) Ints() ([]int, bool) {
	if n, ok := v.Int(); ok {
		return []int{n}, true
	}
	if v.Kind != TupleValue && v.Kind != ListValue {
		return nil, false
	}
	out := make([]int, len(v.Items))
	for i, item := range v.Items {
		n, ok := item.Int()
		if !ok {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// Lookup returns the last named argument of a call value called name.
func (v Value) Lookup(name string) (Value, bool) {
	return lookupNamed(v.Named, name)
}

func lookupNamed(args []NamedArg, name string) (Value, bool) {
	for i := len(args) - 1; i >= 0; i-- {
		if args[i].Name == name {
			return args[i].Value, true
		}
	}
	return Value{}, false
}

// String renders the value as DSL source.
func (v Value) String() string {
	switch v.Kind {
	case StringValue:
		return `"` + v.Str + `"`
	case NumberValue:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case NullValue:
		return "None"
	case BoolValue:
		return strconv.FormatBool(v.Bool)
	case IdentValue:
		return v.Str
	case TupleValue:
		if len(v.Items) == 1 {
			return "(" + v.Items[0].String() + ",)"
		}
		return "(" + joinValues(v.Items) + ")"
	case ListValue:
		return "[" + joinValues(v.Items) + "]"
	case CallValue:
		return v.Str + "(" + formatArgs(v.Items, v.Named) + ")"
	}
	return ""
}

func joinValues(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}

func formatArgs(positional []Value, named []NamedArg) string {
	parts := make([]string, 0, len(positional)+len(named))
	for _, v := range positional {
		parts = append(parts, v.String())
	}
	for _, a := range named {
		parts = append(parts, a.Name+"="+a.Value.String())
	}
	return strings.Join(parts, ", ")
}

// Native converts the value to plain Go data: string, int64, float64, bool,
// nil, []any, or for calls a map with "call", "args" and "kwargs" keys.
func (v Value) Native() any {
	switch v.Kind {
	case StringValue, IdentValue:
		return v.Str
	case NumberValue:
		if v.IsInt {
			return int64(v.Num)
		}
		return v.Num
	case NullValue:
		return nil
	case BoolValue:
		return v.Bool
	case TupleValue, ListValue:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Native()
		}
		return out
	case CallValue:
		call := map[string]any{"call": v.Str}
		if len(v.Items) > 0 {
			args := make([]any, len(v.Items))
			for i, item := range v.Items {
				args[i] = item.Native()
			}
			call["args"] = args
		}
		if len(v.Named) > 0 {
			kwargs := make(map[string]any, len(v.Named))
			for _, a := range v.Named {
				kwargs[a.Name] = a.Value.Native()
			}
			call["kwargs"] = kwargs
		}
		return call
	}
	return nil
}

// MarshalJSON encodes the value's native form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// NativeMap converts a field mapping to plain Go data.
func NativeMap(m map[string]Value) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Native()
	}
	return out
}
