// Package types implements TypedValue and DataType: the value+type pairs
// that flow through every statement of an ARO program, with auto-inference
// from concrete Go values the way the teacher's tunascript.Value infers
// Str/Num/Bool from a scanned lexeme.
package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind is the tag half of a DataType.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindList
	KindMap
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// DataType is the full type of a TypedValue: a Kind plus, for composite
// kinds, the element/key/value types or schema name.
type DataType struct {
	Kind Kind

	// Element is the element type for KindList.
	Element *DataType

	// MapKey and MapValue are the key/value types for KindMap.
	MapKey   *DataType
	MapValue *DataType

	// SchemaName names the schema for KindSchema (e.g. "DateValue",
	// "DateRange", "Contract").
	SchemaName string
}

func Unknown() DataType { return DataType{Kind: KindUnknown} }
func String() DataType  { return DataType{Kind: KindString} }
func Integer() DataType { return DataType{Kind: KindInteger} }
func Float() DataType   { return DataType{Kind: KindFloat} }
func Boolean() DataType { return DataType{Kind: KindBoolean} }
func List(elem DataType) DataType {
	e := elem
	return DataType{Kind: KindList, Element: &e}
}
func Map(key, val DataType) DataType {
	k, v := key, val
	return DataType{Kind: KindMap, MapKey: &k, MapValue: &v}
}
func SchemaType(name string) DataType { return DataType{Kind: KindSchema, SchemaName: name} }

// String renders the type for diagnostics, e.g. "list(integer)".
func (t DataType) String() string {
	switch t.Kind {
	case KindList:
		if t.Element != nil {
			return fmt.Sprintf("list(%s)", t.Element)
		}
		return "list"
	case KindMap:
		if t.MapKey != nil && t.MapValue != nil {
			return fmt.Sprintf("map(%s,%s)", t.MapKey, t.MapValue)
		}
		return "map"
	case KindSchema:
		return fmt.Sprintf("schema(%s)", t.SchemaName)
	default:
		return t.Kind.String()
	}
}

// Equal reports whether two data types describe the same shape.
func (t DataType) Equal(o DataType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindList:
		if t.Element == nil || o.Element == nil {
			return t.Element == o.Element
		}
		return t.Element.Equal(*o.Element)
	case KindMap:
		if (t.MapKey == nil) != (o.MapKey == nil) || (t.MapValue == nil) != (o.MapValue == nil) {
			return false
		}
		if t.MapKey != nil && !t.MapKey.Equal(*o.MapKey) {
			return false
		}
		if t.MapValue != nil && !t.MapValue.Equal(*o.MapValue) {
			return false
		}
		return true
	case KindSchema:
		return t.SchemaName == o.SchemaName
	default:
		return true
	}
}

// Value is a (value, type) pair. The underlying Go representation per Kind
// is: string, int64, float64, bool, []Value, map[string]Value, or a schema
// object implementing Schema (for KindSchema).
type Value struct {
	Raw  any
	Type DataType
}

// Schema is implemented by magic objects (Contract, DateValue, DateRange,
// Recurrence, DateDistance, HTTPServerConfig, ...) that expose named
// properties to member-access expressions.
type Schema interface {
	SchemaName() string
	Property(name string) (Value, bool)
}

// New infers a DataType from a raw Go value and wraps it. Values that are
// already a Value are returned unchanged (schema survival across
// bindings, per spec.md §3).
func New(raw any) Value {
	if v, ok := raw.(Value); ok {
		return v
	}
	switch v := raw.(type) {
	case nil:
		return Value{Raw: nil, Type: Unknown()}
	case Value:
		return v
	case string:
		return Value{Raw: v, Type: String()}
	case bool:
		return Value{Raw: v, Type: Boolean()}
	case int:
		return Value{Raw: int64(v), Type: Integer()}
	case int64:
		return Value{Raw: v, Type: Integer()}
	case float64:
		if v == float64(int64(v)) {
			// whole-valued floats still type as float; only arithmetic
			// promotion rules (see eval package) decide int-preservation.
		}
		return Value{Raw: v, Type: Float()}
	case []Value:
		elem := Unknown()
		if len(v) > 0 {
			elem = v[0].Type
		}
		return Value{Raw: v, Type: List(elem)}
	case map[string]Value:
		return Value{Raw: v, Type: Map(String(), Unknown())}
	case Schema:
		return Value{Raw: v, Type: SchemaType(v.SchemaName())}
	default:
		return Value{Raw: fmt.Sprintf("%v", v), Type: String()}
	}
}

func Str(s string) Value  { return Value{Raw: s, Type: String()} }
func Int(n int64) Value   { return Value{Raw: n, Type: Integer()} }
func Flt(f float64) Value { return Value{Raw: f, Type: Float()} }
func Bool(b bool) Value   { return Value{Raw: b, Type: Boolean()} }
func Arr(vs ...Value) Value {
	elem := Unknown()
	if len(vs) > 0 {
		elem = vs[0].Type
	}
	return Value{Raw: vs, Type: List(elem)}
}
func Obj(m map[string]Value) Value {
	return Value{Raw: m, Type: Map(String(), Unknown())}
}

// AsString renders v as a display string regardless of its Kind.
func (v Value) AsString() string {
	switch v.Type.Kind {
	case KindString:
		s, _ := v.Raw.(string)
		return s
	case KindInteger:
		n, _ := v.Raw.(int64)
		return strconv.FormatInt(n, 10)
	case KindFloat:
		f, _ := v.Raw.(float64)
		return strconv.FormatFloat(f, 'g', -1, 64)
	case KindBoolean:
		b, _ := v.Raw.(bool)
		return strconv.FormatBool(b)
	case KindList:
		items, _ := v.Raw.([]Value)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.AsString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		m, _ := v.Raw.(map[string]Value)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, m[k].AsString())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindSchema:
		if s, ok := v.Raw.(Schema); ok {
			return fmt.Sprintf("<%s>", s.SchemaName())
		}
		return "<schema>"
	default:
		return ""
	}
}

// AsBool coerces v to a boolean the way string/num truthiness is defined
// for the language: empty string and zero are false, everything else
// (including non-empty maps/lists) is true.
func (v Value) AsBool() bool {
	switch v.Type.Kind {
	case KindBoolean:
		b, _ := v.Raw.(bool)
		return b
	case KindInteger:
		n, _ := v.Raw.(int64)
		return n != 0
	case KindFloat:
		f, _ := v.Raw.(float64)
		return f != 0
	case KindString:
		s, _ := v.Raw.(string)
		return s != ""
	case KindList:
		items, _ := v.Raw.([]Value)
		return len(items) > 0
	case KindMap:
		m, _ := v.Raw.(map[string]Value)
		return len(m) > 0
	default:
		return false
	}
}

// Equal reports whether two values are equal under the language's
// equality rules: types must match exactly (an int and an equal-valued
// float are NOT equal, resolving the "mixed-type scalar dedup" Open
// Question from spec.md §9 in favor of exact-type matching), composite
// values compare element-wise.
func (v Value) Equal(o Value) bool {
	if !v.Type.Equal(o.Type) {
		return false
	}
	return equalKey(v) == equalKey(o)
}

// equalKey returns a canonical string usable as an equality/dedup key.
// AsString is already the canonical rendering of a value, so the key is
// just that string tagged with its Kind to keep values of different
// kinds (e.g. integer 1 vs. the string "1") from colliding.
func equalKey(v Value) string {
	return strconv.Itoa(int(v.Type.Kind)) + ":" + v.AsString()
}
