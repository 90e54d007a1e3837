// Package jsonvalue is a mutable JSON tree whose objects keep insertion order.
//
// Every method is safe to call on a nil *Value; a nil value reports Kind
// Invalid, answers lookups with nil and renders as the empty string.
package jsonvalue

import (
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the JSON type held by a Value.
type Kind int

const (
	Invalid Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

// Value is one node of a JSON tree.
type Value struct {
	kind   Kind
	b      bool
	num    string // raw number text as it appeared in the source
	str    string
	items  []*Value
	fields *orderedmap.OrderedMap[string, *Value]
}

// Field is a key/value pair of an object, in document order.
type Field struct {
	Key   string
	Value *Value
}

func NewNull() *Value { return &Value{kind: Null} }

func NewBool(b bool) *Value { return &Value{kind: Bool, b: b} }

func NewString(s string) *Value { return &Value{kind: String, str: s} }

// NewNumber stores f using the shortest representation that round-trips.
func NewNumber(f float64) *Value {
	return &Value{kind: Number, num: strconv.FormatFloat(f, 'f', -1, 64)}
}

func NewObject() *Value {
	return &Value{kind: Object, fields: orderedmap.New[string, *Value]()}
}

func NewArray(items ...*Value) *Value {
	return &Value{kind: Array, items: items}
}

func (v *Value) Kind() Kind {
	if v == nil {
		return Invalid
	}
	return v.kind
}

func (v *Value) IsValid() bool  { return v.Kind() != Invalid }
func (v *Value) IsNull() bool   { return v.Kind() == Null }
func (v *Value) IsBool() bool   { return v.Kind() == Bool }
func (v *Value) IsNumber() bool { return v.Kind() == Number }
func (v *Value) IsString() bool { return v.Kind() == String }
func (v *Value) IsArray() bool  { return v.Kind() == Array }
func (v *Value) IsObject() bool { return v.Kind() == Object }

// Contains reports whether an object has key.
func (v *Value) Contains(key string) bool {
	if !v.IsObject() {
		return false
	}
	_, ok := v.fields.Get(key)
	return ok
}

// Get returns the member stored under key, or nil.
func (v *Value) Get(key string) *Value {
	if !v.IsObject() {
		return nil
	}
	val, _ := v.fields.Get(key)
	return val
}

// Index returns the i-th array element, or nil when out of range.
func (v *Value) Index(i int) *Value {
	if !v.IsArray() || i < 0 || i >= len(v.items) {
		return nil
	}
	return v.items[i]
}

// Len is the number of object members or array elements.
func (v *Value) Len() int {
	switch v.Kind() {
	case Array:
		return len(v.items)
	case Object:
		return v.fields.Len()
	}
	return 0
}

// Fields returns a snapshot of the object members in insertion order.
func (v *Value) Fields() []Field {
	if !v.IsObject() {
		return nil
	}
	out := make([]Field, 0, v.fields.Len())
	for pair := v.fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Field{Key: pair.Key, Value: pair.Value})
	}
	return out
}

// Items returns the array elements. The slice must not be modified.
func (v *Value) Items() []*Value {
	if !v.IsArray() {
		return nil
	}
	return v.items
}

// Str returns the content of a string value and "" for anything else.
func (v *Value) Str() string {
	if !v.IsString() {
		return ""
	}
	return v.str
}

// Text returns string content unquoted and any other kind as compact JSON.
func (v *Value) Text() string {
	if v.IsString() {
		return v.str
	}
	return v.String()
}

func (v *Value) Bool() bool {
	return v.IsBool() && v.b
}

// Float returns the numeric value, or 0 for non-numbers.
func (v *Value) Float() float64 {
	if !v.IsNumber() {
		return 0
	}
	f, err := strconv.ParseFloat(v.num, 64)
	if err != nil {
		return 0
	}
	return f
}

// Int truncates Float.
func (v *Value) Int() int {
	return int(v.Float())
}

// Put inserts key or replaces its value in place, keeping the member position.
func (v *Value) Put(key string, val *Value) {
	if !v.IsObject() || val == nil {
		return
	}
	v.fields.Set(key, val)
}

// Replace sets key only when it already exists.
func (v *Value) Replace(key string, val *Value) bool {
	if !v.Contains(key) || val == nil {
		return false
	}
	v.fields.Set(key, val)
	return true
}

// Delete removes key from an object.
func (v *Value) Delete(key string) {
	if !v.IsObject() {
		return
	}
	v.fields.Delete(key)
}

// Append adds an element to an array.
func (v *Value) Append(val *Value) {
	if !v.IsArray() || val == nil {
		return
	}
	v.items = append(v.items, val)
}

// SetIndex replaces the i-th array element.
func (v *Value) SetIndex(i int, val *Value) bool {
	if !v.IsArray() || i < 0 || i >= len(v.items) || val == nil {
		return false
	}
	v.items[i] = val
	return true
}

// Clone returns a deep copy.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{kind: v.kind, b: v.b, num: v.num, str: v.str}
	switch v.kind {
	case Array:
		out.items = make([]*Value, len(v.items))
		for i, item := range v.items {
			out.items[i] = item.Clone()
		}
	case Object:
		out.fields = orderedmap.New[string, *Value](orderedmap.WithCapacity[string, *Value](v.fields.Len()))
		for pair := v.fields.Oldest(); pair != nil; pair = pair.Next() {
			out.fields.Set(pair.Key, pair.Value.Clone())
		}
	}
	return out
}
