package launch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a JSON value. The zero Value is null.
//
// Numbers keep their literal text, so 1.50 is written back as 1.50.
type Value struct {
	kind Kind
	b    bool
	s    string
	arr  []Value
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number returns a number value from its literal text.
func Number(n json.Number) Value { return Value{kind: KindNumber, s: string(n)} }

// Int returns a number value holding i.
func Int(i int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)} }

// Array returns an array value holding vs.
func Array(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindArray, arr: vs}
}

// Strings returns an array value of strings.
func Strings(ss ...string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return Array(vs...)
}

// ObjectValue returns an object value wrapping o.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsNumber returns the number literal held by v.
func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.s), true
}

// AsArray returns the elements held by v. The slice is shared.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsObject returns the object held by v. The object is shared.
func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// AsStrings returns the elements of an array of strings.
func (v Value) AsStrings() ([]string, bool) {
	arr, ok := v.AsArray()
	if !ok {
		return nil, false
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.AsString()
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindObject:
		return Value{kind: KindObject, obj: v.obj.Clone()}
	default:
		return v
	}
}

// Equal reports whether v and w are structurally identical, including object
// key order and number literal text.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == w.b
	case KindNumber, KindString:
		return v.s == w.s
	case KindArray:
		if len(v.arr) != len(w.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(w.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.Equal(w.obj)
	}
	return false
}

// Interface converts v to the generic encoding/json representation
// (map[string]any loses key order).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for _, k := range v.obj.keys {
			out[k] = v.obj.vals[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler, compactly.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	e := encoder{buf: &buf, compact: true}
	e.value(v, 0)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	d := valueDecoder{dec: dec}
	val, err := d.value()
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// Object is a JSON object that remembers key insertion order.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Len returns the number of keys. A nil object is empty.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key, reporting whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, ok := o.vals[key]; !ok {
		return false
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for each key in order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Clone returns a deep copy of o. Cloning nil yields an empty object.
func (o *Object) Clone() *Object {
	c := NewObject()
	if o == nil {
		return c
	}
	c.keys = append(make([]string, 0, len(o.keys)), o.keys...)
	for k, v := range o.vals {
		c.vals[k] = v.Clone()
	}
	return c
}

// Equal reports whether o and p hold the same keys, in the same order, with
// equal values. A nil object equals an empty one.
func (o *Object) Equal(p *Object) bool {
	if o.Len() != p.Len() {
		return false
	}
	for i := 0; i < o.Len(); i++ {
		k := o.keys[i]
		if p.keys[i] != k || !o.vals[k].Equal(p.vals[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler, compactly.
func (o *Object) MarshalJSON() ([]byte, error) {
	return ObjectValue(o).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
func (o *Object) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	obj, ok := v.AsObject()
	if !ok {
		return fmt.Errorf("expected object, got %s", v.Kind())
	}
	*o = *obj
	return nil
}
