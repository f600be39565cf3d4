package execution

import (
	"fmt"
	"reflect"
	"strings"
)

// attrTag is the struct tag naming a field's handle. A node body declares
// its typed attributes as ordinary exported Go struct fields; this file
// is the runtime stand-in for the per-node-class field table that a code
// generator would otherwise emit from a JSON schema (see design notes):
// one reflection-based implementation instead of hand-written
// get/set/list/serialize boilerplate repeated per node class.
const attrTag = "node"

// Overflow is implemented by node bodies that accept attributes beyond
// their declared fields (arbitrary JSON-sourced configuration). When
// absent, SetAttribute on an unknown name fails.
type Overflow interface {
	OverflowMap() map[string]interface{}
}

func handleName(field reflect.StructField) (string, bool) {
	if field.PkgPath != "" {
		return "", false // unexported, not part of the public attribute table
	}
	if tag, ok := field.Tag.Lookup(attrTag); ok {
		if tag == "-" {
			return "", false
		}
		return tag, true
	}
	return lowerFirst(field.Name), true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func structValue(body interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(body)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("node body must be a non-nil pointer to a struct, got %T", body)
	}
	elem := v.Elem()
	if elem.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("node body must point to a struct, got %T", body)
	}
	return elem, nil
}

// AttributeNames lists every declared public handle on a node body, in
// struct declaration order (used by FLOW_IN binding and by to-dict
// serialization, where deterministic order matters for journal replay).
func AttributeNames(body interface{}) []string {
	elem, err := structValue(body)
	if err != nil {
		return nil
	}
	t := elem.Type()
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name, ok := handleName(t.Field(i)); ok {
			names = append(names, name)
		}
	}
	return names
}

// GetAttribute reads a single declared attribute (or overflow entry) by
// handle name.
func GetAttribute(body interface{}, name string) (interface{}, bool) {
	elem, err := structValue(body)
	if err != nil {
		return nil, false
	}
	t := elem.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldName, ok := handleName(t.Field(i))
		if !ok || fieldName != name {
			continue
		}
		return elem.Field(i).Interface(), true
	}
	if ov, ok := body.(Overflow); ok {
		if v, found := ov.OverflowMap()[name]; found {
			return v, true
		}
	}
	return nil, false
}

// IsDeclaredAttribute reports whether name is a declared field (or the
// body accepts overflow attributes) without requiring the attribute to
// already hold a value — used to tell a pure control-flow handle (which a
// node body need not declare) apart from a genuinely misnamed data
// binding.
func IsDeclaredAttribute(body interface{}, name string) bool {
	elem, err := structValue(body)
	if err != nil {
		return false
	}
	t := elem.Type()
	for i := 0; i < t.NumField(); i++ {
		if fieldName, ok := handleName(t.Field(i)); ok && fieldName == name {
			return true
		}
	}
	_, isOverflow := body.(Overflow)
	return isOverflow
}

// SetAttribute writes a single declared attribute (or overflow entry) by
// handle name. Returns an error if the name isn't declared and the body
// doesn't accept overflow attributes, or if the value isn't assignable to
// a declared field's type.
func SetAttribute(body interface{}, name string, value interface{}) error {
	elem, err := structValue(body)
	if err != nil {
		return err
	}
	t := elem.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldName, ok := handleName(t.Field(i))
		if !ok || fieldName != name {
			continue
		}
		field := elem.Field(i)
		return assign(field, value)
	}
	if ov, ok := body.(Overflow); ok {
		ov.OverflowMap()[name] = value
		return nil
	}
	return fmt.Errorf("attribute %q is not declared on %T", name, body)
}

func assign(field reflect.Value, value interface{}) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to field of type %s", value, field.Type())
}

// ToDict serializes every declared public attribute of a node body into a
// plain map, applying the same JSON-serialization fallback rules the
// result recorder and placeholder engine both rely on (see
// MakeJSONSerializable).
func ToDict(body interface{}) map[string]interface{} {
	elem, err := structValue(body)
	if err != nil {
		return map[string]interface{}{}
	}
	t := elem.Type()
	out := make(map[string]interface{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, ok := handleName(t.Field(i))
		if !ok {
			continue
		}
		out[name] = MakeJSONSerializable(elem.Field(i).Interface())
	}
	if ov, ok := body.(Overflow); ok {
		for k, v := range ov.OverflowMap() {
			out[k] = MakeJSONSerializable(v)
		}
	}
	return out
}
