// Package esmodule renders Go values as ECMAScript source text.
//
// The output is JSON for plain data, except that Literal values are spliced in
// verbatim so a generated module can mix data with executable expressions such
// as template strings or bundler placeholders.
package esmodule

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Literal is source text that is emitted without quoting or escaping.
type Literal string

type undefined struct{}

// Undefined serializes to the bare `undefined` token, distinct from nil (`null`).
var Undefined = undefined{}

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is an ordered mapping. Fields are emitted in slice order.
type Object []Field

// Set appends a field, or replaces the value of an existing key in place.
func (o Object) Set(key string, value any) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return o
		}
	}
	return append(o, Field{Key: key, Value: value})
}

// Marshaler is implemented by types that know their ECMAScript shape.
type Marshaler interface {
	MarshalES() any
}

// Marshal converts v into ECMAScript source text.
func Marshal(v any) string {
	var sb strings.Builder
	write(&sb, v)
	return sb.String()
}

func write(sb *strings.Builder, v any) {
	// typed nil pointers would panic in value-receiver MarshalES
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		sb.WriteString("null")
		return
	}

	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
		return
	case Literal:
		sb.WriteString(string(val))
		return
	case undefined:
		sb.WriteString("undefined")
		return
	case Marshaler:
		write(sb, val.MarshalES())
		return
	case Object:
		writeObject(sb, val)
		return
	case []any:
		sb.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			write(sb, elem)
		}
		sb.WriteByte(']')
		return
	case string, bool, int, int64, float64, json.Number:
		writeJSON(sb, val)
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		write(sb, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			sb.WriteString("null")
			return
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte keeps JSON's base64 form
			writeJSON(sb, v)
			return
		}
		sb.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			write(sb, rv.Index(i).Interface())
		}
		sb.WriteByte(']')
	case reflect.Map:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		if rv.Type().Key().Kind() != reflect.String {
			writeJSON(sb, v)
			return
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			obj = append(obj, Field{Key: k, Value: rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()})
		}
		writeObject(sb, obj)
	default:
		writeJSON(sb, v)
	}
}

func writeObject(sb *strings.Builder, obj Object) {
	sb.WriteByte('{')
	for i, f := range obj {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeJSON(sb, f.Key)
		sb.WriteByte(':')
		write(sb, f.Value)
	}
	sb.WriteByte('}')
}

// writeJSON encodes a scalar the way JSON.stringify does: no HTML escaping and
// no trailing newline. Values JSON cannot represent (NaN, channels) become null.
func writeJSON(sb *strings.Builder, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		sb.WriteString("null")
		return
	}
	sb.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Template builds a backtick template literal from already-escaped parts.
// Each part is either raw text or an expression wrapped by Expr.
func Template(parts ...string) Literal {
	return Literal("`" + strings.Join(parts, "") + "`")
}

// Expr wraps an expression for interpolation inside a Template.
func Expr(expr string) string {
	return "${" + expr + "}"
}
