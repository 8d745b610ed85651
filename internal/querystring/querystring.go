// Package querystring builds URL query strings from ordered parameters.
//
// Unlike url.Values, parameters keep the order they were added in, and
// absent values are dropped instead of being sent as empty strings.
package querystring

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

type Param struct {
	Key   string
	Value any
}

// Params is an insertion-ordered list of query parameters.
type Params []Param

// Add appends a parameter and returns the extended list.
func (p Params) Add(key string, value any) Params {
	return append(p, Param{Key: key, Value: value})
}

// Serialize encodes params as key=value pairs joined by '&'. Nil values, and
// nil pointers, are skipped. Pointers are dereferenced before formatting.
func Serialize(params Params) string {
	var b strings.Builder
	for _, p := range params {
		v, ok := format(p.Value)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(Escape(p.Key))
		b.WriteByte('=')
		b.WriteString(Escape(v))
	}
	return b.String()
}

// componentUnescapes restores the characters encodeURIComponent leaves as-is
// but url.QueryEscape percent-encodes.
var componentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Escape percent-encodes s the way encodeURIComponent does: spaces become
// %20 and the unreserved marks !'()* are kept literal.
func Escape(s string) string {
	return componentUnescapes.Replace(url.QueryEscape(s))
}

func format(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case json.Number:
		return t.String(), true
	case fmt.Stringer:
		if rv := reflect.ValueOf(t); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", false
		}
		return t.String(), true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		return format(rv.Elem().Interface())
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return "", false
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(raw), true
	}
	return fmt.Sprint(v), true
}
