// Package fields describes the inputs an action accepts and how each is
// populated from an inbound event.
package fields

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joshu-sajeev/destinations/common"
)

var formats = validator.New()

// formatTags maps a field format to the validator tag enforcing it.
var formatTags = map[string]string{
	FormatURI:   "url",
	FormatEmail: "email",
}

type Type string

const (
	TypeString   Type = "string"
	TypeNumber   Type = "number"
	TypeInteger  Type = "integer"
	TypeBoolean  Type = "boolean"
	TypeObject   Type = "object"
	TypeDatetime Type = "datetime"
)

// Formats understood by Validate; anything else is descriptive only.
const (
	FormatDateTime = "date-time"
	FormatURI      = "uri"
	FormatEmail    = "email"
)

type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Condition makes a field visible only when another payload field compares
// to Value with Operator ("is" or "is_not").
type Condition struct {
	FieldKey string   `json:"fieldKey"`
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

// Met reports whether the condition holds for payload.
func (c *Condition) Met(payload map[string]any) bool {
	if c == nil {
		return true
	}
	v, _ := payload[c.FieldKey].(string)
	in := slices.Contains(c.Values, v)
	if c.Operator == "is_not" {
		return !in
	}
	return in
}

type Field struct {
	Key         string     `json:"key"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Type        Type       `json:"type"`
	Format      string     `json:"format,omitempty"`
	Required    bool       `json:"required,omitempty"`
	AllowNull   bool       `json:"allowNull,omitempty"`
	Choices     []Choice   `json:"choices,omitempty"`
	Default     Directive  `json:"default,omitempty"`
	DependsOn   *Condition `json:"depends_on,omitempty"`
}

// Schema is the ordered field table of an action.
type Schema []Field

// Field returns the field declared under key.
func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Resolve builds a payload from event using each field's default directive,
// or the directive in overrides when one is given for that key. Fields whose
// DependsOn condition is not met by the resolved payload are dropped.
func (s Schema) Resolve(event map[string]any, overrides map[string]Directive) map[string]any {
	payload := make(map[string]any, len(s))
	for _, f := range s {
		d := f.Default
		if o, ok := overrides[f.Key]; ok {
			d = o
		}
		if d == nil {
			continue
		}
		if v, ok := d.Resolve(event); ok {
			payload[f.Key] = v
		}
	}

	for _, f := range s {
		if !f.DependsOn.Met(payload) {
			delete(payload, f.Key)
		}
	}
	return payload
}

// Validate checks payload against the schema and reports every failing key.
func (s Schema) Validate(payload map[string]any) error {
	failures := map[string]any{}
	for _, f := range s {
		v, present := payload[f.Key]
		switch {
		case !present || isEmptyString(v):
			if f.Required {
				failures[f.Key] = "failed required"
			}
		case v == nil:
			if !f.AllowNull {
				failures[f.Key] = "failed null"
			}
		default:
			if msg := f.check(v); msg != "" {
				failures[f.Key] = msg
			}
		}
	}

	if len(failures) > 0 {
		return common.APIError{
			Status:  http.StatusBadRequest,
			Code:    common.CodeInvalidInput,
			Message: "payload validation failed",
			Fields:  failures,
		}
	}
	return nil
}

func (f Field) check(v any) string {
	switch f.Type {
	case TypeString, TypeDatetime:
		s, ok := v.(string)
		if !ok {
			return "failed type " + string(f.Type)
		}
		if (f.Type == TypeDatetime || f.Format == FormatDateTime) && !isDateTime(s) {
			return "failed format " + FormatDateTime
		}
		if tag, ok := formatTags[f.Format]; ok && formats.Var(s, tag) != nil {
			return "failed format " + f.Format
		}
		if len(f.Choices) > 0 && !slices.ContainsFunc(f.Choices, func(c Choice) bool { return c.Value == s }) {
			return "failed oneof"
		}
	case TypeNumber:
		if !isNumber(v) {
			return "failed type number"
		}
	case TypeInteger:
		if !isInteger(v) {
			return "failed type integer"
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return "failed type boolean"
		}
	case TypeObject:
		if _, ok := v.(map[string]any); !ok {
			return "failed type object"
		}
	}
	return ""
}

func isEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s == ""
}

func isDateTime(s string) bool {
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, json.Number:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int64, int32:
		return true
	case float64:
		return n == float64(int64(n))
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return false
}

func marshalDirective(v any) ([]byte, error) {
	if v == nil || (reflect.ValueOf(v).Kind() == reflect.Map && reflect.ValueOf(v).IsNil()) {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal directive: %w", err)
	}
	return raw, nil
}
