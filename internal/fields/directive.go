package fields

import (
	"fmt"
	"strings"
)

// Directive produces a field value from an inbound event.
type Directive interface {
	Resolve(event map[string]any) (any, bool)
}

// Path reads the value at a JSONPath-like location such as "$.context.page.url".
// Only dotted member access is supported.
func Path(p string) Directive {
	return pathDirective(p)
}

// IfExists resolves then when cond yields a non-nil value, and otherwise.
func IfExists(cond, then, otherwise Directive) Directive {
	return ifDirective{exists: cond, then: then, otherwise: otherwise}
}

// Literal always resolves to v.
func Literal(v any) Directive {
	return literalDirective{value: v}
}

// Object resolves each member directive and drops members that resolve to nothing.
func Object(members map[string]Directive) Directive {
	return objectDirective(members)
}

type pathDirective string

func (p pathDirective) Resolve(event map[string]any) (any, bool) {
	path := strings.TrimPrefix(string(p), "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return event, event != nil
	}

	var cur any = event
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func (p pathDirective) MarshalJSON() ([]byte, error) {
	return marshalDirective(map[string]any{"@path": string(p)})
}

type ifDirective struct {
	exists    Directive
	then      Directive
	otherwise Directive
}

func (d ifDirective) Resolve(event map[string]any) (any, bool) {
	branch := d.otherwise
	if v, ok := d.exists.Resolve(event); ok && v != nil {
		branch = d.then
	}
	if branch == nil {
		return nil, false
	}
	return branch.Resolve(event)
}

func (d ifDirective) MarshalJSON() ([]byte, error) {
	body := map[string]any{"exists": d.exists, "then": d.then}
	if d.otherwise != nil {
		body["else"] = d.otherwise
	}
	return marshalDirective(map[string]any{"@if": body})
}

type literalDirective struct {
	value any
}

func (d literalDirective) Resolve(map[string]any) (any, bool) {
	return d.value, true
}

func (d literalDirective) MarshalJSON() ([]byte, error) {
	return marshalDirective(d.value)
}

type objectDirective map[string]Directive

func (d objectDirective) Resolve(event map[string]any) (any, bool) {
	out := make(map[string]any, len(d))
	for key, member := range d {
		if v, ok := member.Resolve(event); ok {
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func (d objectDirective) MarshalJSON() ([]byte, error) {
	return marshalDirective(map[string]Directive(d))
}

// ParseDirective reads the JSON form of a directive, as decoded into Go values:
//
//	{"@path": "$.properties.email"}
//	{"@if": {"exists": {...}, "then": {...}, "else": {...}}}
//
// Any other object is parsed member by member; scalars become literals.
func ParseDirective(raw any) (Directive, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Literal(raw), nil
	}

	if p, ok := m["@path"]; ok {
		s, ok := p.(string)
		if !ok || !strings.HasPrefix(s, "$") {
			return nil, fmt.Errorf("@path must be a string starting with $, got %v", p)
		}
		return Path(s), nil
	}

	if body, ok := m["@if"]; ok {
		return parseIf(body)
	}

	members := make(map[string]Directive, len(m))
	for key, v := range m {
		if strings.HasPrefix(key, "@") {
			return nil, fmt.Errorf("unsupported directive %q", key)
		}
		d, err := ParseDirective(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		members[key] = d
	}
	return Object(members), nil
}

func parseIf(body any) (Directive, error) {
	m, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("@if must be an object")
	}
	if _, ok := m["exists"]; !ok {
		return nil, fmt.Errorf("@if requires exists")
	}
	if _, ok := m["then"]; !ok {
		return nil, fmt.Errorf("@if requires then")
	}

	cond, err := ParseDirective(m["exists"])
	if err != nil {
		return nil, fmt.Errorf("@if.exists: %w", err)
	}
	then, err := ParseDirective(m["then"])
	if err != nil {
		return nil, fmt.Errorf("@if.then: %w", err)
	}

	var otherwise Directive
	if raw, ok := m["else"]; ok {
		if otherwise, err = ParseDirective(raw); err != nil {
			return nil, fmt.Errorf("@if.else: %w", err)
		}
	}
	return IfExists(cond, then, otherwise), nil
}

// ParseMapping parses a field key -> directive override table.
func ParseMapping(raw map[string]any) (map[string]Directive, error) {
	mapping := make(map[string]Directive, len(raw))
	for key, v := range raw {
		d, err := ParseDirective(v)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", key, err)
		}
		mapping[key] = d
	}
	return mapping, nil
}
