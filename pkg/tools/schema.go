package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
)

// Type is a JSON Schema primitive type.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
)

// Param declares one tool argument.
type Param struct {
	Name        string
	Type        Type
	Description string
	Required    bool
	Enum        []string
	Minimum     *int
	Maximum     *int
	Default     any
}

// Schema is the ordered argument list of a tool.
type Schema []Param

// JSONSchema renders the schema as a JSON Schema object.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s))
	required := []string{}
	for _, p := range s {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// Values are arguments after validation: strings, ints and bools only, with
// defaults applied.
type Values map[string]any

// Has reports whether name was supplied or defaulted.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// String returns a string argument, "" when absent.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Int returns an integer argument, 0 when absent.
func (v Values) Int(name string) int {
	n, _ := v[name].(int)
	return n
}

// Bool returns a boolean argument, false when absent.
func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// Bind checks args against the schema. Unknown keys, wrong types, bad enum
// values and out-of-range integers are InvalidArgument; absent required
// arguments are MissingArgument. A JSON null counts as absent.
func (s Schema) Bind(args Args) (Values, error) {
	known := make(map[string]bool, len(s))
	for _, p := range s {
		known[p.Name] = true
	}
	var unknown []string
	for k := range args {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown argument %s: %w", strings.Join(unknown, ", "), grerrors.ErrInvalidArgument)
	}

	out := make(Values, len(s))
	for _, p := range s {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				return nil, fmt.Errorf("%s is required: %w", p.Name, grerrors.ErrMissingArgument)
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}

		v, err := p.coerce(raw)
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}

func (p Param) coerce(raw any) (any, error) {
	switch p.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, p.typeError(raw)
		}
		s = strings.TrimSpace(s)
		if s == "" && p.Required {
			return nil, fmt.Errorf("%s is required: %w", p.Name, grerrors.ErrMissingArgument)
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return nil, fmt.Errorf("%s must be one of %s, got %q: %w",
				p.Name, strings.Join(p.Enum, ", "), s, grerrors.ErrInvalidArgument)
		}
		return s, nil

	case TypeInteger:
		n, ok := toInt(raw)
		if !ok {
			return nil, p.typeError(raw)
		}
		if p.Minimum != nil && n < *p.Minimum {
			return nil, fmt.Errorf("%s must be >= %d, got %d: %w", p.Name, *p.Minimum, n, grerrors.ErrInvalidArgument)
		}
		if p.Maximum != nil && n > *p.Maximum {
			return nil, fmt.Errorf("%s must be <= %d, got %d: %w", p.Name, *p.Maximum, n, grerrors.ErrInvalidArgument)
		}
		return n, nil

	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, p.typeError(raw)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%s: unsupported schema type %q", p.Name, p.Type)
}

func (p Param) typeError(raw any) error {
	return fmt.Errorf("%s must be %s, got %s: %w", p.Name, p.Type, jsonType(raw), grerrors.ErrInvalidArgument)
}

// toInt accepts integral numbers in any of the forms JSON decoding or a Go
// caller may produce.
func toInt(raw any) (int, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func jsonType(raw any) string {
	switch raw.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", raw)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func intPtr(n int) *int {
	return &n
}
