// Package validation implements declarative request validation. Each route
// describes its query parameters or body fields as a Schema (field name to
// rule), and a single generic interpreter produces either a normalized value
// map with defaults applied or a structured failure carrying the exact wire
// body clients depend on:
//
//	{statusCode: 400, error: "Bad Request", message: ..., validation: {source, keys}}
//
// Fields not present in the schema are ignored; schemas are allow-lists for
// validation, not strict rejection of extras.
package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Source identifies which part of the request failed validation
type Source string

const (
	SourceQuery Source = "query"
	SourceBody  Source = "body"
)

// TimeFormat is the wire format for timestamp fields: ISO-8601 with offset
const TimeFormat = time.RFC3339

// Kind is the declared type of a schema field
type Kind int

const (
	String Kind = iota
	Number
	// BoolString accepts only the strings "true" and "false"
	BoolString
	Timestamp
	Object
	// Any accepts any non-null value (presence check only)
	Any
)

// Rule describes the constraints on a single field
type Rule struct {
	Kind     Kind
	Required bool
	// Enum restricts a String field to a configured value set
	Enum []string
	// Min/Max bound a Number field (inclusive)
	Min *float64
	Max *float64
	// Default is applied to absent optional String fields
	Default string
	// MinField names an earlier Timestamp field this one must not precede
	MinField string
	// Fields holds nested rules for an Object field
	Fields Schema
}

// Schema maps field names to their rules
type Schema map[string]Rule

// Float64 returns a pointer to v, for use in Rule bounds
func Float64(v float64) *float64 { return &v }

// Values is a normalized, validated value map. Typed accessors return zero
// values for absent fields.
type Values map[string]any

// String returns the named field as a string
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Float returns the named field as a float64
func (v Values) Float(key string) float64 {
	f, _ := v[key].(float64)
	return f
}

// Int64 returns the named numeric field truncated to int64
func (v Values) Int64(key string) int64 {
	return int64(v.Float(key))
}

// Time returns the named timestamp field
func (v Values) Time(key string) time.Time {
	t, _ := v[key].(time.Time)
	return t
}

// Bool interprets a BoolString field
func (v Values) Bool(key string) bool {
	return v.String(key) == "true"
}

// Object returns a nested object field
func (v Values) Object(key string) Values {
	o, _ := v[key].(Values)
	return o
}

// Error is a structured validation failure. It maps to HTTP 400 and carries
// the offending field names.
type Error struct {
	Source  Source
	Keys    []string
	Message string
}

// NewError builds a validation failure for the given source and keys
func NewError(source Source, message string, keys ...string) *Error {
	if keys == nil {
		keys = []string{}
	}
	return &Error{Source: source, Keys: keys, Message: message}
}

func (e *Error) Error() string { return e.Message }

// ErrorBody is the exact response shape for validation failures
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	ErrorName  string `json:"error"`
	Message    string `json:"message"`
	Validation Detail `json:"validation"`
}

// Detail names the request part and fields that failed
type Detail struct {
	Source string   `json:"source"`
	Keys   []string `json:"keys"`
}

// Body returns the wire representation of the failure
func (e *Error) Body() ErrorBody {
	keys := e.Keys
	if keys == nil {
		keys = []string{}
	}
	return ErrorBody{
		StatusCode: 400,
		ErrorName:  "Bad Request",
		Message:    e.Message,
		Validation: Detail{Source: string(e.Source), Keys: keys},
	}
}

// Query validates URL query parameters against the schema
func Query(schema Schema, q url.Values) (Values, *Error) {
	raw := make(map[string]any, len(q))
	for key := range q {
		raw[key] = q.Get(key)
	}
	return validate(schema, raw, SourceQuery)
}

// Body decodes a JSON request body and validates it against the schema
func Body(schema Schema, data []byte) (Values, *Error) {
	var raw map[string]any
	if len(data) == 0 {
		raw = map[string]any{}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewError(SourceBody, "request body must be a JSON object")
	}
	return validate(schema, raw, SourceBody)
}

type fieldFailure struct {
	key    string
	clause string
}

func validate(schema Schema, raw map[string]any, source Source) (Values, *Error) {
	out := make(Values, len(schema))
	var failures []fieldFailure

	// First pass: per-field checks
	for name, rule := range schema {
		value, present := raw[name]
		if present {
			// empty query parameters count as absent
			if s, ok := value.(string); ok && s == "" && rule.Kind != Any {
				present = false
			}
		}

		if !present || value == nil {
			if rule.Required {
				failures = append(failures, fieldFailure{name, fmt.Sprintf("'%s' is required", name)})
			} else if rule.Default != "" {
				out[name] = rule.Default
			}
			continue
		}

		normalized, fails := checkField(name, rule, value, source)
		if len(fails) > 0 {
			failures = append(failures, fails...)
			continue
		}
		out[name] = normalized
	}

	// Second pass: relative ordering between timestamp fields
	for name, rule := range schema {
		if rule.MinField == "" {
			continue
		}
		this, ok1 := out[name].(time.Time)
		other, ok2 := out[rule.MinField].(time.Time)
		if ok1 && ok2 && this.Before(other) {
			failures = append(failures, fieldFailure{
				name,
				fmt.Sprintf("'%s' must be larger than or equal to '%s'", name, rule.MinField),
			})
		}
	}

	if len(failures) > 0 {
		return nil, failureError(source, failures)
	}
	return out, nil
}

func checkField(name string, rule Rule, value any, source Source) (any, []fieldFailure) {
	fail := func(clause string) []fieldFailure {
		return []fieldFailure{{name, clause}}
	}

	switch rule.Kind {
	case String:
		s, ok := value.(string)
		if !ok {
			return nil, fail(fmt.Sprintf("'%s' must be a string", name))
		}
		if len(rule.Enum) > 0 && !contains(rule.Enum, s) {
			return nil, fail(fmt.Sprintf("'%s' must be one of [%s]", name, strings.Join(rule.Enum, ", ")))
		}
		return s, nil

	case BoolString:
		s, ok := value.(string)
		if !ok || (s != "true" && s != "false") {
			return nil, fail(fmt.Sprintf("'%s' must be one of [true, false]", name))
		}
		return s, nil

	case Number:
		var f float64
		switch n := value.(type) {
		case float64:
			f = n
		case string:
			parsed, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, fail(fmt.Sprintf("'%s' must be a number", name))
			}
			f = parsed
		default:
			return nil, fail(fmt.Sprintf("'%s' must be a number", name))
		}
		if rule.Min != nil && f < *rule.Min {
			return nil, fail(fmt.Sprintf("'%s' must be larger than or equal to %v", name, *rule.Min))
		}
		if rule.Max != nil && f > *rule.Max {
			return nil, fail(fmt.Sprintf("'%s' must be less than or equal to %v", name, *rule.Max))
		}
		return f, nil

	case Timestamp:
		s, ok := value.(string)
		if !ok {
			return nil, fail(fmt.Sprintf("'%s' must be a string in ISO 8601 format with offset", name))
		}
		t, err := time.Parse(TimeFormat, s)
		if err != nil {
			return nil, fail(fmt.Sprintf("'%s' must be a valid ISO 8601 timestamp with offset", name))
		}
		return t, nil

	case Object:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fail(fmt.Sprintf("'%s' must be an object", name))
		}
		nested, verr := validate(rule.Fields, m, source)
		if verr != nil {
			fails := make([]fieldFailure, 0, len(verr.Keys))
			for _, k := range verr.Keys {
				fails = append(fails, fieldFailure{
					key:    name + "." + k,
					clause: fmt.Sprintf("'%s.%s' fails nested validation", name, k),
				})
			}
			return nil, fails
		}
		return nested, nil

	case Any:
		return value, nil
	}

	return nil, fail(fmt.Sprintf("'%s' has an unsupported rule", name))
}

func failureError(source Source, failures []fieldFailure) *Error {
	sort.Slice(failures, func(i, j int) bool { return failures[i].key < failures[j].key })

	keys := make([]string, 0, len(failures))
	clauses := make([]string, 0, len(failures))
	for _, f := range failures {
		keys = append(keys, f.key)
		clauses = append(clauses, fmt.Sprintf("child '%s' fails because [%s]", rootKey(f.key), f.clause))
	}
	return NewError(source, strings.Join(clauses, ". "), keys...)
}

// rootKey reports the top-level field for a possibly dotted key
func rootKey(key string) string {
	if i := strings.IndexByte(key, '.'); i >= 0 {
		return key[:i]
	}
	return key
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
