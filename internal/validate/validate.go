// Package validate is the validation gate between raw HTTP input and the
// services. Every operation returns either a fully typed, rule-checked value
// or a *Failure listing every problem found; it never panics and never
// performs side effects, so handlers call it before touching any service.
//
// Usage in a handler:
//
//	body, fail := validate.Body[contracts.CreateItemBody](c)
//	if fail != nil {
//		problem.Abort(c, fail)
//		return
//	}
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/test-stack-api/pkg/contracts"
)

func init() {
	// One validator for binding, the gate and pkg/client.
	binding.Validator = contracts.Validator()
}

// Failure is the rejected outcome of the gate: an ordered, non-empty list of
// field issues.
type Failure struct {
	Issues []contracts.FieldIssue
}

func (f *Failure) Error() string {
	parts := make([]string, 0, len(f.Issues))
	for _, is := range f.Issues {
		if p := is.Path.String(); p != "" {
			parts = append(parts, p+": "+is.Message)
		} else {
			parts = append(parts, is.Message)
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fail(issues ...contracts.FieldIssue) *Failure {
	return &Failure{Issues: issues}
}

// Value checks an already-built contract value.
func Value(v any) *Failure {
	if issues := contracts.Validate(v); len(issues) > 0 {
		return fail(issues...)
	}
	return nil
}

// Body decodes the JSON request body into T and applies its rules.
//
// An empty body is treated as {}. Unknown fields are ignored and never reach
// T. Malformed JSON yields a single issue with an empty path; a type mismatch
// yields an issue at the offending field. Data after the first JSON value
// makes the body malformed.
func Body[T any](c *gin.Context) (T, *Failure) {
	var v T

	raw, err := c.GetRawData()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return v, fail(contracts.FieldIssue{Path: contracts.Path{}, Message: "request body too large"})
		}
		return v, fail(contracts.FieldIssue{Path: contracts.Path{}, Message: "unable to read request body"})
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	// the decoder stops after the first value; anything trailing is malformed
	if !json.Valid(raw) {
		return v, fail(malformedIssue())
	}

	if err := binding.JSON.BindBody(raw, &v); err != nil {
		return v, fail(decodeIssues(err)...)
	}
	return v, nil
}

func decodeIssues(err error) []contracts.FieldIssue {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		p := contracts.Path{}
		if te.Field != "" {
			for _, seg := range strings.Split(te.Field, ".") {
				if n, convErr := strconv.Atoi(seg); convErr == nil {
					p = append(p, n)
				} else {
					p = append(p, seg)
				}
			}
		}
		return []contracts.FieldIssue{{
			Path:    p,
			Message: fmt.Sprintf("Expected %s, received %s", jsonKind(te.Type), te.Value),
		}}
	}

	var se *json.SyntaxError
	if errors.As(err, &se) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []contracts.FieldIssue{malformedIssue()}
	}

	return contracts.Issues(err)
}

func malformedIssue() contracts.FieldIssue {
	return contracts.FieldIssue{Path: contracts.Path{}, Message: "Malformed JSON request body"}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// Query coerces the query string into T using its `form` tags and applies
// its rules.
//
// Absent or empty parameters take the default declared with
// `form:"name,default=X"`. Coercion failures are collected for every field;
// rule violations are then reported for the fields that did coerce.
func Query[T any](c *gin.Context) (T, *Failure) {
	var v T
	rv := reflect.ValueOf(&v).Elem()
	if rv.Kind() != reflect.Struct {
		return v, fail(contracts.FieldIssue{Path: contracts.Path{}, Message: "query contract must be a struct"})
	}

	values := c.Request.URL.Query()
	var issues []contracts.FieldIssue
	coerceFailed := map[string]bool{}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag, ok := f.Tag.Lookup("form")
		if !ok || !f.IsExported() {
			continue
		}
		name, def := parseForm(tag)
		if name == "-" {
			continue
		}
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			raw = def
		}
		if raw == "" {
			continue
		}
		if msg := coerce(rv.Field(i), raw); msg != "" {
			issues = append(issues, contracts.FieldIssue{Path: contracts.Path{fieldKey(f, name)}, Message: msg})
			coerceFailed[fieldKey(f, name)] = true
		}
	}

	for _, is := range contracts.Validate(v) {
		if len(is.Path) > 0 {
			if k, ok := is.Path[0].(string); ok && coerceFailed[k] {
				continue
			}
		}
		issues = append(issues, is)
	}

	if len(issues) > 0 {
		return v, fail(issues...)
	}
	return v, nil
}

// fieldKey is the name issues are reported under; it matches the names the
// contract validator uses.
func fieldKey(f reflect.StructField, formName string) string {
	if j := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; j != "" && j != "-" {
		return j
	}
	return formName
}

func parseForm(tag string) (name, def string) {
	parts := strings.Split(tag, ",")
	name = parts[0]
	for _, p := range parts[1:] {
		if d, ok := strings.CutPrefix(p, "default="); ok {
			def = d
		}
	}
	return name, def
}

// coerce parses raw into fv and returns a message on failure.
func coerce(fv reflect.Value, raw string) string {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := fv.Type().Bits()
		n, err := strconv.ParseInt(raw, 10, bits)
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(raw, "-") {
				return fmt.Sprintf("must be greater than or equal to %d", int64(-1)<<(bits-1))
			}
			return fmt.Sprintf("must be less than or equal to %d", int64(1<<(bits-1)-1))
		}
		if err != nil {
			if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
				return fmt.Sprintf("Expected integer, received float (%v)", f)
			}
			return "Expected number, received " + strconv.Quote(raw)
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits := fv.Type().Bits()
		n, err := strconv.ParseUint(raw, 10, bits)
		if errors.Is(err, strconv.ErrRange) {
			return fmt.Sprintf("must be less than or equal to %d", uint64(1<<bits-1))
		}
		if err != nil {
			return "Expected non-negative integer, received " + strconv.Quote(raw)
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return "Expected number, received " + strconv.Quote(raw)
		}
		fv.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "Expected boolean, received " + strconv.Quote(raw)
		}
		fv.SetBool(b)
	default:
		return "unsupported query parameter type"
	}
	return ""
}
