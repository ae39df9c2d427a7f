package contracts

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// engine returns the process-wide validator, configured on first use.
func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.SetTagName("validate")
		v.RegisterTagNameFunc(fieldName)
		validate = v
	})
	return validate
}

// fieldName reports the wire name of a struct field: the json name when set,
// then the form name, else the Go name. "-" hides the field.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		tag := f.Tag.Get(key)
		if tag == "" {
			continue
		}
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// StructValidator adapts the contract validator to gin's binding.StructValidator.
type StructValidator struct{}

// Validator returns the struct validator to install as gin's binding.Validator.
func Validator() StructValidator { return StructValidator{} }

// ValidateStruct validates structs (or pointers to structs). Other values pass.
func (StructValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return engine().Struct(rv.Interface())
}

// Engine exposes the underlying *validator.Validate.
func (StructValidator) Engine() any { return engine() }

// Validate checks v against its contract rules and returns every violation,
// or nil when v is valid.
func Validate(v any) []FieldIssue {
	return Issues(Validator().ValidateStruct(v))
}

// Issues converts a validation error into field issues. Errors that are not
// validator.ValidationErrors become a single issue with an empty path.
func Issues(err error) []FieldIssue {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldIssue{{Path: Path{}, Message: err.Error()}}
	}
	out := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldIssue{Path: namespacePath(fe.Namespace()), Message: message(fe)})
	}
	return out
}

// namespacePath turns "ListItemsResponse.items[0].id" into ["items", 0, "id"].
// The leading segment is the struct type and is dropped.
func namespacePath(ns string) Path {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}
	p := Path{}
	for _, part := range parts {
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				p = append(p, part)
				break
			}
			if open > 0 {
				p = append(p, part[:open])
			}
			end := strings.IndexByte(part[open:], ']')
			if end < 0 {
				p = append(p, part[open:])
				break
			}
			idx := part[open+1 : open+end]
			if n, err := strconv.Atoi(idx); err == nil {
				p = append(p, n)
			} else {
				p = append(p, idx)
			}
			part = part[open+end+1:]
		}
	}
	return p
}

func message(fe validator.FieldError) string {
	kind := fe.Kind()
	isString := kind == reflect.String
	isCollection := kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map

	switch fe.Tag() {
	case "required":
		return "Required"
	case "min", "gte":
		switch {
		case isString:
			return fmt.Sprintf("must contain at least %s character(s)", fe.Param())
		case isCollection:
			return fmt.Sprintf("must contain at least %s element(s)", fe.Param())
		default:
			return "must be greater than or equal to " + fe.Param()
		}
	case "max", "lte":
		switch {
		case isString:
			return fmt.Sprintf("must contain at most %s character(s)", fe.Param())
		case isCollection:
			return fmt.Sprintf("must contain at most %s element(s)", fe.Param())
		default:
			return "must be less than or equal to " + fe.Param()
		}
	case "gt":
		return "must be greater than " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email"
	case "url", "uri":
		return "must be a valid URL"
	}
	if fe.Param() != "" {
		return fmt.Sprintf("failed %q rule (%s)", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed %q rule", fe.Tag())
}
