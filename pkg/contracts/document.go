package contracts

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// SchemaPrefix is the JSON reference prefix used by the published schemas.
const SchemaPrefix = "#/components/schemas/"

// ContractDocument is the versioned, serializable description of every
// published contract. It is what other processes consume instead of
// importing this package.
type ContractDocument struct {
	Version string                  `json:"version"`
	Schemas map[string]*huma.Schema `json:"schemas"`
}

// published lists the contracts, in the order they are documented.
var published = []any{
	CreateItemBody{},
	ListItemsQuery{},
	ItemDTO{},
	ListItemsResponse{},
	CreateNoteBody{},
	ListNotesQuery{},
	NoteDTO{},
	ListNotesResponse{},
	ResourceID{},
	ProblemDetails{},
	FieldIssue{},
	HealthResponse{},
	ServiceInfo{},
}

var (
	docOnce  sync.Once
	registry huma.Registry
	document *ContractDocument
)

func build() {
	registry = huma.NewMapRegistry(SchemaPrefix, huma.DefaultSchemaNamer)
	for _, c := range published {
		registry.Schema(reflect.TypeOf(c), true, "")
	}
	for _, c := range published {
		t := reflect.TypeOf(c)
		if s := registry.Map()[huma.DefaultSchemaNamer(t, "")]; s != nil {
			applyRules(t, s)
		}
	}
	document = &ContractDocument{Version: ContractVersion, Schemas: registry.Map()}
}

// Document returns the published contract document. It is built once and
// must be treated as read-only.
func Document() *ContractDocument {
	docOnce.Do(build)
	return document
}

// Registry returns the schema registry backing Document.
func Registry() huma.Registry {
	docOnce.Do(build)
	return registry
}

// applyRules rewrites the generated schema so that required fields, bounds
// and defaults mirror the `validate` and `form` tags the runtime enforces.
func applyRules(t reflect.Type, s *huma.Schema) {
	required := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := fieldName(f)
		if name == "" || !f.IsExported() {
			continue
		}
		prop := s.Properties[name]
		if prop == nil {
			continue
		}

		rules := splitRules(f.Tag.Get("validate"))
		formTag, hasForm := f.Tag.Lookup("form")
		if _, ok := rules["required"]; ok || (!hasForm && !strings.Contains(f.Tag.Get("json"), ",omitempty")) {
			required = append(required, name)
		}

		kind := f.Type.Kind()
		for rule, param := range rules {
			switch rule {
			case "min", "gte":
				setLower(prop, kind, param, false)
			case "gt":
				setLower(prop, kind, param, true)
			case "max", "lte":
				setUpper(prop, kind, param)
			case "uuid", "uuid4":
				prop.Format = "uuid"
			}
		}

		if hasForm {
			if def, ok := formDefault(formTag); ok {
				prop.Default = typedDefault(kind, def)
			}
		}
	}
	s.Required = required
}

// splitRules parses a validate tag into rule -> parameter, stopping at the
// first dive since element rules describe a nested contract.
func splitRules(tag string) map[string]string {
	out := map[string]string{}
	if tag == "" {
		return out
	}
	for _, r := range strings.Split(tag, ",") {
		if r == "dive" {
			break
		}
		name, param, _ := strings.Cut(r, "=")
		out[name] = param
	}
	return out
}

func setLower(prop *huma.Schema, kind reflect.Kind, param string, exclusive bool) {
	switch {
	case kind == reflect.String:
		if n, err := strconv.Atoi(param); err == nil {
			if exclusive {
				n++
			}
			prop.MinLength = &n
		}
	case kind == reflect.Slice || kind == reflect.Array:
		if n, err := strconv.Atoi(param); err == nil {
			if exclusive {
				n++
			}
			prop.MinItems = &n
		}
	default:
		if f, err := strconv.ParseFloat(param, 64); err == nil {
			if exclusive {
				prop.ExclusiveMinimum = &f
				prop.Minimum = nil
			} else {
				prop.Minimum = &f
			}
		}
	}
}

func setUpper(prop *huma.Schema, kind reflect.Kind, param string) {
	switch {
	case kind == reflect.String:
		if n, err := strconv.Atoi(param); err == nil {
			prop.MaxLength = &n
		}
	case kind == reflect.Slice || kind == reflect.Array:
		if n, err := strconv.Atoi(param); err == nil {
			prop.MaxItems = &n
		}
	default:
		if f, err := strconv.ParseFloat(param, 64); err == nil {
			prop.Maximum = &f
		}
	}
}

// formDefault extracts the default=X option of a form tag.
func formDefault(tag string) (string, bool) {
	parts := strings.Split(tag, ",")
	for _, p := range parts[1:] {
		if v, ok := strings.CutPrefix(p, "default="); ok {
			return v, true
		}
	}
	return "", false
}

func typedDefault(kind reflect.Kind, raw string) any {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return n
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}
