package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Problem type URIs used for failures that do not carry their own type.
const (
	TypeValidation = "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.1"
	TypeInternal   = "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.1"
)

// ProblemDetails is the canonical error body returned for every failure
// (RFC 7807 inspired). Errors is only populated for validation failures.
type ProblemDetails struct {
	Type     string       `json:"type,omitempty" format:"uri"`
	Title    string       `json:"title" validate:"required"`
	Status   int          `json:"status" validate:"min=400,max=599"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId,omitempty"`
	Errors   []FieldIssue `json:"errors,omitempty"`
}

// FieldIssue describes one invalid field.
type FieldIssue struct {
	Path    Path   `json:"path"`
	Message string `json:"message"`
}

// Path locates a value inside a payload as a sequence of object keys
// (string) and array indices (int). An empty path refers to the payload
// itself.
type Path []any

// String renders the path in dotted form, e.g. items[0].id.
func (p Path) String() string {
	var b strings.Builder
	for _, seg := range p {
		switch v := seg.(type) {
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// MarshalJSON always emits an array, never null.
func (p Path) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]any(p))
}

// UnmarshalJSON restores integer indices, which encoding/json would
// otherwise decode as float64.
func (p *Path) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Path, 0, len(raw))
	for _, seg := range raw {
		if f, ok := seg.(float64); ok && f == math.Trunc(f) {
			out = append(out, int(f))
			continue
		}
		out = append(out, seg)
	}
	*p = out
	return nil
}
