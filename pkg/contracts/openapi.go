package contracts

import (
	"reflect"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

const problemJSON = "application/problem+json"

var (
	openapiOnce sync.Once
	openapiDoc  *huma.OpenAPI
)

// OpenAPI returns an OpenAPI 3.1 description of the HTTP API built from the
// contract registry. It backs the Swagger UI.
func OpenAPI() *huma.OpenAPI {
	openapiOnce.Do(func() {
		reg := Registry()
		ref := func(v any) *huma.Schema {
			return reg.Schema(reflect.TypeOf(v), true, "")
		}
		problems := func(codes ...string) map[string]*huma.Response {
			out := map[string]*huma.Response{}
			for _, code := range codes {
				out[code] = &huma.Response{
					Description: "Problem details",
					Content:     map[string]*huma.MediaType{problemJSON: {Schema: ref(ProblemDetails{})}},
				}
			}
			return out
		}
		ok := func(code, desc string, body any, rest map[string]*huma.Response) map[string]*huma.Response {
			rest[code] = &huma.Response{
				Description: desc,
				Content:     map[string]*huma.MediaType{"application/json": {Schema: ref(body)}},
			}
			return rest
		}
		idParam := []*huma.Param{{Name: "id", In: "path", Required: true, Schema: &huma.Schema{Type: "string", Format: "uuid"}}}
		idemParam := &huma.Param{Name: "Idempotency-Key", In: "header", Schema: &huma.Schema{Type: "string"}}

		openapiDoc = &huma.OpenAPI{
			OpenAPI: "3.1.0",
			Info: &huma.Info{
				Title:       "Test Stack API",
				Version:     ContractVersion,
				Description: "Educational full-stack demo API",
			},
			Paths: map[string]*huma.PathItem{
				"/health": {Get: &huma.Operation{
					OperationID: "health", Tags: []string{"meta"}, Summary: "Liveness check",
					Responses: ok("200", "OK", HealthResponse{}, map[string]*huma.Response{}),
				}},
				"/items": {
					Get: &huma.Operation{
						OperationID: "list-items", Tags: []string{"items"}, Summary: "List items",
						Parameters: queryParams(reflect.TypeOf(ListItemsQuery{}), reg),
						Responses:  ok("200", "OK", ListItemsResponse{}, problems("400", "500")),
					},
					Post: &huma.Operation{
						OperationID: "create-item", Tags: []string{"items"}, Summary: "Create an item",
						Parameters:  []*huma.Param{idemParam},
						RequestBody: &huma.RequestBody{Required: true, Content: map[string]*huma.MediaType{"application/json": {Schema: ref(CreateItemBody{})}}},
						Responses:   ok("201", "Created", ItemDTO{}, problems("400", "409", "500")),
					},
				},
				"/items/{id}": {Get: &huma.Operation{
					OperationID: "get-item", Tags: []string{"items"}, Summary: "Get an item",
					Parameters: idParam,
					Responses:  ok("200", "OK", ItemDTO{}, problems("400", "404", "500")),
				}},
				"/notes": {
					Get: &huma.Operation{
						OperationID: "list-notes", Tags: []string{"notes"}, Summary: "List notes",
						Parameters: queryParams(reflect.TypeOf(ListNotesQuery{}), reg),
						Responses:  ok("200", "OK", ListNotesResponse{}, problems("400", "500")),
					},
					Post: &huma.Operation{
						OperationID: "create-note", Tags: []string{"notes"}, Summary: "Create a note",
						Parameters:  []*huma.Param{idemParam},
						RequestBody: &huma.RequestBody{Required: true, Content: map[string]*huma.MediaType{"application/json": {Schema: ref(CreateNoteBody{})}}},
						Responses:   ok("201", "Created", NoteDTO{}, problems("400", "409", "500")),
					},
				},
				"/notes/{id}": {Get: &huma.Operation{
					OperationID: "get-note", Tags: []string{"notes"}, Summary: "Get a note",
					Parameters: idParam,
					Responses:  ok("200", "OK", NoteDTO{}, problems("400", "404", "500")),
				}},
			},
			Components: &huma.Components{Schemas: reg},
		}
	})
	return openapiDoc
}

// queryParams describes the query-string fields of a contract, reusing the
// rule-annotated property schemas.
func queryParams(t reflect.Type, reg huma.Registry) []*huma.Param {
	s := reg.Map()[huma.DefaultSchemaNamer(t, "")]
	var out []*huma.Param
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("form")
		if !ok {
			continue
		}
		name := strings.SplitN(tag, ",", 2)[0]
		p := &huma.Param{Name: name, In: "query"}
		if s != nil {
			if prop := s.Properties[fieldName(f)]; prop != nil {
				p.Schema = prop
			}
		}
		out = append(out, p)
	}
	return out
}
