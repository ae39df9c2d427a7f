// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint. Failures
// are never written here: fail() records the error and lets the problem
// middleware render the canonical application/problem+json body.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	Content-Type: application/problem+json
//	{
//	  "title": "Not Found",
//	  "status": 404,
//	  "detail": "Item not found",
//	  "instance": "/items/123e4567-e89b-12d3-a456-426614174000",
//	  "traceId": "0f8fad5b-d9cb-469f-a165-70867728950e"
//	}
package handlers

import (
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/test-stack-api/internal/http/problem"
	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// fail hands err to the error normalizer and stops the handler chain.
func fail(c *gin.Context, err error) { problem.Abort(c, err) }

// ok writes a success JSON response. In development the body is first
// checked against its contract; a violation is reported as an unexpected
// error instead of being sent.
func (h *Handlers) ok(c *gin.Context, status int, body any) {
	if h.opts.Development {
		if issues := contracts.Validate(body); len(issues) > 0 {
			fail(c, &ResponseContractError{Contract: contractName(body), Issues: issues})
			return
		}
	}
	c.JSON(status, body)
}

func contractName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	return t.Name()
}
