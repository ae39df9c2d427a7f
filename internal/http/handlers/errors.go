// Package handlers defines the HTTP-layer error used when a handler's own
// output breaks its response contract.
//
// Such a violation is a server bug, never a client mistake: the error is
// deliberately not a validation failure, so the normalizer renders it as an
// unexpected 500 (with the issue list as detail in development only).
package handlers

import (
	"fmt"
	"strings"

	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// ResponseContractError reports a success body that failed its contract.
type ResponseContractError struct {
	Contract string
	Issues   []contracts.FieldIssue
}

func (e *ResponseContractError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if p := is.Path.String(); p != "" {
			parts = append(parts, p+": "+is.Message)
		} else {
			parts = append(parts, is.Message)
		}
	}
	return fmt.Sprintf("response violates %s contract: %s", e.Contract, strings.Join(parts, "; "))
}
