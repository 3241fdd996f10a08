package defs

import (
	"fmt"
)

type GqlError struct {
	Message string
	Code    string
}

func (e GqlError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var ErrUnauthorized = GqlError{
	Message: "require authentication",
	Code:    CodeUnauthorized,
}
var ErrNoSufficientScope = GqlError{
	Message: "no sufficient scope",
	Code:    CodeForbidden,
}
var ErrNotFound = GqlError{
	Message: "not found",
	Code:    CodeNotFound,
}

// ErrNodeLookup is returned by node and nodes. IDs are only unique per type,
// so a bare ID cannot name a node.
var ErrNodeLookup = GqlError{
	Message: "node lookup is not supported, query the typed fields instead",
	Code:    CodeBadRequest,
}

// BadRequest reports invalid arguments.
func BadRequest(err error) GqlError {
	return GqlError{
		Message: err.Error(),
		Code:    CodeBadRequest,
	}
}

const CodeUnauthorized = "UNAUTHORIZED"
const CodeForbidden = "FORBIDDEN"
const CodeNotFound = "NOT_FOUND"
const CodeBadRequest = "BAD_REQUEST"
