package graph

import (
	"context"
	"errors"

	"github.com/99designs/gqlgen/graphql"
	"github.com/quizgenius/backend/graph/defs"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// NewErrorPresenter puts the code of a defs.GqlError into the "code" extension.
func NewErrorPresenter() graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		presented := graphql.DefaultErrorPresenter(ctx, err)

		var gqlErr defs.GqlError
		if errors.As(err, &gqlErr) {
			presented.Message = gqlErr.Message
			if presented.Extensions == nil {
				presented.Extensions = map[string]any{}
			}
			presented.Extensions["code"] = gqlErr.Code
		}

		return presented
	}
}
