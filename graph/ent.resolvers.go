package graph

// This file will be automatically regenerated based on the schema, any resolver implementations
// will be copied through when generating and any unknown code will be moved to the end.

import (
	"context"

	"entgo.io/contrib/entgql"
	"github.com/quizgenius/backend/ent"
	"github.com/quizgenius/backend/ent/test"
	"github.com/quizgenius/backend/graph/defs"
)

// Node is the resolver for the node field.
func (r *queryResolver) Node(ctx context.Context, id int) (ent.Noder, error) {
	return nil, defs.ErrNodeLookup
}

// Nodes is the resolver for the nodes field.
func (r *queryResolver) Nodes(ctx context.Context, ids []int) ([]ent.Noder, error) {
	return nil, defs.ErrNodeLookup
}

// Tests is the resolver for the tests field. Only published tests are listed.
func (r *queryResolver) Tests(ctx context.Context, after *entgql.Cursor[int], first *int, before *entgql.Cursor[int], last *int, orderBy *ent.TestOrder) (*ent.TestConnection, error) {
	return r.ent.Test.Query().
		Where(test.Published(true)).
		Paginate(ctx, after, first, before, last, ent.WithTestOrder(orderBy))
}

// Query returns QueryResolver implementation.
func (r *Resolver) Query() QueryResolver { return &queryResolver{r} }

type queryResolver struct{ *Resolver }
