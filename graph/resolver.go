package graph

import (
	"github.com/99designs/gqlgen/graphql"
	"github.com/quizgenius/backend/ent"
	"github.com/quizgenius/backend/graph/directive"
	"github.com/quizgenius/backend/internal/ranking"
	"github.com/quizgenius/backend/internal/statistics"
)

// This file will not be regenerated automatically.
//
// It serves as dependency injection for your app, add any dependencies you require here.

// Resolver is the resolver root.
type Resolver struct {
	ent        *ent.Client
	statistics *statistics.Service
	ranking    *ranking.Service
}

func NewResolver(entClient *ent.Client, statistics *statistics.Service, ranking *ranking.Service) *Resolver {
	return &Resolver{
		ent:        entClient,
		statistics: statistics,
		ranking:    ranking,
	}
}

// NewSchema creates a graphql executable schema.
func NewSchema(entClient *ent.Client, statistics *statistics.Service, ranking *ranking.Service) graphql.ExecutableSchema {
	return NewExecutableSchema(Config{
		Resolvers: NewResolver(entClient, statistics, ranking),
		Directives: DirectiveRoot{
			Scope: directive.ScopeDirective,
		},
	})
}
