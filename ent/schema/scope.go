package schema

import (
	"entgo.io/contrib/entgql"
	"github.com/vektah/gqlparser/v2/ast"
)

// ScopeDirective restricts a field to the tokens carrying the scope ("resource:action", e.g. "catalog:read").
//
// Fields without this directive are accessible to everyone.
func ScopeDirective(scope string) entgql.Directive {
	return entgql.Directive{
		Name: "scope",
		Arguments: []*ast.Argument{
			{
				Name: "scope",
				Value: &ast.Value{
					Raw:  scope,
					Kind: ast.StringValue,
				},
			},
		},
	}
}
