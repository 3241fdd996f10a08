package schema

import (
	"entgo.io/contrib/entgql"
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// Test is the read model of the tests table.
type Test struct {
	ent.Schema
}

func (Test) Fields() []ent.Field {
	return []ent.Field{
		field.Int("owner_id"),
		field.String("title").
			NotEmpty().
			Annotations(entgql.OrderField("TITLE")),
		field.Text("description").
			Optional(),
		field.Int("time_limit_minutes"), // 0 means no limit
		field.Int("max_attempts"),       // 0 means unlimited
		field.Bool("published"),
		field.Time("published_at").
			Optional().
			Nillable().
			Annotations(entgql.OrderField("PUBLISHED_AT")),
		field.Int("source_document_id").
			Optional().
			Nillable().
			Annotations(entgql.Skip()),
		field.Time("created_at").
			Immutable(),
		field.Time("updated_at"),
	}
}

func (Test) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("owner", User.Type).
			Ref("tests").
			Field("owner_id").
			Unique().
			Required(),
		edge.To("questions", Question.Type).
			Annotations(entgql.Skip()),
		edge.To("attempts", Attempt.Type).
			Annotations(entgql.Skip()),
	}
}

func (Test) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "tests"},
		entgql.QueryField().Directives(
			ScopeDirective("catalog:read"),
		),
		entgql.RelayConnection(),
	}
}
