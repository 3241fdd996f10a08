package schema

import (
	"entgo.io/contrib/entgql"
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// Question is the read model of the questions table. It carries the answer key,
// so it stays out of the GraphQL schema.
type Question struct {
	ent.Schema
}

func (Question) Fields() []ent.Field {
	return []ent.Field{
		field.Int("test_id"),
		field.Int("position"),
		field.Enum("type").
			Values("multiple_choice", "true_false"),
		field.Text("text"),
		field.JSON("options", []string{}),
		field.Int("correct_index").
			Sensitive(),
		field.Text("explanation").
			Optional(),
		field.Int("points"),
		field.Enum("source").
			Values("manual", "generated"),
		field.Time("created_at").
			Immutable(),
		field.Time("updated_at"),
	}
}

func (Question) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("test", Test.Type).
			Ref("questions").
			Field("test_id").
			Unique().
			Required(),
	}
}

func (Question) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "questions"},
		entgql.Skip(entgql.SkipAll),
	}
}
