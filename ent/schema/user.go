package schema

import (
	"entgo.io/contrib/entgql"
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// User is the read model of the users table.
type User struct {
	ent.Schema
}

func (User) Fields() []ent.Field {
	return []ent.Field{
		field.String("email").
			NotEmpty().
			Unique().
			Immutable().
			Annotations(entgql.Skip()),
		field.String("name").
			NotEmpty(),
		field.Enum("role").
			Values("instructor", "student"),
		field.String("password_hash").
			Optional().
			Sensitive().
			Annotations(entgql.Skip()),
		field.String("avatar").
			Optional(),
		field.Time("created_at").
			Immutable(),
		field.Time("updated_at"),
	}
}

func (User) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("tests", Test.Type).
			Annotations(entgql.Skip()),
		edge.To("attempts", Attempt.Type).
			Annotations(entgql.Skip()),
	}
}

func (User) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "users"},
	}
}
