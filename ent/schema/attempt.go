package schema

import (
	"entgo.io/contrib/entgql"
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// Attempt is the read model of the attempts table.
type Attempt struct {
	ent.Schema
}

func (Attempt) Fields() []ent.Field {
	return []ent.Field{
		field.Int("test_id"),
		field.Int("student_id"),
		field.Enum("status").
			Values("in_progress", "submitted", "expired"),
		field.Time("started_at").
			Annotations(entgql.OrderField("STARTED_AT")),
		field.Time("deadline").
			Optional().
			Nillable(),
		field.Time("submitted_at").
			Optional().
			Nillable().
			Annotations(entgql.OrderField("SUBMITTED_AT")),
		field.Int("earned_points"),
		field.Int("total_points"),
		field.Int("correct_count"),
		field.Int("question_count"),
		// score is a percentage in [0, 100]
		field.Float("score").
			Annotations(entgql.OrderField("SCORE")),
		field.Bool("timed_out"),
	}
}

func (Attempt) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("test", Test.Type).
			Ref("attempts").
			Field("test_id").
			Unique().
			Required(),
		edge.From("student", User.Type).
			Ref("attempts").
			Field("student_id").
			Unique().
			Required().
			Annotations(entgql.Skip()),
	}
}

func (Attempt) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "attempts"},
		entgql.RelayConnection(),
	}
}
