// Package model holds the GraphQL types that are not ent entities.
package model

import (
	"entgo.io/contrib/entgql"
	"github.com/quizgenius/backend/internal/ranking"
	"github.com/samber/lo"
)

type RankingEdge struct {
	Node   *ranking.Entry
	Cursor entgql.Cursor[int]
}

type RankingConnection struct {
	Edges      []*RankingEdge
	PageInfo   entgql.PageInfo[int]
	TotalCount int
}

// NewRankingConnection converts a ranking page into its connection. The cursor of an
// entry is the ID of its student.
func NewRankingConnection(conn *ranking.Connection) *RankingConnection {
	edges := lo.Map(conn.Entries, func(entry ranking.Entry, _ int) *RankingEdge {
		return &RankingEdge{
			Node:   &entry,
			Cursor: entgql.Cursor[int]{ID: entry.StudentID},
		}
	})

	result := &RankingConnection{
		Edges:      edges,
		TotalCount: conn.TotalCount,
		PageInfo: entgql.PageInfo[int]{
			HasNextPage:     conn.HasNextPage,
			HasPreviousPage: conn.HasPreviousPage,
		},
	}
	if len(edges) > 0 {
		result.PageInfo.StartCursor = &edges[0].Cursor
		result.PageInfo.EndCursor = &edges[len(edges)-1].Cursor
	}

	return result
}
