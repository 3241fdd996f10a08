package graph

// This file will be automatically regenerated based on the schema, any resolver implementations
// will be copied through when generating and any unknown code will be moved to the end.

import (
	"context"
	"errors"
	"strings"

	"entgo.io/contrib/entgql"
	"github.com/quizgenius/backend/ent"
	"github.com/quizgenius/backend/ent/attempt"
	"github.com/quizgenius/backend/graph/defs"
	"github.com/quizgenius/backend/graph/model"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/ranking"
	"github.com/quizgenius/backend/internal/statistics"
	"github.com/samber/lo"
)

// Me is the resolver for the me field.
func (r *queryResolver) Me(ctx context.Context) (*ent.User, error) {
	tokenInfo, ok := auth.GetUser(ctx)
	if !ok {
		return nil, defs.ErrUnauthorized
	}

	user, err := r.ent.User.Get(ctx, tokenInfo.UserID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, defs.ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// MyAttempts is the resolver for the myAttempts field.
func (r *queryResolver) MyAttempts(ctx context.Context, after *entgql.Cursor[int], first *int, before *entgql.Cursor[int], last *int, orderBy *ent.AttemptOrder) (*ent.AttemptConnection, error) {
	tokenInfo, ok := auth.GetUser(ctx)
	if !ok {
		return nil, defs.ErrUnauthorized
	}

	if orderBy == nil {
		orderBy = &ent.AttemptOrder{
			Direction: entgql.OrderDirectionDesc,
			Field:     ent.AttemptOrderFieldStartedAt,
		}
	}

	return r.ent.Attempt.Query().
		Where(attempt.StudentID(tokenInfo.UserID)).
		Paginate(ctx, after, first, before, last, ent.WithAttemptOrder(orderBy))
}

// TestStatistics is the resolver for the testStatistics field.
func (r *queryResolver) TestStatistics(ctx context.Context, id int) (*statistics.TestStats, error) {
	tokenInfo, ok := auth.GetUser(ctx)
	if !ok {
		return nil, defs.ErrUnauthorized
	}

	stats, err := r.statistics.ForTest(ctx, tokenInfo.UserID, id)
	if err != nil {
		if errors.Is(err, statistics.ErrTestNotFound) {
			return nil, defs.ErrNotFound
		}
		return nil, err
	}

	return stats, nil
}

// Ranking is the resolver for the ranking field.
func (r *queryResolver) Ranking(ctx context.Context, id int, first *int, after *entgql.Cursor[int], filter *model.RankingFilter) (*model.RankingConnection, error) {
	tokenInfo, ok := auth.GetUser(ctx)
	if !ok {
		return nil, defs.ErrUnauthorized
	}

	if first != nil && *first < 0 {
		return nil, defs.BadRequest(errors.New("first must not be negative"))
	}

	var rankingFilter ranking.Filter
	if filter != nil {
		if filter.By != nil {
			rankingFilter.By = ranking.By(strings.ToLower(string(*filter.By)))
		}
		if filter.Order != nil {
			rankingFilter.Order = ranking.Order(strings.ToLower(string(*filter.Order)))
		}
		if filter.Period != nil {
			rankingFilter.Period = ranking.Period(strings.ToLower(string(*filter.Period)))
		}
	}

	page := ranking.Page{First: lo.FromPtr(first)}
	if after != nil {
		page.After = &after.ID
	}

	conn, err := r.ranking.GetRanking(ctx, tokenInfo.UserID, id, rankingFilter, page)
	if err != nil {
		switch {
		case errors.Is(err, ranking.ErrTestNotFound):
			return nil, defs.ErrNotFound
		case errors.Is(err, ranking.ErrInvalidFilter):
			return nil, defs.BadRequest(err)
		}
		return nil, err
	}

	return model.NewRankingConnection(conn), nil
}
