// Package ranking ranks the students of a test by their best closed attempt.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/quizgenius/backend/internal/database"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("quizgenius.ranking")

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	ErrTestNotFound  = errors.New("test not found")
	ErrInvalidFilter = errors.New("invalid ranking filter")
)

type By string

const (
	ByScore   By = "score"
	ByCorrect By = "correct"
)

type Order string

const (
	OrderDesc Order = "desc"
	OrderAsc  Order = "asc"
)

type Period string

const (
	PeriodAll    Period = "all"
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// Filter selects and orders the ranking. Zero values mean score, desc and all.
type Filter struct {
	By     By
	Order  Order
	Period Period
}

func (f Filter) withDefaults() (Filter, error) {
	if f.By == "" {
		f.By = ByScore
	}
	if f.Order == "" {
		f.Order = OrderDesc
	}
	if f.Period == "" {
		f.Period = PeriodAll
	}

	switch {
	case f.By != ByScore && f.By != ByCorrect:
		return f, fmt.Errorf("%w: by must be score or correct", ErrInvalidFilter)
	case f.Order != OrderDesc && f.Order != OrderAsc:
		return f, fmt.Errorf("%w: order must be asc or desc", ErrInvalidFilter)
	case f.Period != PeriodAll && f.Period != PeriodDaily && f.Period != PeriodWeekly:
		return f, fmt.Errorf("%w: period must be all, daily or weekly", ErrInvalidFilter)
	}

	return f, nil
}

// Page is the cursor pagination of a ranking. After is the student ID of the last entry seen.
type Page struct {
	First int
	After *int
}

type Entry struct {
	Rank         int
	StudentID    int
	StudentName  string
	BestScore    float64
	BestCorrect  int
	AttemptCount int
}

type Connection struct {
	Entries         []Entry
	TotalCount      int
	HasNextPage     bool
	HasPreviousPage bool
	EndCursor       *int
}

// Service handles ranking operations
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates a new ranking service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:  db,
		now: time.Now,
	}
}

// WithClock returns a copy of the service that reads the time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	return &Service{db: s.db, now: now}
}

type studentScore struct {
	StudentID    int
	BestScore    float64
	BestCorrect  int
	AttemptCount int
}

func (s studentScore) value(by By) float64 {
	if by == ByCorrect {
		return float64(s.BestCorrect)
	}

	return s.BestScore
}

// GetRanking ranks the students of a test of the owner. Students with equal values share a rank.
func (s *Service) GetRanking(ctx context.Context, ownerID, testID int, filter Filter, page Page) (*Connection, error) {
	ctx, span := tracer.Start(ctx, "GetRanking",
		trace.WithAttributes(
			attribute.Int("test.id", testID),
			attribute.String("ranking.by", string(filter.By)),
			attribute.String("ranking.period", string(filter.Period)),
		))
	defer span.End()

	filter, err := filter.withDefaults()
	if err != nil {
		span.SetStatus(otelcodes.Error, "Invalid filter")
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&database.Test{}).Where("id = ? AND owner_id = ?", testID, ownerID).Count(&count).Error; err != nil {
		span.SetStatus(otelcodes.Error, "Failed to get test")
		span.RecordError(err)
		return nil, fmt.Errorf("get test: %w", err)
	}
	if count == 0 {
		span.SetStatus(otelcodes.Error, "Test not found")
		return nil, ErrTestNotFound
	}

	scores, err := s.studentScores(db, testID, filter.Period)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to get scores")
		span.RecordError(err)
		return nil, fmt.Errorf("get scores: %w", err)
	}
	sortScores(scores, filter)
	ranks := rankScores(scores, filter.By)

	startIdx := 0
	if page.After != nil {
		idx := lo.IndexOf(lo.Map(scores, func(score studentScore, _ int) int { return score.StudentID }), *page.After)
		if idx < 0 {
			span.SetStatus(otelcodes.Error, "Invalid cursor")
			return nil, fmt.Errorf("%w: cursor %d is not in the ranking", ErrInvalidFilter, *page.After)
		}
		startIdx = idx + 1
	}

	limit := DefaultPageSize
	if page.First > 0 {
		limit = min(page.First, MaxPageSize)
	}
	endIdx := min(startIdx+limit, len(scores))
	paginated := scores[startIdx:endIdx]

	names, err := studentNames(db, lo.Map(paginated, func(score studentScore, _ int) int { return score.StudentID }))
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to get students")
		span.RecordError(err)
		return nil, fmt.Errorf("get students: %w", err)
	}

	entries := make([]Entry, len(paginated))
	for i, score := range paginated {
		entries[i] = Entry{
			Rank:         ranks[startIdx+i],
			StudentID:    score.StudentID,
			StudentName:  names[score.StudentID],
			BestScore:    score.BestScore,
			BestCorrect:  score.BestCorrect,
			AttemptCount: score.AttemptCount,
		}
	}

	conn := &Connection{
		Entries:         entries,
		TotalCount:      len(scores),
		HasNextPage:     endIdx < len(scores),
		HasPreviousPage: startIdx > 0,
	}
	if len(entries) > 0 {
		conn.EndCursor = lo.ToPtr(entries[len(entries)-1].StudentID)
	}

	span.SetStatus(otelcodes.Ok, "Ranking computed")
	return conn, nil
}

// since returns the start of the period in UTC. Weeks start on Monday.
func (s *Service) since(period Period) (time.Time, bool) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodDaily:
		return today, true
	case PeriodWeekly:
		daysToMonday := int(now.Weekday() - time.Monday)
		if daysToMonday < 0 {
			daysToMonday += 7
		}
		return today.AddDate(0, 0, -daysToMonday), true
	default:
		return time.Time{}, false
	}
}

func (s *Service) studentScores(db *gorm.DB, testID int, period Period) ([]studentScore, error) {
	query := db.Model(&database.Attempt{}).
		Select("student_id, MAX(score) AS best_score, MAX(correct_count) AS best_correct, COUNT(*) AS attempt_count").
		Where("test_id = ? AND status <> ?", testID, database.AttemptStatusInProgress)
	if since, ok := s.since(period); ok {
		query = query.Where("submitted_at >= ?", since.UTC())
	}

	var scores []studentScore
	if err := query.Group("student_id").Scan(&scores).Error; err != nil {
		return nil, err
	}

	return scores, nil
}

// sortScores sorts in place. Ties are broken by student ID so pages stay stable.
func sortScores(scores []studentScore, filter Filter) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i].value(filter.By), scores[j].value(filter.By)
		if a != b {
			if filter.Order == OrderAsc {
				return a < b
			}
			return a > b
		}
		return scores[i].StudentID < scores[j].StudentID
	})
}

// rankScores assigns competition ranks (1, 2, 2, 4) to sorted scores.
func rankScores(scores []studentScore, by By) []int {
	ranks := make([]int, len(scores))
	for i := range scores {
		if i > 0 && scores[i].value(by) == scores[i-1].value(by) {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}

	return ranks
}

func studentNames(db *gorm.DB, ids []int) (map[int]string, error) {
	if len(ids) == 0 {
		return map[int]string{}, nil
	}

	var students []database.User
	if err := db.Select("id", "name").Where("id IN ?", ids).Find(&students).Error; err != nil {
		return nil, err
	}

	return lo.SliceToMap(students, func(user database.User) (int, string) {
		return user.ID, user.Name
	}), nil
}
