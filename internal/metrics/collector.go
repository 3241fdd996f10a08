package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/quizgenius/backend/internal/database"
	otelcodes "go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

// groupCount is one row of a "GROUP BY label" count query.
type groupCount struct {
	Label string
	Count int64
}

// countBy counts the rows of model grouped by column. The column name is trusted.
func countBy(ctx context.Context, db *gorm.DB, model any, column string) ([]groupCount, error) {
	var results []groupCount

	err := db.WithContext(ctx).
		Model(model).
		Select(column + " AS label, COUNT(*) AS count").
		Group(column).
		Scan(&results).Error

	return results, err
}

var quizgeniusEventsTotalDesc = prometheus.NewDesc(
	"quizgenius_events_total",
	"Total number of events",
	[]string{"type"},
	nil,
)

// EventCollector exposes the persisted events by type.
type EventCollector struct {
	db *gorm.DB
}

func NewEventCollector(db *gorm.DB) *EventCollector {
	return &EventCollector{db: db}
}

func (c *EventCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- quizgeniusEventsTotalDesc
}

func (c *EventCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), ScrapeTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "EventCollector.Collect")
	defer span.End()

	results, err := countBy(ctx, c.db, &database.Event{}, "type")
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to collect events")
		span.RecordError(err)

		ch <- prometheus.NewInvalidMetric(quizgeniusEventsTotalDesc, err)
		return
	}

	span.SetStatus(otelcodes.Ok, "Events collected successfully")

	for _, result := range results {
		ch <- prometheus.MustNewConstMetric(quizgeniusEventsTotalDesc, prometheus.GaugeValue, float64(result.Count), result.Label)
	}
}

var _ prometheus.Collector = (*EventCollector)(nil)

var (
	quizgeniusAttemptsTotalDesc = prometheus.NewDesc(
		"quizgenius_attempts_total",
		"Total number of attempts by status",
		[]string{"status"},
		nil,
	)
	quizgeniusAttemptScoreAverageDesc = prometheus.NewDesc(
		"quizgenius_attempt_score_average",
		"Average score of graded attempts in percent",
		nil,
		nil,
	)
)

// AttemptCollector exposes attempts by status and the average graded score.
type AttemptCollector struct {
	db *gorm.DB
}

func NewAttemptCollector(db *gorm.DB) *AttemptCollector {
	return &AttemptCollector{db: db}
}

func (c *AttemptCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- quizgeniusAttemptsTotalDesc
	ch <- quizgeniusAttemptScoreAverageDesc
}

func (c *AttemptCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), ScrapeTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "AttemptCollector.Collect")
	defer span.End()

	results, err := countBy(ctx, c.db, &database.Attempt{}, "status")
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to collect attempts")
		span.RecordError(err)

		ch <- prometheus.NewInvalidMetric(quizgeniusAttemptsTotalDesc, err)
		return
	}

	for _, result := range results {
		ch <- prometheus.MustNewConstMetric(quizgeniusAttemptsTotalDesc, prometheus.GaugeValue, float64(result.Count), result.Label)
	}

	var average struct {
		Count   int64
		Average float64
	}
	err = c.db.WithContext(ctx).
		Model(&database.Attempt{}).
		Select("COUNT(*) AS count, COALESCE(AVG(score), 0) AS average").
		Where("status <> ?", database.AttemptStatusInProgress).
		Scan(&average).Error
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to collect attempt scores")
		span.RecordError(err)

		ch <- prometheus.NewInvalidMetric(quizgeniusAttemptScoreAverageDesc, err)
		return
	}

	if average.Count > 0 {
		ch <- prometheus.MustNewConstMetric(quizgeniusAttemptScoreAverageDesc, prometheus.GaugeValue, average.Average)
	}

	span.SetStatus(otelcodes.Ok, "Attempts collected successfully")
}

var _ prometheus.Collector = (*AttemptCollector)(nil)

var (
	quizgeniusTestsTotalDesc = prometheus.NewDesc(
		"quizgenius_tests_total",
		"Total number of tests by publication state",
		[]string{"published"},
		nil,
	)
	quizgeniusQuestionsTotalDesc = prometheus.NewDesc(
		"quizgenius_questions_total",
		"Total number of questions by source",
		[]string{"source"},
		nil,
	)
)

// TestCollector exposes tests by publication state and questions by source.
type TestCollector struct {
	db *gorm.DB
}

func NewTestCollector(db *gorm.DB) *TestCollector {
	return &TestCollector{db: db}
}

func (c *TestCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- quizgeniusTestsTotalDesc
	ch <- quizgeniusQuestionsTotalDesc
}

func (c *TestCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), ScrapeTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "TestCollector.Collect")
	defer span.End()

	var published []struct {
		Published bool
		Count     int64
	}
	err := c.db.WithContext(ctx).
		Model(&database.Test{}).
		Select("published, COUNT(*) AS count").
		Group("published").
		Scan(&published).Error
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to collect tests")
		span.RecordError(err)

		ch <- prometheus.NewInvalidMetric(quizgeniusTestsTotalDesc, err)
		return
	}

	for _, result := range published {
		ch <- prometheus.MustNewConstMetric(quizgeniusTestsTotalDesc, prometheus.GaugeValue, float64(result.Count), strconv.FormatBool(result.Published))
	}

	sources, err := countBy(ctx, c.db, &database.Question{}, "source")
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to collect questions")
		span.RecordError(err)

		ch <- prometheus.NewInvalidMetric(quizgeniusQuestionsTotalDesc, err)
		return
	}

	for _, result := range sources {
		ch <- prometheus.MustNewConstMetric(quizgeniusQuestionsTotalDesc, prometheus.GaugeValue, float64(result.Count), result.Label)
	}

	span.SetStatus(otelcodes.Ok, "Tests collected successfully")
}

var _ prometheus.Collector = (*TestCollector)(nil)
