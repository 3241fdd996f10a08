package metrics

import (
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("quizgenius.metrics")

// ScrapeTimeout bounds the database queries of one collection.
const ScrapeTimeout = 30 * time.Second
