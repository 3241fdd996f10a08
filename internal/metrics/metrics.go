// Package metrics holds the Prometheus counters of the backend and the
// database-backed collectors served by the exporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentUploadTotal tracks uploaded documents by status (ready, no_text, rejected).
	DocumentUploadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgenius_document_upload_total",
			Help: "Total number of document uploads by status",
		},
		[]string{"status"},
	)

	// GenerationTotal tracks question generation requests by outcome.
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgenius_generation_total",
			Help: "Total number of question generation requests by outcome",
		},
		[]string{"outcome"},
	)

	// GeneratedQuestionTotal tracks accepted generated questions by type.
	GeneratedQuestionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgenius_generated_question_total",
			Help: "Total number of accepted generated questions by type",
		},
		[]string{"type"},
	)

	// RejectedQuestionTotal tracks generated questions that failed validation.
	RejectedQuestionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizgenius_rejected_question_total",
			Help: "Total number of generated questions rejected by validation",
		},
	)

	// GenerationRetryTotal tracks retried model invocations.
	GenerationRetryTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizgenius_generation_retry_total",
			Help: "Total number of retried model invocations",
		},
	)

	// AttemptSubmittedTotal tracks closed attempts by status (submitted, expired).
	AttemptSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgenius_attempt_closed_total",
			Help: "Total number of closed attempts by status",
		},
		[]string{"status"},
	)

	// LoginTotal tracks the total number of user logins
	LoginTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizgenius_login_total",
			Help: "Total number of user logins",
		},
	)

	// EventTotal tracks the total number of events by event type
	EventTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgenius_event_total",
			Help: "Total number of events by event type",
		},
		[]string{"event_type"},
	)
)

func RecordDocumentUpload(status string) {
	DocumentUploadTotal.WithLabelValues(status).Inc()
}

func RecordGeneration(outcome string) {
	GenerationTotal.WithLabelValues(outcome).Inc()
}

// RecordGeneratedQuestions records accepted questions of the given type.
func RecordGeneratedQuestions(questionType string, count int) {
	GeneratedQuestionTotal.WithLabelValues(questionType).Add(float64(count))
}

func RecordRejectedQuestions(count int) {
	RejectedQuestionTotal.Add(float64(count))
}

func RecordGenerationRetry() {
	GenerationRetryTotal.Inc()
}

func RecordAttemptClosed(status string) {
	AttemptSubmittedTotal.WithLabelValues(status).Inc()
}

// RecordLogin records a user login
func RecordLogin() {
	LoginTotal.Inc()
}

// RecordEvent records an event with the given event type
func RecordEvent(eventType string) {
	EventTotal.WithLabelValues(eventType).Inc()
}
