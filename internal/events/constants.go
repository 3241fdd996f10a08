package events

type EventType string

const (
	EventTypeLogin     EventType = "login"
	EventTypeLogout    EventType = "logout"
	EventTypeLogoutAll EventType = "logout_all"
	EventTypeRegister  EventType = "register"

	EventTypeDocumentUploaded   EventType = "document_uploaded"
	EventTypeQuestionsGenerated EventType = "questions_generated"
	EventTypeTestPublished      EventType = "test_published"

	EventTypeAttemptStarted   EventType = "attempt_started"
	EventTypeAttemptSubmitted EventType = "attempt_submitted"
	EventTypeAttemptExpired   EventType = "attempt_expired"
)
