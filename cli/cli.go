// Package cli provides the operator commands of the QuizGenius backend.
package cli

import (
	"github.com/quizgenius/backend/internal/attempt"
	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/quizgenius/backend/internal/useraccount"
	"gorm.io/gorm"
)

// Context is the context for the CLI.
type Context struct {
	db          *gorm.DB
	useraccount *useraccount.Context
	quiz        *quiz.Service
	attempts    *attempt.Service
}

// NewContext creates a new Context.
//
// The CLI has no session store, so tokens issued before a promotion stay valid until they expire.
func NewContext(db *gorm.DB, eventService *events.EventService) *Context {
	return &Context{
		db:          db,
		useraccount: useraccount.NewContext(db, nil, eventService, config.AuthConfig{AllowInstructorSignup: true}),
		quiz:        quiz.NewService(db, nil, nil, eventService),
		attempts:    attempt.NewService(db, eventService),
	}
}
