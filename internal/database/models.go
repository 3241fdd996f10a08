package database

import "time"

// Role is the role of a user.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleInstructor || r == RoleStudent
}

// User is an instructor or a student.
type User struct {
	ID           int    `gorm:"primaryKey"`
	Email        string `gorm:"size:320;not null;uniqueIndex"`
	Name         string `gorm:"size:200;not null"`
	Role         Role   `gorm:"size:16;not null;index"`
	PasswordHash string `gorm:"size:100"` // empty for users signed in with Google
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type DocumentStatus string

const (
	DocumentStatusReady  DocumentStatus = "ready"
	DocumentStatusNoText DocumentStatus = "no_text"
)

// Document is an uploaded lecture PDF and the text extracted from it.
type Document struct {
	ID          int            `gorm:"primaryKey"`
	OwnerID     int            `gorm:"not null;index"`
	Filename    string         `gorm:"size:255;not null"`
	StorageKey  string         `gorm:"size:255;not null;uniqueIndex"`
	ContentType string         `gorm:"size:100;not null"`
	SizeBytes   int64          `gorm:"not null"`
	PageCount   int            `gorm:"not null"`
	Status      DocumentStatus `gorm:"size:16;not null"`
	Text        string         `gorm:"type:text"`
	CreatedAt   time.Time
}

// Test is a quiz authored by an instructor.
type Test struct {
	ID               int    `gorm:"primaryKey"`
	OwnerID          int    `gorm:"not null;index"`
	Title            string `gorm:"size:200;not null"`
	Description      string `gorm:"type:text"`
	TimeLimitMinutes int    `gorm:"not null;default:0"` // 0 means no limit
	MaxAttempts      int    `gorm:"not null"`           // 0 means unlimited
	Published        bool   `gorm:"not null;default:false;index"`
	PublishedAt      *time.Time
	SourceDocumentID *int
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Questions []Question
}

// TimeLimit returns the time limit of the test, or 0 if there is none.
func (t Test) TimeLimit() time.Duration {
	return time.Duration(t.TimeLimitMinutes) * time.Minute
}

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
)

type QuestionSource string

const (
	QuestionSourceManual    QuestionSource = "manual"
	QuestionSourceGenerated QuestionSource = "generated"
)

// Question is a question of a test. CorrectIndex points into Options.
type Question struct {
	ID           int            `gorm:"primaryKey"`
	TestID       int            `gorm:"not null;index"`
	Position     int            `gorm:"not null"`
	Type         QuestionType   `gorm:"size:32;not null"`
	Text         string         `gorm:"type:text;not null"`
	Options      []string       `gorm:"serializer:json;type:text;not null"`
	CorrectIndex int            `gorm:"not null"`
	Explanation  string         `gorm:"type:text"`
	Points       int            `gorm:"not null;default:1"`
	Source       QuestionSource `gorm:"size:16;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusExpired    AttemptStatus = "expired"
)

// Attempt is one student's sitting of one test.
type Attempt struct {
	ID            int           `gorm:"primaryKey"`
	TestID        int           `gorm:"not null;index"`
	StudentID     int           `gorm:"not null;index"`
	Status        AttemptStatus `gorm:"size:16;not null;index"`
	StartedAt     time.Time     `gorm:"not null"`
	Deadline      *time.Time    `gorm:"index"`
	SubmittedAt   *time.Time
	EarnedPoints  int     `gorm:"not null;default:0"`
	TotalPoints   int     `gorm:"not null;default:0"`
	CorrectCount  int     `gorm:"not null;default:0"`
	QuestionCount int     `gorm:"not null;default:0"`
	Score         float64 `gorm:"not null;default:0"` // percentage in [0, 100]
	TimedOut      bool    `gorm:"not null;default:false"`

	Test      Test `gorm:"foreignKey:TestID"`
	Responses []Response
}

// Closed reports whether the attempt no longer accepts answers.
func (a Attempt) Closed() bool {
	return a.Status != AttemptStatusInProgress
}

// Response is the answer of a student to one question in an attempt.
type Response struct {
	ID         int  `gorm:"primaryKey"`
	AttemptID  int  `gorm:"not null;uniqueIndex:idx_response_attempt_question"`
	QuestionID int  `gorm:"not null;uniqueIndex:idx_response_attempt_question"`
	Choice     *int // nil when unanswered
	Correct    bool `gorm:"not null;default:false"`
	AnsweredAt time.Time
}

// Event is a persisted domain event.
type Event struct {
	ID          int            `gorm:"primaryKey"`
	Type        string         `gorm:"size:64;not null;index"`
	UserID      int            `gorm:"not null;index"`
	Payload     map[string]any `gorm:"serializer:json;type:text"`
	TriggeredAt time.Time      `gorm:"not null;index"`
}

// AllModels lists the models managed by Migrate.
func AllModels() []any {
	return []any{
		&User{},
		&Document{},
		&Test{},
		&Question{},
		&Attempt{},
		&Response{},
		&Event{},
	}
}
