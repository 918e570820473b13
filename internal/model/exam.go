package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents a curated exam entity.
type Exam struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	DurationSeconds  int        `json:"duration_seconds"`
	MaxViolations    int        `json:"max_violations"`
	AccessCodeHash   string     `json:"-"`
	ShuffleQuestions bool       `json:"shuffle_questions"`
	Status           ExamStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ExamSummary is the selection-screen view of an exam.
type ExamSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationSeconds int       `json:"duration_seconds"`
	QuestionCount   int       `json:"question_count"`
	HasAccessCode   bool      `json:"has_access_code"`
}

// CreateCustomSetRequest is the payload for generating a practice set from
// the published question pool.
type CreateCustomSetRequest struct {
	Name            string   `json:"name" binding:"required,min=1,max=255"`
	Topics          []string `json:"topics" binding:"required,min=1,dive,min=1,max=100"`
	QuestionCount   int      `json:"question_count" binding:"required,min=1,max=200"`
	DurationSeconds int      `json:"duration_seconds" binding:"omitempty,min=60,max=28800"`
}

// CustomSetCreated is the reply after a practice set has been generated.
type CustomSetCreated struct {
	SetID           string `json:"set_id"`
	Name            string `json:"name"`
	QuestionCount   int    `json:"question_count"`
	DurationSeconds int    `json:"duration_seconds"`
}

// SaveBundleRequest is the payload for persisting an offline paper bundle.
type SaveBundleRequest struct {
	Name            string           `json:"name" binding:"required,min=1,max=120"`
	ExamName        string           `json:"exam_name" binding:"required,min=1,max=255"`
	DurationSeconds int              `json:"duration_seconds" binding:"omitempty,min=60,max=28800"`
	Questions       []BundleQuestion `json:"questions" binding:"required,min=1,dive"`
}

// BundleQuestion mirrors QuestionRecord with binding rules for bundle upload.
type BundleQuestion struct {
	ID       int      `json:"id" binding:"required,min=1"`
	Topic    string   `json:"topic" binding:"omitempty,max=100"`
	Question string   `json:"question" binding:"required,min=1"`
	Options  []string `json:"options" binding:"required,min=2,dive,min=1"`
	Answer   string   `json:"answer" binding:"required"`
}

// BundleInfo describes a stored offline bundle.
type BundleInfo struct {
	Name            string `json:"name"`
	ExamName        string `json:"exam_name"`
	QuestionCount   int    `json:"question_count"`
	DurationSeconds int    `json:"duration_seconds"`
}
