package model

import "encoding/json"

// QuestionRecord is a single question as loaded from a paper source. The
// answer key is carried as an opaque payload so sources with index-based and
// value-based keys can share one shape.
type QuestionRecord struct {
	ID       int             `json:"id"`
	Topic    string          `json:"topic"`
	Question string          `json:"question"`
	Options  []string        `json:"options"`
	Answer   json.RawMessage `json:"answer"`
}

// QuestionForTaker is a question with the answer key stripped, safe to send
// to the exam taker.
type QuestionForTaker struct {
	ID       int      `json:"id"`
	Topic    string   `json:"topic"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// ForTaker strips the answer key from a question record.
func (q QuestionRecord) ForTaker() QuestionForTaker {
	return QuestionForTaker{
		ID:       q.ID,
		Topic:    q.Topic,
		Question: q.Question,
		Options:  q.Options,
	}
}

// QuestionSet is a fully resolved paper: everything a session controller
// needs to run one attempt. Question IDs are unique within the set.
type QuestionSet struct {
	ExamName        string           `json:"exam_name"`
	DurationSeconds int              `json:"duration_seconds"`
	MaxViolations   int              `json:"max_violations"`
	Shuffle         bool             `json:"shuffle"`
	AccessCodeHash  string           `json:"access_code_hash,omitempty"`
	Questions       []QuestionRecord `json:"questions"`
}
