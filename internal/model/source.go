package model

// SourceKind enumerates the places a paper can be loaded from.
type SourceKind string

const (
	// SourceExam loads a curated exam by id, Redis first with a database
	// fallback.
	SourceExam SourceKind = "exam"
	// SourceCustom loads a previously generated practice set from Redis.
	SourceCustom SourceKind = "custom"
	// SourceBundle loads an offline paper bundle from local SQLite storage.
	SourceBundle SourceKind = "bundle"
)

// SourceRef identifies one paper source. Exactly one of the id fields is
// meaningful depending on Kind.
type SourceRef struct {
	Kind   SourceKind `json:"kind" binding:"required,oneof=exam custom bundle"`
	ExamID string     `json:"exam_id,omitempty" binding:"omitempty,uuid"`
	SetID  string     `json:"set_id,omitempty" binding:"omitempty,max=80"`
	Bundle string     `json:"bundle,omitempty" binding:"omitempty,max=120"`
}
