package model

import "github.com/google/uuid"

// ViolationEvent is one audit record of a counted proctoring violation. It is
// queued at signal time and persisted in the background.
type ViolationEvent struct {
	SessionID  uuid.UUID  `json:"session_id"`
	Kind       SignalKind `json:"kind"`
	Count      int        `json:"count"`
	OccurredAt int64      `json:"occurred_at"`
}
