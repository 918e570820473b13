package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPaperKey returns the cache key for a curated exam's resolved paper.
func (r *CacheKeyStruct) ExamPaperKey(examID string) string {
	return fmt.Sprintf("exam:%s:paper", examID)
}

// CustomSetKey returns the cache key for a generated practice set.
func (r *CacheKeyStruct) CustomSetKey(setID string) string {
	return fmt.Sprintf("custom_set:%s", setID)
}

// ResultKey returns the well-known result slot for a finished session.
func (r *CacheKeyStruct) ResultKey(sessionID string) string {
	return fmt.Sprintf("session:%s:result", sessionID)
}

var CacheKey = NewCacheKeyStruct()
