package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ArchivedSession is a finished SOAR session persisted by the service layer.
type ArchivedSession struct {
	ID              uuid.UUID    `json:"id"`
	RunID           string       `json:"run_id"`
	Query           string       `json:"query"`
	Domain          QueryDomain  `json:"domain"`
	QuestionType    QuestionType `json:"question_type"`
	Embedding       []float32    `json:"-"`
	Session         SOARSession  `json:"session"`
	OverallImproved bool         `json:"overall_improved"`
	Iterations      int          `json:"iterations"`
	CreatedAt       time.Time    `json:"created_at"`
}

// ArchivedSessionWithScore pairs a session with its similarity to a query.
type ArchivedSessionWithScore struct {
	ArchivedSession
	Score float32 `json:"score"`
}

type SOARSessionStore interface {
	Create(ctx context.Context, s *ArchivedSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*ArchivedSession, error)
	FindSimilar(ctx context.Context, embedding []float32, limit int) ([]ArchivedSessionWithScore, error)
	ListRecent(ctx context.Context, limit int) ([]ArchivedSession, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
