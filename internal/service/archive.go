package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/Harshitk-cp/pfc/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound   = errors.New("soar session not found")
	ErrSimilarQueryEmpty = errors.New("query is required")
)

const (
	DefaultSimilarLimit = 5
	MaxSimilarLimit     = 50
)

// ArchiveService persists finished SOAR sessions and finds past sessions for
// similar queries.
type ArchiveService struct {
	store    domain.SOARSessionStore
	embedder domain.EmbeddingClient
	logger   *zap.Logger
}

func NewArchiveService(st domain.SOARSessionStore, ec domain.EmbeddingClient, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{
		store:    st,
		embedder: ec,
		logger:   logger,
	}
}

// Archive stores session for the run. A failed embedding still archives the
// session, without similarity lookup.
func (s *ArchiveService) Archive(ctx context.Context, runID, query string, a domain.QueryAnalysis, session domain.SOARSession) (*domain.ArchivedSession, error) {
	rec := &domain.ArchivedSession{
		RunID:        runID,
		Query:        query,
		Domain:       a.Domain,
		QuestionType: a.QuestionType,
		Session:      session,
	}

	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, query)
		if err != nil {
			s.logger.Warn("embedding soar query failed", zap.String("run_id", runID), zap.Error(err))
		} else {
			rec.Embedding = emb
		}
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("archive soar session: %w", err)
	}

	s.logger.Info("soar session archived",
		zap.String("id", rec.ID.String()),
		zap.String("run_id", runID),
		zap.Int("iterations", session.IterationsCompleted),
		zap.Bool("improved", session.OverallImproved))
	return rec, nil
}

func (s *ArchiveService) Get(ctx context.Context, id uuid.UUID) (*domain.ArchivedSession, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *ArchiveService) Similar(ctx context.Context, query string, limit int) ([]domain.ArchivedSessionWithScore, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrSimilarQueryEmpty
	}
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	limit = min(limit, MaxSimilarLimit)

	if s.embedder == nil {
		return nil, fmt.Errorf("similar sessions: no embedding client configured")
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.FindSimilar(ctx, emb, limit)
}

func (s *ArchiveService) Recent(ctx context.Context, limit int) ([]domain.ArchivedSession, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	return s.store.ListRecent(ctx, min(limit, MaxSimilarLimit))
}
