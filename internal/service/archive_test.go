package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/Harshitk-cp/pfc/internal/embedding"
	"github.com/Harshitk-cp/pfc/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockSessionStore implements domain.SOARSessionStore for testing.
type mockSessionStore struct {
	sessions  map[uuid.UUID]*domain.ArchivedSession
	createErr error
	deleteErr error
	lastLimit int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[uuid.UUID]*domain.ArchivedSession)}
}

func (m *mockSessionStore) Create(ctx context.Context, s *domain.ArchivedSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ArchivedSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (m *mockSessionStore) FindSimilar(ctx context.Context, emb []float32, limit int) ([]domain.ArchivedSessionWithScore, error) {
	m.lastLimit = limit
	results := []domain.ArchivedSessionWithScore{}
	for _, s := range m.sessions {
		if len(s.Embedding) == 0 {
			continue
		}
		results = append(results, domain.ArchivedSessionWithScore{ArchivedSession: *s, Score: 0.9})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockSessionStore) ListRecent(ctx context.Context, limit int) ([]domain.ArchivedSession, error) {
	m.lastLimit = limit
	var out []domain.ArchivedSession
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func archivedFixture() (domain.QueryAnalysis, domain.SOARSession) {
	a := domain.QueryAnalysis{Domain: domain.DomainMedical, QuestionType: domain.QuestionCausal}
	session := domain.SOARSession{ID: "soar-1", IterationsCompleted: 2, OverallImproved: true}
	return a, session
}

func TestArchiveService_ArchiveAndGet(t *testing.T) {
	st := newMockSessionStore()
	emb := embedding.NewMockClient()
	svc := NewArchiveService(st, emb, zap.NewNop())
	a, session := archivedFixture()

	rec, err := svc.Archive(context.Background(), "run-1", "Does aspirin prevent stroke?", a, session)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Len(t, rec.Embedding, embedding.Dimensions)
	assert.Equal(t, domain.DomainMedical, rec.Domain)
	assert.Equal(t, []string{"Does aspirin prevent stroke?"}, emb.Calls)

	got, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "soar-1", got.Session.ID)
}

func TestArchiveService_GetMissing(t *testing.T) {
	svc := NewArchiveService(newMockSessionStore(), embedding.NewMockClient(), zap.NewNop())

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestArchiveService_EmbeddingFailureStillArchives(t *testing.T) {
	st := newMockSessionStore()
	emb := embedding.NewMockClient()
	emb.Err = errors.New("embedding down")
	svc := NewArchiveService(st, emb, zap.NewNop())
	a, session := archivedFixture()

	rec, err := svc.Archive(context.Background(), "run-1", "q", a, session)
	require.NoError(t, err)
	assert.Empty(t, rec.Embedding)
	assert.Len(t, st.sessions, 1)
}

func TestArchiveService_StoreFailure(t *testing.T) {
	st := newMockSessionStore()
	st.createErr = errors.New("connection refused")
	svc := NewArchiveService(st, nil, zap.NewNop())
	a, session := archivedFixture()

	_, err := svc.Archive(context.Background(), "run-1", "q", a, session)
	assert.ErrorIs(t, err, st.createErr)
}

func TestArchiveService_Similar(t *testing.T) {
	st := newMockSessionStore()
	svc := NewArchiveService(st, embedding.NewMockClient(), zap.NewNop())
	a, session := archivedFixture()
	_, err := svc.Archive(context.Background(), "run-1", "Does aspirin prevent stroke?", a, session)
	require.NoError(t, err)

	_, err = svc.Similar(context.Background(), "   ", 0)
	assert.ErrorIs(t, err, ErrSimilarQueryEmpty)

	got, err := svc.Similar(context.Background(), "aspirin and stroke", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, DefaultSimilarLimit, st.lastLimit)

	_, err = svc.Similar(context.Background(), "aspirin", 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxSimilarLimit, st.lastLimit)
}

func TestArchiveService_SimilarWithoutEmbedder(t *testing.T) {
	svc := NewArchiveService(newMockSessionStore(), nil, zap.NewNop())

	_, err := svc.Similar(context.Background(), "aspirin", 3)
	assert.Error(t, err)
}

func (m *mockSessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	for id, s := range m.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
