package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const defaultListLimit = 20

var _ domain.SOARSessionStore = (*SOARSessionStore)(nil)

type SOARSessionStore struct {
	db *pgxpool.Pool
}

func NewSOARSessionStore(db *pgxpool.Pool) *SOARSessionStore {
	return &SOARSessionStore{db: db}
}

func (s *SOARSessionStore) Create(ctx context.Context, a *domain.ArchivedSession) error {
	var embedding *pgvector.Vector
	if len(a.Embedding) > 0 {
		v := pgvector.NewVector(a.Embedding)
		embedding = &v
	}

	body, err := json.Marshal(a.Session)
	if err != nil {
		return fmt.Errorf("encode soar session: %w", err)
	}

	a.OverallImproved = a.Session.OverallImproved
	a.Iterations = a.Session.IterationsCompleted

	return s.db.QueryRow(ctx,
		`INSERT INTO soar_sessions (run_id, query, domain, question_type, embedding, session, overall_improved, iterations)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		a.RunID, a.Query, a.Domain, a.QuestionType, embedding, body, a.OverallImproved, a.Iterations,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *SOARSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ArchivedSession, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, run_id, query, domain, question_type, session, overall_improved, iterations, created_at
		 FROM soar_sessions WHERE id = $1`,
		id,
	)
	a, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// FindSimilar returns archived sessions ordered by cosine similarity of
// their query embedding to embedding.
func (s *SOARSessionStore) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]domain.ArchivedSessionWithScore, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, run_id, query, domain, question_type, session, overall_improved, iterations, created_at,
		        1 - (embedding <=> $1) AS score
		 FROM soar_sessions
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("similar sessions query: %w", err)
	}
	defer rows.Close()

	results := []domain.ArchivedSessionWithScore{}
	for rows.Next() {
		var (
			r    domain.ArchivedSessionWithScore
			body []byte
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Query, &r.Domain, &r.QuestionType, &body, &r.OverallImproved, &r.Iterations, &r.CreatedAt, &r.Score); err != nil {
			return nil, fmt.Errorf("scan similar session: %w", err)
		}
		if err := json.Unmarshal(body, &r.Session); err != nil {
			return nil, fmt.Errorf("decode soar session %s: %w", r.ID, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similar sessions rows: %w", err)
	}
	return results, nil
}

func (s *SOARSessionStore) ListRecent(ctx context.Context, limit int) ([]domain.ArchivedSession, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, run_id, query, domain, question_type, session, overall_improved, iterations, created_at
		 FROM soar_sessions
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.ArchivedSession{}
	for rows.Next() {
		a, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *a)
	}
	return sessions, rows.Err()
}

// DeleteOlderThan removes sessions archived before cutoff.
func (s *SOARSessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM soar_sessions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.ArchivedSession, error) {
	var (
		a    domain.ArchivedSession
		body []byte
	)
	if err := row.Scan(&a.ID, &a.RunID, &a.Query, &a.Domain, &a.QuestionType, &body, &a.OverallImproved, &a.Iterations, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &a.Session); err != nil {
		return nil, fmt.Errorf("decode soar session %s: %w", a.ID, err)
	}
	return &a, nil
}
