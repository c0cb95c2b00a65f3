package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func seedSession(m *mockSessionStore, createdAt time.Time) uuid.UUID {
	id := uuid.New()
	m.sessions[id] = &domain.ArchivedSession{ID: id, Query: "q", CreatedAt: createdAt}
	return id
}

func TestArchiveExpirer_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newMockSessionStore()
	old := seedSession(st, now.Add(-10*24*time.Hour))
	fresh := seedSession(st, now.Add(-time.Hour))

	e := NewArchiveExpirer(st, 7*24*time.Hour, testLogger())
	e.now = func() time.Time { return now }

	deleted, err := e.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.NotContains(t, st.sessions, old)
	assert.Contains(t, st.sessions, fresh)
}

func TestArchiveExpirer_ZeroRetentionKeepsEverything(t *testing.T) {
	st := newMockSessionStore()
	seedSession(st, time.Unix(0, 0))

	deleted, err := NewArchiveExpirer(st, 0, testLogger()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, st.sessions, 1)
}

func TestArchiveExpirer_StoreError(t *testing.T) {
	st := newMockSessionStore()
	st.deleteErr = errors.New("db down")

	_, err := NewArchiveExpirer(st, time.Hour, testLogger()).Sweep(context.Background())
	assert.Error(t, err)
}

func TestArchiveExpirer_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := NewArchiveExpirer(newMockSessionStore(), time.Hour, testLogger())
	e.SetInterval(time.Millisecond)
	e.Start()
	time.Sleep(5 * time.Millisecond)
	e.Stop()
	e.Stop()
}
