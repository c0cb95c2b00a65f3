package service

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDGenerator(t *testing.T) {
	g := NewSequentialIDGenerator()
	assert.Equal(t, "soar-1", g.NewID("soar"))
	assert.Equal(t, "curriculum-2", g.NewID("curriculum"))
}

func TestSequentialIDGenerator_Concurrent(t *testing.T) {
	g := NewSequentialIDGenerator()

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				id := g.NewID("x")
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
}

func TestUUIDGenerator(t *testing.T) {
	id := UUIDGenerator{}.NewID("soar")
	require.True(t, strings.HasPrefix(id, "soar-"))
	_, err := uuid.Parse(strings.TrimPrefix(id, "soar-"))
	assert.NoError(t, err)
}
