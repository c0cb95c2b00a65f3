package service

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator issues identifiers for curricula, stones and SOAR sessions.
// Implementations must be safe for concurrent use across runs.
type IDGenerator interface {
	NewID(prefix string) string
}

// SequentialIDGenerator issues prefix-N identifiers from one shared counter.
type SequentialIDGenerator struct {
	n atomic.Uint64
}

func NewSequentialIDGenerator() *SequentialIDGenerator {
	return &SequentialIDGenerator{}
}

func (g *SequentialIDGenerator) NewID(prefix string) string {
	return prefix + "-" + strconv.FormatUint(g.n.Add(1), 10)
}

// UUIDGenerator issues prefix-<uuid> identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
