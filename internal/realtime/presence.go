package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// PresenceStore tracks which users have at least one admitted connection.
// The redis implementation shares presence between processes.
type PresenceStore interface {
	MarkOnline(ctx context.Context, userID uuid.UUID) error
	MarkOffline(ctx context.Context, userID uuid.UUID) error
	// Refresh extends the presence of a user that is still connected.
	Refresh(ctx context.Context, userID uuid.UUID) error
	Online(ctx context.Context) ([]uuid.UUID, error)
}

// MemoryPresence counts connections per user in process memory.
type MemoryPresence struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int
}

var _ PresenceStore = (*MemoryPresence)(nil)

// NewMemoryPresence creates an empty presence table.
func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{counts: make(map[uuid.UUID]int)}
}

func (p *MemoryPresence) MarkOnline(_ context.Context, userID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[userID]++
	return nil
}

func (p *MemoryPresence) MarkOffline(_ context.Context, userID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts[userID] <= 1 {
		delete(p.counts, userID)
		return nil
	}
	p.counts[userID]--
	return nil
}

func (p *MemoryPresence) Refresh(context.Context, uuid.UUID) error { return nil }

func (p *MemoryPresence) Online(context.Context) ([]uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uuid.UUID, 0, len(p.counts))
	for id := range p.counts {
		out = append(out, id)
	}
	return out, nil
}
