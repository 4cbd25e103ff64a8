package assistant

import (
	"context"
	"sync"
)

const DefaultHistoryTurns = 20

// HistoryStore keeps the text turns of each chat session. Only user and
// final assistant messages are stored, never tool traffic.
type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]Message, error)
	Append(ctx context.Context, sessionID string, msgs ...Message) error
}

type MemoryHistory struct {
	mu    sync.Mutex
	max   int
	turns map[string][]Message
}

func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = DefaultHistoryTurns
	}
	return &MemoryHistory{max: max, turns: map[string][]Message{}}
}

func (h *MemoryHistory) Load(_ context.Context, sessionID string) ([]Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	src := h.turns[sessionID]
	out := make([]Message, len(src))
	copy(out, src)
	return out, nil
}

func (h *MemoryHistory) Append(_ context.Context, sessionID string, msgs ...Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	all := append(h.turns[sessionID], msgs...)
	if len(all) > h.max {
		all = append([]Message(nil), all[len(all)-h.max:]...)
	}
	h.turns[sessionID] = all
	return nil
}
