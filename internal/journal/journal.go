// Package journal records the confirmed plies of a game so a session can
// verify, after a reconnection, that replaying them from the start
// position reproduces the server's authoritative snapshot.
package journal

import (
	"context"
	"sync"
)

type Journal interface {
	Append(ctx context.Context, gameID, uci string) error
	Moves(ctx context.Context, gameID string) ([]string, error)
	Clear(ctx context.Context, gameID string) error
}

// Memory is the default in-process journal.
type Memory struct {
	mu    sync.Mutex
	games map[string][]string
}

func NewMemory() *Memory {
	return &Memory{games: make(map[string][]string)}
}

func (m *Memory) Append(_ context.Context, gameID, uci string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[gameID] = append(m.games[gameID], uci)
	return nil
}

func (m *Memory) Moves(_ context.Context, gameID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.games[gameID]...), nil
}

func (m *Memory) Clear(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	return nil
}
