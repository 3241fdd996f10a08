package testhelper

import (
	"context"
	"fmt"
	"sync"

	"github.com/quizgenius/backend/internal/gauth"
)

// MemoryStateStorage is a gauth.StateStorage kept in memory.
type MemoryStateStorage struct {
	mu     sync.Mutex
	states map[string][]byte
	next   int
}

func NewMemoryStateStorage() *MemoryStateStorage {
	return &MemoryStateStorage{states: make(map[string][]byte)}
}

var _ gauth.StateStorage = (*MemoryStateStorage)(nil)

func (m *MemoryStateStorage) New(ctx context.Context, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	token := fmt.Sprintf("state-%d", m.next)
	m.states[token] = data
	return token, nil
}

func (m *MemoryStateStorage) Use(ctx context.Context, token string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.states[token]
	if !ok {
		return nil, gauth.ErrBadState
	}
	delete(m.states, token)
	return data, nil
}
