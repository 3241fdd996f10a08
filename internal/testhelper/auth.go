package testhelper

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/scope"
)

// MemoryAuthStorage is an in-memory auth.Storage for testing.
type MemoryAuthStorage struct {
	mu     sync.Mutex
	next   int
	tokens map[string]auth.TokenInfo
}

func NewMemoryAuthStorage() *MemoryAuthStorage {
	return &MemoryAuthStorage{
		tokens: make(map[string]auth.TokenInfo),
	}
}

var _ auth.Storage = (*MemoryAuthStorage)(nil)

func (m *MemoryAuthStorage) Create(ctx context.Context, info auth.TokenInfo) (string, error) {
	if err := info.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	token := "test-token-" + strconv.Itoa(m.next)
	m.tokens[token] = info
	return token, nil
}

func (m *MemoryAuthStorage) Get(ctx context.Context, token string) (auth.TokenInfo, error) {
	return m.Peek(ctx, token)
}

func (m *MemoryAuthStorage) Peek(ctx context.Context, token string) (auth.TokenInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.tokens[token]
	if !ok {
		return auth.TokenInfo{}, auth.ErrNotFound
	}
	return info, nil
}

func (m *MemoryAuthStorage) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[token]; !ok {
		return auth.ErrNotFound
	}
	delete(m.tokens, token)
	return nil
}

func (m *MemoryAuthStorage) DeleteByUser(ctx context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token, info := range m.tokens {
		if info.UserID == userID {
			delete(m.tokens, token)
		}
	}
	return nil
}

// Len returns the number of live tokens.
func (m *MemoryAuthStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.tokens)
}

// Token issues a token with the scopes of the role of user.
func (m *MemoryAuthStorage) Token(t *testing.T, user *database.User) string {
	t.Helper()

	token, err := m.Create(context.Background(), auth.TokenInfo{
		UserID:    user.ID,
		UserEmail: user.Email,
		Role:      user.Role,
		Machine:   "test-machine",
		Scopes:    scope.ForRole(user.Role),
	})
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	return token
}
