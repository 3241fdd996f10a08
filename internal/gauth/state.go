// Package gauth implements the pieces of Google sign-in that are independent of HTTP routing.
package gauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quizgenius/backend/internal/authutil"
	"github.com/redis/rueidis"
)

// ErrBadState is returned when the state token is unknown, expired or already used.
var ErrBadState = errors.New("bad state")

type StateStorage interface {
	// New stores data under a new state token valid for StateTokenExpire.
	New(ctx context.Context, data []byte) (string, error)

	// Use returns the data of the state token and deletes it.
	//
	// ErrBadState is returned when the token is not found.
	Use(ctx context.Context, token string) ([]byte, error)
}

const stateTokenPrefix = "gauth:state:"

// StateTokenExpire is how long a sign-in may take between login and callback.
const StateTokenExpire = 10 * time.Minute

// RedisStateStorage is a StateStorage on Redis.
type RedisStateStorage struct {
	redis rueidis.Client
}

func NewRedisStateStorage(redis rueidis.Client) *RedisStateStorage {
	return &RedisStateStorage{redis: redis}
}

var _ StateStorage = (*RedisStateStorage)(nil)

func (s *RedisStateStorage) New(ctx context.Context, data []byte) (string, error) {
	token, err := authutil.GenerateToken(32)
	if err != nil {
		return "", err
	}

	if err := s.redis.Do(ctx, s.redis.B().Set().
		Key(stateTokenPrefix+token).
		Value(rueidis.BinaryString(data)).
		Ex(StateTokenExpire).
		Build()).Error(); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}

	return token, nil
}

// Use consumes the token atomically with GETDEL, so each state can be used once.
func (s *RedisStateStorage) Use(ctx context.Context, token string) ([]byte, error) {
	if token == "" {
		return nil, ErrBadState
	}

	data, err := s.redis.Do(ctx, s.redis.B().Getdel().Key(stateTokenPrefix+token).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrBadState
		}

		return nil, fmt.Errorf("use state: %w", err)
	}

	return data, nil
}
