package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/quizgenius/backend/internal/authutil"
	"github.com/redis/rueidis"
)

const (
	redisTokenPrefix = "auth:token:"
	redisUserPrefix  = "auth:user:"
)

// RedisStorage keeps tokens in Redis.
//
// Each token is a JSON string under auth:token:<token> with a TTL. The tokens of
// a user are indexed by the set auth:user:<id> so they can be revoked together.
type RedisStorage struct {
	redis  rueidis.Client
	expire time.Duration
}

// NewRedisStorage creates a new RedisStorage. A non-positive expire means DefaultTokenExpire.
func NewRedisStorage(redis rueidis.Client, expire time.Duration) *RedisStorage {
	if expire <= 0 {
		expire = DefaultTokenExpire
	}

	return &RedisStorage{redis: redis, expire: expire}
}

var _ Storage = (*RedisStorage)(nil)

func userKey(userID int) string {
	return redisUserPrefix + strconv.Itoa(userID)
}

func (s *RedisStorage) Get(ctx context.Context, token string) (TokenInfo, error) {
	info, err := s.Peek(ctx, token)
	if err != nil {
		return TokenInfo{}, err
	}

	seconds := int64(s.expire / time.Second)
	cmds := rueidis.Commands{
		s.redis.B().Expire().Key(redisTokenPrefix + token).Seconds(seconds).Build(),
		s.redis.B().Expire().Key(userKey(info.UserID)).Seconds(seconds).Build(),
	}
	for _, resp := range s.redis.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return TokenInfo{}, fmt.Errorf("extend token: %w", err)
		}
	}

	return info, nil
}

func (s *RedisStorage) Peek(ctx context.Context, token string) (TokenInfo, error) {
	raw, err := s.redis.Do(ctx, s.redis.B().Get().Key(redisTokenPrefix+token).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return TokenInfo{}, ErrNotFound
		}
		return TokenInfo{}, fmt.Errorf("get token: %w", err)
	}

	var info TokenInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return TokenInfo{}, fmt.Errorf("decode token: %w", err)
	}

	return info, nil
}

func (s *RedisStorage) Create(ctx context.Context, info TokenInfo) (string, error) {
	if err := info.Validate(); err != nil {
		return "", fmt.Errorf("invalid token info: %w", err)
	}

	token, err := authutil.GenerateToken(authutil.DefaultTokenBytes)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("marshal token info: %w", err)
	}

	cmds := rueidis.Commands{
		s.redis.B().Set().Key(redisTokenPrefix + token).Value(rueidis.BinaryString(payload)).Ex(s.expire).Build(),
		s.redis.B().Sadd().Key(userKey(info.UserID)).Member(token).Build(),
		s.redis.B().Expire().Key(userKey(info.UserID)).Seconds(int64(s.expire / time.Second)).Build(),
	}
	for _, resp := range s.redis.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return "", fmt.Errorf("store token: %w", err)
		}
	}

	return token, nil
}

func (s *RedisStorage) Delete(ctx context.Context, token string) error {
	info, err := s.Peek(ctx, token)
	if err != nil {
		return err
	}

	cmds := rueidis.Commands{
		s.redis.B().Del().Key(redisTokenPrefix + token).Build(),
		s.redis.B().Srem().Key(userKey(info.UserID)).Member(token).Build(),
	}
	for _, resp := range s.redis.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
	}

	return nil
}

func (s *RedisStorage) DeleteByUser(ctx context.Context, userID int) error {
	tokens, err := s.redis.Do(ctx, s.redis.B().Smembers().Key(userKey(userID)).Build()).AsStrSlice()
	if err != nil && !rueidis.IsRedisNil(err) {
		return fmt.Errorf("list tokens: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, redisTokenPrefix+token)
	}
	keys = append(keys, userKey(userID))

	if err := s.redis.Do(ctx, s.redis.B().Del().Key(keys...).Build()).Error(); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}

	return nil
}

// IsNotFound reports whether err means that the token does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
