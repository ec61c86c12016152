package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/session-auth/backend/internal/common/constants"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

// KEYS[1] id index key, KEYS[2] user key prefix, ARGV[1] user id.
// The user entry is only dropped while it still belongs to that id.
const invalidateUserScript = `
local username = redis.call("GET", KEYS[1])
if not username then
  return 0
end
redis.call("DEL", KEYS[1])
local userKey = KEYS[2] .. username
if redis.call("HGET", userKey, "id") == ARGV[1] then
  redis.call("DEL", userKey)
  return 1
end
return 0
`

// KEYS[1] user key, KEYS[2] id index key, KEYS[3] user key prefix.
// ARGV: user id, encoded user, session id, username, ttl in ms (0 = none).
// Another username still cached under the same id is dropped first, so the
// index never points at two entries. Returns 1 when that happened.
const putSessionScript = `
local replaced = 0
local prev = redis.call("GET", KEYS[2])
if prev and KEYS[3] .. prev ~= KEYS[1] then
  local prevKey = KEYS[3] .. prev
  if redis.call("HGET", prevKey, "id") == ARGV[1] then
    redis.call("DEL", prevKey)
    replaced = 1
  end
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], "id", ARGV[1], "data", ARGV[2], "sid", ARGV[3])
local ttl = tonumber(ARGV[5])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
  redis.call("SET", KEYS[2], ARGV[4], "PX", ttl)
else
  redis.call("SET", KEYS[2], ARGV[4])
end
return replaced
`

var (
	invalidateUserLua = redis.NewScript(invalidateUserScript)
	putSessionLua     = redis.NewScript(putSessionScript)
)

const (
	fieldID      = "id"
	fieldData    = "data"
	fieldSession = "sid"
)

// RedisSessionCache keeps sessions in Redis so several service instances
// share them. Backend failures are logged and read as misses.
type RedisSessionCache struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	log     *logger.Logger
}

func NewRedisSessionCache(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisSessionCache {
	return &RedisSessionCache{
		client:  client,
		prefix:  constants.RedisSessionKeyPrefix,
		ttl:     ttl,
		timeout: constants.RedisOperationTimeout,
		log:     log,
	}
}

func (c *RedisSessionCache) userKeyPrefix() string {
	return c.prefix + "user:"
}

func (c *RedisSessionCache) userKey(username string) string {
	return c.userKeyPrefix() + username
}

func (c *RedisSessionCache) idKey(userID int64) string {
	return c.prefix + "id:" + strconv.FormatInt(userID, 10)
}

func (c *RedisSessionCache) Get(ctx context.Context, username string) (userdomain.User, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.client.HGet(ctx, c.userKey(username), fieldData).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.backendError(ctx, "get", err)
		}
		return userdomain.User{}, false
	}

	var user userdomain.User
	if err := json.Unmarshal(data, &user); err != nil {
		c.backendError(ctx, "decode", err)
		return userdomain.User{}, false
	}
	return user, true
}

func (c *RedisSessionCache) Put(ctx context.Context, username string, user userdomain.User) {
	c.PutSession(ctx, username, user, "")
}

func (c *RedisSessionCache) PutSession(ctx context.Context, username string, user userdomain.User, sessionID string) {
	data, err := json.Marshal(user)
	if err != nil {
		c.backendError(ctx, "encode", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	replaced, err := putSessionLua.Run(ctx, c.client,
		[]string{c.userKey(username), c.idKey(user.ID), c.userKeyPrefix()},
		strconv.FormatInt(user.ID, 10), data, sessionID, username, c.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		c.backendError(ctx, "put", err)
		return
	}
	incrementCacheEviction(evictionReplaced, int(replaced))
}

func (c *RedisSessionCache) HasSession(ctx context.Context, username string, userID int64, sessionID string) bool {
	if sessionID == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vals, err := c.client.HMGet(ctx, c.userKey(username), fieldID, fieldSession).Result()
	if err != nil {
		c.backendError(ctx, "has_session", err)
		return false
	}
	id, _ := vals[0].(string)
	sid, _ := vals[1].(string)
	return id == strconv.FormatInt(userID, 10) && sid == sessionID
}

func (c *RedisSessionCache) InvalidateUser(ctx context.Context, userID int64) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	removed, err := invalidateUserLua.Run(ctx, c.client,
		[]string{c.idKey(userID), c.userKeyPrefix()},
		strconv.FormatInt(userID, 10),
	).Int64()
	if err != nil {
		c.backendError(ctx, "invalidate", err)
		return false
	}
	if removed == 1 {
		incrementCacheEviction(evictionLogout, 1)
		return true
	}
	return false
}

// Len counts cached users with SCAN; it is meant for tests and diagnostics.
func (c *RedisSessionCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	count := 0
	iter := c.client.Scan(ctx, 0, c.userKeyPrefix()+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		c.backendError(ctx, "len", err)
	}
	setCacheEntries(backendRedis, count)
	return count
}

func (c *RedisSessionCache) backendError(ctx context.Context, operation string, err error) {
	incrementCacheBackendError(operation)
	if c.log != nil {
		c.log.WithFields(ctx, logger.Fields{
			"action":    "session_cache_backend_error",
			"operation": operation,
		}).Warnf("redis session cache %s failed: %v", operation, err)
	}
}
