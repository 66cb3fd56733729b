package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is an exported constant or variable used by the authentication engine.
var ErrNotFound = errors.New("session record not found")

// ErrExpired is an exported constant or variable used by the authentication engine.
var ErrExpired = errors.New("session record expired")

// ErrUnavailable is an exported constant or variable used by the authentication engine.
var ErrUnavailable = errors.New("session backend unavailable")

const saveReplaceScript = `
local old = redis.call("GET", KEYS[2])
if old and old ~= ARGV[1] then
  redis.call("DEL", ARGV[4] .. old)
  redis.call("SREM", KEYS[3], old)
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[3])
redis.call("SADD", KEYS[3], ARGV[1])
return 1
`

var saveReplaceLua = redis.NewScript(saveReplaceScript)

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
local cur = redis.call("GET", KEYS[3])
if cur == ARGV[1] then
  redis.call("DEL", KEYS[3])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is the Redis-backed session store: persistence, absolute
// expiration with lazy purge, per-member token index, and atomic
// single-session-per-device replacement.
type Store struct {
	redis                  redis.UniversalClient
	prefix                 string
	allowMultiplePerDevice bool
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the key namespace; allowMultiplePerDevice disables the
// replace-on-create behavior for same-device logins.
func NewStore(redisClient redis.UniversalClient, prefix string, allowMultiplePerDevice bool) *Store {
	return &Store{
		redis:                  redisClient,
		prefix:                 prefix,
		allowMultiplePerDevice: allowMultiplePerDevice,
	}
}

func (s *Store) sessionKeyPrefix() string {
	return s.prefix + ":s:"
}

func (s *Store) key(token string) string {
	return s.sessionKeyPrefix() + token
}

func (s *Store) memberKey(memberID string) string {
	return s.prefix + ":m:" + memberID
}

func (s *Store) deviceKey(memberID string, deviceHash [32]byte) string {
	return s.prefix + ":d:" + memberID + ":" + hex.EncodeToString(deviceHash[:8])
}

// Save persists a session with the given TTL. Unless the store allows
// multiple sessions per device, the previous session for the same
// (member, device) pair is removed in the same atomic step.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(sess.Token)
	memberKey := s.memberKey(sess.MemberID)

	if s.allowMultiplePerDevice {
		_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKey, data, ttl)
			pipe.SAdd(ctx, memberKey, sess.Token)
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil
	}

	deviceKey := s.deviceKey(sess.MemberID, sess.DeviceHash)
	err = saveReplaceLua.Run(ctx, s.redis,
		[]string{sessionKey, deviceKey, memberKey},
		sess.Token, data, ttl.Milliseconds(), s.sessionKeyPrefix(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Get retrieves a session by token. Expiration compares the persisted
// absolute deadline against the current wall clock; an expired record is
// purged lazily and reported as ErrExpired.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.Token = token

	if time.Now().Unix() >= sess.ExpiresAt {
		if _, err := s.Delete(ctx, sess); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	return sess, nil
}

// Delete removes a session and its index entries. Idempotent: deleting a
// missing session reports false without error.
func (s *Store) Delete(ctx context.Context, sess *Session) (bool, error) {
	existed, err := deleteSessionLua.Run(ctx, s.redis,
		[]string{s.key(sess.Token), s.memberKey(sess.MemberID), s.deviceKey(sess.MemberID, sess.DeviceHash)},
		sess.Token,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return existed > 0, nil
}

// DeleteByToken resolves a token and removes the session behind it.
func (s *Store) DeleteByToken(ctx context.Context, token string) (bool, error) {
	sess, err := s.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
			return false, nil
		}
		return false, err
	}
	return s.Delete(ctx, sess)
}

// DeleteAllForMember revokes every session of a member. Used on account
// deletion so that no previously issued token survives.
func (s *Store) DeleteAllForMember(ctx context.Context, memberID string) (int, error) {
	memberKey := s.memberKey(memberID)

	tokens, err := s.redis.SMembers(ctx, memberKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tok := range tokens {
			pipe.Del(ctx, s.key(tok))
		}
		pipe.Del(ctx, memberKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return len(tokens), nil
}

// CountForMember reports the number of indexed sessions for a member.
func (s *Store) CountForMember(ctx context.Context, memberID string) (int, error) {
	n, err := s.redis.SCard(ctx, s.memberKey(memberID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return int(n), nil
}

// Sweep repairs member index sets by dropping tokens whose session
// record has already expired out of Redis. It holds no locks and only
// issues SCAN/EXISTS/SREM, so it never blocks live authentication.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	removed := 0

	iter := s.redis.Scan(ctx, 0, s.prefix+":m:*", 64).Iterator()
	for iter.Next(ctx) {
		memberKey := iter.Val()

		tokens, err := s.redis.SMembers(ctx, memberKey).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		for _, tok := range tokens {
			exists, err := s.redis.Exists(ctx, s.key(tok)).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
			if exists == 0 {
				if err := s.redis.SRem(ctx, memberKey, tok).Err(); err != nil {
					return removed, fmt.Errorf("%w: %w", ErrUnavailable, err)
				}
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return removed, nil
}
