package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingRecordVersion1 = 1

var (
	ErrPendingNotFound         = errors.New("pending two-factor record not found")
	ErrPendingExpired          = errors.New("pending two-factor record expired")
	ErrPendingCorrupt          = errors.New("pending two-factor record corrupt")
	ErrPendingOTPMismatch      = errors.New("pending two-factor otp mismatch")
	ErrPendingAttemptsExceeded = errors.New("pending two-factor attempts exceeded")
	ErrPendingBackend          = errors.New("pending two-factor backend unavailable")
)

// PendingTwoFactor is a single-use challenge awaiting OTP verification.
// Only the OTP digest is persisted, at a fixed offset so the consume
// script can compare it in place.
type PendingTwoFactor struct {
	MemberID  string
	IP        string
	OTPHash   [32]byte
	Attempts  uint16
	ExpiresAt int64
}

// Record layout: version(1) attempts(2) expiresAt(8) otpHash(32) then
// length-prefixed member ID and IP. The consume script depends on the
// fixed header offsets.
const consumePendingScript = `
local function read_be64(s, i)
  local v = 0
  for o = 0, 7 do
    local b = string.byte(s, i + o)
    if not b then
      return nil
    end
    v = v * 256 + b
  end
  return v
end

local key = KEYS[1]
local provided = ARGV[1]
local max_attempts = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("GET", key)
if not data then
  return {0}
end
if string.byte(data, 1) ~= 1 or #data < 45 then
  redis.call("DEL", key)
  return {5}
end

local expires = read_be64(data, 4)
if not expires or expires <= now then
  redis.call("DEL", key)
  return {1}
end

if string.sub(data, 12, 43) == provided then
  redis.call("DEL", key)
  return {4, data}
end

local attempts = string.byte(data, 2) * 256 + string.byte(data, 3) + 1
if attempts >= max_attempts then
  redis.call("DEL", key)
  return {3, attempts}
end

local ttl = redis.call("PTTL", key)
if ttl <= 0 then
  redis.call("DEL", key)
  return {1}
end

local updated = string.sub(data, 1, 1) ..
  string.char(math.floor(attempts / 256)) ..
  string.char(attempts % 256) ..
  string.sub(data, 4)
redis.call("SET", key, updated, "PX", ttl)
return {2, attempts}
`

var consumePendingLua = redis.NewScript(consumePendingScript)

const (
	consumeStatusNotFound int64 = 0
	consumeStatusExpired  int64 = 1
	consumeStatusMismatch int64 = 2
	consumeStatusExceeded int64 = 3
	consumeStatusConsumed int64 = 4
	consumeStatusCorrupt  int64 = 5
)

// PendingTwoFactorStore persists challenges keyed by the pending ID
// carried inside the alternate token.
type PendingTwoFactorStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewPendingTwoFactorStore(redisClient redis.UniversalClient, prefix string) *PendingTwoFactorStore {
	if prefix == "" {
		prefix = "p2f"
	}
	return &PendingTwoFactorStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *PendingTwoFactorStore) key(pendingID string) string {
	return s.prefix + ":" + pendingID
}

func (s *PendingTwoFactorStore) Save(
	ctx context.Context,
	pendingID string,
	record *PendingTwoFactor,
	ttl time.Duration,
) error {
	encoded, err := encodePending(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(pendingID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPendingBackend, err)
	}
	return nil
}

// Consume atomically verifies the OTP digest against the stored record.
// On match the record is deleted and returned: exactly one concurrent
// caller wins, every other sees ErrPendingNotFound. A mismatch
// increments the attempt counter in the same atomic step and destroys
// the record once maxAttempts is reached.
func (s *PendingTwoFactorStore) Consume(
	ctx context.Context,
	pendingID string,
	otpHash [32]byte,
	maxAttempts int,
) (*PendingTwoFactor, error) {
	res, err := consumePendingLua.Run(ctx, s.redis,
		[]string{s.key(pendingID)},
		otpHash[:], maxAttempts, time.Now().Unix(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPendingBackend, err)
	}
	if len(res) == 0 {
		return nil, ErrPendingCorrupt
	}

	status, ok := res[0].(int64)
	if !ok {
		return nil, ErrPendingCorrupt
	}

	switch status {
	case consumeStatusNotFound:
		return nil, ErrPendingNotFound
	case consumeStatusExpired:
		return nil, ErrPendingExpired
	case consumeStatusMismatch:
		return nil, ErrPendingOTPMismatch
	case consumeStatusExceeded:
		return nil, ErrPendingAttemptsExceeded
	case consumeStatusConsumed:
		if len(res) < 2 {
			return nil, ErrPendingCorrupt
		}
		raw, ok := res[1].(string)
		if !ok {
			return nil, ErrPendingCorrupt
		}
		record, err := decodePending([]byte(raw))
		if err != nil {
			return nil, err
		}
		return record, nil
	default:
		return nil, ErrPendingCorrupt
	}
}

// Delete discards a pending record, reporting whether it existed.
func (s *PendingTwoFactorStore) Delete(ctx context.Context, pendingID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(pendingID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPendingBackend, err)
	}
	return n > 0, nil
}

func encodePending(record *PendingTwoFactor) ([]byte, error) {
	if len(record.MemberID) > 65535 || len(record.IP) > 65535 {
		return nil, errors.New("pending record field length exceeded")
	}

	var buf bytes.Buffer
	buf.WriteByte(pendingRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.OTPHash[:])

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.MemberID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.MemberID)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.IP))); err != nil {
		return nil, err
	}
	buf.WriteString(record.IP)

	return buf.Bytes(), nil
}

func decodePending(data []byte) (*PendingTwoFactor, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrPendingCorrupt
	}
	if version != pendingRecordVersion1 {
		return nil, ErrPendingCorrupt
	}

	record := &PendingTwoFactor{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, ErrPendingCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, ErrPendingCorrupt
	}
	if _, err := io.ReadFull(reader, record.OTPHash[:]); err != nil {
		return nil, ErrPendingCorrupt
	}

	var memberLen uint16
	if err := binary.Read(reader, binary.BigEndian, &memberLen); err != nil {
		return nil, ErrPendingCorrupt
	}
	member := make([]byte, memberLen)
	if _, err := io.ReadFull(reader, member); err != nil {
		return nil, ErrPendingCorrupt
	}
	record.MemberID = string(member)

	var ipLen uint16
	if err := binary.Read(reader, binary.BigEndian, &ipLen); err != nil {
		return nil, ErrPendingCorrupt
	}
	ip := make([]byte, ipLen)
	if _, err := io.ReadFull(reader, ip); err != nil {
		return nil, ErrPendingCorrupt
	}
	record.IP = string(ip)

	return record, nil
}
