package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersion1 = 1

// Encode serializes a session record. Layout (version 1): version byte,
// issued-at and expires-at as big-endian int64, the two 32-byte binding
// hashes, then the length-prefixed member ID. The fixed-offset header
// keeps the record parseable from Lua scripts.
func Encode(s *Session) ([]byte, error) {
	if len(s.MemberID) == 0 || len(s.MemberID) > 65535 {
		return nil, errors.New("invalid member id length")
	}

	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersion1)

	if err := binary.Write(&buf, binary.BigEndian, s.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	buf.Write(s.IPHash[:])
	buf.Write(s.DeviceHash[:])

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.MemberID))); err != nil {
		return nil, err
	}
	buf.WriteString(s.MemberID)

	return buf.Bytes(), nil
}

// Decode describes the decode operation and its observable behavior.
//
// Decode may return an error when input validation, dependency calls, or security checks fail.
// Decode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersion1 {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}
	if err := binary.Read(reader, binary.BigEndian, &s.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, s.IPHash[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, s.DeviceHash[:]); err != nil {
		return nil, err
	}

	var memberLen uint16
	if err := binary.Read(reader, binary.BigEndian, &memberLen); err != nil {
		return nil, err
	}
	member := make([]byte, memberLen)
	if _, err := io.ReadFull(reader, member); err != nil {
		return nil, err
	}
	s.MemberID = string(member)

	return s, nil
}
