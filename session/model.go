package session

// Session defines a public type used by goMember APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	// Token is the opaque session credential. It doubles as the storage
	// key and is never derivable from member data.
	Token string

	// MemberID is a weak reference: the session relates to a member and
	// is looked up on demand, it never keeps the member record alive.
	MemberID string

	IPHash     [32]byte
	DeviceHash [32]byte

	IssuedAt  int64
	ExpiresAt int64
}
