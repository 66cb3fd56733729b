// Package goMember is an embeddable member-authentication engine.
//
// It covers the credential lifecycle (registration, password login,
// deletion), Redis-backed sessions bound to the issuing IP and device
// fingerprint, a single-use alternate-token + one-time-password
// two-factor flow, and an ordered hook pipeline that lets external
// policy (such as account lockout) veto authentication at named
// extension points without being able to mint tokens or sessions.
//
// Construct an [Engine] through [New]:
//
//	engine, err := goMember.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithMemberProvider(provider).
//		Build()
//
// Member rows live behind the caller-implemented [MemberProvider];
// sessions, pending two-factor challenges, and lockout counters are
// persisted in Redis by the engine itself.
package goMember
