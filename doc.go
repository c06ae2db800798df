// Package mfakit is a multi-factor authentication toolkit: RFC 6238 TOTP,
// encrypted secret storage, single-use backup codes, lockout after repeated
// failures and role-based enforcement, tied together by the lifecycle service
// in pkg/mfa.
//
// Storage backends live in pkg/pg, pkg/redis and pkg/mongo. cmd/mfad runs the
// migrations, the expired-lockout sweeper and an ops server exposing
// Prometheus metrics and health probes.
package mfakit
