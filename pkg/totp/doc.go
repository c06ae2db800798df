// Package totp implements time-based one-time passwords (RFC 6238) on top of
// the HMAC-based HOTP algorithm (RFC 4226).
//
// The package is pure: it performs no I/O and keeps no state beyond the
// parameters of an Engine. Secrets travel as unpadded Base32 strings using the
// standard RFC 4648 alphabet, which is what authenticator apps expect for manual
// entry and inside otpauth URIs.
//
// # Usage
//
//	engine, err := totp.New(totp.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
//	secret, err := engine.GenerateSecret() // 160 bits from crypto/rand
//	if err != nil {
//	    return err // wraps totp.ErrEntropyUnavailable
//	}
//
//	uri := engine.EnrollmentURI("Acme", "alice@example.com", secret)
//
//	// later, on login
//	ok := engine.Verify(secret, "123456", time.Now())
//
// Package level helpers (GenerateSecret, BuildEnrollmentURI, ComputeCode,
// VerifyCode) expose the same algorithm with explicit parameters.
//
// Verification compares the candidate against every time step inside the window
// using crypto/subtle and never returns an error: malformed candidates are
// rejected before the secret is decoded.
package totp
