// Package backupcode generates and consumes single-use recovery codes.
//
// Codes are 8 characters by default, drawn from an alphabet without visually
// ambiguous symbols. Consume is pure: persisting the returned set is the caller's
// job and must happen atomically with the verification result.
package backupcode
