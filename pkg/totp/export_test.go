package totp

import "io"

// SetRandReader replaces the entropy source and returns a restore func.
func SetRandReader(r io.Reader) func() {
	prev := randReader
	randReader = r
	return func() { randReader = prev }
}
