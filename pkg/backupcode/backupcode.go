package backupcode

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	DefaultCount  = 8
	DefaultLength = 8

	// Alphabet omits I, O, 0 and 1. Its 32 symbols let a random byte be masked
	// to an index without modulo bias.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	minLength = 6
	maxLength = 32

	// maxAttempts bounds regeneration on collisions; with 40 bits per code a
	// second attempt is already practically unreachable.
	maxAttempts = 16
)

var randReader io.Reader = rand.Reader

// Set is an ordered list of unused recovery codes.
type Set []string

// Len returns the number of unused codes.
func (s Set) Len() int {
	return len(s)
}

// Marshal encodes the set for sealing.
func (s Set) Marshal() ([]byte, error) {
	if s == nil {
		s = Set{}
	}
	return json.Marshal([]string(s))
}

// Unmarshal decodes a set produced by Marshal.
func Unmarshal(data []byte) (Set, error) {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, errors.Join(ErrMalformedSet, err)
	}
	return Set(codes), nil
}

// Generator creates recovery code sets.
type Generator struct {
	Count  int
	Length int
}

// NewGenerator returns a validated generator; zero values take the defaults.
func NewGenerator(count, length int) (Generator, error) {
	if count == 0 {
		count = DefaultCount
	}
	if length == 0 {
		length = DefaultLength
	}
	g := Generator{Count: count, Length: length}
	return g, g.Validate()
}

// Validate checks the generator parameters.
func (g Generator) Validate() error {
	var errs []error
	if g.Count < 1 {
		errs = append(errs, ErrInvalidCount)
	}
	if g.Length < minLength || g.Length > maxLength {
		errs = append(errs, ErrInvalidLength)
	}
	return errors.Join(errs...)
}

// Generate creates Count unique codes of Length characters from Alphabet.
func (g Generator) Generate() (Set, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	codes := make(Set, 0, g.Count)
	seen := make(map[string]struct{}, g.Count)
	for attempts := 0; len(codes) < g.Count; attempts++ {
		if attempts >= g.Count*maxAttempts {
			return nil, ErrTooManyCollisions
		}
		code, err := randomCode(g.Length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// Generate creates a set with the default parameters.
func Generate() (Set, error) {
	return Generator{Count: DefaultCount, Length: DefaultLength}.Generate()
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return "", errors.Join(ErrEntropyUnavailable, err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[b&31]
	}
	return string(buf), nil
}

// Normalize trims whitespace and uppercases a user-supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Consume looks for candidate in set, case-insensitively. On a match it returns
// true and a new set without that code; otherwise false and the original set.
// The input set is never modified. All codes are compared in constant time so
// the response time does not depend on where, or how closely, a code matched.
func Consume(set Set, candidate string) (bool, Set) {
	candidate = Normalize(candidate)
	if candidate == "" {
		return false, set
	}

	match := -1
	for i, code := range set {
		if subtle.ConstantTimeCompare([]byte(code), []byte(candidate)) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return false, set
	}

	rest := make(Set, 0, len(set)-1)
	rest = append(rest, set[:match]...)
	rest = append(rest, set[match+1:]...)
	return true, rest
}
