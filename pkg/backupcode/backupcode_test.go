package backupcode_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		count   int
		length  int
		wantErr error
	}{
		{name: "defaults", count: 0, length: 0},
		{name: "single code", count: 1, length: 8},
		{name: "long codes", count: 10, length: 16},
		{name: "negative count", count: -1, length: 8, wantErr: backupcode.ErrInvalidCount},
		{name: "too short", count: 8, length: 4, wantErr: backupcode.ErrInvalidLength},
		{name: "too long", count: 8, length: 64, wantErr: backupcode.ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := backupcode.NewGenerator(tt.count, tt.length)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			codes, err := g.Generate()
			require.NoError(t, err)
			assert.Len(t, codes, g.Count)

			seen := make(map[string]bool)
			for _, code := range codes {
				assert.Len(t, code, g.Length)
				for _, r := range code {
					assert.True(t, strings.ContainsRune(backupcode.Alphabet, r), "unexpected symbol %q", r)
				}
				assert.False(t, seen[code], "duplicate code found")
				seen[code] = true
			}
		})
	}
}

func TestAlphabet_ExcludesAmbiguousSymbols(t *testing.T) {
	t.Parallel()
	assert.Len(t, backupcode.Alphabet, 32)
	for _, r := range "IO01" {
		assert.NotContains(t, backupcode.Alphabet, string(r))
	}
}

// repeatingReader always returns the same bytes so every code collides.
type repeatingReader struct{ b byte }

func (r repeatingReader) Read(p []byte) (int, error) {
	copy(p, bytes.Repeat([]byte{r.b}, len(p)))
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_CollisionsAreRegenerated(t *testing.T) {
	restore := backupcode.SetRandReader(repeatingReader{b: 7})
	defer restore()

	_, err := backupcode.Generator{Count: 2, Length: 8}.Generate()
	assert.ErrorIs(t, err, backupcode.ErrTooManyCollisions)

	codes, err := backupcode.Generator{Count: 1, Length: 8}.Generate()
	require.NoError(t, err)
	assert.Equal(t, backupcode.Set{"HHHHHHHH"}, codes)
}

func TestGenerate_EntropyUnavailable(t *testing.T) {
	restore := backupcode.SetRandReader(failingReader{})
	defer restore()

	codes, err := backupcode.Generate()
	assert.Nil(t, codes)
	assert.ErrorIs(t, err, backupcode.ErrEntropyUnavailable)
}

func TestConsume(t *testing.T) {
	t.Parallel()
	set := backupcode.Set{"ABCD2345", "EFGH6789", "JKLM2345"}

	tests := []struct {
		name      string
		candidate string
		wantOK    bool
		wantSet   backupcode.Set
	}{
		{name: "exact match", candidate: "EFGH6789", wantOK: true, wantSet: backupcode.Set{"ABCD2345", "JKLM2345"}},
		{name: "lowercase match", candidate: "abcd2345", wantOK: true, wantSet: backupcode.Set{"EFGH6789", "JKLM2345"}},
		{name: "surrounding whitespace", candidate: "  jklm2345\n", wantOK: true, wantSet: backupcode.Set{"ABCD2345", "EFGH6789"}},
		{name: "prefix only", candidate: "ABCD234", wantOK: false, wantSet: set},
		{name: "unknown", candidate: "ZZZZ9999", wantOK: false, wantSet: set},
		{name: "empty", candidate: "", wantOK: false, wantSet: set},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, rest := backupcode.Consume(set, tt.candidate)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSet, rest)
		})
	}

	// input is never modified
	assert.Equal(t, backupcode.Set{"ABCD2345", "EFGH6789", "JKLM2345"}, set)
}

func TestConsume_Replay(t *testing.T) {
	t.Parallel()
	set, err := backupcode.Generate()
	require.NoError(t, err)
	code := set[3]

	ok, rest := backupcode.Consume(set, code)
	require.True(t, ok)
	assert.Equal(t, set.Len()-1, rest.Len())

	ok, again := backupcode.Consume(rest, code)
	assert.False(t, ok)
	assert.Equal(t, rest, again)
}

func TestMarshalUnmarshal(t *testing.T) {
	t.Parallel()
	set := backupcode.Set{"ABCD2345", "EFGH6789"}
	data, err := set.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `["ABCD2345","EFGH6789"]`, string(data))

	got, err := backupcode.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, set, got)

	empty, err := backupcode.Set(nil).Marshal()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	_, err = backupcode.Unmarshal([]byte("{not json"))
	assert.ErrorIs(t, err, backupcode.ErrMalformedSet)
}
