package vault_test

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/dmitrymomot/mfakit/pkg/vault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func newKey(t *testing.T) []byte {
	t.Helper()
	key, err := vault.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		key     []byte
		opts    []vault.Option
		wantErr error
	}{
		{name: "missing key", key: nil, wantErr: vault.ErrKeyNotConfigured},
		{name: "short key", key: make([]byte, 16), wantErr: vault.ErrInvalidKeyLength},
		{name: "empty key id", key: make([]byte, 32), opts: []vault.Option{vault.WithKeyID("")}, wantErr: vault.ErrInvalidKeyID},
		{name: "bad retired key", key: make([]byte, 32), opts: []vault.Option{vault.WithDecryptionKey("v0", make([]byte, 8))}, wantErr: vault.ErrInvalidKeyLength},
		{name: "valid key", key: make([]byte, 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := vault.New(tt.key, tt.opts...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, v)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, vault.DefaultKeyID, v.KeyID())
		})
	}
}

func TestNewFromBase64(t *testing.T) {
	t.Parallel()

	encoded, err := vault.GenerateEncodedKey()
	require.NoError(t, err)
	v, err := vault.NewFromBase64(encoded)
	require.NoError(t, err)
	assert.NotNil(t, v)

	_, err = vault.NewFromBase64("")
	assert.ErrorIs(t, err, vault.ErrKeyNotConfigured)

	_, err = vault.NewFromBase64("not base64 !!")
	assert.ErrorIs(t, err, vault.ErrInvalidKeyEncoding)

	_, err = vault.NewFromBase64(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, vault.ErrInvalidKeyLength)
}

func TestSealUnseal_RoundTrip(t *testing.T) {
	t.Parallel()
	v, err := vault.New(newKey(t))
	require.NoError(t, err)

	inputs := [][]byte{
		{},
		[]byte("JBSWY3DPEHPK3PXP"),
		[]byte(`["ABCD2345","EFGH6789"]`),
		bytes.Repeat([]byte{0x00, 0xff, 0x7f}, 4096),
	}

	for _, plaintext := range inputs {
		sealed, err := v.Seal(plaintext)
		require.NoError(t, err)
		assert.Len(t, sealed.IV, 12)
		assert.Equal(t, vault.DefaultKeyID, sealed.KeyID)
		if len(plaintext) > 0 {
			assert.NotContains(t, string(sealed.Ciphertext), string(plaintext))
		}

		got, err := v.Unseal(sealed)
		require.NoError(t, err)
		assert.Equal(t, len(plaintext), len(got))
		assert.True(t, bytes.Equal(plaintext, got))
	}
}

func TestSeal_FreshIVPerCall(t *testing.T) {
	t.Parallel()
	v, err := vault.New(newKey(t))
	require.NoError(t, err)

	a, err := v.SealString("same secret")
	require.NoError(t, err)
	b, err := v.SealString("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestUnseal_Tampering(t *testing.T) {
	t.Parallel()
	v, err := vault.New(newKey(t))
	require.NoError(t, err)

	sealed, err := v.SealString("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	flip := func(b []byte, i int) []byte {
		c := bytes.Clone(b)
		c[i] ^= 0x01
		return c
	}

	tests := []struct {
		name   string
		sealed vault.Sealed
	}{
		{name: "flipped ciphertext byte", sealed: vault.Sealed{Ciphertext: flip(sealed.Ciphertext, 0), IV: sealed.IV, KeyID: sealed.KeyID}},
		{name: "flipped tag byte", sealed: vault.Sealed{Ciphertext: flip(sealed.Ciphertext, len(sealed.Ciphertext)-1), IV: sealed.IV, KeyID: sealed.KeyID}},
		{name: "wrong iv", sealed: vault.Sealed{Ciphertext: sealed.Ciphertext, IV: flip(sealed.IV, 3), KeyID: sealed.KeyID}},
		{name: "short iv", sealed: vault.Sealed{Ciphertext: sealed.Ciphertext, IV: sealed.IV[:8], KeyID: sealed.KeyID}},
		{name: "truncated ciphertext", sealed: vault.Sealed{Ciphertext: sealed.Ciphertext[:4], IV: sealed.IV, KeyID: sealed.KeyID}},
		{name: "unknown key id", sealed: vault.Sealed{Ciphertext: sealed.Ciphertext, IV: sealed.IV, KeyID: "v9"}},
		{name: "empty", sealed: vault.Sealed{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := v.Unseal(tt.sealed)
			assert.ErrorIs(t, err, vault.ErrDecryption)
			assert.Nil(t, got)
		})
	}
}

func TestUnseal_WrongKey(t *testing.T) {
	t.Parallel()
	a, err := vault.New(newKey(t))
	require.NoError(t, err)
	b, err := vault.New(newKey(t))
	require.NoError(t, err)

	sealed, err := a.SealString("secret")
	require.NoError(t, err)

	_, err = b.Unseal(sealed)
	assert.ErrorIs(t, err, vault.ErrDecryption)
}

func TestKeyRotation(t *testing.T) {
	t.Parallel()
	oldKey := newKey(t)
	newMaster := newKey(t)

	old, err := vault.New(oldKey, vault.WithKeyID("v1"))
	require.NoError(t, err)
	legacy, err := old.SealString("legacy secret")
	require.NoError(t, err)

	rotated, err := vault.New(newMaster, vault.WithKeyID("v2"), vault.WithDecryptionKey("v1", oldKey))
	require.NoError(t, err)
	assert.Equal(t, "v2", rotated.KeyID())

	got, err := rotated.UnsealString(legacy)
	require.NoError(t, err)
	assert.Equal(t, "legacy secret", got)

	fresh, err := rotated.SealString("new secret")
	require.NoError(t, err)
	assert.Equal(t, "v2", fresh.KeyID)

	// Relabelling a ciphertext with another key id must not decrypt
	relabelled := legacy
	relabelled.KeyID = "v2"
	_, err = rotated.Unseal(relabelled)
	assert.ErrorIs(t, err, vault.ErrDecryption)
}

func TestSeal_EntropyUnavailable(t *testing.T) {
	v, err := vault.New(make([]byte, 32))
	require.NoError(t, err)

	restore := vault.SetRandReader(failingReader{})
	defer restore()

	_, err = v.SealString("secret")
	assert.ErrorIs(t, err, vault.ErrEncryption)
	assert.ErrorIs(t, err, vault.ErrEntropyUnavailable)
}
