package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"io"
)

// Sealed is the at-rest form of a secret. IV is stored separately from the
// ciphertext so the persisted layout has one column per part.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	KeyID      string
}

// Vault performs authenticated encryption with AES-256-GCM.
// Keys are fixed at construction; a Vault is safe for concurrent use.
type Vault struct {
	activeID string
	aeads    map[string]cipher.AEAD
}

// Option configures a Vault.
type Option func(*options)

type options struct {
	keyID      string
	decryptors map[string][]byte
}

// WithKeyID sets the id recorded on newly sealed values. Defaults to DefaultKeyID.
func WithKeyID(id string) Option {
	return func(o *options) {
		o.keyID = id
	}
}

// WithDecryptionKey registers a retired master key that Unseal still accepts.
// Seal always uses the active key.
func WithDecryptionKey(id string, key []byte) Option {
	return func(o *options) {
		if o.decryptors == nil {
			o.decryptors = make(map[string][]byte)
		}
		o.decryptors[id] = key
	}
}

// New creates a vault from a raw 32-byte master key.
// A missing key is reported as ErrKeyNotConfigured and must stop the process.
func New(key []byte, opts ...Option) (*Vault, error) {
	if len(key) == 0 {
		return nil, ErrKeyNotConfigured
	}

	o := &options{keyID: DefaultKeyID}
	for _, opt := range opts {
		opt(o)
	}
	if o.keyID == "" {
		return nil, ErrInvalidKeyID
	}

	v := &Vault{
		activeID: o.keyID,
		aeads:    make(map[string]cipher.AEAD, len(o.decryptors)+1),
	}

	keys := map[string][]byte{o.keyID: key}
	for id, k := range o.decryptors {
		if id == "" {
			return nil, ErrInvalidKeyID
		}
		if id != o.keyID {
			keys[id] = k
		}
	}

	for id, k := range keys {
		aead, err := newAEAD(k, id)
		if err != nil {
			return nil, err
		}
		v.aeads[id] = aead
	}

	return v, nil
}

// NewFromBase64 decodes the master key as stored in configuration and creates a vault.
func NewFromBase64(encoded string, opts ...Option) (*Vault, error) {
	key, err := DecodeKey(encoded)
	if err != nil {
		return nil, err
	}
	return New(key, opts...)
}

func newAEAD(master []byte, keyID string) (cipher.AEAD, error) {
	if len(master) != KeySize {
		return nil, ErrInvalidKeyLength
	}

	key, err := deriveKey(master, keyID)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrEncryption, err)
	}
	return cipher.NewGCM(block)
}

// KeyID returns the id attached to newly sealed values.
func (v *Vault) KeyID() string {
	return v.activeID
}

// Seal encrypts plaintext under the active key with a fresh random IV.
func (v *Vault) Seal(plaintext []byte) (Sealed, error) {
	aead := v.aeads[v.activeID]

	iv := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return Sealed{}, errors.Join(ErrEncryption, ErrEntropyUnavailable, err)
	}

	return Sealed{
		Ciphertext: aead.Seal(nil, iv, plaintext, []byte(v.activeID)),
		IV:         iv,
		KeyID:      v.activeID,
	}, nil
}

// Unseal authenticates and decrypts a sealed value. Any tampering with the
// ciphertext, IV or key id yields ErrDecryption and no plaintext.
func (v *Vault) Unseal(s Sealed) ([]byte, error) {
	keyID := s.KeyID
	if keyID == "" {
		keyID = v.activeID
	}

	aead, ok := v.aeads[keyID]
	if !ok {
		return nil, errors.Join(ErrDecryption, ErrUnknownKeyID)
	}
	if len(s.IV) != aead.NonceSize() || len(s.Ciphertext) < aead.Overhead() {
		return nil, ErrDecryption
	}

	plaintext, err := aead.Open(nil, s.IV, s.Ciphertext, []byte(keyID))
	if err != nil {
		return nil, errors.Join(ErrDecryption, err)
	}
	return plaintext, nil
}

// SealString is a convenience wrapper around Seal.
func (v *Vault) SealString(plaintext string) (Sealed, error) {
	return v.Seal([]byte(plaintext))
}

// UnsealString is a convenience wrapper around Unseal.
func (v *Vault) UnsealString(s Sealed) (string, error) {
	b, err := v.Unseal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
