package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/vault"
)

const credentialColumns = `user_id, secret_ciphertext, secret_iv, secret_key_id,
	backup_ciphertext, backup_iv, backup_key_id, enabled, setup_at,
	last_used_at, disabled_at, version, created_at, updated_at`

const (
	selectCredentialSQL = `SELECT ` + credentialColumns + ` FROM mfa_credentials WHERE user_id = $1`

	insertCredentialSQL = `INSERT INTO mfa_credentials (` + credentialColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateCredentialSQL = `UPDATE mfa_credentials SET
	secret_ciphertext = $2, secret_iv = $3, secret_key_id = $4,
	backup_ciphertext = $5, backup_iv = $6, backup_key_id = $7,
	enabled = $8, setup_at = $9, last_used_at = $10, disabled_at = $11,
	version = $12, created_at = $13, updated_at = $14
	WHERE user_id = $1 AND version = $15`
)

// CredentialStore implements mfa.Store on the mfa_credentials table.
// Save is a compare-and-swap on the version column.
type CredentialStore struct {
	db DB
}

func NewCredentialStore(db DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Get(ctx context.Context, userID string) (*mfa.Credential, error) {
	var (
		c                      mfa.Credential
		secretCT, secretIV     []byte
		backupCT, backupIV     []byte
		secretKeyID, backupKID *string
	)
	err := s.db.QueryRow(ctx, selectCredentialSQL, userID).Scan(
		&c.UserID, &secretCT, &secretIV, &secretKeyID,
		&backupCT, &backupIV, &backupKID, &c.Enabled, &c.SetupAt,
		&c.LastUsedAt, &c.DisabledAt, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if IsNotFoundError(err) {
		return nil, mfa.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get credential: %w", err)
	}
	c.Secret = sealedFromColumns(secretCT, secretIV, secretKeyID)
	c.BackupCodes = sealedFromColumns(backupCT, backupIV, backupKID)
	return &c, nil
}

func (s *CredentialStore) Save(ctx context.Context, cred *mfa.Credential, expectedVersion int64) error {
	args := credentialArgs(cred, expectedVersion+1)

	if expectedVersion == 0 {
		if _, err := s.db.Exec(ctx, insertCredentialSQL, args...); err != nil {
			if IsDuplicateKeyError(err) {
				return mfa.ErrConflict
			}
			return fmt.Errorf("pg: insert credential: %w", err)
		}
		cred.Version = expectedVersion + 1
		return nil
	}

	tag, err := s.db.Exec(ctx, updateCredentialSQL, append(args, expectedVersion)...)
	if err != nil {
		return fmt.Errorf("pg: update credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mfa.ErrConflict
	}
	cred.Version = expectedVersion + 1
	return nil
}

// credentialArgs lists cred in credentialColumns order with the given version.
func credentialArgs(cred *mfa.Credential, version int64) []any {
	secretCT, secretIV, secretKeyID := sealedColumns(cred.Secret)
	backupCT, backupIV, backupKeyID := sealedColumns(cred.BackupCodes)
	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = cred.UpdatedAt
	}
	return []any{
		cred.UserID, secretCT, secretIV, secretKeyID,
		backupCT, backupIV, backupKeyID, cred.Enabled, utcPtr(cred.SetupAt),
		utcPtr(cred.LastUsedAt), utcPtr(cred.DisabledAt), version, createdAt.UTC(), cred.UpdatedAt.UTC(),
	}
}

// sealedColumns splits a sealed value into nullable columns.
func sealedColumns(s *vault.Sealed) ([]byte, []byte, *string) {
	if s == nil {
		return nil, nil, nil
	}
	keyID := s.KeyID
	return s.Ciphertext, s.IV, &keyID
}

func sealedFromColumns(ciphertext, iv []byte, keyID *string) *vault.Sealed {
	if ciphertext == nil || keyID == nil {
		return nil
	}
	return &vault.Sealed{Ciphertext: ciphertext, IV: iv, KeyID: *keyID}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ mfa.Store = (*CredentialStore)(nil)
