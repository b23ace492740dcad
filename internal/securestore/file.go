package securestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// FileStore persists the credential pair encrypted at rest with AES-GCM.
// The sealing key is derived from the configured secret with HKDF so the
// secret itself is never used as a cipher key directly.
type FileStore struct {
	path string
	aead cipher.AEAD

	mu sync.Mutex
}

type credentialFile struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func NewFileStore(path string, secret []byte) (*FileStore, error) {
	if len(secret) == 0 {
		return nil, errors.New("securestore: secret is required")
	}

	salt := []byte("storefront-credential-store")
	info := "token-sealing"

	hkdfReader := hkdf.New(sha256.New, secret, salt, []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &FileStore{path: path, aead: aead}, nil
}

func (f *FileStore) Tokens(context.Context) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sealed, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("read credentials: %w", err)
	}

	nonceSize := f.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", "", errors.New("credential file truncated")
	}

	plain, err := f.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", "", fmt.Errorf("unseal credentials: %w", err)
	}

	var creds credentialFile
	if err := json.Unmarshal(plain, &creds); err != nil {
		return "", "", fmt.Errorf("decode credentials: %w", err)
	}
	return creds.AccessToken, creds.RefreshToken, nil
}

func (f *FileStore) SetTokens(_ context.Context, access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	plain, err := json.Marshal(credentialFile{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	nonce := make([]byte, f.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	sealed := f.aead.Seal(nonce, nonce, plain, nil)
	if err := os.WriteFile(f.path, sealed, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
