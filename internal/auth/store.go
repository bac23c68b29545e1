// Package auth persists the single OAuth token the bridge holds. The
// token file is plain JSON by default, interchangeable with the token.json
// written by other Google API tooling; setting a password encrypts the
// blob at rest with AES-GCM under an argon2id-derived key.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/oauth2"
)

// ErrNotFound reports that no token has been stored yet.
var ErrNotFound = errors.New("no stored token")

const saltSize = 16

type Store struct {
	Path string
	// Password enables at-rest encryption when non-empty.
	Password string
}

// Load re-reads the backing file on every call; there is no in-memory
// cache across restarts.
func (s Store) Load() (*oauth2.Token, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	blob, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read token: %w", err)
	}
	if s.Password != "" {
		if blob, err = s.decrypt(blob); err != nil {
			return nil, err
		}
	}
	var tok oauth2.Token
	if err := json.Unmarshal(blob, &tok); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &tok, nil
}

func (s Store) Save(tok *oauth2.Token) error {
	if s.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if tok == nil {
		return fmt.Errorf("token is required")
	}
	blob, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if s.Password != "" {
		if blob, err = s.encrypt(blob); err != nil {
			return err
		}
	}
	if err := os.WriteFile(s.Path, blob, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s Store) encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	gcm, err := s.cipher(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	return append(append(salt, nonce...), ciphertext...), nil
}

func (s Store) decrypt(blob []byte) ([]byte, error) {
	if len(blob) < saltSize {
		return nil, fmt.Errorf("invalid encrypted token")
	}
	gcm, err := s.cipher(blob[:saltSize])
	if err != nil {
		return nil, err
	}
	if len(blob) < saltSize+gcm.NonceSize() {
		return nil, fmt.Errorf("invalid encrypted token")
	}
	nonce := blob[saltSize : saltSize+gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, blob[saltSize+gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt token: %w", err)
	}
	return plaintext, nil
}

func (s Store) cipher(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(s.Password), salt, 3, 64*1024, 4, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}
