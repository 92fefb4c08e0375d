package referral

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"github.com/sethvargo/go-password/password"
)

// Cipher seals snapshot bytes at rest.
type Cipher interface {
	Encrypt(value []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type gcmCipher struct {
	aead cipher.AEAD
}

// NewGCMCipher returns an AES-GCM Cipher. secret must be 16, 24 or 32 bytes.
func NewGCMCipher(secret []byte) (Cipher, error) {
	c, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}
	return &gcmCipher{aead: aead}, nil
}

func (c *gcmCipher) Encrypt(value []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, value, nil), nil
}

func (c *gcmCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:n], ciphertext[n:]
	return c.aead.Open(nil, nonce, sealed, nil)
}

// plainCipher is used when no key is configured.
type plainCipher struct{}

func (plainCipher) Encrypt(value []byte) ([]byte, error)      { return value, nil }
func (plainCipher) Decrypt(ciphertext []byte) ([]byte, error) { return ciphertext, nil }

// GenerateSnapshotKey returns a random base64 AES-256 key suitable for
// FileStorageConfig.Key.
func GenerateSnapshotKey() string {
	return base64.StdEncoding.EncodeToString([]byte(password.MustGenerate(32, 8, 0, false, false)))
}
