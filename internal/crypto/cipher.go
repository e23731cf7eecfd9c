package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrKeyTooShort      = errors.New("encryption key must be at least 32 bytes")
	ErrCipherTextShort  = errors.New("cipher text too short")
	ErrDecryptionFailed = errors.New("failed to decrypt")
)

const keyInfo = "diary-api entry encryption v1"

// Cipher encrypts short texts with AES-256-GCM. The AES key is derived from
// the configured secret with HKDF-SHA256.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(secret []byte) (*Cipher, error) {
	if len(secret) < 32 {
		return nil, ErrKeyTooShort
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM block: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plainText bound to associated (for example the owner id) and
// returns nonce||ciphertext in base64
func (c *Cipher) Encrypt(plainText, associated string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plainText), []byte(associated))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt; associated must match the value used to encrypt
func (c *Cipher) Decrypt(encrypted, associated string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to base64 decode: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrCipherTextShort
	}

	plain, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(associated))
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plain), nil
}
