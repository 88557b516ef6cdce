package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
)

// TokenCipher encrypts marketplace OAuth tokens at rest with XChaCha20-Poly1305.
// The key comes from TOKEN_CIPHER_KEY (base64, 32 bytes after decoding).
type TokenCipher struct {
	key []byte
}

func NewTokenCipherFromEnv() (*TokenCipher, error) {
	raw := os.Getenv("TOKEN_CIPHER_KEY")
	if raw == "" {
		return nil, errors.New("TOKEN_CIPHER_KEY is not set")
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return NewTokenCipher(key)
}

func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("token cipher key must be 32 bytes")
	}
	return &TokenCipher{key: key}, nil
}

func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
