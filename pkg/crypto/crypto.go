package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"time"
)

// Cryptor is the capability services use to keep tokens encrypted at rest.
// It is injected rather than called as a package global so tests can swap in
// a double without real key material.
type Cryptor interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(encryptedData string) (string, error)
}

type AESCryptor struct {
	key []byte
}

func NewAESCryptor(key []byte) *AESCryptor {
	return &AESCryptor{key: key}
}

// Encrypt seals the plaintext with AES-GCM and returns base64(nonce||ciphertext).
func (c *AESCryptor) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	_, err = io.ReadFull(rand.Reader, nonce)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)
	finalData := append(nonce, ciphertext...)

	return base64.StdEncoding.EncodeToString(finalData), nil
}

// Decrypt reverses Encrypt. Callers must never log the returned plaintext.
func (c *AESCryptor) Decrypt(encryptedData string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return string(plaintext), nil
}

// IsTokenExpired reports whether the credential expiry has passed. There is
// no grace window: a token expiring this instant is expired.
func IsTokenExpired(expiresAt time.Time) bool {
	return !expiresAt.After(time.Now())
}
