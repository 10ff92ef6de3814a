// Package crypto protects secrets kept in the configuration file.
//
// Values are sealed with AES-256-GCM under a key derived from a passphrase with
// PBKDF2. Each value carries its own random salt and nonce, so encrypting the
// same secret twice gives different output.
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
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	iterations = 100000
	keySize    = 32 // AES-256

	prefix = "enc:v1:"
)

var (
	// ErrNoPassphrase is returned when no passphrase was supplied
	ErrNoPassphrase = errors.New("encryption passphrase is empty")
	// ErrDecrypt is returned when a value cannot be opened with the passphrase
	ErrDecrypt = errors.New("cannot decrypt value: wrong passphrase or corrupt data")
)

// Encryptor seals and opens secrets with a passphrase
type Encryptor struct {
	passphrase []byte
}

// NewEncryptor creates a new encryptor with the given passphrase
func NewEncryptor(passphrase string) (*Encryptor, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	return &Encryptor{passphrase: []byte(passphrase)}, nil
}

// IsEncrypted reports whether value looks like the output of Encrypt
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, prefix)
}

// Encrypt seals plaintext and returns a printable value
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	gcm, err := e.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	data := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	data = append(data, salt...)
	data = append(data, nonce...)
	data = append(data, sealed...)
	return prefix + base64.StdEncoding.EncodeToString(data), nil
}

// Decrypt opens a value produced by Encrypt
func (e *Encryptor) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return "", fmt.Errorf("%w: missing %q prefix", ErrDecrypt, prefix)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(data) < saltSize {
		return "", ErrDecrypt
	}

	salt, rest := data[:saltSize], data[saltSize:]
	gcm, err := e.aead(salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return "", ErrDecrypt
	}

	nonce, sealed := rest[:nonceSize], rest[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}

	return string(plaintext), nil
}

func (e *Encryptor) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
