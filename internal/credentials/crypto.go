package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32 // AES-256
	iterations = 100000
)

var errCiphertextTooShort = errors.New("ciphertext too short")

// Crypto encrypts and decrypts stored credentials. The AES key is derived
// from the server secret and a random per-record salt; each record also
// carries its own GCM nonce. Layout: salt | nonce | sealed.
type Crypto struct {
	secret string
}

// NewCrypto creates a new Crypto instance
func NewCrypto(secret string) (*Crypto, error) {
	if secret == "" {
		return nil, errors.New("credential secret is required")
	}
	return &Crypto{secret: secret}, nil
}

// deriveKey derives an AES key from the secret and salt using PBKDF2
func (c *Crypto) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(c.secret), salt, iterations, keySize, sha256.New)
}

func (c *Crypto) gcm(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt encrypts plaintext using AES-256-GCM
func (c *Crypto) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	result := make([]byte, saltSize+len(sealed))
	copy(result, salt)
	copy(result[saltSize:], sealed)
	return result, nil
}

// Decrypt decrypts data produced by Encrypt. Any tampering, truncation or
// wrong secret fails authentication.
func (c *Crypto) Decrypt(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, errCiphertextTooShort
	}

	salt := data[:saltSize]
	ciphertext := data[saltSize:]

	gcm, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errCiphertextTooShort
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("decryption failed: invalid secret or corrupted data")
	}
	return plaintext, nil
}
