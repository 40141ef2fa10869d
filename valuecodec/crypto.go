package valuecodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// Crypto implements spec.md §4.10's symmetric encryption for fields
// marked IsEncrypted: "using an externally supplied password and salt."
// AES-GCM (stdlib crypto/aes, crypto/cipher) is the cipher; no example
// repo in the retrieval pack carries a symmetric-crypto dependency, so
// this is a justified stdlib choice (see DESIGN.md).
type Crypto struct {
	gcm cipher.AEAD
}

// NewCrypto derives a 256-bit key from password and salt (via SHA-256)
// and builds an AES-GCM cipher.AEAD. Returns an error only if password is
// empty; an empty salt is permitted (callers without a configured salt
// still get symmetric encryption, just without its defense-in-depth).
func NewCrypto(password, salt string) (*Crypto, error) {
	if password == "" {
		return nil, fmt.Errorf("valuecodec: cryptPassword must not be empty")
	}
	key := sha256.Sum256([]byte(salt + password))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("valuecodec: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("valuecodec: new gcm: %w", err)
	}
	return &Crypto{gcm: gcm}, nil
}

// Encrypt returns the base64-encoded (nonce || ciphertext) of plaintext,
// suitable for storage in a text column.
func (c *Crypto) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("valuecodec: nonce: %w", err)
	}
	ct := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt.
func (c *Crypto) Decrypt(stored string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("valuecodec: base64: %w", err)
	}
	n := c.gcm.NonceSize()
	if len(raw) < n {
		return "", fmt.Errorf("valuecodec: ciphertext too short")
	}
	nonce, ct := raw[:n], raw[n:]
	pt, err := c.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("valuecodec: decrypt: %w", err)
	}
	return string(pt), nil
}
