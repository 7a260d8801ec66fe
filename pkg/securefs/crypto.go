package securefs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeySize is the symmetric key length: 256 bits for AES-256-GCM.
const KeySize = 32

// segmentSeparator joins the three base64 segments of the on-disk encrypted
// format: base64(iv):base64(tag):base64(ciphertext). Any other shape is a
// hard error on decrypt.
const segmentSeparator = ":"

// generateKey returns a fresh random 256-bit key.
func generateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return key, nil
}

// sealContent encrypts plaintext with AES-256-GCM and encodes the result as
// the three-segment wire form. Re-encrypting the same content produces
// different output: the nonce is random per call.
func sealContent(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	// GCM appends the authentication tag to the ciphertext; the wire format
	// carries it as its own segment.
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	encoded := strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, segmentSeparator)

	return []byte(encoded), nil
}

// openContent parses the three-segment form and decrypts it. A wrong segment
// count is a format error; an authentication failure (wrong key or tampered
// content) is reported as ReasonDecryptFailed without exposing the
// underlying cipher error.
func openContent(path string, stored, key []byte) ([]byte, error) {
	segments := strings.Split(string(stored), segmentSeparator)
	if len(segments) != 3 {
		return nil, securityErr(ReasonBadFormat, path)
	}

	nonce, err := base64.StdEncoding.DecodeString(segments[0])
	if err != nil {
		return nil, securityErr(ReasonBadFormat, path)
	}
	tag, err := base64.StdEncoding.DecodeString(segments[1])
	if err != nil {
		return nil, securityErr(ReasonBadFormat, path)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(segments[2])
	if err != nil {
		return nil, securityErr(ReasonBadFormat, path)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &ArgumentError{Msg: fmt.Sprintf("invalid encryption key: %v", err)}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &ArgumentError{Msg: fmt.Sprintf("invalid encryption key: %v", err)}
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, securityErr(ReasonBadFormat, path)
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, securityErr(ReasonDecryptFailed, path)
	}

	return plaintext, nil
}

// checksumHex returns the SHA-256 hex digest of data (64 characters).
func checksumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// decodeKey parses a base64 key string and enforces the 256-bit length.
func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &ArgumentError{Msg: "encryption key is not valid base64"}
	}
	if len(key) != KeySize {
		return nil, &ArgumentError{Msg: fmt.Sprintf("encryption key must be %d bytes, got %d", KeySize, len(key))}
	}
	return key, nil
}
