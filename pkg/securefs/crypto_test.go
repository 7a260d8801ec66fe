package securefs

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c, root := newTestCopier(t, nil)
	// Deliberately not a multiple of the AES block size.
	plaintext := "nineteen byte text."
	if len(plaintext) != 19 {
		t.Fatalf("fixture drifted: %d bytes", len(plaintext))
	}
	path := filepath.Join(root, "data.txt")
	mustWriteFile(t, path, plaintext)

	key, err := c.EncryptFile("data.txt", nil)
	if err != nil {
		t.Fatalf("EncryptFile failed: %v", err)
	}
	if key == "" {
		t.Fatal("EncryptFile returned an empty key")
	}
	if raw, err := base64.StdEncoding.DecodeString(key); err != nil || len(raw) != KeySize {
		t.Fatalf("returned key is not base64 of %d bytes: %v", KeySize, err)
	}

	stored, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(stored, []byte(plaintext)) {
		t.Error("plaintext visible in encrypted file")
	}
	if got := len(strings.Split(string(stored), ":")); got != 3 {
		t.Errorf("encrypted form has %d segments, want 3", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != SensitiveFileMode {
		t.Errorf("encrypted file mode = %o, want %o", perm, SensitiveFileMode)
	}

	ok, err := c.DecryptFile("data.txt", key)
	if err != nil {
		t.Fatalf("DecryptFile failed: %v", err)
	}
	if !ok {
		t.Error("DecryptFile reported failure")
	}
	restored, _ := os.ReadFile(path)
	if string(restored) != plaintext {
		t.Errorf("roundtrip mismatch: %q", restored)
	}
}

func TestEncryptFileWithCallerKey(t *testing.T) {
	c, root := newTestCopier(t, nil)
	mustWriteFile(t, filepath.Join(root, "f.txt"), "payload")

	key := bytes.Repeat([]byte{0x42}, KeySize)
	encoded, err := c.EncryptFile("f.txt", key)
	if err != nil {
		t.Fatalf("EncryptFile failed: %v", err)
	}
	if encoded != base64.StdEncoding.EncodeToString(key) {
		t.Error("returned key does not match the supplied one")
	}

	if _, err := c.DecryptFile("f.txt", encoded); err != nil {
		t.Fatalf("decrypt with supplied key failed: %v", err)
	}
}

func TestEncryptFileKeyLength(t *testing.T) {
	c, root := newTestCopier(t, nil)
	mustWriteFile(t, filepath.Join(root, "f.txt"), "payload")

	_, err := c.EncryptFile("f.txt", []byte("short"))
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError for short key, got %v", err)
	}
}

func TestDecryptFileWrongKey(t *testing.T) {
	c, root := newTestCopier(t, nil)
	mustWriteFile(t, filepath.Join(root, "f.txt"), "payload")

	if _, err := c.EncryptFile("f.txt", nil); err != nil {
		t.Fatal(err)
	}

	wrong := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x01}, KeySize))
	_, err := c.DecryptFile("f.txt", wrong)
	if !IsSecurityError(err, ReasonDecryptFailed) {
		t.Fatalf("expected decryption failure, got %v", err)
	}

	// The file must be untouched after a failed decrypt.
	stored, _ := os.ReadFile(filepath.Join(root, "f.txt"))
	if len(strings.Split(string(stored), ":")) != 3 {
		t.Error("failed decrypt modified the encrypted file")
	}
}

func TestDecryptFileBadFormat(t *testing.T) {
	c, root := newTestCopier(t, nil)
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x02}, KeySize))

	tests := []struct {
		name    string
		content string
	}{
		{"plain content", "just a plain file"},
		{"two segments", "YWJj:ZGVm"},
		{"four segments", "YWJj:ZGVm:Z2hp:amts"},
		{"segment not base64", "!!!:ZGVm:Z2hp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustWriteFile(t, filepath.Join(root, "f.txt"), tt.content)
			_, err := c.DecryptFile("f.txt", key)
			if !IsSecurityError(err, ReasonBadFormat) {
				t.Fatalf("expected format error, got %v", err)
			}
		})
	}
}

func TestDecryptFileBadKeyEncoding(t *testing.T) {
	c, root := newTestCopier(t, nil)
	mustWriteFile(t, filepath.Join(root, "f.txt"), "x")

	tests := []struct {
		name string
		key  string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"wrong length", base64.StdEncoding.EncodeToString([]byte("short"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.DecryptFile("f.txt", tt.key)
			var argErr *ArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("expected ArgumentError, got %v", err)
			}
		})
	}
}

func TestSealContentNonDeterministic(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, KeySize)
	plaintext := []byte("same input")

	first, err := sealContent(plaintext, key)
	if err != nil {
		t.Fatal(err)
	}
	second, err := sealContent(plaintext, key)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(first, second) {
		t.Error("two seals of the same content are identical; nonce not random")
	}
}

func TestCopyFileWithEncryption(t *testing.T) {
	t.Run("generated key", func(t *testing.T) {
		c, root := newTestCopier(t, nil)
		mustWriteFile(t, filepath.Join(root, "src.txt"), "secret payload")

		opts := DefaultCopyOptions()
		opts.Encrypt = true
		result, err := c.CopyFile("src.txt", "dst.enc", opts)
		if err != nil {
			t.Fatalf("encrypting copy failed: %v", err)
		}
		if !result.Encrypted {
			t.Error("result not marked encrypted")
		}
		if result.Key == "" {
			t.Error("generated key not returned on result")
		}
		if len(result.Checksum) != 64 {
			t.Errorf("checksum length = %d, want 64 hex chars", len(result.Checksum))
		}

		// The source stays plain; the destination decrypts with the
		// returned key.
		src, _ := os.ReadFile(filepath.Join(root, "src.txt"))
		if string(src) != "secret payload" {
			t.Error("encrypting copy modified the source")
		}
		if _, err := c.DecryptFile("dst.enc", result.Key); err != nil {
			t.Fatalf("destination not decryptable with returned key: %v", err)
		}
		dst, _ := os.ReadFile(filepath.Join(root, "dst.enc"))
		if string(dst) != "secret payload" {
			t.Errorf("decrypted destination mismatch: %q", dst)
		}
	})

	t.Run("caller key", func(t *testing.T) {
		c, root := newTestCopier(t, nil)
		mustWriteFile(t, filepath.Join(root, "src.txt"), "secret payload")

		key := bytes.Repeat([]byte{0x0a}, KeySize)
		opts := DefaultCopyOptions()
		opts.Encrypt = true
		opts.Key = key
		result, err := c.CopyFile("src.txt", "dst.enc", opts)
		if err != nil {
			t.Fatalf("encrypting copy failed: %v", err)
		}
		if result.Key != "" {
			t.Error("caller-supplied key must not be echoed on the result")
		}
		if _, err := c.DecryptFile("dst.enc", base64.StdEncoding.EncodeToString(key)); err != nil {
			t.Fatalf("destination not decryptable with caller key: %v", err)
		}
	})

	t.Run("bad key length", func(t *testing.T) {
		c, root := newTestCopier(t, nil)
		mustWriteFile(t, filepath.Join(root, "src.txt"), "x")

		opts := DefaultCopyOptions()
		opts.Encrypt = true
		opts.Key = []byte("short")
		_, err := c.CopyFile("src.txt", "dst.enc", opts)
		var argErr *ArgumentError
		if !errors.As(err, &argErr) {
			t.Fatalf("expected ArgumentError, got %v", err)
		}
	})
}

func TestDecryptPreservesMode(t *testing.T) {
	c, root := newTestCopier(t, nil)
	mustWriteFile(t, filepath.Join(root, "f.txt"), "payload")

	key, err := c.EncryptFile("f.txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.DecryptFile("f.txt", key); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(root, "f.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != SensitiveFileMode {
		t.Errorf("decrypt changed mode to %o, want %o kept from encrypt", perm, SensitiveFileMode)
	}
}
