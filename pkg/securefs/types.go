package securefs

import (
	"os"
	"time"
)

// Operation identifies what a FileCopier call did.
type Operation string

const (
	OpCopy    Operation = "copy"
	OpSymlink Operation = "symlink"
	OpEncrypt Operation = "encrypt"
	OpDecrypt Operation = "decrypt"
)

// CopyResult describes one completed file operation. It is created once per
// operation, returned to the caller, and never mutated afterward.
type CopyResult struct {
	Source      string
	Destination string
	Operation   Operation
	Encrypted   bool

	// Checksum is the SHA-256 hex digest of the written artifact. It is set
	// only when encryption was requested: the checksum is a property of the
	// ciphertext-bearing artifact, not of every copy.
	Checksum string

	// Key holds the base64-encoded encryption key when an encrypting copy
	// had to generate one. The copier never persists keys; custody is the
	// caller's responsibility.
	Key string

	Duration time.Duration
}

// CopyOptions controls a single CopyFile call. All fields toggle
// independently.
type CopyOptions struct {
	// Permissions, when non-nil, overrides the permission policy with an
	// explicit mode.
	Permissions *os.FileMode

	// PreservePermissions copies the source's mode instead of applying the
	// policy. Ignored when Permissions is set.
	PreservePermissions bool

	// Encrypt writes the AEAD-sealed form of the content instead of the
	// plain bytes.
	Encrypt bool

	// Key supplies the 256-bit key for an encrypting copy. When nil, a key
	// is generated and returned on the CopyResult.
	Key []byte

	// CreateDirectories creates the destination's parent directory when
	// missing. DefaultCopyOptions enables it.
	CreateDirectories bool
}

// DefaultCopyOptions returns the options used for an ordinary copy:
// plain bytes, policy permissions, parent directories created on demand.
func DefaultCopyOptions() CopyOptions {
	return CopyOptions{CreateDirectories: true}
}
