package securefs

import (
	"errors"
	"fmt"
	"io/fs"
)

// Reason categorizes a SecurityError. The vocabulary is fixed so callers and
// tests can match on category without parsing message text.
type Reason string

const (
	// ReasonTraversal covers ".." sequences (in any encoding) that would
	// escape the project root.
	ReasonTraversal Reason = "directory traversal"

	// ReasonNullBytes covers embedded null bytes, raw or percent-encoded.
	ReasonNullBytes Reason = "null bytes"

	// ReasonDangerousPattern covers doubled path separators adjacent to
	// "..", rejected even when they would normalize safely.
	ReasonDangerousPattern Reason = "dangerous pattern"

	// ReasonOutsideBoundary covers paths and symlink targets that resolve
	// outside the project root.
	ReasonOutsideBoundary Reason = "outside project boundaries"

	// ReasonIsDirectory covers a copy source that is a directory.
	ReasonIsDirectory Reason = "cannot be a directory"

	// ReasonInvalidRoot covers a project root that does not exist or is not
	// a directory at construction time.
	ReasonInvalidRoot Reason = "invalid project root"

	// ReasonUnreadable covers sources that exist but cannot be opened or are
	// not regular files.
	ReasonUnreadable Reason = "file is not readable"

	// ReasonTooLarge covers sources above the copier's size ceiling.
	ReasonTooLarge Reason = "file exceeds size limit"

	// ReasonOwnership covers a pre-existing destination owned by a
	// different user.
	ReasonOwnership Reason = "destination owned by another user"

	// ReasonWriteFailed covers failures during the staged write; the
	// temporary file has already been removed when this is returned.
	ReasonWriteFailed Reason = "atomic write failed"

	// ReasonBadFormat covers encrypted content that is not the expected
	// three-segment base64 form.
	ReasonBadFormat Reason = "invalid encrypted content format"

	// ReasonDecryptFailed covers authentication-tag mismatches (wrong key or
	// tampered ciphertext).
	ReasonDecryptFailed Reason = "decryption failed"
)

// ArgumentError reports a structurally invalid call: empty or missing paths,
// malformed keys. Never retried, surfaced immediately.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

// NotFoundError reports that a required path is absent. It is a distinct
// kind from SecurityError so callers can tell "doesn't exist" apart from
// "exists but forbidden".
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path does not exist: %s", e.Path)
}

// Is lets errors.Is(err, fs.ErrNotExist) succeed for NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// SecurityError is the broad family for every boundary, traversal, symlink,
// encoding, ownership, size, and cryptographic failure. The Reason field is
// the stable match key.
type SecurityError struct {
	Reason Reason
	Path   string
	Err    error
}

func (e *SecurityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}

// securityErr builds a SecurityError without a cause.
func securityErr(reason Reason, path string) *SecurityError {
	return &SecurityError{Reason: reason, Path: path}
}

// IsSecurityError reports whether err (or anything it wraps) is a
// SecurityError, optionally narrowed to a reason. With no reasons given it
// matches any SecurityError.
func IsSecurityError(err error, reasons ...Reason) bool {
	var se *SecurityError
	if !errors.As(err, &se) {
		return false
	}
	if len(reasons) == 0 {
		return true
	}
	for _, r := range reasons {
		if se.Reason == r {
			return true
		}
	}
	return false
}
