package securefs

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DefaultMaxFileSize bounds how much of a source file the copier will read
// into memory. Sources above the ceiling are rejected, not truncated.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// FileCopier performs file operations confined to a project root. It owns
// one PathValidator and validates every path before touching the
// filesystem. Safe for concurrent use: it holds no mutable state beyond the
// immutable root, and same-destination writers are serialized only by
// rename atomicity (last writer wins).
type FileCopier struct {
	validator   *PathValidator
	sink        AuditSink
	maxFileSize int64
}

// NewFileCopier builds a copier for projectRoot. A nil sink disables
// auditing (records become no-ops, never nil-checks at call sites).
func NewFileCopier(projectRoot string, sink AuditSink) (*FileCopier, error) {
	validator, err := NewPathValidator(projectRoot)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NoopSink{}
	}
	return &FileCopier{
		validator:   validator,
		sink:        sink,
		maxFileSize: DefaultMaxFileSize,
	}, nil
}

// Validator exposes the copier's path validator so collaborators can probe
// paths without constructing a second one.
func (c *FileCopier) Validator() *PathValidator {
	return c.validator
}

// SetMaxFileSize replaces the source size ceiling. Non-positive values are
// ignored.
func (c *FileCopier) SetMaxFileSize(limit int64) {
	if limit > 0 {
		c.maxFileSize = limit
	}
}

// CopyFile copies source to destination within the project root.
//
// Both paths are validated first (destination with creation allowed). The
// source must be a readable regular file under the size ceiling. A
// pre-existing destination must belong to the current user; existence alone
// never fails the copy, only foreign ownership does. Content is staged into
// a temp sibling and renamed into place, then the permission policy is
// applied unless the options override it.
func (c *FileCopier) CopyFile(source, destination string, opts CopyOptions) (*CopyResult, error) {
	start := time.Now()

	src, dst, err := c.validator.ValidateFileOperation(source, destination, true)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, &NotFoundError{Path: src}
	}
	if !info.Mode().IsRegular() {
		return nil, securityErr(ReasonUnreadable, source)
	}
	if info.Size() > c.maxFileSize {
		return nil, securityErr(ReasonTooLarge, source)
	}

	content, err := readAll(src)
	if err != nil {
		return nil, &SecurityError{Reason: ReasonUnreadable, Path: source, Err: err}
	}

	if err := c.ensureParent(dst, opts.CreateDirectories); err != nil {
		return nil, err
	}

	if _, err := os.Lstat(dst); err == nil {
		owned, err := ownedByCurrentUser(dst)
		if err != nil {
			return nil, &SecurityError{Reason: ReasonOwnership, Path: destination, Err: err}
		}
		if !owned {
			return nil, securityErr(ReasonOwnership, destination)
		}
	}

	data := content
	var checksum, generatedKey string
	if opts.Encrypt {
		key := opts.Key
		if key == nil {
			key, err = generateKey()
			if err != nil {
				return nil, &SecurityError{Reason: ReasonWriteFailed, Path: destination, Err: err}
			}
			generatedKey = base64.StdEncoding.EncodeToString(key)
		} else if len(key) != KeySize {
			return nil, &ArgumentError{Msg: fmt.Sprintf("encryption key must be %d bytes, got %d", KeySize, len(key))}
		}
		data, err = sealContent(content, key)
		if err != nil {
			return nil, &SecurityError{Reason: ReasonWriteFailed, Path: destination, Err: err}
		}
		checksum = checksumHex(data)
	}

	mode := c.resolveMode(opts, dst, info.Mode().Perm())
	if err := writeAtomic(dst, data, mode); err != nil {
		return nil, &SecurityError{Reason: ReasonWriteFailed, Path: destination, Err: err}
	}

	c.warnOnLoosePermissions(dst, mode)

	result := &CopyResult{
		Source:      src,
		Destination: dst,
		Operation:   OpCopy,
		Encrypted:   opts.Encrypt,
		Checksum:    checksum,
		Key:         generatedKey,
		Duration:    time.Since(start),
	}
	c.emit(EventFileCopy, result)
	return result, nil
}

// CreateSymlink creates a symlink at link pointing to the validated
// absolute source path. With force set, an existing symlink at the link
// location is removed first; a regular file is never silently replaced.
func (c *FileCopier) CreateSymlink(source, link string, force bool) (*CopyResult, error) {
	start := time.Now()

	src, dst, err := c.validator.ValidateFileOperation(source, link, true)
	if err != nil {
		return nil, err
	}

	if force {
		if info, err := os.Lstat(dst); err == nil && info.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(dst); err != nil {
				return nil, &SecurityError{Reason: ReasonWriteFailed, Path: link, Err: err}
			}
		}
	}

	if err := c.ensureParent(dst, true); err != nil {
		return nil, err
	}

	if err := os.Symlink(src, dst); err != nil {
		return nil, &SecurityError{Reason: ReasonWriteFailed, Path: link, Err: err}
	}

	result := &CopyResult{
		Source:      src,
		Destination: dst,
		Operation:   OpSymlink,
		Duration:    time.Since(start),
	}
	c.emit(EventSymlinkCreate, result)
	return result, nil
}

// EncryptFile encrypts a file in place and returns the base64-encoded key.
// A nil key generates a fresh 256-bit one. The file ends up owner-only
// (0600) regardless of prior policy. The copier never persists keys; key
// custody belongs to the caller.
func (c *FileCopier) EncryptFile(path string, key []byte) (string, error) {
	start := time.Now()

	p, err := c.validator.ValidatePath(path, false)
	if err != nil {
		return "", err
	}

	if key == nil {
		key, err = generateKey()
		if err != nil {
			return "", &SecurityError{Reason: ReasonWriteFailed, Path: path, Err: err}
		}
	} else if len(key) != KeySize {
		return "", &ArgumentError{Msg: fmt.Sprintf("encryption key must be %d bytes, got %d", KeySize, len(key))}
	}

	info, err := os.Stat(p)
	if err != nil {
		return "", &NotFoundError{Path: p}
	}
	if info.Size() > c.maxFileSize {
		return "", securityErr(ReasonTooLarge, path)
	}

	content, err := readAll(p)
	if err != nil {
		return "", &SecurityError{Reason: ReasonUnreadable, Path: path, Err: err}
	}

	sealed, err := sealContent(content, key)
	if err != nil {
		return "", &SecurityError{Reason: ReasonWriteFailed, Path: path, Err: err}
	}

	if err := writeAtomic(p, sealed, SensitiveFileMode); err != nil {
		return "", &SecurityError{Reason: ReasonWriteFailed, Path: path, Err: err}
	}

	c.emit(EventFileEncrypt, &CopyResult{
		Source:      p,
		Destination: p,
		Operation:   OpEncrypt,
		Encrypted:   true,
		Checksum:    checksumHex(sealed),
		Duration:    time.Since(start),
	})

	return base64.StdEncoding.EncodeToString(key), nil
}

// DecryptFile reverses EncryptFile in place using a base64 key. Content
// that is not the three-segment form fails with ReasonBadFormat; a wrong
// key or tampered ciphertext fails with ReasonDecryptFailed.
func (c *FileCopier) DecryptFile(path, encodedKey string) (bool, error) {
	start := time.Now()

	p, err := c.validator.ValidatePath(path, false)
	if err != nil {
		return false, err
	}

	key, err := decodeKey(encodedKey)
	if err != nil {
		return false, err
	}

	stored, err := readAll(p)
	if err != nil {
		return false, &SecurityError{Reason: ReasonUnreadable, Path: path, Err: err}
	}

	plaintext, err := openContent(path, stored, key)
	if err != nil {
		return false, err
	}

	mode := SensitiveFileMode
	if info, err := os.Stat(p); err == nil {
		mode = info.Mode().Perm()
	}
	if err := writeAtomic(p, plaintext, mode); err != nil {
		return false, &SecurityError{Reason: ReasonWriteFailed, Path: path, Err: err}
	}

	c.emit(EventFileDecrypt, &CopyResult{
		Source:      p,
		Destination: p,
		Operation:   OpDecrypt,
		Duration:    time.Since(start),
	})

	return true, nil
}

// ensureParent creates the destination's parent directory when allowed. The
// parent is derived from an already-validated destination, so the creation
// can never climb above the boundary.
func (c *FileCopier) ensureParent(dst string, create bool) error {
	parent := filepath.Dir(dst)
	if _, err := os.Stat(parent); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &SecurityError{Reason: ReasonWriteFailed, Path: dst, Err: err}
	}

	if !create {
		return &NotFoundError{Path: parent}
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return &SecurityError{Reason: ReasonWriteFailed, Path: dst, Err: err}
	}
	return nil
}

// resolveMode applies the override order: explicit mode, then
// preserve-source, then policy.
func (c *FileCopier) resolveMode(opts CopyOptions, dst string, sourceMode os.FileMode) os.FileMode {
	if opts.Permissions != nil {
		return *opts.Permissions
	}
	if opts.PreservePermissions {
		return sourceMode
	}
	return policyMode(dst, sourceMode)
}

// warnOnLoosePermissions emits an advisory record when a sensitive file
// ends up group- or world-readable. Advisory only, never a hard failure.
func (c *FileCopier) warnOnLoosePermissions(dst string, mode os.FileMode) {
	if !IsSensitivePath(dst) || mode&0o044 == 0 {
		return
	}
	c.emit(EventPermissionWarning, &CopyResult{
		Source:      dst,
		Destination: dst,
		Operation:   OpCopy,
	})
}

// emit sends an audit record and shields the operation from a misbehaving
// sink: auditing can never fail or panic the primary operation.
func (c *FileCopier) emit(event string, result *CopyResult) {
	defer func() {
		_ = recover()
	}()
	c.sink.Record(event, auditFields(result))
}

// readAll reads a file fully. The size ceiling has already been enforced by
// the caller, which bounds worst-case read time.
func readAll(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
