package securefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator guarantees that any candidate path, whether it comes from
// configuration, user input, or symlink resolution, stays within a
// designated project root. It holds only the canonical root and is safe for concurrent use.
type PathValidator struct {
	root string
}

// NewPathValidator resolves projectRoot to its canonical real path and
// verifies it exists and is a directory. Construction is the only place the
// root is resolved; every later validation is relative to the stored
// canonical form.
func NewPathValidator(projectRoot string) (*PathValidator, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, &ArgumentError{Msg: "project root cannot be empty"}
	}

	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, &SecurityError{Reason: ReasonInvalidRoot, Path: projectRoot, Err: err}
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, &SecurityError{Reason: ReasonInvalidRoot, Path: projectRoot, Err: err}
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, &SecurityError{Reason: ReasonInvalidRoot, Path: projectRoot, Err: err}
	}
	if !info.IsDir() {
		return nil, securityErr(ReasonInvalidRoot, projectRoot)
	}

	return &PathValidator{root: canonical}, nil
}

// Root returns the canonical project root all validation is anchored to.
func (v *PathValidator) Root() string {
	return v.root
}

// ValidatePath validates a candidate path and returns its canonical absolute
// form, guaranteed to lie within the project root.
//
// With allowCreation false the path must exist; the returned value is the
// OS-canonical path with every symlink in the chain resolved. With
// allowCreation true a missing path is acceptable: the returned value is the
// lexical join of root and normalized candidate, still containment-checked,
// and every *existing* prefix component still passes the symlink safety
// check.
func (v *PathValidator) ValidatePath(candidate string, allowCreation bool) (string, error) {
	if strings.TrimSpace(candidate) == "" {
		return "", &ArgumentError{Msg: "path cannot be empty"}
	}

	if err := screenRawPath(candidate); err != nil {
		return "", err
	}

	norm, err := normalizeLexical(candidate)
	if err != nil {
		return "", err
	}

	abs := norm
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(v.root, norm)
	}

	if !containsPath(v.root, abs) {
		return "", securityErr(ReasonOutsideBoundary, candidate)
	}

	_, statErr := os.Lstat(abs)
	if statErr != nil {
		if !errors.Is(statErr, fs.ErrNotExist) {
			return "", &SecurityError{Reason: ReasonOutsideBoundary, Path: candidate, Err: statErr}
		}
		if !allowCreation {
			return "", &NotFoundError{Path: abs}
		}
		// Path does not exist yet: check the symlinks of every prefix that
		// does, then hand back the lexical join.
		if err := v.checkComponentSymlinks(abs); err != nil {
			return "", err
		}
		return abs, nil
	}

	// Existing path: canonicalize through the OS and re-check containment.
	// Lexical normalization cannot see a symlink escape; this can.
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Dangling symlink somewhere in the chain. The component walk
			// below still boundary-checks its literal target.
			canonical = abs
		} else {
			return "", &SecurityError{Reason: ReasonOutsideBoundary, Path: candidate, Err: err}
		}
	}
	if !containsPath(v.root, canonical) {
		return "", securityErr(ReasonOutsideBoundary, candidate)
	}

	if err := v.checkComponentSymlinks(abs); err != nil {
		return "", err
	}

	return canonical, nil
}

// ValidateFileOperation validates a source/destination pair for a file
// operation. The source must exist and must not be a directory; the
// destination honors allowCreation. Either both paths validate or the call
// fails; there is no partial result.
func (v *PathValidator) ValidateFileOperation(source, destination string, allowCreation bool) (string, string, error) {
	src, err := v.ValidatePath(source, false)
	if err != nil {
		return "", "", err
	}

	info, err := os.Stat(src)
	if err != nil {
		return "", "", &NotFoundError{Path: src}
	}
	if info.IsDir() {
		return "", "", securityErr(ReasonIsDirectory, source)
	}

	dst, err := v.ValidatePath(destination, allowCreation)
	if err != nil {
		return "", "", err
	}

	return src, dst, nil
}

// WithinBoundaries is a non-throwing probe: it reports whether the candidate
// would pass ValidatePath. Empty input is false, never an error.
func (v *PathValidator) WithinBoundaries(candidate string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	_, err := v.ValidatePath(candidate, false)
	return err == nil
}

// checkComponentSymlinks walks every path component from the root downward.
// For each component that is itself a symlink it resolves the *immediate*
// target, not the final chain target, and boundary-checks it: an absolute
// target directly (OS-canonical when it exists, literal otherwise), a
// relative target against the symlink's own parent directory. Any target
// outside the root fails the whole validation, even if a later symlink in
// the chain would point back inside; escape-then-return chains are never
// treated as safe.
//
// Components that do not exist end the walk: there is nothing left to check
// on a creation-mode path.
func (v *PathValidator) checkComponentSymlinks(abs string) error {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || rel == "." {
		return nil
	}

	current := v.root
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, seg)

		info, err := os.Lstat(current)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return &SecurityError{Reason: ReasonOutsideBoundary, Path: current, Err: err}
		}
		if info.Mode()&os.ModeSymlink == 0 {
			continue
		}

		target, err := os.Readlink(current)
		if err != nil {
			return &SecurityError{Reason: ReasonOutsideBoundary, Path: current, Err: err}
		}

		if err := v.checkSymlinkTarget(current, target); err != nil {
			return err
		}
	}

	return nil
}

// checkSymlinkTarget boundary-checks a single symlink's immediate target.
// The literal target location is checked first: a target that sits outside
// the root fails even when following its own chain would land back inside.
// When the literal location is inside, the OS-canonical form (for existing
// targets) is checked as well, so a second hop cannot smuggle the path out.
func (v *PathValidator) checkSymlinkTarget(linkPath, target string) error {
	resolved := target
	if !filepath.IsAbs(resolved) {
		// Relative targets resolve against the symlink's own parent, as a
		// lexical join; the target may not exist.
		resolved = filepath.Join(filepath.Dir(linkPath), target)
	}
	resolved = filepath.Clean(resolved)

	if !containsPath(v.root, resolved) {
		return securityErr(ReasonOutsideBoundary, linkPath)
	}

	if canonical, err := filepath.EvalSymlinks(resolved); err == nil {
		if !containsPath(v.root, canonical) {
			return securityErr(ReasonOutsideBoundary, linkPath)
		}
	}
	return nil
}
