package securefs

import (
	"path/filepath"
	"strings"
)

// Raw-string attack patterns. Screening happens on the untouched candidate
// string before any filesystem call: a rejected traversal must never reach
// the disk. The doubled-separator rule is intentionally conservative: it
// rejects inputs like "a//../b" that would normalize to a safe path, because
// loosening it would widen the accepted input surface of a security boundary.
var (
	encodedTraversalPatterns = []string{
		"%2e%2e",     // percent-encoded ".."
		"..%2f",      // ".." with encoded forward slash
		"%2f..",      // encoded forward slash with ".."
		"..%5c",      // ".." with encoded backslash
		"%5c..",      // encoded backslash with ".."
		"..\\", "\\..", // backslash-separated traversal
	}
	dangerousPatterns = []string{
		"//..", "..//",
		"\\\\..", "..\\\\",
	}
)

// screenRawPath rejects attack patterns that must be caught on the raw
// candidate string. Order matters only for which reason a pathological input
// reports: null bytes first, then the conservative doubled-separator rule,
// then encoding tricks.
func screenRawPath(candidate string) error {
	if strings.ContainsRune(candidate, 0) || strings.Contains(strings.ToLower(candidate), "%00") {
		return securityErr(ReasonNullBytes, candidate)
	}

	for _, p := range dangerousPatterns {
		if strings.Contains(candidate, p) {
			return securityErr(ReasonDangerousPattern, candidate)
		}
	}

	lower := strings.ToLower(candidate)
	for _, p := range encodedTraversalPatterns {
		if strings.Contains(lower, p) {
			return securityErr(ReasonTraversal, candidate)
		}
	}

	return nil
}

// normalizeLexical resolves "." and ".." components as a pure string
// algorithm, with no filesystem access. The OS cannot canonicalize a path
// that does not exist yet, so creation-mode destinations depend on this.
//
// A ".." that would rise above the filesystem root (for absolute candidates)
// or above all fixed components (for relative candidates) is a traversal
// error, never a silent clamp.
func normalizeLexical(candidate string) (string, error) {
	abs := strings.HasPrefix(candidate, "/")

	var stack []string
	for _, seg := range strings.Split(candidate, "/") {
		switch seg {
		case "", ".":
			// empty segments come from doubled or trailing separators
		case "..":
			if len(stack) == 0 {
				return "", securityErr(ReasonTraversal, candidate)
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}

	joined := strings.Join(stack, "/")
	if abs {
		return "/" + joined, nil
	}
	if joined == "" {
		return ".", nil
	}
	return joined, nil
}

// containsPath reports whether target equals root or is a descendant of it.
// It uses relative-path semantics and treats "no common ancestor" (e.g.
// different filesystem roots) as outside the boundary rather than an error:
// unrelated roots are an expected outcome here, not an exceptional one.
func containsPath(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
