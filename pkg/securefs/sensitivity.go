package securefs

import (
	"os"
	"path/filepath"
	"strings"
)

// Default permission policy. Sensitive files get owner-only access,
// executables keep their execute bits for group/other, everything else is
// world-readable but owner-writable only. An explicit caller-supplied mode
// or the preserve-source-mode flag overrides the policy.
const (
	SensitiveFileMode  os.FileMode = 0o600
	ExecutableFileMode os.FileMode = 0o755
	DefaultFileMode    os.FileMode = 0o644
)

// The sensitivity tables are fixed, immutable data constructed once. They
// classify by name only; content is never inspected.
//
// Name patterns match the final path element: key material, certificates,
// keystores, environment files and their per-environment variants.
var sensitiveNamePatterns = []string{
	"*.key", "*.pem", "*.p12", "*.pfx",
	"*.crt", "*.cer", "*.der",
	"*.jks", "*.keystore",
	".env", ".env.*", "*.env",
	"id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
	".netrc", ".npmrc", ".pgpass",
	"credentials", "credentials.*",
	"secrets.yml", "secrets.yaml",
}

// Substring tokens checked against every path segment, so "secrets/db.conf"
// classifies the same as "db_secret.conf".
var sensitiveSegmentTokens = []string{
	"secret", "credential", "password", "token",
	"apikey", "api_key", "private_key", "keystore",
}

// IsSensitivePath reports whether a path's logical name marks it as likely
// to hold secrets. This is a pure function of the path string; it drives the
// default permission policy, not content inspection.
func IsSensitivePath(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range sensitiveNamePatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}

	for _, seg := range strings.Split(strings.ToLower(filepath.ToSlash(path)), "/") {
		for _, token := range sensitiveSegmentTokens {
			if strings.Contains(seg, token) {
				return true
			}
		}
	}

	return false
}

// HasSecurePermissions inspects the actual on-disk mode bits: sensitive
// files must be owner-only (no group/other bits at all), any other file must
// at least not be world-writable.
func HasSecurePermissions(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, &NotFoundError{Path: path}
	}

	perm := info.Mode().Perm()
	if IsSensitivePath(path) {
		return perm&0o077 == 0, nil
	}
	return perm&0o002 == 0, nil
}

// policyMode picks the default mode for a destination: sensitivity is
// derived from the destination's logical name, executability from the
// source's mode bits.
func policyMode(destination string, sourceMode os.FileMode) os.FileMode {
	if IsSensitivePath(destination) {
		return SensitiveFileMode
	}
	if sourceMode&0o111 != 0 {
		return ExecutableFileMode
	}
	return DefaultFileMode
}
