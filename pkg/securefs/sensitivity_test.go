package securefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsSensitivePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"server.key", true},
		{"certs/tls.pem", true},
		{"bundle.p12", true},
		{"trust.jks", true},
		{".env", true},
		{".env.production", true},
		{"local.env", true},
		{"id_rsa", true},
		{".ssh/id_ed25519", true},
		{".netrc", true},
		{"credentials", true},
		{"credentials.json", true},
		{"secrets.yaml", true},
		{"config/secrets/db.conf", true},
		{"db_password.txt", true},
		{"api_key.cfg", true},
		{"auth-token.json", true},
		{"MY_SECRET.txt", true},

		{"main.go", false},
		{"README.md", false},
		{"config/app.yaml", false},
		{"keyboard.go", false}, // "key" alone is not a token
		{"environment.md", false},
		{"monkey.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSensitivePath(tt.path); got != tt.want {
				t.Errorf("IsSensitivePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPolicyMode(t *testing.T) {
	tests := []struct {
		name       string
		dest       string
		sourceMode os.FileMode
		want       os.FileMode
	}{
		{"sensitive name", "server.key", 0o644, SensitiveFileMode},
		{"sensitive beats executable", "deploy_token.sh", 0o755, SensitiveFileMode},
		{"executable source", "run.sh", 0o755, ExecutableFileMode},
		{"owner-only executable", "run.sh", 0o700, ExecutableFileMode},
		{"plain file", "notes.txt", 0o644, DefaultFileMode},
		{"plain file odd source mode", "notes.txt", 0o666, DefaultFileMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policyMode(tt.dest, tt.sourceMode); got != tt.want {
				t.Errorf("policyMode(%q, %o) = %o, want %o", tt.dest, tt.sourceMode, got, tt.want)
			}
		})
	}
}

func TestHasSecurePermissions(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, mode os.FileMode) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), mode); err != nil {
			t.Fatal(err)
		}
		// WriteFile is subject to umask; force the exact bits.
		if err := os.Chmod(path, mode); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		file string
		mode os.FileMode
		want bool
	}{
		{"sensitive owner-only", "a.key", 0o600, true},
		{"sensitive group-readable", "b.key", 0o640, false},
		{"sensitive world-readable", "c.key", 0o644, false},
		{"plain world-readable", "a.txt", 0o644, true},
		{"plain world-writable", "b.txt", 0o666, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(tt.file, tt.mode)
			got, err := HasSecurePermissions(path)
			if err != nil {
				t.Fatalf("HasSecurePermissions failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasSecurePermissions(%o %s) = %v, want %v", tt.mode, tt.file, got, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := HasSecurePermissions(filepath.Join(dir, "missing")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
