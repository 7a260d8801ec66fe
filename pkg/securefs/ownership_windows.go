//go:build windows

package securefs

// Windows has no uid-based ownership; the overwrite guard is a no-op there
// and ACLs remain the operating system's concern.
func ownedByCurrentUser(path string) (bool, error) {
	return true, nil
}
