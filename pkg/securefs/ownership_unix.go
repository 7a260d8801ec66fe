//go:build !windows

package securefs

import (
	"os"
	"syscall"
)

// ownedByCurrentUser reports whether path belongs to the current process's
// user. Overwriting another principal's file is refused by the copier;
// plain existence never is.
func ownedByCurrentUser(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true, nil
	}
	return int(st.Uid) == os.Getuid(), nil
}
