package tablefile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lock takes an advisory lock on the table for the lifetime of the handle:
// shared for read-only tables, exclusive otherwise. It blocks until the lock
// is granted.
func lock(f *os.File, readOnly bool) error {
	how := unix.LOCK_EX
	if readOnly {
		how = unix.LOCK_SH
	}

	for {
		err := unix.Flock(int(f.Fd()), how)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("lock table: %w", err)
		}
		return nil
	}
}

func unlock(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock table: %w", err)
	}
	return nil
}
