// Package lockfile guards against two watcher processes polling and
// notifying for the same facility at once.
package lockfile

import (
	"fmt"
	"os"
	"syscall"
)

// Lock is a held advisory file lock.
type Lock struct {
	f    *os.File
	path string
}

// Acquire takes an exclusive non-blocking flock on path, writing the
// holder's pid into it. Returns an error when another process holds it.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another instance holds %s: %w", path, err)
	}
	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	return &Lock{f: f, path: path}, nil
}

// Release drops the lock and removes the file.
func (l *Lock) Release() error {
	if err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	l.f.Close()
	os.Remove(l.path)
	return nil
}
