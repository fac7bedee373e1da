// Package pidfile writes the server pid to a locked file so that two
// servers cannot share one pid file.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the pid file.
var ErrLocked = errors.New("pidfile: locked by another process")

// File is a held pid file.
type File struct {
	path string
	lock *flock.Flock
}

// Create locks path and writes the current pid to it. The lock is held
// until Remove.
func Create(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("pidfile: create dir: %w", err)
	}

	lock := flock.New(path)
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("pidfile: lock %s: %w", path, err)
	}
	if !held {
		if pid, err := Read(path); err == nil {
			return nil, fmt.Errorf("%w: %s (pid %d)", ErrLocked, path, pid)
		}
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, pid, 0o644); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("pidfile: write %s: %w", path, err)
	}

	return &File{path: path, lock: lock}, nil
}

// Path returns the pid file path.
func (f *File) Path() string {
	return f.path
}

// Remove deletes the file and releases the lock.
func (f *File) Remove() error {
	rmErr := os.Remove(f.path)
	if err := f.lock.Unlock(); err != nil {
		return fmt.Errorf("pidfile: unlock: %w", err)
	}
	if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return fmt.Errorf("pidfile: remove: %w", rmErr)
	}
	return nil
}

// Read returns the pid stored in path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(string(trimNewline(data)))
	if err != nil {
		return 0, fmt.Errorf("pidfile: parse %s: %w", path, err)
	}
	return pid, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
