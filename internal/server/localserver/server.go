package localserver

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"
)

// DefaultPerm is the socket file mode used when none is configured.
const DefaultPerm fs.FileMode = 0o700

// probeTimeout bounds the dial that tells a live socket from a stale one.
const probeTimeout = 200 * time.Millisecond

var (
	// ErrInUse is returned when another process serves the socket.
	ErrInUse = errors.New("localserver: socket already in use")

	// ErrNotSocket is returned when the path exists and is not a socket.
	ErrNotSocket = errors.New("localserver: path exists and is not a socket")
)

// Listen listens on the Unix socket at path and sets its mode to perm.
// A zero perm keeps the mode derived from the process umask.
func Listen(path string, perm fs.FileMode) (net.Listener, error) {
	if path == "" {
		return nil, errors.New("localserver: empty socket path")
	}
	if err := removeStale(path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("localserver: listen %s: %w", path, err)
	}

	if perm != 0 {
		if err := os.Chmod(path, perm); err != nil {
			_ = ln.Close()
			return nil, fmt.Errorf("localserver: chmod %s: %w", path, err)
		}
	}
	return ln, nil
}

// removeStale deletes a socket file at path that nobody accepts on.
func removeStale(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("localserver: %w", err)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%w: %s", ErrNotSocket, path)
	}

	conn, err := net.DialTimeout("unix", path, probeTimeout)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %s", ErrInUse, path)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("localserver: remove stale socket: %w", err)
	}
	return nil
}
