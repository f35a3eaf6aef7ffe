// Package lockfile provides an advisory per-working-tree lock so two
// pipeline invocations cannot race on deleting and recreating the generated
// output or the tool cache.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Lock is a held advisory lock.
type Lock struct {
	path string
}

// Acquire takes the lock at path, creating parent directories on demand.
// A lock left behind by a dead process is broken and re-acquired; a lock
// held by a live process is an error.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}

		holder, readErr := readHolder(path)
		if readErr == nil && processAlive(holder) {
			return nil, fmt.Errorf("another pipeline invocation (pid %d) holds %s; concurrent runs against one working tree are not supported", holder, path)
		}
		// Stale lock from a dead process; break it and retry once.
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return nil, rmErr
		}
	}
	return nil, fmt.Errorf("could not acquire lock %s", path)
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func readHolder(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive probes the pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
