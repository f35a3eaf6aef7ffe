package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), ".protopipe", "lock")
}

func TestAcquireAndRelease(t *testing.T) {
	path := lockPath(t)

	lock, err := Acquire(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))

	require.NoError(t, lock.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireFailsWhileHeld(t *testing.T) {
	path := lockPath(t)

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	// The test process itself is the live holder.
	_, err = Acquire(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another pipeline invocation")
	assert.Contains(t, err.Error(), "concurrent runs")
}

func TestAcquireBreaksStaleLock(t *testing.T) {
	path := lockPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	// A pid that cannot be a live process.
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data), "stale lock replaced by our own")
}

func TestAcquireBreaksUnreadableLock(t *testing.T) {
	path := lockPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0o644))

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()
}

func TestReleaseTwiceIsHarmless(t *testing.T) {
	lock, err := Acquire(lockPath(t))
	require.NoError(t, err)

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}

func TestSequentialAcquireAfterRelease(t *testing.T) {
	path := lockPath(t)

	first, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
