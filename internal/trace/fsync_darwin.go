//go:build darwin

package trace

import "golang.org/x/sys/unix"

// syncFile forces fd's checkpoint data to stable storage before the
// simulator reports a checkpoint complete, so a crash immediately after
// does not leave a checkpoint a restore would reject as truncated.
func syncFile(fd uintptr) error {
	return unix.Fsync(int(fd))
}
