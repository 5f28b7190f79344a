package trace

import "os"

// CloseCheckpoint fsyncs f directly (rather than going through
// os.File.Sync's generic path) before closing it, so a checkpoint this
// package just finished writing is durable before the simulator reports
// it complete. Mirrors the teacher's per-OS syscall-level file split
// (eventloop's wakeup_linux.go/wakeup_darwin.go) rather than leaning on a
// single cross-platform stdlib call.
func CloseCheckpoint(f *os.File) error {
	syncErr := syncFile(f.Fd())
	closeErr := f.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
