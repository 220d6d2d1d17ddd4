//go:build linux

package procexec

import (
	"os"
	"syscall"
)

// maxRSSBytes extracts the peak RSS of a finished child. Linux reports
// ru_maxrss in kilobytes.
func maxRSSBytes(state *os.ProcessState) int64 {
	ru, ok := state.SysUsage().(*syscall.Rusage)
	if !ok || ru == nil {
		return 0
	}

	return ru.Maxrss * 1024
}
