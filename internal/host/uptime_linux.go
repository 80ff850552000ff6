//go:build linux

package host

import (
	"time"

	"golang.org/x/sys/unix"
)

// Uptime returns the time since boot.
func Uptime() (time.Duration, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, false
	}
	return time.Duration(info.Uptime) * time.Second, true
}
