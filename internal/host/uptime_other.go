//go:build !linux

package host

import "time"

// Uptime is unknown outside Linux.
func Uptime() (time.Duration, bool) { return 0, false }
