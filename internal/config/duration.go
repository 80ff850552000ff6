package config

import (
	"fmt"
	"strings"
	"time"
)

// parseDuration reads a Go duration string; empty or zero yields def.
func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", field)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

// WatchTimings returns the debounce window and the minimum interval between
// reloads of cron-update.
func (c *Config) WatchTimings() (debounce, minInterval time.Duration, err error) {
	debounce, err = parseDuration("watch.debounce", c.Watch.Debounce, 250*time.Millisecond)
	if err != nil {
		return 0, 0, err
	}
	minInterval, err = parseDuration("watch.min_interval", c.Watch.MinInterval, 0)
	if err != nil {
		return 0, 0, err
	}
	return debounce, minInterval, nil
}
