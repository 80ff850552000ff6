package logx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	kmsgMaxLine  = 900
	kmsgMaxValue = 300
)

// kmsgSink writes records to the kernel ring buffer. Generators run before
// journald, so this is where their diagnostics end up.
type kmsgSink struct {
	f        *os.File
	prefix   string
	minLevel Level
	limiter  *rate.Limiter
}

func openKmsg(cfg KmsgConfig) (*kmsgSink, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "/dev/kmsg"
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open kernel log %q: %w", path, err)
	}
	ident := strings.TrimSpace(cfg.Ident)
	if ident == "" {
		ident = filepath.Base(os.Args[0])
	}
	minLevel, ok := ParseLevel(cfg.MinLevel)
	if !ok {
		minLevel = LevelInfo
	}
	burst := max(1, cfg.RatePerSec)
	return &kmsgSink{
		f:        f,
		prefix:   fmt.Sprintf("%s[%d]: ", ident, os.Getpid()),
		minLevel: minLevel,
		limiter:  rate.NewLimiter(rate.Limit(burst), burst),
	}, nil
}

func (k *kmsgSink) Write(p []byte) (int, error) {
	return k.WriteLevel(zerolog.InfoLevel, p)
}

// WriteLevel never fails: a lost kernel log line must not fail the caller.
func (k *kmsgSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < k.minLevel || !k.limiter.Allow() {
		return len(p), nil
	}
	if msg := kmsgText(p); msg != "" {
		_, _ = fmt.Fprintf(k.f, "<%d>%s%s\n", kmsgPriority(level), k.prefix, msg)
	}
	return len(p), nil
}

func (k *kmsgSink) Close() error { return k.f.Close() }

// kmsgPriority maps levels to syslog priorities.
func kmsgPriority(level zerolog.Level) int {
	switch {
	case level >= zerolog.FatalLevel:
		return 2 // crit
	case level == zerolog.ErrorLevel:
		return 3
	case level == zerolog.WarnLevel:
		return 4
	case level == zerolog.InfoLevel:
		return 6
	}
	return 7
}

// kmsgText flattens a JSON record into "message key=value ..." on one line.
func kmsgText(p []byte) string {
	p = bytes.TrimSpace(p)
	var rec map[string]any
	if err := json.Unmarshal(p, &rec); err != nil {
		return clip(string(p), kmsgMaxLine)
	}

	var b strings.Builder
	msg, _ := rec[zerolog.MessageFieldName].(string)
	b.WriteString(msg)
	keys := make([]string, 0, len(rec))
	for k := range rec {
		switch k {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.CallerFieldName:
		default:
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, clip(fmt.Sprint(rec[k]), kmsgMaxValue))
	}
	// one record per line in the ring buffer
	return clip(strings.ReplaceAll(b.String(), "\n", " "), kmsgMaxLine)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
