package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
	Kmsg    KmsgConfig
}

// FileConfig appends JSON records to a file.
type FileConfig struct {
	Enabled bool
	Path    string
}

// KmsgConfig routes records to the kernel log as "<prio>ident[pid]: msg".
type KmsgConfig struct {
	Enabled    bool
	Path       string // default /dev/kmsg
	Ident      string
	MinLevel   string
	RatePerSec int
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// stderr is swapped by tests.
var stderr io.Writer = os.Stderr

func init() {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat
}

// Service owns the sinks of one process.
type Service struct {
	closers []io.Closer
}

// New opens every sink named by cfg and returns a logger fanning out to
// them. A sink that cannot be opened is reported on stderr and skipped;
// with no sink left the console is used.
func New(cfg Config) (*Service, Logger) {
	s := &Service{}
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, consoleWriter(stderr))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = "./crongen.log"
		}
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			fmt.Fprintf(stderr, "logx: cannot open log file %q: %v\n", path, err)
		} else {
			s.closers = append(s.closers, f)
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}
	if cfg.Kmsg.Enabled {
		if k, err := openKmsg(cfg.Kmsg); err != nil {
			fmt.Fprintf(stderr, "logx: %v\n", err)
		} else {
			s.closers = append(s.closers, k)
			writers = append(writers, k)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, consoleWriter(stderr))
	}
	return s, fromZerolog(zerolog.New(zerolog.MultiLevelWriter(writers...)), cfg.Level)
}

// Close closes the file and kernel log sinks.
func (s *Service) Close() error {
	for _, c := range s.closers {
		_ = c.Close()
	}
	s.closers = nil
	return nil
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
}
