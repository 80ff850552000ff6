package dialect

import (
	"iter"
	"strings"

	"github.com/cockroachdb/errors"

	"crongen/internal/job"
)

var errInvalidDelay = errors.New("invalid DELAY")

// Source is anything that can be decoded into jobs.
type Source interface {
	Jobs() iter.Seq[*job.Job]
}

// Options are shared by the line-oriented sources.
type Options struct {
	Users UserMode
	// Monotonic selects the anacrontab grammar for every line.
	Monotonic bool
	// Defaults seeds every job before the file environment is applied.
	// Its Persistent field is ignored: each grammar has its own default.
	Defaults job.EnvDefaults
	Refine   job.RefineOptions
}

// Text is the contents of one crontab file.
type Text struct {
	Filename string
	Data     []byte
	Options
}

// Jobs decodes the file line by line. Environment assignments apply to the
// lines that follow them within this file only.
func (t Text) Jobs() iter.Seq[*job.Job] {
	return func(yield func(*job.Job) bool) {
		var acc job.Env
		for line := range Lines(t.Data) {
			if key, value, ok := ParseAssignment(line); ok {
				acc = Assign(acc, key, value)
				continue
			}
			if !yield(DecodeLine(t.Filename, line, acc, t.Options)) {
				return
			}
		}
	}
}

// Assign records one assignment in the accumulator. PERSISTENT=auto resets
// persistence to the grammar default.
func Assign(acc job.Env, key, value string) job.Env {
	if key == "PERSISTENT" && value == "auto" {
		return acc.Delete(key)
	}
	return acc.Set(key, value)
}

// DecodeLine decodes one non-assignment line against the environment
// accumulated so far and refines the result.
func DecodeLine(filename, line string, acc job.Env, opts Options) *job.Job {
	j := job.New(filename, line)
	parts := strings.Fields(line)

	decode, persistent := pick(line, opts.Monotonic)
	def := opts.Defaults
	def.Persistent = persistent
	j.ApplyEnvironment(acc, def)
	decode(j, parts, opts.Users)
	j.Refine(opts.Refine)
	return j
}

// pick selects the grammar of a line and its persistence default.
func pick(line string, monotonic bool) (Decoder, bool) {
	switch {
	case monotonic:
		return Monotonic, true
	case strings.HasPrefix(line, "@"):
		return Keyword, true
	default:
		return Timespec, false
	}
}
