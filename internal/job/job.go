package job

import (
	"path/filepath"

	"github.com/cockroachdb/errors"

	"crongen/internal/cronspec"
)

// Dialect names the grammar a job was decoded from.
type Dialect uint8

const (
	DialectTimespec Dialect = iota
	DialectKeyword
	DialectMonotonic
	DialectLegacyDir
)

func (d Dialect) String() string {
	switch d {
	case DialectTimespec:
		return "timespec"
	case DialectKeyword:
		return "keyword"
	case DialectMonotonic:
		return "monotonic"
	case DialectLegacyDir:
		return "legacy-dir"
	default:
		return "unknown"
	}
}

// Period is either Symbolic or *Timespec.
type Period interface {
	isPeriod()
}

// Symbolic is a named period ("daily", "reboot") or a raw day count
// ("3") from anacrontab.
type Symbolic struct {
	Name string
}

// Timespec holds the five expanded crontab fields.
type Timespec struct {
	Minute     cronspec.Field
	Hour       cronspec.Field
	DayOfMonth cronspec.Field
	Month      cronspec.Field
	DayOfWeek  cronspec.Field

	// SundayIsSeven records whether the day-of-week expression ended with
	// "7" or a Sunday name, which decides the rendered week order.
	SundayIsSeven bool
}

func (Symbolic) isPeriod()  {}
func (*Timespec) isPeriod() {}

// Tristate is an explicit yes/no or "use the dialect default".
type Tristate uint8

const (
	Unset Tristate = iota
	Yes
	No
)

// MailSuccess controls whether successful runs send mail.
type MailSuccess uint8

const (
	MailSuccessNonEmpty MailSuccess = iota // only when the job produced output
	MailSuccessNever
	MailSuccessAlways
)

// MailFormat controls the body of cron mails.
type MailFormat uint8

const (
	MailFormatNormal     MailFormat = iota // systemctl status + journal
	MailFormatNoMetadata                   // bare journal output
)

var (
	// ErrTruncated marks a line with too few tokens for its dialect.
	ErrTruncated = errors.New("truncated line")
	// ErrEmptyCommand marks a job that has nothing to execute.
	ErrEmptyCommand = errors.New("empty command")
)

// Job is one decoded crontab line or run-parts script.
type Job struct {
	Filename string
	Basename string
	Line     string
	Dialect  Dialect

	JobID string
	// UnitName is preset for jobs whose identity does not come from the
	// identity assigner (run-parts scripts).
	UnitName string
	User     string

	Period Period

	Persistent        Tristate
	DefaultPersistent bool
	RandomDelay       int // minutes
	StartHour         int
	BootDelay         int // minutes
	Batch             bool
	MailSuccess       MailSuccess
	MailFormat        MailFormat
	Timezone          string

	Shell          string
	Command        []string
	Home           string
	Env            Env
	TestGuard      string
	StandardOutput string

	// Err is the reason the job is invalid, nil for a valid job.
	Err error
	// Warnings are non-fatal diagnostics collected while decoding.
	Warnings []error
}

// New returns an empty job for one line of filename. Use "-" for lines that
// do not come from a file.
func New(filename, line string) *Job {
	return &Job{
		Filename: filename,
		Basename: filepath.Base(filename),
		Line:     line,
		User:     "root",
		Shell:    "/bin/sh",
	}
}

// Valid reports whether decoding succeeded.
func (j *Job) Valid() bool { return j.Err == nil }

// Invalidate marks the job invalid. The first reason is kept.
func (j *Job) Invalidate(err error) {
	if j.Err == nil {
		j.Err = err
	}
}

func (j *Job) Warn(err error) { j.Warnings = append(j.Warnings, err) }

// IsPersistent resolves the persistence tri-state against the dialect default.
func (j *Job) IsPersistent() bool {
	switch j.Persistent {
	case Yes:
		return true
	case No:
		return false
	default:
		return j.DefaultPersistent
	}
}

// MailTo returns the MAILTO override, if any.
func (j *Job) MailTo() (string, bool) { return j.Env.Get("MAILTO") }

// MailDisabled reports whether MAILTO was explicitly set to the empty string.
func (j *Job) MailDisabled() bool {
	v, ok := j.MailTo()
	return ok && v == ""
}

// Timespec returns the timespec period, or nil for symbolic jobs.
func (j *Job) Timespec() *Timespec {
	ts, _ := j.Period.(*Timespec)
	return ts
}

// Symbolic returns the symbolic period name and whether the job has one.
func (j *Job) Symbolic() (string, bool) {
	s, ok := j.Period.(Symbolic)
	return s.Name, ok
}
