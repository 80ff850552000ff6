package dialect

import (
	"strings"

	"crongen/internal/cronspec"
	"crongen/internal/job"
)

// ErrTruncated is returned (through job.Job.Err) for lines with too few
// tokens for their grammar.
var ErrTruncated = job.ErrTruncated

// UserMode tells a decoder where the executing user comes from.
type UserMode uint8

const (
	// UserColumn reads the user from the column after the schedule
	// (/etc/crontab, /etc/cron.d).
	UserColumn UserMode = iota
	// UserFromFilename takes the user from the crontab file name
	// (per-user spool).
	UserFromFilename
	// UserNone leaves the user to the caller (check and translate modes).
	UserNone
)

// Decoder fills j from the whitespace-separated tokens of one line.
type Decoder func(j *job.Job, parts []string, users UserMode)

// Timespec decodes "min hour dom month dow [user] command...".
func Timespec(j *job.Job, parts []string, users UserMode) {
	j.Dialect = job.DialectTimespec
	need := 6
	if users == UserColumn {
		need++
	}
	if len(parts) < need {
		j.Invalidate(ErrTruncated)
		return
	}

	ts := &job.Timespec{}
	for i, f := range []struct {
		dst *cronspec.Field
		dom cronspec.Domain
	}{
		{&ts.Minute, cronspec.Minutes},
		{&ts.Hour, cronspec.Hours},
		{&ts.DayOfMonth, cronspec.Days},
		{&ts.Month, cronspec.Months},
		{&ts.DayOfWeek, cronspec.Weekdays},
	} {
		field, err := cronspec.Expand(parts[i], f.dom)
		if err != nil {
			j.Invalidate(err)
		}
		*f.dst = field
	}
	ts.SundayIsSeven = sundayIsSeven(parts[4])
	j.Period = ts

	takeUserAndCommand(j, parts[5:], users)
}

// Keyword decodes "@period [user] command...".
func Keyword(j *job.Job, parts []string, users UserMode) {
	j.Dialect = job.DialectKeyword
	need := 2
	if users == UserColumn {
		need++
	}
	if len(parts) < need {
		j.Invalidate(ErrTruncated)
		return
	}
	j.Period = job.Symbolic{Name: parts[0]}
	takeUserAndCommand(j, parts[1:], users)
}

// Monotonic decodes an anacrontab line: "period delay-minutes jobid command...".
// Anacron jobs always run as root.
func Monotonic(j *job.Job, parts []string, _ UserMode) {
	j.Dialect = job.DialectMonotonic
	if len(parts) < 4 {
		j.Invalidate(ErrTruncated)
		return
	}
	j.Period = job.Symbolic{Name: parts[0]}
	j.JobID = "anacron-" + parts[2]
	if n, ok := cronspec.ParseUint(parts[1]); ok {
		j.BootDelay = n
	} else {
		j.Warn(errInvalidDelay)
	}
	j.Command = parts[3:]
}

func takeUserAndCommand(j *job.Job, rest []string, users UserMode) {
	switch users {
	case UserColumn:
		j.User = rest[0]
		rest = rest[1:]
	case UserFromFilename:
		j.User = j.Basename
	}
	j.Command = rest
	j.JobID = j.Basename + "-" + j.User
}

// sundayIsSeven reports whether a day-of-week expression ends with the
// trailing spelling of Sunday ("7" or a name ending in "sun").
func sundayIsSeven(dow string) bool {
	if strings.HasSuffix(dow, "7") {
		return true
	}
	return len(dow) >= 3 && strings.EqualFold(dow[len(dow)-3:], "sun")
}
