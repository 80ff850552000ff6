package generator

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"crongen/internal/dialect"
	"crongen/internal/job"
	"crongen/internal/schedule"
)

// ErrDayZero is reported for timespecs whose month or day of month is 0.
var ErrDayZero = errors.New("month and day can't be 0")

// errNotPortable flags timespecs that other cron daemons reject.
var errNotPortable = errors.New("not portable to other cron implementations")

// portable parses the five standard fields and the @ descriptors the way
// most cron daemons do.
var portable = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Finding is one diagnostic of Check.
type Finding struct {
	Line string
	// Fatal findings make the file unusable as a crontab.
	Fatal bool
	Err   error
}

// Check validates the contents of a user crontab, as "crontab -t" does.
// Lines carry no user column.
func Check(filename string, data []byte) []Finding {
	var out []Finding
	src := dialect.Text{Filename: filename, Data: data, Options: dialect.Options{Users: dialect.UserNone}}
	for j := range src.Jobs() {
		out = append(out, checkJob(j)...)
	}
	return out
}

func checkJob(j *job.Job) []Finding {
	fatal := func(err error) []Finding { return []Finding{{Line: j.Line, Fatal: true, Err: err}} }
	if !j.Valid() {
		return fatal(j.Err)
	}

	var out []Finding
	for _, w := range j.Warnings {
		out = append(out, Finding{Line: j.Line, Err: w})
	}
	if _, ok := j.Symbolic(); ok {
		raw := strings.ToLower(strings.TrimPrefix(strings.Fields(j.Line)[0], "@"))
		// numeric aliases (@1, @7, @30, @365) normalize to names; other day
		// counts are anacrontab only
		if !schedule.Known(job.NormalizePeriod(raw)) {
			return append(out, fatal(errors.Wrapf(schedule.ErrUnknownSchedule, "%q", raw))...)
		}
		return out
	}

	ts := j.Timespec()
	if ts.Month.Contains(0) || ts.DayOfMonth.Contains(0) {
		return append(out, fatal(ErrDayZero)...)
	}
	if _, err := portable.Parse(timespecFields(j.Line)); err != nil {
		out = append(out, Finding{Line: j.Line, Err: errors.Wrap(errNotPortable, err.Error())})
	}
	return out
}

func timespecFields(line string) string {
	fields := strings.Fields(line)
	if len(fields) > 5 {
		fields = fields[:5]
	}
	return strings.Join(fields, " ")
}

// NextElapse previews when a line next fires, using the schedule parser of
// robfig/cron. It fails for lines that parser does not accept, such as
// @reboot.
func NextElapse(line string, now time.Time) (time.Time, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return time.Time{}, errors.New("empty line")
	}
	spec := fields[0]
	if !strings.HasPrefix(spec, "@") {
		spec = timespecFields(line)
	}
	sched, err := portable.Parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}
