// Package schedule turns decoded jobs into systemd calendar expressions.
package schedule

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"crongen/internal/cronspec"
	"crongen/internal/job"
)

var (
	// ErrUnknownSchedule is returned for a period that is neither a known
	// name nor a day count. The expression still carries the literal.
	ErrUnknownSchedule = errors.New("unknown schedule")
	// ErrSynthesis is returned when a timespec has a field that matches
	// nothing once invalid values are removed.
	ErrSynthesis = errors.New("schedule matches nothing")
	// ErrNoPeriod is returned for a job without any schedule.
	ErrNoPeriod = errors.New("job has no schedule")
)

// Kind separates wall-clock schedules from boot-relative ones.
type Kind uint8

const (
	Calendar Kind = iota
	Boot
)

// Expression is the synthesized schedule of one job.
type Expression struct {
	Kind Kind
	// Value is an OnCalendar= expression, or "reboot" for boot schedules.
	Value string
	// BootDelay is the delay in minutes left for the service to wait out
	// after boot. Hourly schedules fold it into the minute instead.
	BootDelay int
	// Persistent is the effective persistence of the timer.
	Persistent bool
}

// Reboot is the literal used for boot-relative schedules.
const Reboot = "reboot"

// timeUnits collapse to their bare name at midnight with no delay.
var timeUnits = []string{"daily", "weekly", "monthly", "quarterly", "semi-annually", "yearly"}

var periodFormats = map[string]string{
	"daily":         "*-*-* %d:%d:0",
	"weekly":        "Mon *-*-* %d:%d:0",
	"monthly":       "*-*-1 %d:%d:0",
	"quarterly":     "*-1,4,7,10-1 %d:%d:0",
	"semi-annually": "*-1,7-1 %d:%d:0",
	"yearly":        "*-1-1 %d:%d:0",
}

// Synthesize computes the schedule of a refined job. On ErrUnknownSchedule
// the returned expression is still usable as a best-effort literal.
func Synthesize(j *job.Job) (Expression, error) {
	switch p := j.Period.(type) {
	case job.Symbolic:
		return fromPeriod(job.NormalizePeriod(p.Name), j)
	case *job.Timespec:
		v, err := FromTimespec(p)
		if err != nil {
			return Expression{}, err
		}
		return Expression{Kind: Calendar, Value: v, BootDelay: j.BootDelay, Persistent: j.IsPersistent()}, nil
	default:
		return Expression{}, ErrNoPeriod
	}
}

func fromPeriod(period string, j *job.Job) (Expression, error) {
	e := Expression{Kind: Calendar, BootDelay: j.BootDelay, Persistent: j.IsPersistent()}
	hour, delay := j.StartHour, j.BootDelay

	switch {
	case period == "reboot":
		e.Kind = Boot
		e.Value = Reboot
		e.BootDelay = max(delay, 1)
		e.Persistent = false
	case period == "minutely":
		e.Value = period
		e.Persistent = false
	case period == "hourly" && delay == 0:
		e.Value = period
	case period == "hourly":
		e.Value = fmt.Sprintf("*-*-* *:%d:0", delay)
		e.BootDelay = 0
	case period == "midnight" && delay == 0:
		e.Value = "daily"
	case period == "midnight":
		e.Value = fmt.Sprintf("*-*-* 0:%d:0", delay)
	case slices.Contains(timeUnits, period) && hour == 0 && delay == 0:
		e.Value = period
	case periodFormats[period] != "":
		e.Value = fmt.Sprintf(periodFormats[period], hour, delay)
	default:
		days, ok := cronspec.ParseUint(period)
		if !ok {
			e.Value = period
			return e, errors.Wrapf(ErrUnknownSchedule, "%q", period)
		}
		e.Value = fromDayCount(days, hour, delay)
	}
	return e, nil
}

// fromDayCount approximates an anacron day count. Counts above 31 are read
// as a number of months.
func fromDayCount(days, hour, delay int) string {
	if days > 31 {
		months := int(math.Round(float64(days) / 30))
		return fmt.Sprintf("*-1/%d-1 %d:%d:0", months, hour, delay)
	}
	return fmt.Sprintf("*-*-1/%d %d:%d:0", days, hour, delay)
}

// FromTimespec renders "[DOWS ]*-MONTHS-DOMS HOURS:MINUTES:00".
func FromTimespec(ts *job.Timespec) (string, error) {
	month := ts.Month.Without(0)
	dom := ts.DayOfMonth.Without(0)
	for _, f := range []cronspec.Field{month, dom, ts.Hour, ts.Minute} {
		if f.Empty() {
			return "", ErrSynthesis
		}
	}

	var b strings.Builder
	if days := ts.DayOfWeek.DayNames(ts.SundayIsSeven); !ts.DayOfWeek.Wildcard {
		if len(days) == 0 {
			return "", ErrSynthesis
		}
		b.WriteString(strings.Join(days, ","))
		b.WriteByte(' ')
	}
	b.WriteString("*-")
	b.WriteString(month.String())
	b.WriteByte('-')
	b.WriteString(dom.String())
	b.WriteByte(' ')
	b.WriteString(ts.Hour.String())
	b.WriteByte(':')
	b.WriteString(ts.Minute.String())
	b.WriteString(":00")
	return b.String(), nil
}

// Known reports whether a normalized period name is handled without the
// day-count fallback.
func Known(period string) bool {
	switch period {
	case "reboot", "minutely", "hourly", "midnight":
		return true
	}
	return periodFormats[period] != ""
}
