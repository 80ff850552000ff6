package generator

import (
	"time"

	"github.com/cockroachdb/errors"

	"crongen/internal/dialect"
	"crongen/internal/job"
	"crongen/internal/schedule"
	"crongen/internal/unitfile"
)

// Translation is the unit pair of a single line.
type Translation struct {
	Job     *job.Job
	Timer   []byte
	Service []byte
	// Next is the next elapse, zero when it cannot be previewed.
	Next time.Time
}

// Translate renders one crontab line, in any grammar, as a timer and a
// service without touching the filesystem. The service runs the command
// line as is instead of through a scriptlet. Units are rendered even for
// an invalid line; the returned error is then the reason it is invalid.
func Translate(line string, opts dialect.TranslateOptions, s unitfile.Settings, now time.Time) (Translation, error) {
	j := dialect.Translate(line, opts)
	t := Translation{Job: j}

	e, err := schedule.Synthesize(j)
	switch {
	case errors.Is(err, schedule.ErrUnknownSchedule):
		j.Warn(err)
	case err != nil:
		j.Invalidate(err)
	}

	u := unitfile.Unit{Name: "-", Job: j, Schedule: e, ExecStart: unitfile.JoinCommand(j.Command)}
	timer, err := unitfile.Render(unitfile.Timer(u, s))
	if err != nil {
		return t, err
	}
	// Whether the timer persists depends on where the line ends up.
	t.Timer = append(timer, "#Persistent=true\n"...)
	if t.Service, err = unitfile.Render(unitfile.Service(u, s)); err != nil {
		return t, err
	}

	if !j.Valid() {
		return t, j.Err
	}
	if next, err := NextElapse(j.Line, now); err == nil {
		t.Next = next
	}
	return t, nil
}
