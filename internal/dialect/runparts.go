package dialect

import (
	"iter"
	"path/filepath"

	"crongen/internal/job"
)

// RunPartsPeriods are the legacy run-parts directories in walk order.
var RunPartsPeriods = []string{"hourly", "daily", "weekly", "monthly", "yearly"}

// RunParts adapts one /etc/cron.<period> directory: every script becomes a
// job whose command is the script itself.
type RunParts struct {
	Period string
	// Index is the 1-based position of Period in RunPartsPeriods. Jobs of
	// later directories start later after boot.
	Index int
	// BootDelayStep is the boot delay in minutes per Index step.
	BootDelayStep int
	// Scripts are absolute paths, already filtered by the caller.
	Scripts []string

	Persistent  bool
	StartHour   int
	MailSuccess job.MailSuccess
	MailFormat  job.MailFormat
	Refine      job.RefineOptions
}

func (r RunParts) Jobs() iter.Seq[*job.Job] {
	return func(yield func(*job.Job) bool) {
		for _, path := range r.Scripts {
			if !yield(r.job(path)) {
				return
			}
		}
	}
}

func (r RunParts) job(path string) *job.Job {
	j := job.New(path, path)
	j.Dialect = job.DialectLegacyDir
	j.Period = job.Symbolic{Name: r.Period}
	j.Persistent = job.No
	if r.Persistent {
		j.Persistent = job.Yes
	}
	j.StartHour = r.StartHour
	j.BootDelay = r.Index * r.BootDelayStep
	j.MailSuccess = r.MailSuccess
	j.MailFormat = r.MailFormat
	j.Command = []string{path}
	j.JobID = r.Period + "-" + filepath.Base(path)
	j.Refine(r.Refine)
	j.UnitName = "cron-" + j.JobID
	return j
}
