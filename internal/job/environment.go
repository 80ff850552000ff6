package job

import (
	"strings"

	"github.com/cockroachdb/errors"

	"crongen/internal/cronspec"
)

// EnvDefaults carries the settings a job falls back to when the crontab
// environment does not override them.
type EnvDefaults struct {
	Persistent  bool
	MailSuccess MailSuccess
	MailFormat  MailFormat

	// HasMTA is false when no sendmail binary is installed.
	HasMTA bool
	// ZoneExists reports whether a TZ name is known. Nil rejects every zone.
	ZoneExists func(name string) bool
}

// ApplyEnvironment decodes the variables that steer the generator itself
// (PERSISTENT, DELAY, RANDOM_DELAY, START_HOURS_RANGE, BATCH,
// CRON_MAIL_SUCCESS, CRON_MAIL_FORMAT) and copies every other assignment
// into the job environment. SHELL, TZ/CRON_TZ and MAILTO are both applied and
// passed through.
//
// Decoders call it before reading the line itself, so values written on the
// line (the anacrontab delay column) win over the environment.
func (j *Job) ApplyEnvironment(acc Env, def EnvDefaults) {
	j.DefaultPersistent = def.Persistent
	j.MailSuccess = def.MailSuccess
	j.MailFormat = def.MailFormat

	var env Env
	for k, v := range acc.All() {
		switch k {
		case "PERSISTENT":
			if systemdBool(v) {
				j.Persistent = Yes
			} else {
				j.Persistent = No
			}
		case "RANDOM_DELAY":
			if n, ok := cronspec.ParseUint(v); ok {
				j.RandomDelay = n
			} else {
				j.Warn(errors.New("invalid RANDOM_DELAY"))
			}
		case "START_HOURS_RANGE":
			lo, _, found := strings.Cut(v, "-")
			n, ok := cronspec.ParseUint(lo)
			if found && ok {
				j.StartHour = n
			} else {
				j.Warn(errors.New("invalid START_HOURS_RANGE"))
			}
		case "DELAY":
			if n, ok := cronspec.ParseUint(v); ok {
				j.BootDelay = n
			} else {
				j.Warn(errors.New("invalid DELAY"))
			}
		case "BATCH":
			j.Batch = systemdBool(v)
		case "CRON_MAIL_SUCCESS":
			switch {
			case v == "never" || systemdBoolFalse(v):
				j.MailSuccess = MailSuccessNever
			case v == "always" || systemdBool(v):
				j.MailSuccess = MailSuccessAlways
			case v == "nonempty" || v == "non-empty":
				j.MailSuccess = MailSuccessNonEmpty
			case v == "inherit":
				j.MailSuccess = def.MailSuccess
			default:
				j.Warn(errors.New("unknown CRON_MAIL_SUCCESS value"))
			}
		case "CRON_MAIL_FORMAT":
			switch v {
			case "normal":
				j.MailFormat = MailFormatNormal
			case "nometadata", "no-metadata":
				j.MailFormat = MailFormatNoMetadata
			case "inherit":
				j.MailFormat = def.MailFormat
			default:
				j.Warn(errors.New("unknown CRON_MAIL_FORMAT value"))
			}
		default:
			switch k {
			case "SHELL":
				j.Shell = v
			case "TZ", "CRON_TZ":
				if v != "" && def.ZoneExists != nil && def.ZoneExists(v) {
					j.Timezone = v
				}
			case "MAILTO":
				if v != "" && !def.HasMTA {
					j.Warn(errors.New("a MTA is not installed, but MAILTO is set"))
				}
			}
			env = env.Set(k, v)
		}
	}
	j.Env = env
}

func systemdBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "yes", "true":
		return true
	}
	return false
}

func systemdBoolFalse(s string) bool {
	switch strings.ToLower(s) {
	case "0", "no", "false":
		return true
	}
	return false
}
