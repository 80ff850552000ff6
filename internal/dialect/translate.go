package dialect

import (
	"strings"

	"crongen/internal/job"
)

// TranslateOptions configure Translate.
type TranslateOptions struct {
	Defaults job.EnvDefaults
	Refine   job.RefineOptions
	// UserExists reports whether a token names a local account.
	UserExists func(name string) bool
	// LoginUser runs the job when the line names no user.
	LoginUser string
}

// Translate decodes a single line of unknown grammar, as typed on a command
// line. The first command token is taken as the user when it names an
// existing account and more tokens follow it.
func Translate(line string, opts TranslateOptions) *job.Job {
	line = cleanLine([]byte(strings.TrimSpace(line)))
	j := job.New("-", line)
	parts := strings.Fields(line)

	decode, persistent := pick(line, false)
	def := opts.Defaults
	def.Persistent = persistent
	j.ApplyEnvironment(job.Env{}, def)
	decode(j, parts, UserNone)

	if len(j.Command) > 0 {
		if len(j.Command) > 1 && opts.UserExists != nil && opts.UserExists(j.Command[0]) {
			j.User = j.Command[0]
			j.Command = j.Command[1:]
		} else if opts.LoginUser != "" {
			j.User = opts.LoginUser
		}
		j.JobID = j.Basename + "-" + j.User
	}
	j.Refine(opts.Refine)
	return j
}
