package unitfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/unit"
	"github.com/stretchr/testify/require"

	"crongen/internal/dialect"
	"crongen/internal/job"
	"crongen/internal/schedule"
)

// values parses rendered options back and indexes them by section.name.
func values(t *testing.T, opts []*unit.UnitOption) map[string][]string {
	t.Helper()
	b, err := Render(opts)
	require.NoError(t, err)
	parsed, err := unit.DeserializeOptions(bytes.NewReader(b))
	require.NoError(t, err)
	out := map[string][]string{}
	for _, o := range parsed {
		out[o.Section+"."+o.Name] = append(out[o.Section+"."+o.Name], o.Value)
	}
	return out
}

func decoded(t *testing.T, filename, line string, users dialect.UserMode) (*job.Job, schedule.Expression) {
	t.Helper()
	j := dialect.DecodeLine(filename, line, job.Env{}, dialect.Options{Users: users})
	require.True(t, j.Valid(), j.Err)
	e, err := schedule.Synthesize(j)
	require.NoError(t, err)
	return j, e
}

func TestTimerCalendar(t *testing.T) {
	t.Parallel()
	j, e := decoded(t, "/etc/cron.d/backup", "@daily root [ -x /usr/bin/backup ] && /usr/bin/backup", dialect.UserColumn)
	j.RandomDelay = 10
	j.Timezone = "Europe/Paris"

	v := values(t, Timer(Unit{Name: "cron-backup-root-x", Job: j, Schedule: e}, Settings{RandomizedDelay: true}))
	require.Equal(t, []string{`[Timer] "@daily root [ -x /usr/bin/backup ] && /usr/bin/backup"`}, v["Unit.Description"])
	require.Equal(t, []string{"/etc/cron.d/backup"}, v["Unit.SourcePath"])
	require.Equal(t, []string{Target}, v["Unit.PartOf"])
	require.Equal(t, []string{"/usr/bin/backup"}, v["Unit.ConditionFileIsExecutable"])
	require.Equal(t, []string{"daily Europe/Paris"}, v["Timer.OnCalendar"])
	require.Equal(t, []string{"10m"}, v["Timer.RandomizedDelaySec"])
	require.Equal(t, []string{"true"}, v["Timer.Persistent"])

	v = values(t, Timer(Unit{Name: "n", Job: j, Schedule: e}, Settings{}))
	require.Equal(t, []string{"10m"}, v["Timer.AccuracySec"])
	require.Nil(t, v["Timer.RandomizedDelaySec"])
}

func TestTimerBoot(t *testing.T) {
	t.Parallel()
	j, e := decoded(t, "-", "@reboot echo 100%", dialect.UserNone)
	v := values(t, Timer(Unit{Name: "n", Job: j, Schedule: e}, Settings{}))
	require.Equal(t, []string{"1m"}, v["Timer.OnBootSec"])
	require.Nil(t, v["Timer.OnCalendar"])
	require.Nil(t, v["Timer.Persistent"])
	require.Nil(t, v["Unit.SourcePath"])
	require.Equal(t, []string{`[Timer] "@reboot echo 100%%"`}, v["Unit.Description"])
}

func TestDescriptionOfPath(t *testing.T) {
	t.Parallel()
	require.Equal(t, "[Cron] /etc/cron.daily/man-db", Description("Cron", "/etc/cron.daily/man-db"))
	require.Equal(t, `[Cron] "0 * * * * root x"`, Description("Cron", "0 * * * * root x"))
}

func TestServiceFields(t *testing.T) {
	t.Parallel()
	acc := job.Env{}.
		Set("MAILTO", "ops").
		Set("CRON_MAIL_FORMAT", "nometadata").
		Set("BATCH", "yes").
		Set("GREETING", "hello world")
	j := dialect.DecodeLine("/etc/cron.d/app", "*/5 * * * * app /usr/bin/app >/dev/null", acc, dialect.Options{
		Users:    dialect.UserColumn,
		Defaults: job.EnvDefaults{HasMTA: true},
	})
	require.True(t, j.Valid())
	j.Home = "/srv/app"
	e, err := schedule.Synthesize(j)
	require.NoError(t, err)

	v := values(t, Service(Unit{Name: "cron-app-app-0", Job: j, Schedule: e, ExecStart: "/usr/bin/app"}, Settings{
		HasMTA:      true,
		LogLevelMax: "info",
	}))
	require.Equal(t, []string{"cron-mail@%n:Failure:nometadata.service"}, v["Unit.OnFailure"])
	require.Equal(t, []string{"cron-mail@%n:Success:nonempty:nometadata.service"}, v["Unit.OnSuccess"])
	require.Equal(t, []string{"systemd-user-sessions.service"}, v["Unit.Requires"])
	require.Equal(t, []string{"/srv/app"}, v["Unit.RequiresMountsFor"])
	require.Equal(t, []string{"app"}, v["Service.User"])
	require.Equal(t, []string{"oneshot"}, v["Service.Type"])
	require.Equal(t, []string{"cron"}, v["Service.SyslogFacility"])
	require.Equal(t, []string{"info"}, v["Service.LogLevelMax"])
	require.Equal(t, []string{"/usr/bin/app"}, v["Service.ExecStart"])
	require.Equal(t, []string{`MAILTO=ops "GREETING=hello world"`}, v["Service.Environment"])
	require.Equal(t, []string{"/dev/null"}, v["Service.StandardOutput"])
	require.Equal(t, []string{"idle"}, v["Service.CPUSchedulingPolicy"])
	require.Equal(t, []string{"idle"}, v["Service.IOSchedulingClass"])
}

func TestServiceMailDisabled(t *testing.T) {
	t.Parallel()
	j, e := decoded(t, "/etc/crontab", "0 1 * * * root true", dialect.UserColumn)
	v := values(t, Service(Unit{Name: "n", Job: j, Schedule: e, ExecStart: "/bin/sh n.sh"}, Settings{HasMTA: false}))
	require.Nil(t, v["Unit.OnFailure"])
	require.Nil(t, v["Unit.Requires"])

	j.Env = j.Env.Set("MAILTO", "")
	v = values(t, Service(Unit{Name: "n", Job: j, Schedule: e, ExecStart: "x"}, Settings{HasMTA: true}))
	require.Nil(t, v["Unit.OnFailure"])

	j.MailSuccess = job.MailSuccessAlways
	j.Env = j.Env.Delete("MAILTO")
	v = values(t, Service(Unit{Name: "n", Job: j, Schedule: e, ExecStart: "x"}, Settings{HasMTA: true}))
	require.Equal(t, []string{"cron-mail@%n:Success.service"}, v["Unit.OnSuccess"])
}

func TestServiceBootDelay(t *testing.T) {
	t.Parallel()
	j := dialect.RunParts{Period: "daily", Index: 2, BootDelayStep: 5, Scripts: []string{"/etc/cron.daily/x"}, Persistent: true}.Jobs()
	var first *job.Job
	for x := range j {
		first = x
		break
	}
	e, err := schedule.Synthesize(first)
	require.NoError(t, err)
	u := Unit{Name: first.UnitName, Job: first, Schedule: e, ExecStart: "/etc/cron.daily/x"}

	v := values(t, Service(u, Settings{BootDelay: "/usr/libexec/systemd-cron/boot_delay"}))
	require.Equal(t, []string{"-/usr/libexec/systemd-cron/boot_delay 10"}, v["Service.ExecStartPre"])

	v = values(t, Service(u, Settings{BootDelay: "/usr/libexec/systemd-cron/boot_delay", UptimeKnown: true, Uptime: time.Hour}))
	require.Nil(t, v["Service.ExecStartPre"])

	v = values(t, Service(u, Settings{BootDelay: "/usr/libexec/systemd-cron/boot_delay", UptimeKnown: true, Uptime: 5 * time.Minute}))
	require.Equal(t, []string{"-/usr/libexec/systemd-cron/boot_delay 10"}, v["Service.ExecStartPre"])
}

func TestPlan(t *testing.T) {
	t.Parallel()
	regular := func(p string) bool { return p == "/usr/bin/app" }
	j := job.New("-", "")
	j.Command = []string{"/usr/bin/app"}
	exec, scriptlet, _ := Plan(j, "cron-a-0", "/run/gen", regular)
	require.Equal(t, "/usr/bin/app", exec)
	require.Empty(t, scriptlet)

	j.Command = []string{"echo", "", "hi"}
	j.Shell = "/bin/bash"
	exec, scriptlet, script := Plan(j, "cron-a-0", "/run/gen", regular)
	require.Equal(t, "/bin/bash /run/gen/cron-a-0.sh", exec)
	require.Equal(t, "/run/gen/cron-a-0.sh", scriptlet)
	require.Equal(t, "echo hi\n", script)
}

func TestWriterOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w := &Writer{Dir: dir, IsRegular: func(string) bool { return false }}
	require.NoError(t, w.Prepare())

	j, e := decoded(t, "/etc/crontab", "0 1 * * * root echo hi", dialect.UserColumn)
	u := &Unit{Name: "cron-crontab-root-0", Job: j, Schedule: e}
	require.NoError(t, w.Write(u))
	// regenerating over existing output is fine
	require.NoError(t, w.Write(u))

	require.Equal(t, "/bin/sh "+filepath.Join(dir, "cron-crontab-root-0.sh"), u.ExecStart)
	script, err := os.ReadFile(filepath.Join(dir, "cron-crontab-root-0.sh"))
	require.NoError(t, err)
	require.Equal(t, "echo hi\n", string(script))

	target, err := os.Readlink(filepath.Join(dir, "cron.target.wants", "cron-crontab-root-0.timer"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "cron-crontab-root-0.timer"), target)

	f, err := os.Open(filepath.Join(dir, "cron-crontab-root-0.service"))
	require.NoError(t, err)
	defer f.Close()
	opts, err := unit.DeserializeOptions(f)
	require.NoError(t, err)
	require.NotEmpty(t, opts)
}

func TestWriteAfterVar(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w := &Writer{Dir: dir, Settings: Settings{StateDir: "/var/spool/cron/crontabs"}}
	require.NoError(t, w.WriteAfterVar())
	require.NoError(t, w.WriteAfterVar())

	b, err := os.ReadFile(filepath.Join(dir, AfterVarService))
	require.NoError(t, err)
	require.Contains(t, string(b), "ConditionDirectoryNotEmpty=/var/spool/cron/crontabs\n")
	require.Contains(t, string(b), "[Service]\nType=oneshot\n")
	_, err = os.Lstat(filepath.Join(dir, "multi-user.target.wants", AfterVarService))
	require.NoError(t, err)
}
