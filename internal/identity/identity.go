// Package identity names the systemd units generated for jobs.
//
// Transient jobs are numbered per job id in the order they are seen, so a
// name stays stable as long as the source order does. Persistent jobs are
// named after a digest of their schedule and command, so a name is stable
// regardless of order and changes whenever the job itself changes.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"crongen/internal/job"
	"crongen/internal/schedule"
)

// Prefix starts every generated unit name.
const Prefix = "cron-"

// Assigner hands out unit names for one generator run.
// The zero value is ready to use. Assigner is not safe for concurrent use.
type Assigner struct {
	seq map[string]uint64
}

// Assign returns the unit name of j. A name preset on the job (run-parts
// scripts) is returned unchanged and does not consume a sequence number.
func (a *Assigner) Assign(j *job.Job, e schedule.Expression) string {
	if j.UnitName != "" {
		return j.UnitName
	}
	if e.Persistent {
		return Prefix + j.JobID + "-" + Digest(e.Value, j.Command)
	}
	if a.seq == nil {
		a.seq = make(map[string]uint64)
	}
	n := a.seq[j.JobID]
	a.seq[j.JobID] = n + 1
	return Prefix + j.JobID + "-" + strconv.FormatUint(n, 10)
}

// Digest is the hex MD5 of the schedule followed by every non-empty
// command argument, each preceded by a NUL byte.
func Digest(value string, command []string) string {
	h := md5.New()
	h.Write([]byte(value))
	for _, arg := range command {
		if arg == "" {
			continue
		}
		h.Write([]byte{0})
		h.Write([]byte(arg))
	}
	return hex.EncodeToString(h.Sum(nil))
}
