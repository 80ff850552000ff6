// Package dialect decodes crontab-family sources into job.Job values.
//
// Four grammars are supported: five-field timespec lines, @keyword lines,
// anacrontab lines and run-parts directories. Every source implements
// Source and yields its jobs lazily; iterating a source twice decodes it
// twice with identical results.
//
// Decoding never fails as a whole. A malformed line produces an invalid job
// carrying the reason in job.Job.Err, and the caller decides what to log.
package dialect
