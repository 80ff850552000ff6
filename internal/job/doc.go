// Package job holds the normalized job model shared by every crontab dialect.
//
// A Job is built empty by a dialect decoder, receives the per-file
// environment through ApplyEnvironment, is validated by Refine, and is then
// handed once to the schedule synthesizer and the identity assigner.
// Nothing in this package performs I/O: host lookups (home directories,
// zoneinfo) are injected by the caller.
package job
