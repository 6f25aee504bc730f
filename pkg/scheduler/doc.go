// Package scheduler runs provider syncs and post-processing on fixed
// intervals.
//
// Each Job gets its own loop. A firing is skipped when the previous run of
// the same job is still going, when it starts more than Grace after its
// scheduled time, or when a configured Locker reports that another process
// holds the job. Distinct jobs run concurrently. Failed runs are logged,
// counted and published on Errors(), which Stop closes. The schedule
// continues either way.
//
// Retry wraps a job body with exponential backoff.
package scheduler
