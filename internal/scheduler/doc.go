// Package scheduler keeps one recurring reminder job per habit key in the job store and fires
// stored jobs on their interval.
//
// The Adapter is called by the habit write path after each commit. The Runner lives in the
// scheduler process, mirrors the job store into a cron instance and publishes a reminder event
// every time a job is due.
package scheduler
