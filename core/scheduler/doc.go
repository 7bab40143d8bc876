// Package scheduler runs a task at a fixed cadence on a single goroutine.
// Executions never overlap, and Stop returns only once the loop has exited,
// so no execution is pending or in flight afterwards.
package scheduler
