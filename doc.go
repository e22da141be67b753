// Package rollogr provides on-disk diagnostic logging for long-running
// agent processes. It writes plain-text log files that roll over after a
// configured number of lines, keeping a bounded number of historical files
// and deleting the oldest when the bound is exceeded.
//
// The New() method returns a simple io.WriteCloser that works with most log
// packages via log.SetOutput(). Rotation, file naming, and retention happen
// inline on the write path; a broken log sink surfaces immediately as a
// write error instead of silently dropping logs.
//
// The included sweeper package runs an independent, periodic, age-based
// cleanup pass over a directory tree. It is best-effort: cleanup failures
// are reported through a Notifier and never fail the sweep.
//
//	https://pkg.go.dev/github.com/agentdiag/rollogr/sweeper
//	https://pkg.go.dev/github.com/agentdiag/rollogr/compressor
package rollogr
