// Package sequence implements a linear chain of asynchronous steps with
// progress reporting and cancellation, grounded on the stage-by-stage
// progress reporting of internal/orchestrator.Executor adapted from a
// fixed phase list to an arbitrary, caller-built step chain.
package sequence
