// Package execs runs the external scripts and commands that tracks call.
//
// A [Command] describes the child process: its arguments, the variables it
// inherits from the caller and the variables set for it explicitly. The
// child never sees the caller's full environment; only a small set of
// essential variables plus anything matched by a [CallerRef] is passed
// through.
package execs
