package svarog

import "errors"

// Implementation-plane sentinel errors (§7): these are host-visible and
// fatal to the run, unlike architectural errors which never leave the
// core as Go errors (they flow through the trap controller as data).
var (
	// ErrConfigInvalid is wrapped (via github.com/pkg/errors) with
	// details identifying which configuration rule was violated.
	ErrConfigInvalid = errors.New("svarog: invalid configuration")

	// ErrTimeout names the condition of a supplied cycle budget being
	// exceeded (§7). Nothing in this package returns it: System.Run
	// reports that condition as stopped=false.
	ErrTimeout = errors.New("svarog: cycle budget exceeded")
)
