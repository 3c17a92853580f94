package domain

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ParseError describes a malformed rules file line. It is fatal at startup.
type ParseError struct {
	Source   string // file path or other source label, may be empty
	Line     int
	Token    string // offending token as written
	Expected string // grammar fragment that would have been accepted
	Hint     string // optional extra guidance for the rule author
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("line %d: unexpected %q, expected %s", e.Line, e.Token, e.Expected)
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// LookupError means the live process list could not be fetched this cycle.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("failed to list processes: %v", e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// ErrKillTimeout is returned when a termination request does not complete in time.
var ErrKillTimeout = errors.New("termination request timed out")

// TerminationError reports a failed termination of one process.
type TerminationError struct {
	PID  int
	Name string
	Err  error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("failed to kill %s (pid %d): %v", e.Name, e.PID, e.Err)
}

func (e *TerminationError) Unwrap() error { return e.Err }

// Vanished reports whether the process had already exited.
func (e *TerminationError) Vanished() bool {
	return errors.Is(e.Err, os.ErrProcessDone) || errors.Is(e.Err, syscall.ESRCH)
}

// ReloadError means a new rules file could not be loaded; the previous
// RuleSet stays in effect.
type ReloadError struct {
	Err error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("rules reload failed, keeping previous rules: %v", e.Err)
}

func (e *ReloadError) Unwrap() error { return e.Err }
