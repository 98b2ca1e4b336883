package supervisor

import "fmt"

// ExitStatus is the supervisor's interpretation of a syncthing exit code.
type ExitStatus int

const (
	// StatusSuccess is a clean shutdown (exit code 0).
	StatusSuccess ExitStatus = iota

	// StatusError is a generic failure (exit code 1) and the fallback for
	// any code the supervisor does not recognise.
	StatusError

	// StatusNoUpgradeAvailable means an upgrade was requested but none
	// exists (exit code 2).
	StatusNoUpgradeAvailable

	// StatusRestarting means syncthing wants to be started again
	// (exit code 3). With -no-restart the process cannot restart itself,
	// so the supervisor honours the request.
	StatusRestarting

	// StatusUpgrading means syncthing exited to complete an upgrade and
	// expects to be relaunched (exit code 4).
	StatusUpgrading
)

// Syncthing exit codes, from its documented exit contract.
const (
	exitCodeSuccess    = 0
	exitCodeError      = 1
	exitCodeNoUpgrade  = 2
	exitCodeRestarting = 3
	exitCodeUpgrading  = 4
)

// StatusFromExitCode maps a raw exit code onto an ExitStatus. The second
// return value reports whether the code was recognised; unrecognised
// codes map to StatusError and must never be treated as success.
func StatusFromExitCode(code int) (ExitStatus, bool) {
	switch code {
	case exitCodeSuccess:
		return StatusSuccess, true
	case exitCodeError:
		return StatusError, true
	case exitCodeNoUpgrade:
		return StatusNoUpgradeAvailable, true
	case exitCodeRestarting:
		return StatusRestarting, true
	case exitCodeUpgrading:
		return StatusUpgrading, true
	default:
		return StatusError, false
	}
}

// ShouldRestart reports whether this status asks the supervisor for an
// implicit relaunch. Only the two restart-flavoured codes qualify.
func (s ExitStatus) ShouldRestart() bool {
	return s == StatusRestarting || s == StatusUpgrading
}

// String returns a stable lower-case name for logging and payloads.
func (s ExitStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusNoUpgradeAvailable:
		return "no_upgrade_available"
	case StatusRestarting:
		return "restarting"
	case StatusUpgrading:
		return "upgrading"
	default:
		return fmt.Sprintf("exit_status(%d)", int(s))
	}
}
