// Package regtest provides public constants for external tools integrating
// with the regtest CLI.
package regtest

// Exit codes returned by the regtest CLI.
// These constants allow CI scripts and wrappers to check exit codes
// symbolically rather than using magic numbers.
const (
	// ExitSuccess indicates every test case passed.
	ExitSuccess = 0

	// ExitFailure indicates at least one test case failed (missing files,
	// engine failure, size mismatch, format error or values out of tolerance).
	ExitFailure = 1

	// ExitConfigError indicates a configuration error (malformed config.txt,
	// invalid settings file, bad command-line flags).
	ExitConfigError = 2

	// ExitEnvError indicates the simulation engine could not be found.
	ExitEnvError = 3
)
