// Package engine runs the simulation engine under test.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Engine runs one simulation of an input file, writing a text report and
// a binary output file. The returned status follows the EPANET toolkit
// convention: 0 is success, values up to 100 are warnings, larger values are
// errors.
type Engine interface {
	Run(ctx context.Context, inpFile, rptFile, outFile string) (int, error)
}

// Func adapts an ordinary function to the Engine interface.
type Func func(ctx context.Context, inpFile, rptFile, outFile string) (int, error)

// Run calls f.
func (f Func) Run(ctx context.Context, inpFile, rptFile, outFile string) (int, error) {
	return f(ctx, inpFile, rptFile, outFile)
}

// Command runs the engine as an external program, such as EPANET's
// runepanet command-line tool.
type Command struct {
	Path string
	// Args may contain the placeholders {inp}, {rpt} and {out}.
	Args []string
}

// NewCommand resolves name on PATH. A missing executable is reported as
// *NotFoundError.
func NewCommand(name string, args []string) (*Command, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, &NotFoundError{Name: name, Err: err}
	}
	return &Command{Path: path, Args: args}, nil
}

// NotFoundError reports that the engine executable could not be located.
type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not load simulation engine %q: %v", e.Name, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ExpandArgs substitutes file paths into the argument template.
func (c *Command) ExpandArgs(inpFile, rptFile, outFile string) []string {
	r := strings.NewReplacer("{inp}", inpFile, "{rpt}", rptFile, "{out}", outFile)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}
	return args
}

// Run executes the engine. A non-zero exit code is returned as the status
// together with an error that includes the program's stderr.
func (c *Command) Run(ctx context.Context, inpFile, rptFile, outFile string) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.ExpandArgs(inpFile, rptFile, outFile)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return exitErr.ExitCode(), fmt.Errorf("%s: %w: %s", c.Path, err, msg)
		}
		return exitErr.ExitCode(), fmt.Errorf("%s: %w", c.Path, err)
	}
	return -1, fmt.Errorf("%s: %w", c.Path, err)
}
