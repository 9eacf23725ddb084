// Package runner executes regression test cases: it runs the engine on a
// case's input, then compares the produced output with the reference.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AndreyAkinshin/regtest/internal/compare"
	"github.com/AndreyAkinshin/regtest/internal/config"
	"github.com/AndreyAkinshin/regtest/internal/engine"
	"github.com/AndreyAkinshin/regtest/internal/logging"
	"github.com/AndreyAkinshin/regtest/internal/outfile"
)

// Outcome classifies the result of a test case.
type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeMissingFile
	OutcomeEngineRun
	OutcomeSizeMismatch
	OutcomeFormat
	OutcomeComparison
	// OutcomeIO covers result files that exist but cannot be opened or read.
	OutcomeIO
)

var outcomeNames = [...]string{
	OutcomePassed:       "passed",
	OutcomeMissingFile:  "missing file",
	OutcomeEngineRun:    "engine run",
	OutcomeSizeMismatch: "size mismatch",
	OutcomeFormat:       "format",
	OutcomeComparison:   "comparison",
	OutcomeIO:           "io",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Result is the outcome of one test case.
type Result struct {
	Name    string
	Outcome Outcome
	// Status is the engine status; meaningful for OutcomeEngineRun.
	Status int
	// Err holds the underlying error of a structural failure.
	Err        error
	Failure    compare.FailureInfo
	Properties outfile.Properties
	// Duration covers the engine run and the comparison.
	Duration time.Duration
}

// Passed reports whether the case passed.
func (r *Result) Passed() bool {
	return r.Outcome == OutcomePassed
}

// Message returns the one-line result printed after the case name.
func (r *Result) Message() string {
	switch r.Outcome {
	case OutcomePassed:
		return "passed"
	case OutcomeMissingFile:
		return "file does not exist."
	case OutcomeEngineRun:
		if r.Err != nil && r.Status < 0 {
			return fmt.Sprintf("engine run failed: %v", r.Err)
		}
		return fmt.Sprintf("EPANET run failed with status code %d", r.Status)
	case OutcomeSizeMismatch:
		return "Test and reference results files have different sizes."
	case OutcomeFormat:
		return fmt.Sprintf("Invalid output file: %v", r.Err)
	case OutcomeComparison:
		return "FAILED"
	}
	var fe *FileError
	if errors.As(r.Err, &fe) {
		return fmt.Sprintf("Could not open %s output file.", fe.Role)
	}
	return fmt.Sprintf("Could not read output files: %v", r.Err)
}

// Summary aggregates the results of a run. Cases with missing files are
// not counted as tested; they are reported in Missing.
type Summary struct {
	Results []Result
	Tested  int
	Passed  int
	Failed  int
	Missing int
}

// OK reports whether every case was tested and passed.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.Missing == 0
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch {
	case r.Outcome == OutcomeMissingFile:
		s.Missing++
	case r.Passed():
		s.Tested++
		s.Passed++
	default:
		s.Tested++
		s.Failed++
	}
}

// Options configures a Runner. Empty file names fall back to the defaults
// of the config package.
type Options struct {
	Tolerance compare.Tolerance
	// FailureStatus is the largest engine status that counts as success.
	// config.DefaultFailureStatus accepts EPANET warnings.
	FailureStatus int
	ReportFile    string
	OutputFile    string
	Logger        logging.Logger
}

// Runner runs the cases of a suite against one engine. Engine output is
// written to a private scratch directory removed by Close.
type Runner struct {
	suite   *config.Suite
	engine  engine.Engine
	opts    Options
	log     logging.Logger
	workDir string
}

// New creates a Runner and its scratch directory.
func New(suite *config.Suite, eng engine.Engine, opts Options) (*Runner, error) {
	if opts.ReportFile == "" {
		opts.ReportFile = config.DefaultReportFile
	}
	if opts.OutputFile == "" {
		opts.OutputFile = config.DefaultOutputFile
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}

	workDir, err := os.MkdirTemp("", "regtest-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Runner{
		suite:   suite,
		engine:  eng,
		opts:    opts,
		log:     log,
		workDir: workDir,
	}, nil
}

// Close removes the scratch directory.
func (r *Runner) Close() error {
	return os.RemoveAll(r.workDir)
}

// ReportPath returns the path the engine writes its text report to.
func (r *Runner) ReportPath() string {
	return filepath.Join(r.workDir, r.opts.ReportFile)
}

// OutputPath returns the path the engine writes its binary output to.
func (r *Runner) OutputPath() string {
	return filepath.Join(r.workDir, r.opts.OutputFile)
}

// RunCase runs a single test case. Failures are reported through the
// Result; RunCase itself never aborts the run.
func (r *Runner) RunCase(ctx context.Context, name string) Result {
	res := Result{Name: name}
	log := r.log.With(logging.String("test", name))

	inp := r.suite.InputPath(name)
	ref := r.suite.ReferencePath(name)
	for _, path := range []string{inp, ref} {
		if _, err := os.Stat(path); err != nil {
			log.Debug("missing test file", logging.String("path", path), logging.Err(err))
			res.Outcome = OutcomeMissingFile
			res.Err = err
			return res
		}
	}

	out := r.OutputPath()
	// A stale file from the previous case must not be compared.
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		res.Outcome = OutcomeIO
		res.Err = err
		return res
	}

	log.Debug("running engine", logging.String("input", inp))
	status, err := r.engine.Run(ctx, inp, r.ReportPath(), out)
	if status < 0 || status > r.opts.FailureStatus {
		log.Debug("engine failed", logging.Int("status", status), logging.Err(err))
		res.Outcome = OutcomeEngineRun
		res.Status = status
		res.Err = err
		return res
	}
	if status > 0 {
		log.Debug("engine reported warnings", logging.Int("status", status), logging.Err(err))
	}

	res = Compare(name, out, ref, r.opts.Tolerance)
	if res.Err != nil {
		log.Debug("comparison aborted", logging.String("outcome", res.Outcome.String()), logging.Err(res.Err))
		return res
	}
	log.Debug("compared results",
		logging.Int("periods", res.Properties.NumPeriods),
		logging.Int("nodes", res.Properties.NumNodes),
		logging.Int("links", res.Properties.NumLinks),
		logging.Int("failing", res.Failure.Count))
	return res
}

// Compare compares an existing test output file with a reference and
// classifies the outcome.
func Compare(name, testPath, refPath string, tol compare.Tolerance) Result {
	res := Result{Name: name}
	info, props, err := CompareFiles(testPath, refPath, tol)
	res.Properties = props
	res.Failure = info
	switch {
	case err != nil:
		res.Outcome, res.Err = classify(err)
	case info.Failed():
		res.Outcome = OutcomeComparison
	}
	return res
}

// RunAll runs the named cases in order. report, if non-nil, is called
// after each case.
func (r *Runner) RunAll(ctx context.Context, names []string, report func(Result)) Summary {
	var s Summary
	for _, name := range names {
		start := time.Now()
		res := r.RunCase(ctx, name)
		res.Duration = time.Since(start)
		if report != nil {
			report(res)
		}
		s.add(res)
	}
	return s
}

func classify(err error) (Outcome, error) {
	var sizeErr *SizeMismatchError
	var formatErr *outfile.FormatError
	switch {
	case errors.As(err, &sizeErr):
		return OutcomeSizeMismatch, err
	case errors.As(err, &formatErr):
		return OutcomeFormat, err
	default:
		return OutcomeIO, err
	}
}
