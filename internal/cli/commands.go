package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/regtest/internal/compare"
	"github.com/AndreyAkinshin/regtest/internal/config"
	"github.com/AndreyAkinshin/regtest/internal/engine"
	"github.com/AndreyAkinshin/regtest/internal/errors"
	"github.com/AndreyAkinshin/regtest/internal/logging"
	"github.com/AndreyAkinshin/regtest/internal/metrics"
	"github.com/AndreyAkinshin/regtest/internal/outfile"
	"github.com/AndreyAkinshin/regtest/internal/output"
	"github.com/AndreyAkinshin/regtest/internal/report"
	"github.com/AndreyAkinshin/regtest/internal/runner"
)

// out is the shared output writer for CLI commands.
var out = output.New()

// banner heads the output of a suite run.
const banner = "EPANET Regression Tests"

// applyVerbosityToOutput configures the output writer based on verbosity settings.
func applyVerbosityToOutput(opts *GlobalOptions) {
	out.SetQuiet(opts.Quiet)
}

// fail prints err and returns its exit code.
func fail(err error) int {
	out.ErrorPrefix("%v", err)
	return errors.GetExitCode(err)
}

// usageError reports a malformed command line.
func usageError(cmd, format string, args ...interface{}) int {
	out.ErrorPrefix("%s: %s", cmd, fmt.Sprintf(format, args...))
	out.Hint("Run 'regtest %s --help' for usage.", cmd)
	return errors.ExitConfigError
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// loadSettings resolves settings from, in increasing precedence: defaults,
// the settings file, environment variables and command-line flags. dir
// may be empty when there is no test directory.
func loadSettings(dir string, opts *GlobalOptions) (*config.Settings, error) {
	var s *config.Settings
	var err error
	switch {
	case opts.SettingsFile != "":
		s, err = config.LoadSettings(opts.SettingsFile)
	case dir != "":
		s, err = config.LoadSettingsFrom(dir)
	default:
		s = config.DefaultSettings()
	}
	if err != nil {
		return nil, errors.WrapConfig(err, "invalid settings")
	}

	if v := os.Getenv(config.EngineEnvVar); v != "" {
		s.Engine.Command = v
	}
	if v := os.Getenv(config.DockerImageEnvVar); v != "" {
		s.Engine.DockerImage = v
	}
	if opts.Engine != "" {
		s.Engine.Command = opts.Engine
	}
	if opts.DockerImage != "" {
		s.Engine.DockerImage = opts.DockerImage
	}
	if opts.MetricsFile != "" {
		s.MetricsFile = opts.MetricsFile
	}
	return s, nil
}

// resolveTolerance layers the settings file and flag overrides on top of
// base.
func resolveTolerance(base compare.Tolerance, s *config.Settings, opts *GlobalOptions) compare.Tolerance {
	tol := s.Tolerance.Apply(base)
	if opts.Absolute != nil {
		tol.Absolute = *opts.Absolute
	}
	if opts.Relative != nil {
		tol.Relative = *opts.Relative
	}
	return tol
}

func newLogger(s *config.Settings, opts *GlobalOptions) logging.Logger {
	level := s.Log.Level
	switch {
	case opts.Verbose:
		level = "debug"
	case opts.Quiet:
		level = "error"
	}
	return logging.New(logging.Config{Level: level, Format: s.Log.Format}, os.Stderr)
}

// buildEngine resolves the configured engine. A missing executable or an
// unavailable Docker daemon is an environment error.
func buildEngine(s *config.Settings) (engine.Engine, error) {
	if s.Engine.DockerImage != "" {
		d, err := engine.NewDocker(s.Engine.DockerImage, s.Engine.Command, s.Engine.Args)
		if err != nil {
			return nil, errors.WrapEnvironment(err, "test terminated")
		}
		return d, nil
	}
	c, err := engine.NewCommand(s.Engine.Command, s.Engine.Args)
	if err != nil {
		return nil, errors.WrapEnvironment(err, "test terminated")
	}
	return c, nil
}

// printResult prints a case line followed by the failure diagnosis when
// values were out of tolerance.
func printResult(res runner.Result, width int) {
	out.CaseResult(res.Name, width, res.Message(), res.Passed())
	if res.Outcome == runner.OutcomeComparison {
		out.Block(report.Failure(res.Failure, res.Properties, width))
	}
}

// cmdRun runs every case of a test suite.
func cmdRun(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printRunUsage()
		return 0
	}
	if len(args) != 1 {
		return usageError("run", "expected exactly one test directory, got %d arguments", len(args))
	}
	dir := args[0]

	suite, err := config.LoadSuite(dir)
	if err != nil {
		return fail(errors.WrapConfig(err, "test terminated"))
	}
	settings, err := loadSettings(dir, opts)
	if err != nil {
		return fail(err)
	}
	log := newLogger(settings, opts)
	tol := resolveTolerance(suite.Tolerance, settings, opts)
	log.Debug("loaded suite",
		logging.String("dir", dir),
		logging.Int("tests", len(suite.Tests)),
		logging.Float64("absolute", tol.Absolute),
		logging.Float64("relative", tol.Relative))

	eng, err := buildEngine(settings)
	if err != nil {
		return fail(err)
	}

	r, err := runner.New(suite, eng, runner.Options{
		Tolerance:     tol,
		FailureStatus: *settings.Engine.FailureStatus,
		ReportFile:    settings.ReportFile,
		OutputFile:    settings.OutputFile,
		Logger:        log,
	})
	if err != nil {
		return fail(errors.Wrap(err, "test terminated"))
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn("could not remove scratch directory", logging.Err(err))
		}
	}()

	var rec *metrics.Recorder
	if settings.MetricsFile != "" {
		rec = metrics.New(filepath.Base(filepath.Clean(dir)))
	}

	out.Banner(banner)
	width := suite.NameWidth()
	ctx := context.Background()
	sum := r.RunAll(ctx, suite.Tests, func(res runner.Result) {
		printResult(res, width)
		if rec != nil {
			rec.Observe(res)
		}
	})
	out.RunSummary(sum.Tested, sum.Passed, sum.Failed)

	if rec != nil {
		if err := rec.WriteFile(settings.MetricsFile); err != nil {
			return fail(errors.Wrap(err, "could not write metrics file"))
		}
		log.Debug("wrote metrics", logging.String("path", settings.MetricsFile))
	}

	if !sum.OK() {
		return errors.ExitRuntimeError
	}
	return errors.ExitSuccess
}

// cmdCompare compares two existing output files without running an engine.
func cmdCompare(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printCompareUsage()
		return 0
	}
	if len(args) != 2 {
		return usageError("compare", "expected <test.out> <ref.out>, got %d arguments", len(args))
	}
	testPath, refPath := args[0], args[1]

	settings, err := loadSettings("", opts)
	if err != nil {
		return fail(err)
	}
	log := newLogger(settings, opts)
	tol := resolveTolerance(compare.Tolerance{}, settings, opts)
	log.Debug("comparing files",
		logging.String("test", testPath),
		logging.String("reference", refPath),
		logging.Float64("absolute", tol.Absolute),
		logging.Float64("relative", tol.Relative))

	name := filepath.Base(testPath)
	res := runner.Compare(name, testPath, refPath, tol)
	if res.Err != nil {
		log.Debug("comparison aborted", logging.String("outcome", res.Outcome.String()), logging.Err(res.Err))
	}
	printResult(res, len(name)+2)

	if !res.Passed() {
		return errors.ExitRuntimeError
	}
	return errors.ExitSuccess
}

// cmdInspect prints the decoded header and layout of an output file.
func cmdInspect(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printInspectUsage()
		return 0
	}
	if len(args) != 1 {
		return usageError("inspect", "expected one output file, got %d arguments", len(args))
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fail(errors.Wrap(err, "could not open output file"))
	}
	defer func() { _ = f.Close() }()

	p, err := outfile.ReadProperties(f)
	if err != nil {
		return fail(errors.Wrap(err, args[0]))
	}

	title := cases.Title(language.English)
	out.Section(filepath.Base(args[0]))
	out.Detail("Magic", strconv.Itoa(p.Magic))
	out.Detail("Version", strconv.Itoa(p.Version))
	for _, c := range []struct {
		label string
		n     int
	}{
		{"nodes", p.NumNodes},
		{"tanks", p.NumTanks},
		{"links", p.NumLinks},
		{"pumps", p.NumPumps},
		{"valves", p.NumValves},
		{"periods", p.NumPeriods},
	} {
		out.Detail(title.String(c.label), strconv.Itoa(c.n))
	}
	out.Detail("Report start", report.ClockTime(p, 1))
	out.Detail("Report step", fmt.Sprintf("%ds", p.ReportStep))
	out.Detail("Results start", strconv.FormatInt(p.ResultsStart, 10))
	out.Detail("File size", strconv.FormatInt(p.Size, 10))

	out.Section("Layout")
	rows := make([][]string, 0, len(outfile.Sections)+1)
	for _, s := range outfile.Sections {
		rows = append(rows, []string{
			title.String(s.Name),
			s.Per.String(),
			strconv.FormatInt(s.Width, 10),
			strconv.FormatInt(s.Size(p), 10),
		})
	}
	rows = append(rows, []string{"Results", "period", strconv.FormatInt(p.PeriodSize(), 10),
		strconv.FormatInt(int64(p.NumPeriods)*p.PeriodSize(), 10)})
	out.Table([]string{"Section", "Per", "Width", "Bytes"}, rows)

	if want := p.ResultsStart + int64(p.NumPeriods)*p.PeriodSize() + 3*outfile.WordSize; want != p.Size {
		out.Warning("file size %d does not match the %d bytes implied by the header", p.Size, want)
	}
	return errors.ExitSuccess
}

// cmdConfig handles config subcommands.
func cmdConfig(args []string, opts *GlobalOptions) int {
	if len(args) == 0 || wantsHelp(args) {
		printConfigUsage()
		if len(args) == 0 {
			return errors.ExitConfigError
		}
		return 0
	}
	switch args[0] {
	case "validate":
		return cmdConfigValidate(args[1:], opts)
	default:
		return usageError("config", "unknown subcommand: %s", args[0])
	}
}

// cmdConfigValidate loads config.txt and the settings of a test directory
// without running anything.
func cmdConfigValidate(args []string, opts *GlobalOptions) int {
	if len(args) != 1 {
		return usageError("config", "validate expects one test directory, got %d arguments", len(args))
	}
	dir := args[0]

	suite, err := config.LoadSuite(dir)
	if err != nil {
		return fail(errors.WrapConfig(err, "invalid test suite"))
	}
	settings, err := loadSettings(dir, opts)
	if err != nil {
		return fail(err)
	}
	tol := resolveTolerance(suite.Tolerance, settings, opts)

	missing := 0
	for _, name := range suite.Tests {
		for _, path := range []string{suite.InputPath(name), suite.ReferencePath(name)} {
			if _, err := os.Stat(path); err != nil {
				out.Warning("%s: missing %s", name, filepath.Base(path))
				missing++
			}
		}
	}

	out.Info("%s: %d test cases, absolute tolerance %g, relative tolerance %g", dir, len(suite.Tests), tol.Absolute, tol.Relative)
	out.Info("engine: %s %v", settings.Engine.Command, settings.Engine.Args)
	if settings.Engine.DockerImage != "" {
		out.Info("docker image: %s", settings.Engine.DockerImage)
	}
	if settings.MetricsFile != "" {
		out.Info("metrics file: %s", settings.MetricsFile)
	}
	if missing > 0 {
		out.Info("%d test files are missing", missing)
	}
	return errors.ExitSuccess
}

func printRunUsage() {
	w := output.New()

	w.HelpTitle("regtest run - run a regression test suite")

	w.HelpSection("Usage:")
	w.HelpUsage("regtest run <test_dir> [flags]")

	w.HelpSection("Description:")
	w.Println("  Reads <test_dir>/config.txt: the first line holds the absolute and")
	w.Println("  relative tolerances, each following line names a test case. For every")
	w.Println("  case the engine runs <name>.inp and its binary output is compared with")
	w.Println("  <name>.out within tolerance.")

	printGlobalFlags(w)
	w.Println("")
}

func printCompareUsage() {
	w := output.New()

	w.HelpTitle("regtest compare - compare two output files")

	w.HelpSection("Usage:")
	w.HelpUsage("regtest compare <test.out> <ref.out> [--abs=<x>] [--rel=<x>]")

	w.HelpSection("Description:")
	w.Println("  Compares every result value of two EPANET binary output files of the")
	w.Println("  same size. Tolerances default to zero (exact match).")

	printGlobalFlags(w)
	w.Println("")
}

func printInspectUsage() {
	w := output.New()

	w.HelpTitle("regtest inspect - show the header of an output file")

	w.HelpSection("Usage:")
	w.HelpUsage("regtest inspect <file.out>")
	w.Println("")
}

func printConfigUsage() {
	w := output.New()

	w.HelpTitle("regtest config - configuration utilities")

	w.HelpSection("Usage:")
	w.HelpUsage("regtest config validate <test_dir>")

	w.HelpSection("Subcommands:")
	w.HelpCommand("validate <test_dir>", "Check config.txt, regtest.yaml and the listed test files", widthCommand)
	w.Println("")
}
