// Package cli provides command-line interface functionality for regtest.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AndreyAkinshin/regtest/internal/errors"
	"github.com/AndreyAkinshin/regtest/internal/output"
)

// Version is set at build time.
var Version = "dev"

// wantsHelp returns true if args contain -h or --help before any -- separator.
func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
		if arg == "--" {
			return false
		}
	}
	return false
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 0
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return 0
	case "--version", "version":
		out.Println("regtest %s", Version)
		return 0
	}

	opts, remaining, err := parseGlobalFlags(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}

	if len(remaining) == 0 {
		printUsage()
		return 0
	}
	cmd := remaining[0]
	cmdArgs := remaining[1:]

	switch cmd {
	case "run":
		return cmdRun(cmdArgs, opts)
	case "compare":
		return cmdCompare(cmdArgs, opts)
	case "inspect":
		return cmdInspect(cmdArgs, opts)
	case "config":
		return cmdConfig(cmdArgs, opts)
	case "completion":
		return cmdCompletion(cmdArgs)
	default:
		// A lone directory argument runs the suite in it.
		if len(remaining) == 1 && isDir(cmd) {
			return cmdRun(remaining, opts)
		}
		out.ErrorPrefix("unknown command: %s", cmd)
		out.Hint("Run 'regtest --help' for usage.")
		return errors.ExitConfigError
	}
}

// GlobalOptions holds parsed global flags.
type GlobalOptions struct {
	Quiet        bool
	Verbose      bool
	Engine       string   // overrides engine.command
	DockerImage  string   // overrides engine.docker_image
	SettingsFile string   // explicit settings file instead of <dir>/regtest.yaml
	MetricsFile  string   // overrides metrics_file
	Absolute     *float64 // overrides the absolute tolerance
	Relative     *float64 // overrides the relative tolerance
}

// parseGlobalFlags manually parses global flags from arguments.
//
// Flags may appear anywhere in the argument list, so the stdlib flag
// package is not used.
func parseGlobalFlags(args []string) (*GlobalOptions, []string, error) {
	opts := &GlobalOptions{}
	var remaining []string

	// value handles both "--flag=value" and "--flag value".
	value := func(i int, name string) (string, int, error) {
		arg := args[i]
		if strings.HasPrefix(arg, name+"=") {
			return strings.TrimPrefix(arg, name+"="), i + 1, nil
		}
		if i+1 >= len(args) {
			return "", i, fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], i + 2, nil
	}

	i := 0
	for i < len(args) {
		arg := args[i]
		name := arg
		if eq := strings.IndexByte(arg, '='); eq > 0 && strings.HasPrefix(arg, "--") {
			name = arg[:eq]
		}

		var err error
		var v string
		switch name {
		case "-q", "--quiet":
			opts.Quiet = true
			i++
		case "-v", "--verbose":
			opts.Verbose = true
			i++
		case "--engine":
			opts.Engine, i, err = value(i, name)
		case "--docker-image":
			opts.DockerImage, i, err = value(i, name)
		case "--settings":
			opts.SettingsFile, i, err = value(i, name)
		case "--metrics-file":
			opts.MetricsFile, i, err = value(i, name)
		case "--abs", "--rel":
			if v, i, err = value(i, name); err == nil {
				var f float64
				if f, err = parseTolerance(name, v); err == nil {
					if name == "--abs" {
						opts.Absolute = &f
					} else {
						opts.Relative = &f
					}
				}
			}
		case "--":
			remaining = append(remaining, args[i+1:]...)
			i = len(args)
		default:
			remaining = append(remaining, arg)
			i++
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if err := validateGlobalOptions(opts); err != nil {
		return nil, nil, err
	}

	applyVerbosityToOutput(opts)

	return opts, remaining, nil
}

func parseTolerance(flag, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: not a number", flag, s)
	}
	if !(f >= 0) {
		return 0, fmt.Errorf("invalid %s value %q: must be a non-negative number", flag, s)
	}
	return f, nil
}

// validateGlobalOptions checks that global options are valid.
func validateGlobalOptions(opts *GlobalOptions) error {
	if opts.Quiet && opts.Verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	return nil
}

func printUsage() {
	w := output.New()

	w.HelpTitle("regtest - EPANET binary output regression tester")

	w.HelpSection("Usage:")
	w.HelpUsage("regtest [flags] <command> [args]")
	w.HelpUsage("regtest [flags] <test_dir>            Same as 'regtest run <test_dir>'")

	w.HelpSection("Commands:")
	w.HelpCommand("run <test_dir>", "Run every test case listed in <test_dir>/config.txt", widthCommand)
	w.HelpCommand("compare <test.out> <ref.out>", "Compare two existing output files", widthCommand)
	w.HelpCommand("inspect <file.out>", "Print the header of an output file", widthCommand)
	w.HelpCommand("config validate <test_dir>", "Validate config.txt and regtest.yaml", widthCommand)
	w.HelpCommand("completion <shell>", "Generate shell completion (bash, zsh, fish)", widthCommand)
	w.HelpCommand("version", "Show version information", widthCommand)

	printGlobalFlags(w)

	w.HelpSection("Examples:")
	w.HelpExample("regtest run ./tests", "Run the suite with runepanet from PATH")
	w.HelpExample("regtest --engine=./build/bin/runepanet run ./tests", "Test a local build")
	w.HelpExample("regtest compare test.out ref.out --abs=0.01 --rel=0.001", "Compare two files directly")
	w.Println("")
}

// Help text alignment widths for consistent formatting.
const (
	widthCommand = 30
	widthFlag    = 22
	widthEnvVar  = 22
)

func printGlobalFlags(w *output.Writer) {
	w.HelpSection("Global Flags:")
	w.HelpFlag("-q, --quiet", "Only print failures and the summary", widthFlag)
	w.HelpFlag("-v, --verbose", "Log diagnostic details to stderr", widthFlag)
	w.HelpFlag("--engine=<cmd>", "Engine executable (default runepanet)", widthFlag)
	w.HelpFlag("--docker-image=<img>", "Run the engine inside a container", widthFlag)
	w.HelpFlag("--settings=<file>", "Settings file (default <test_dir>/regtest.yaml)", widthFlag)
	w.HelpFlag("--metrics-file=<f>", "Write Prometheus metrics after 'run'", widthFlag)
	w.HelpFlag("--abs=<x>", "Override the absolute tolerance", widthFlag)
	w.HelpFlag("--rel=<x>", "Override the relative tolerance", widthFlag)
	w.HelpFlag("-h, --help", "Show this help", widthFlag)
	w.HelpFlag("--version", "Show version", widthFlag)

	w.HelpSection("Environment:")
	w.HelpEnvVar("REGTEST_ENGINE", "Engine executable, below --engine", widthEnvVar)
	w.HelpEnvVar("REGTEST_DOCKER_IMAGE", "Container image, below --docker-image", widthEnvVar)
}
