package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AndreyAkinshin/regtest/internal/output"
)

// cmdCompletion generates shell completion scripts.
func cmdCompletion(args []string) int {
	shell := ""
	alias := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			printCompletionUsage()
			return 0
		case strings.HasPrefix(arg, "--alias="):
			alias = strings.TrimPrefix(arg, "--alias=")
		case arg == "--alias":
			out.ErrorPrefix("completion: --alias requires a value (--alias=<name>)")
			return 2
		case strings.HasPrefix(arg, "-"):
			out.ErrorPrefix("completion: unknown flag: %s", arg)
			return 2
		default:
			if shell != "" {
				out.ErrorPrefix("completion: unexpected argument: %s", arg)
				return 2
			}
			shell = arg
		}
	}

	if shell == "" {
		out.ErrorPrefix("completion: shell required (bash, zsh, fish)")
		return 2
	}

	cmdName := "regtest"
	if alias != "" {
		cmdName = alias
	}

	switch shell {
	case "bash":
		out.Print("%s", generateBashCompletion(cmdName))
	case "zsh":
		out.Print("%s", generateZshCompletion(cmdName))
	case "fish":
		out.Print("%s", generateFishCompletion(cmdName))
	default:
		out.ErrorPrefix("completion: unsupported shell %q (use bash, zsh, or fish)", shell)
		return 2
	}

	return 0
}

// printCompletionUsage prints the help text for the completion command.
func printCompletionUsage() {
	w := output.New()

	w.HelpTitle("regtest completion - generate shell completion scripts")

	w.HelpSection("Usage:")
	w.HelpUsage("regtest completion <shell> [--alias=<name>]")

	w.HelpSection("Arguments:")
	w.HelpFlag("<shell>", "Shell type: bash, zsh, or fish", 14)
	w.HelpFlag("--alias=<name>", "Generate completion for command alias", 14)

	w.HelpSection("Installation:")
	w.Println("  Bash:  eval \"$(regtest completion bash)\"")
	w.Println("  Zsh:   eval \"$(regtest completion zsh)\"")
	w.Println("  Fish:  regtest completion fish | source")
	w.Println("")
}

// commandDescriptions maps each command to its one-line description.
var commandDescriptions = map[string]string{
	"run":        "Run a regression test suite",
	"compare":    "Compare two output files",
	"inspect":    "Show the header of an output file",
	"config":     "Configuration utilities",
	"completion": "Generate shell completion",
	"version":    "Show version information",
	"help":       "Show help",
}

// builtinCommands returns the CLI commands in sorted order.
func builtinCommands() []string {
	cmds := make([]string, 0, len(commandDescriptions))
	for c := range commandDescriptions {
		cmds = append(cmds, c)
	}
	sort.Strings(cmds)
	return cmds
}

// globalFlags returns the global CLI flags.
func globalFlags() []string {
	return []string{
		"--quiet",
		"--verbose",
		"--engine",
		"--docker-image",
		"--settings",
		"--metrics-file",
		"--abs",
		"--rel",
		"--help",
		"--version",
	}
}

func generateBashCompletion(cmdName string) string {
	funcName := "_" + strings.ReplaceAll(cmdName, "-", "_") + "_completions"

	return fmt.Sprintf(`# regtest bash completion
# Add to ~/.bashrc: eval "$(regtest completion bash)"

%s() {
    local cur prev words cword
    _init_completion || return

    local commands="%s"
    local flags="%s"

    case "${prev}" in
        %s)
            COMPREPLY=($(compgen -W "${commands} ${flags}" -- "${cur}") $(compgen -d -- "${cur}"))
            return
            ;;
        config)
            COMPREPLY=($(compgen -W "validate" -- "${cur}"))
            return
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "${cur}"))
            return
            ;;
        run|validate)
            COMPREPLY=($(compgen -d -- "${cur}"))
            return
            ;;
        --settings)
            COMPREPLY=($(compgen -f -X '!*.yaml' -- "${cur}") $(compgen -d -- "${cur}"))
            return
            ;;
    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=($(compgen -W "${flags}" -- "${cur}"))
        return
    fi

    COMPREPLY=($(compgen -f -X '!*.out' -- "${cur}") $(compgen -d -- "${cur}"))
}

complete -F %s %s
`, funcName, strings.Join(builtinCommands(), " "), strings.Join(globalFlags(), " "), cmdName, funcName, cmdName)
}

func generateZshCompletion(cmdName string) string {
	funcName := "_" + strings.ReplaceAll(cmdName, "-", "_")

	var commands strings.Builder
	for _, c := range builtinCommands() {
		fmt.Fprintf(&commands, "        '%s:%s'\n", c, commandDescriptions[c])
	}

	return fmt.Sprintf(`#compdef %s
# regtest zsh completion
# Add to ~/.zshrc: eval "$(regtest completion zsh)"

%s() {
    local -a commands flags

    commands=(
%s    )

    flags=(
        '(-q --quiet)'{-q,--quiet}'[Only print failures and the summary]'
        '(-v --verbose)'{-v,--verbose}'[Log diagnostic details]'
        '--engine=[Engine executable]:engine:_command_names'
        '--docker-image=[Container image]:image:'
        '--settings=[Settings file]:file:_files -g "*.yaml"'
        '--metrics-file=[Prometheus textfile]:file:_files'
        '--abs=[Absolute tolerance]:tolerance:'
        '--rel=[Relative tolerance]:tolerance:'
        '--help[Show help]'
        '--version[Show version]'
    )

    if (( CURRENT == 2 )); then
        _describe -t commands 'command' commands
        _arguments -s $flags[@]
        return
    fi

    case "${words[2]}" in
        run)
            _files -/
            ;;
        compare|inspect)
            _files -g "*.out"
            ;;
        config)
            _values 'subcommand' validate
            ;;
        completion)
            _values 'shell' bash zsh fish
            ;;
        *)
            _arguments -s $flags[@]
            ;;
    esac
}

compdef %s %s
`, cmdName, funcName, commands.String(), funcName, cmdName)
}

func generateFishCompletion(cmdName string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`# regtest fish completion
# Add to config: regtest completion fish | source

complete -c %s -f

`, cmdName))

	for _, cmd := range builtinCommands() {
		sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_use_subcommand' -a '%s' -d '%s'\n", cmdName, cmd, commandDescriptions[cmd]))
	}

	sb.WriteString("\n# Global flags\n")
	sb.WriteString(fmt.Sprintf("complete -c %s -s q -l quiet -d 'Only print failures and the summary'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -s v -l verbose -d 'Log diagnostic details'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l engine -r -d 'Engine executable'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l docker-image -r -d 'Container image'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l settings -r -F -d 'Settings file'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l metrics-file -r -F -d 'Prometheus textfile'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l abs -r -d 'Absolute tolerance'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l rel -r -d 'Relative tolerance'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l help -d 'Show help'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l version -d 'Show version'\n", cmdName))

	sb.WriteString("\n# Arguments\n")
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from run validate' -a '(__fish_complete_directories)'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from compare inspect' -a '(__fish_complete_suffix .out)'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from config' -a 'validate' -d 'Validate configuration'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish'\n", cmdName))

	return sb.String()
}
