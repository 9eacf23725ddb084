package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Docker runs the engine command inside a container. The directories of
// the input, report and output files are bind-mounted at the same paths.
type Docker struct {
	Image   string
	Command string
	Args    []string
	// Binary is the docker executable; "docker" when empty.
	Binary string
}

// IsDockerAvailable checks if Docker is available on the system.
func IsDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// NewDocker returns a Docker engine, or *NotFoundError when Docker is not
// running.
func NewDocker(image, command string, args []string) (*Docker, error) {
	if !IsDockerAvailable() {
		return nil, &NotFoundError{Name: "docker", Err: ErrDockerUnavailable}
	}
	return &Docker{Image: image, Command: command, Args: args}, nil
}

// ErrDockerUnavailable indicates Docker is not installed or not running.
var ErrDockerUnavailable = errors.New("docker is not available or not running")

// RunArgs constructs the docker run arguments for one simulation.
func (d *Docker) RunArgs(inpFile, rptFile, outFile string) []string {
	args := []string{"run", "--rm"}

	if runtime.GOOS != "windows" {
		args = append(args, "--user", fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()))
	}
	for _, dir := range mountDirs(inpFile, rptFile, outFile) {
		args = append(args, "-v", dir+":"+dir)
	}

	args = append(args, d.Image, d.Command)
	cmd := Command{Args: d.Args}
	return append(args, cmd.ExpandArgs(inpFile, rptFile, outFile)...)
}

func mountDirs(paths ...string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Run executes the engine in a fresh container.
func (d *Docker) Run(ctx context.Context, inpFile, rptFile, outFile string) (int, error) {
	bin := d.Binary
	if bin == "" {
		bin = "docker"
	}
	cmd := exec.CommandContext(ctx, bin, d.RunArgs(inpFile, rptFile, outFile)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return exitErr.ExitCode(), fmt.Errorf("%s in %s: %w: %s", d.Command, d.Image, err, msg)
		}
		return exitErr.ExitCode(), fmt.Errorf("%s in %s: %w", d.Command, d.Image, err)
	}
	return -1, fmt.Errorf("%s in %s: %w", d.Command, d.Image, err)
}
