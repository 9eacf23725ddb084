package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/AndreyAkinshin/regtest/internal/compare"
	"github.com/AndreyAkinshin/regtest/internal/config"
	"github.com/AndreyAkinshin/regtest/internal/outfile"
	"github.com/AndreyAkinshin/regtest/internal/output"
	"github.com/AndreyAkinshin/regtest/internal/testing/mocks"
)

// captureOutput redirects the shared writer for the duration of a test.
func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	prev := out
	out = output.NewWithWriters(&stdout, &stderr, false)
	t.Cleanup(func() { out = prev })
	return &stdout, &stderr
}

func refFile() *mocks.OutputFile {
	return mocks.NewOutputFile([]string{"J-10", "T-1"}, []string{"P-7"}).
		WithTanks(1).
		WithPeriods(3).
		Set(3, outfile.ElementNode, 3, 1, 50).
		Set(2, outfile.ElementLink, 1, 1, 10)
}

// writeSuite creates a test directory with config.txt and, per case, an
// input file, a reference output and the output the fake engine will
// produce (<name>.sut).
func writeSuite(t *testing.T, tolerances string, sut map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	names := make([]string, 0, len(sut))
	for name, data := range sut {
		names = append(names, name)
		mustWrite(t, filepath.Join(dir, name+".inp"), []byte("[TITLE]\n"))
		mustWrite(t, filepath.Join(dir, name+".out"), refFile().Bytes())
		mustWrite(t, filepath.Join(dir, name+".sut"), data)
	}
	mustWrite(t, filepath.Join(dir, config.SuiteFile), []byte(tolerances+"\n"+strings.Join(names, "\n")+"\n"))
	return dir
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// fakeEngine writes a script that copies <input>.sut to the output path,
// standing in for runepanet's "<inp> <rpt> <out>" interface.
func fakeEngine(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping shell engine on Windows")
	}
	path := filepath.Join(t.TempDir(), "fake-runepanet")
	script := "#!/bin/sh\n: > \"$2\"\ncp \"${1%.inp}.sut\" \"$3\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseGlobalFlags(t *testing.T) {
	abs, rel := 0.5, 0.25

	tests := []struct {
		name          string
		args          []string
		want          GlobalOptions
		wantRemaining []string
	}{
		{
			name:          "no flags",
			args:          []string{"run", "tests"},
			wantRemaining: []string{"run", "tests"},
		},
		{
			name:          "quiet anywhere",
			args:          []string{"run", "-q", "tests"},
			want:          GlobalOptions{Quiet: true},
			wantRemaining: []string{"run", "tests"},
		},
		{
			name:          "engine with space",
			args:          []string{"--engine", "/opt/runepanet", "run", "tests"},
			want:          GlobalOptions{Engine: "/opt/runepanet"},
			wantRemaining: []string{"run", "tests"},
		},
		{
			name:          "engine=value",
			args:          []string{"run", "tests", "--engine=./runepanet"},
			want:          GlobalOptions{Engine: "./runepanet"},
			wantRemaining: []string{"run", "tests"},
		},
		{
			name:          "tolerances",
			args:          []string{"compare", "a.out", "b.out", "--abs=0.5", "--rel", "0.25"},
			want:          GlobalOptions{Absolute: &abs, Relative: &rel},
			wantRemaining: []string{"compare", "a.out", "b.out"},
		},
		{
			name:          "settings and docker image",
			args:          []string{"--settings=ci.yaml", "--docker-image=epanet:2.2", "-v", "run", "t"},
			want:          GlobalOptions{SettingsFile: "ci.yaml", DockerImage: "epanet:2.2", Verbose: true},
			wantRemaining: []string{"run", "t"},
		},
		{
			name:          "metrics file",
			args:          []string{"run", "--metrics-file", "out.prom", "t"},
			want:          GlobalOptions{MetricsFile: "out.prom"},
			wantRemaining: []string{"run", "t"},
		},
		{
			name:          "-- passthrough",
			args:          []string{"inspect", "--", "-q.out"},
			wantRemaining: []string{"inspect", "-q.out"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			opts, remaining, err := parseGlobalFlags(tt.args)
			if err != nil {
				t.Fatalf("parseGlobalFlags() error = %v", err)
			}
			if opts.Quiet != tt.want.Quiet || opts.Verbose != tt.want.Verbose {
				t.Errorf("Quiet/Verbose = %v/%v, want %v/%v", opts.Quiet, opts.Verbose, tt.want.Quiet, tt.want.Verbose)
			}
			if opts.Engine != tt.want.Engine || opts.DockerImage != tt.want.DockerImage ||
				opts.SettingsFile != tt.want.SettingsFile || opts.MetricsFile != tt.want.MetricsFile {
				t.Errorf("opts = %+v, want %+v", opts, tt.want)
			}
			if !sameFloat(opts.Absolute, tt.want.Absolute) || !sameFloat(opts.Relative, tt.want.Relative) {
				t.Errorf("tolerances = %v/%v, want %v/%v", opts.Absolute, opts.Relative, tt.want.Absolute, tt.want.Relative)
			}
			if strings.Join(remaining, " ") != strings.Join(tt.wantRemaining, " ") {
				t.Errorf("remaining = %v, want %v", remaining, tt.wantRemaining)
			}
		})
	}
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestParseGlobalFlags_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"quiet and verbose", []string{"-q", "-v", "run"}, "mutually exclusive"},
		{"engine without value", []string{"run", "--engine"}, "--engine requires a value"},
		{"negative tolerance", []string{"--abs=-1", "run"}, "non-negative"},
		{"NaN tolerance", []string{"--rel=NaN", "run"}, "non-negative"},
		{"non-numeric tolerance", []string{"--rel=loose", "run"}, "not a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseGlobalFlags(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("parseGlobalFlags(%v) error = %v, want containing %q", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	for _, args := range [][]string{{"help"}, {"-h"}, {"--help"}, {}} {
		if code := Run(args); code != 0 {
			t.Errorf("Run(%v) = %d, want 0", args, code)
		}
	}
}

func TestRun_Version(t *testing.T) {
	stdout, _ := captureOutput(t)
	if code := Run([]string{"--version"}); code != 0 {
		t.Fatalf("Run(--version) = %d, want 0", code)
	}
	if got := stdout.String(); got != "regtest "+Version+"\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	_, stderr := captureOutput(t)
	if code := Run([]string{"frobnicate"}); code != 2 {
		t.Errorf("Run(frobnicate) = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_Suite_AllPass(t *testing.T) {
	eng := fakeEngine(t)
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{
		"net1":   refFile().Bytes(),
		"net2-x": refFile().Bytes(),
	})
	stdout, _ := captureOutput(t)

	if code := Run([]string{"--engine=" + eng, "run", dir}); code != 0 {
		t.Fatalf("Run() = %d, want 0\n%s", code, stdout)
	}
	got := stdout.String()
	for _, want := range []string{
		"EPANET Regression Tests",
		"net1:   passed",
		"net2-x: passed",
		"2 files were tested with 2 passing and 0 failing.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRun_Suite_DirectoryShorthand(t *testing.T) {
	eng := fakeEngine(t)
	dir := writeSuite(t, "0 0", map[string][]byte{"net1": refFile().Bytes()})
	captureOutput(t)

	if code := Run([]string{dir, "--engine", eng}); code != 0 {
		t.Errorf("Run(<dir>) = %d, want 0", code)
	}
}

func TestRun_Suite_ComparisonFailure(t *testing.T) {
	eng := fakeEngine(t)
	sut := refFile().Set(3, outfile.ElementNode, 3, 1, 51).Bytes()
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{"net1": sut})
	stdout, _ := captureOutput(t)

	if code := Run([]string{"--engine=" + eng, "run", dir}); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	want := "net1: FAILED\n" +
		"      There were 1 results failing.\n" +
		"      Largest difference occurred for Node J-10 Pressure at time 2:00:00 hrs\n" +
		"      SUT value: 51.000000\n" +
		"      Ref value: 50.000000\n"
	if !strings.Contains(stdout.String(), want) {
		t.Errorf("output missing failure report:\n%s\nwant:\n%s", stdout, want)
	}
	if !strings.Contains(stdout.String(), "1 files were tested with 0 passing and 1 failing.") {
		t.Errorf("output missing summary:\n%s", stdout)
	}
}

func TestRun_Suite_ToleranceOverride(t *testing.T) {
	eng := fakeEngine(t)
	sut := refFile().Set(3, outfile.ElementNode, 3, 1, 51).Bytes()
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{"net1": sut})
	captureOutput(t)

	if code := Run([]string{"--engine=" + eng, "--abs=2", "run", dir}); code != 0 {
		t.Errorf("Run(--abs=2) = %d, want 0", code)
	}
}

func TestRun_Suite_MetricsFile(t *testing.T) {
	eng := fakeEngine(t)
	sut := refFile().Set(3, outfile.ElementNode, 3, 1, 51).Bytes()
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{
		"net1": refFile().Bytes(),
		"net2": sut,
	})
	metricsPath := filepath.Join(t.TempDir(), "regtest.prom")
	captureOutput(t)

	if code := Run([]string{"--engine=" + eng, "--metrics-file", metricsPath, "run", dir}); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	suite := filepath.Base(dir)
	for _, want := range []string{
		`regtest_cases_total{outcome="passed",suite="` + suite + `"} 1`,
		`regtest_cases_total{outcome="comparison",suite="` + suite + `"} 1`,
		`regtest_failing_results{suite="` + suite + `",test="net2"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestRun_Suite_SizeMismatch(t *testing.T) {
	eng := fakeEngine(t)
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{"net1": refFile().WithTrailer(8).Bytes()})
	stdout, _ := captureOutput(t)

	if code := Run([]string{"--engine=" + eng, "run", dir}); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), "net1: Test and reference results files have different sizes.") {
		t.Errorf("output:\n%s", stdout)
	}
}

func TestRun_MissingSuite(t *testing.T) {
	_, stderr := captureOutput(t)
	if code := Run([]string{"run", t.TempDir()}); code != 2 {
		t.Errorf("Run(run <empty dir>) = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "test configuration file") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_MalformedTolerances(t *testing.T) {
	dir := writeSuite(t, "tight loose", map[string][]byte{"net1": nil})
	captureOutput(t)
	if code := Run([]string{"run", dir}); code != 2 {
		t.Errorf("Run() = %d, want 2", code)
	}
}

func TestRun_EngineNotFound(t *testing.T) {
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{"net1": nil})
	_, stderr := captureOutput(t)

	if code := Run([]string{"--engine=regtest-no-such-engine", "run", dir}); code != 3 {
		t.Errorf("Run() = %d, want 3", code)
	}
	if !strings.Contains(stderr.String(), "could not load simulation engine") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_EngineFromEnvironment(t *testing.T) {
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{"net1": nil})
	t.Setenv(config.EngineEnvVar, "regtest-env-engine")
	_, stderr := captureOutput(t)

	if code := Run([]string{"run", dir}); code != 3 {
		t.Errorf("Run() = %d, want 3", code)
	}
	if !strings.Contains(stderr.String(), "regtest-env-engine") {
		t.Errorf("stderr should name the engine from %s: %q", config.EngineEnvVar, stderr.String())
	}
}

func TestRun_InvalidSettings(t *testing.T) {
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{"net1": nil})
	mustWrite(t, filepath.Join(dir, config.SettingsFile), []byte("engine:\n  comand: runepanet\n"))
	captureOutput(t)

	if code := Run([]string{"run", dir}); code != 2 {
		t.Errorf("Run() = %d, want 2", code)
	}
}

func TestCmdCompare(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.out")
	same := filepath.Join(dir, "same.out")
	diff := filepath.Join(dir, "diff.out")
	short := filepath.Join(dir, "short.out")
	mustWrite(t, ref, refFile().Bytes())
	mustWrite(t, same, refFile().Bytes())
	mustWrite(t, diff, refFile().Set(2, outfile.ElementLink, 1, 1, 10.5).Bytes())
	mustWrite(t, short, refFile().Bytes()[:100])

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{"identical", []string{"compare", same, ref}, 0, "same.out: passed"},
		{"exact mismatch", []string{"compare", diff, ref}, 1, "Largest difference occurred for Link P-7 Flow at time 1:00:00 hrs"},
		{"within tolerance", []string{"compare", "--abs=1", diff, ref}, 0, "diff.out: passed"},
		{"size mismatch", []string{"compare", short, ref}, 1, "different sizes"},
		{"missing file", []string{"compare", filepath.Join(dir, "nope.out"), ref}, 1, "Could not open test output file."},
		{"wrong arity", []string{"compare", ref}, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _ := captureOutput(t)
			if code := Run(tt.args); code != tt.wantCode {
				t.Errorf("Run(%v) = %d, want %d", tt.args, code, tt.wantCode)
			}
			if !strings.Contains(stdout.String(), tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, stdout)
			}
		})
	}
}

func TestCmdInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.out")
	mustWrite(t, path, refFile().WithPumps(1).WithValves(2).WithReportTimes(1800, 900).Bytes())
	stdout, _ := captureOutput(t)

	if code := Run([]string{"inspect", path}); code != 0 {
		t.Fatalf("Run(inspect) = %d, want 0", code)
	}
	got := stdout.String()
	p := outfile.Properties{NumNodes: 2, NumTanks: 1, NumLinks: 1, NumPumps: 1}
	for _, want := range []string{
		"Nodes: 2",
		"Tanks: 1",
		"Valves: 2",
		"Periods: 3",
		"Report start: 0:30:00",
		"Report step: 900s",
		"Results start: " + strconv.FormatInt(outfile.ResultsStart(p), 10),
		"Pump Energy",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("inspect output missing %q:\n%s", want, got)
		}
	}
}

func TestCmdInspect_TooShort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.out")
	mustWrite(t, path, make([]byte, 16))
	_, stderr := captureOutput(t)

	if code := Run([]string{"inspect", path}); code != 1 {
		t.Errorf("Run(inspect) = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "file too short") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestCmdConfigValidate(t *testing.T) {
	dir := writeSuite(t, "0.01 0.001", map[string][]byte{"net1": nil})
	if err := os.Remove(filepath.Join(dir, "net1.out")); err != nil {
		t.Fatal(err)
	}
	stdout, stderr := captureOutput(t)

	if code := Run([]string{"config", "validate", dir}); code != 0 {
		t.Fatalf("Run(config validate) = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "1 test cases, absolute tolerance 0.01, relative tolerance 0.001") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "net1: missing net1.out") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestCmdConfig_NoSubcommand(t *testing.T) {
	captureOutput(t)
	if code := Run([]string{"config"}); code != 2 {
		t.Errorf("Run(config) = %d, want 2", code)
	}
}

func TestResolveTolerance(t *testing.T) {
	settingsAbs := 0.1
	flagRel := 0.2
	s := config.DefaultSettings()
	s.Tolerance = &config.ToleranceSettings{Absolute: &settingsAbs}
	opts := &GlobalOptions{Relative: &flagRel}

	got := resolveTolerance(compare.Tolerance{Absolute: 1, Relative: 1}, s, opts)
	want := compare.Tolerance{Absolute: 0.1, Relative: 0.2}
	if got != want {
		t.Errorf("resolveTolerance() = %+v, want %+v", got, want)
	}
}

func TestLoadSettings_Precedence(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, config.SettingsFile), []byte("engine:\n  command: from-file\n"))

	s, err := loadSettings(dir, &GlobalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Engine.Command != "from-file" {
		t.Errorf("Command = %q, want from-file", s.Engine.Command)
	}

	t.Setenv(config.EngineEnvVar, "from-env")
	s, _ = loadSettings(dir, &GlobalOptions{})
	if s.Engine.Command != "from-env" {
		t.Errorf("Command = %q, want from-env", s.Engine.Command)
	}

	s, _ = loadSettings(dir, &GlobalOptions{Engine: "from-flag"})
	if s.Engine.Command != "from-flag" {
		t.Errorf("Command = %q, want from-flag", s.Engine.Command)
	}
}
