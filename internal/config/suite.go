// Package config loads the test suite definition and optional run settings.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AndreyAkinshin/regtest/internal/compare"
)

// SuiteFile is the name of the suite definition inside a test directory.
const SuiteFile = "config.txt"

// Suite lists the test cases of a test directory.
type Suite struct {
	Dir       string
	Tolerance compare.Tolerance
	Tests     []string // base names, no extension
}

// InputPath returns the path of the network input file for a test.
func (s *Suite) InputPath(name string) string {
	return filepath.Join(s.Dir, name+".inp")
}

// ReferencePath returns the path of the reference output file for a test.
func (s *Suite) ReferencePath(name string) string {
	return filepath.Join(s.Dir, name+".out")
}

// LoadSuite reads config.txt from dir.
func LoadSuite(dir string) (*Suite, error) {
	path := filepath.Join(dir, SuiteFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open test configuration file: %w", err)
	}
	defer func() { _ = f.Close() }()

	s, err := ParseSuite(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Dir = dir
	return s, nil
}

// ParseSuite parses a suite definition. The first line holds the absolute
// and relative tolerances; each following non-blank line names a test.
// Only the first whitespace-separated field of a test line is used.
func ParseSuite(r io.Reader) (*Suite, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing tolerance line")
	}

	tol, err := parseTolerance(sc.Text())
	if err != nil {
		return nil, err
	}

	s := &Suite{Tolerance: tol}
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		s.Tests = append(s.Tests, fields[0])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseTolerance(line string) (compare.Tolerance, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return compare.Tolerance{}, fmt.Errorf("error reading tolerances: want \"<absolute> <relative>\", got %q", line)
	}
	abs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return compare.Tolerance{}, fmt.Errorf("error reading tolerances: absolute: %w", err)
	}
	rel, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return compare.Tolerance{}, fmt.Errorf("error reading tolerances: relative: %w", err)
	}
	if !(abs >= 0) || !(rel >= 0) {
		return compare.Tolerance{}, fmt.Errorf("error reading tolerances: must be non-negative numbers, got %v %v", abs, rel)
	}
	return compare.Tolerance{Absolute: abs, Relative: rel}, nil
}

// NameWidth returns the column width used to align test names in reports:
// the longest name plus two.
func (s *Suite) NameWidth() int {
	w := 0
	for _, name := range s.Tests {
		if len(name) > w {
			w = len(name)
		}
	}
	return w + 2
}
