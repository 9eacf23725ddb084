package runner

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/AndreyAkinshin/regtest/internal/compare"
	"github.com/AndreyAkinshin/regtest/internal/outfile"
)

// SizeMismatchError reports test and reference files of different lengths.
type SizeMismatchError struct {
	TestSize int64
	RefSize  int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("test and reference results files have different sizes (%d and %d bytes)", e.TestSize, e.RefSize)
}

// FileError reports a result file that could not be accessed.
type FileError struct {
	Role string // "test" or "reference"
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("could not open %s output file %s: %v", e.Role, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// CompareFiles compares the results of two output files. The files must
// have the same size; the header of the test file describes both. Both
// files are closed before CompareFiles returns.
func CompareFiles(testPath, refPath string, tol compare.Tolerance) (compare.FailureInfo, outfile.Properties, error) {
	var info compare.FailureInfo
	var props outfile.Properties

	testInfo, err := os.Stat(testPath)
	if err != nil {
		return info, props, &FileError{Role: "test", Path: testPath, Err: err}
	}
	refInfo, err := os.Stat(refPath)
	if err != nil {
		return info, props, &FileError{Role: "reference", Path: refPath, Err: err}
	}
	if testInfo.Size() != refInfo.Size() {
		return info, props, &SizeMismatchError{TestSize: testInfo.Size(), RefSize: refInfo.Size()}
	}

	ft, err := os.Open(testPath)
	if err != nil {
		return info, props, &FileError{Role: "test", Path: testPath, Err: err}
	}
	defer func() { _ = ft.Close() }()
	fr, err := os.Open(refPath)
	if err != nil {
		return info, props, &FileError{Role: "reference", Path: refPath, Err: err}
	}
	defer func() { _ = fr.Close() }()

	props, err = outfile.ReadProperties(ft)
	if err != nil {
		return info, props, err
	}
	for _, f := range []*os.File{ft, fr} {
		if _, err := f.Seek(props.ResultsStart, io.SeekStart); err != nil {
			return info, props, fmt.Errorf("seek to results: %w", err)
		}
	}

	info, err = compare.Results(bufio.NewReader(ft), bufio.NewReader(fr), props, tol)
	if err != nil {
		return info, props, err
	}
	if info.Failed() {
		if err := compare.Locate(ft, props, &info); err != nil {
			return info, props, err
		}
	}
	return info, props, nil
}
