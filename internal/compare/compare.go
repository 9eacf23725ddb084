// Package compare checks the results table of a test output file against a
// reference output file value by value.
package compare

import (
	"io"
	"math"

	"github.com/AndreyAkinshin/regtest/internal/outfile"
)

// Tolerance configures closeness testing.
type Tolerance struct {
	Absolute float64
	Relative float64
}

// IsClose reports whether test is within tolerance of ref, computed in
// float64.
//
// The relative term scales with the reference magnitude only, so the
// arguments are not interchangeable. Results compares file values in
// single precision instead; see closeness32.
func (t Tolerance) IsClose(test, ref float64) bool {
	return math.Abs(test-ref) <= t.Absolute+t.Relative*math.Abs(ref)
}

// closeness32 is Tolerance rounded to float32. Result values are stored
// as float32 and boundary cases are decided in that precision.
type closeness32 struct {
	absolute float32
	relative float32
}

func (t Tolerance) single() closeness32 {
	return closeness32{absolute: float32(t.Absolute), relative: float32(t.Relative)}
}

// diff returns |test-ref| and whether it is within tolerance. The explicit
// conversions keep each operation rounded to float32.
func (c closeness32) diff(test, ref float32) (float32, bool) {
	d := abs32(float32(test - ref))
	limit := float32(c.absolute + float32(c.relative*abs32(ref)))
	return d, d <= limit
}

func abs32(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) &^ (1 << 31))
}

// Element identifies a node or link by its 1-based index.
type Element struct {
	Kind  outfile.ElementKind
	Index int
}

// FailureInfo summarizes the values of one test case that were not close.
type FailureInfo struct {
	Count     int     // number of values failing
	Worst     Element // element with the largest difference
	Variable  int     // 1-based variable index at the largest difference
	Period    int     // 1-based reporting period at the largest difference
	TestValue float64
	RefValue  float64
	MaxDiff   float64
	ElementID string // filled in by Locate
}

// Failed reports whether any value was out of tolerance.
func (f *FailureInfo) Failed() bool {
	return f.Count > 0
}

// Node returns the index of the worst node, if the worst failure is a node.
func (f *FailureInfo) Node() (int, bool) {
	return f.Worst.Index, f.Worst.Kind == outfile.ElementNode
}

// Link returns the index of the worst link, if the worst failure is a link.
func (f *FailureInfo) Link() (int, bool) {
	return f.Worst.Index, f.Worst.Kind == outfile.ElementLink
}

func (f *FailureInfo) record(test, ref, diff float32, elem Element, variable, period int) {
	f.Count++
	if float64(diff) > f.MaxDiff {
		f.Worst, f.Variable, f.Period = elem, variable, period
		f.TestValue, f.RefValue, f.MaxDiff = float64(test), float64(ref), float64(diff)
	}
}

// Results scans the results tables of test and ref in lockstep. Both
// readers must be positioned at p.ResultsStart. Values are visited period
// by period; within a period node variables come before link variables and
// within a variable elements are visited in index order. Closeness and
// differences are computed in float32. Ties in the largest
// difference keep the first value visited. Bit-identical pairs are always
// close, so a file compared with itself passes even if it holds NaN or Inf.
//
// A read failure on either stream is returned as an *outfile.FormatError.
func Results(test, ref io.Reader, p outfile.Properties, tol Tolerance) (FailureInfo, error) {
	var info FailureInfo
	close32 := tol.single()

	tr := outfile.NewBlockReader(test, p.ResultsStart)
	rr := outfile.NewBlockReader(ref, p.ResultsStart)
	nodeTest := make([]float32, p.NumNodes)
	nodeRef := make([]float32, p.NumNodes)
	linkTest := make([]float32, p.NumLinks)
	linkRef := make([]float32, p.NumLinks)

	scan := func(period int, kind outfile.ElementKind, nvars int, tv, rv []float32) error {
		for v := 1; v <= nvars; v++ {
			if err := tr.Read(tv); err != nil {
				return err
			}
			if err := rr.Read(rv); err != nil {
				return err
			}
			for j := range tv {
				if math.Float32bits(tv[j]) == math.Float32bits(rv[j]) {
					continue
				}
				if d, ok := close32.diff(tv[j], rv[j]); !ok {
					info.record(tv[j], rv[j], d, Element{Kind: kind, Index: j + 1}, v, period)
				}
			}
		}
		return nil
	}

	for t := 1; t <= p.NumPeriods; t++ {
		if err := scan(t, outfile.ElementNode, outfile.NumNodeVariables, nodeTest, nodeRef); err != nil {
			return info, err
		}
		if err := scan(t, outfile.ElementLink, outfile.NumLinkVariables, linkTest, linkRef); err != nil {
			return info, err
		}
	}
	return info, nil
}

// Locate fills in info.ElementID from the ID table of the test file.
// It does nothing when no worst element was recorded.
func Locate(test io.ReadSeeker, p outfile.Properties, info *FailureInfo) error {
	info.ElementID = ""
	if info.Worst.Kind == outfile.ElementNone {
		return nil
	}
	id, err := outfile.ReadElementID(test, p, info.Worst.Kind, info.Worst.Index)
	if err != nil {
		return err
	}
	info.ElementID = id
	return nil
}
