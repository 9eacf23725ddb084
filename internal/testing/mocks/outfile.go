// Package mocks provides shared test doubles for regtest packages.
package mocks

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/AndreyAkinshin/regtest/internal/outfile"
)

// OutputFile builds synthetic EPANET binary output files.
// Use NewOutputFile() to create instances with a fluent builder API.
type OutputFile struct {
	nodes       []string
	links       []string
	tanks       int
	pumps       int
	valves      int
	periods     int
	reportStart int
	reportStep  int
	values      map[valueKey]float32
	trailer     int // extra bytes appended after the results table
}

type valueKey struct {
	period   int
	kind     outfile.ElementKind
	variable int
	index    int
}

// NewOutputFile creates a builder for a file with the given node and link IDs
// and one reporting period.
func NewOutputFile(nodes, links []string) *OutputFile {
	return &OutputFile{
		nodes:      nodes,
		links:      links,
		periods:    1,
		reportStep: 3600,
		values:     make(map[valueKey]float32),
	}
}

// WithTanks sets the tank count.
func (f *OutputFile) WithTanks(n int) *OutputFile {
	f.tanks = n
	return f
}

// WithPumps sets the pump count.
func (f *OutputFile) WithPumps(n int) *OutputFile {
	f.pumps = n
	return f
}

// WithValves sets the valve count.
func (f *OutputFile) WithValves(n int) *OutputFile {
	f.valves = n
	return f
}

// WithPeriods sets the number of reporting periods.
func (f *OutputFile) WithPeriods(n int) *OutputFile {
	f.periods = n
	return f
}

// WithReportTimes sets the report start and step in seconds.
func (f *OutputFile) WithReportTimes(start, step int) *OutputFile {
	f.reportStart = start
	f.reportStep = step
	return f
}

// WithTrailer appends n zero bytes before the epilog.
func (f *OutputFile) WithTrailer(n int) *OutputFile {
	f.trailer = n
	return f
}

// Set stores a result value. period, variable and index are 1-based.
func (f *OutputFile) Set(period int, kind outfile.ElementKind, variable, index int, v float32) *OutputFile {
	f.values[valueKey{period, kind, variable, index}] = v
	return f
}

// Clone returns an independent copy of the builder.
func (f *OutputFile) Clone() *OutputFile {
	c := *f
	c.values = make(map[valueKey]float32, len(f.values))
	for k, v := range f.values {
		c.values[k] = v
	}
	return &c
}

// Bytes renders the file.
func (f *OutputFile) Bytes() []byte {
	nn, nl := len(f.nodes), len(f.links)
	p := outfile.Properties{NumNodes: nn, NumLinks: nl, NumTanks: f.tanks, NumPumps: f.pumps}
	start := int(outfile.ResultsStart(p))
	size := start + f.periods*int(p.PeriodSize()) + f.trailer + 3*outfile.WordSize
	buf := make([]byte, size)

	putInt := func(off, v int) {
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(v)))
	}
	putInt(0, 516114521)
	putInt(4, 20012)
	putInt(8, nn)
	putInt(12, f.tanks)
	putInt(16, nl)
	putInt(20, f.pumps)
	putInt(24, f.valves)
	putInt(48, f.reportStart)
	putInt(52, f.reportStep)

	for i, id := range append(append([]string{}, f.nodes...), f.links...) {
		copy(buf[outfile.PrologSize+i*outfile.IDSize:outfile.PrologSize+(i+1)*outfile.IDSize], id)
	}

	off := start
	for t := 1; t <= f.periods; t++ {
		for v := 1; v <= outfile.NumNodeVariables; v++ {
			for j := 1; j <= nn; j++ {
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f.values[valueKey{t, outfile.ElementNode, v, j}]))
				off += outfile.WordSize
			}
		}
		for v := 1; v <= outfile.NumLinkVariables; v++ {
			for j := 1; j <= nl; j++ {
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f.values[valueKey{t, outfile.ElementLink, v, j}]))
				off += outfile.WordSize
			}
		}
	}

	putInt(size-12, f.periods)
	putInt(size-4, 516114521)
	return buf
}

// WriteFile renders the file to path.
func (f *OutputFile) WriteFile(path string) error {
	return os.WriteFile(path, f.Bytes(), 0o644)
}
