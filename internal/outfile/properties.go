package outfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTooShort is returned when a file cannot hold the fields being read.
var ErrTooShort = errors.New("file too short")

// ErrNegativeCount is returned when an element or period count is negative.
var ErrNegativeCount = errors.New("negative count")

// FormatError describes a structural problem with an output file.
type FormatError struct {
	Field  string // Header field or section name if applicable
	Offset int64  // Byte offset where decoding failed
	Err    error
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("output file format: %s at offset %d: %v", e.Field, e.Offset, e.Err)
	}
	return fmt.Sprintf("output file format: offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Properties holds what is needed to walk the results table of one file.
type Properties struct {
	Magic        int
	Version      int
	NumNodes     int
	NumTanks     int
	NumLinks     int
	NumPumps     int
	NumValves    int
	NumPeriods   int
	ReportStart  int   // seconds
	ReportStep   int   // seconds
	ResultsStart int64 // byte offset of the first result value
	Size         int64
}

// PeriodSize returns the number of bytes of results stored per period.
func (p Properties) PeriodSize() int64 {
	return int64(NumNodeVariables*p.NumNodes+NumLinkVariables*p.NumLinks) * WordSize
}

// ReadProperties decodes the header and epilog of an output file.
// The stream may be positioned anywhere; its position afterwards is undefined.
func ReadProperties(r io.ReadSeeker) (Properties, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Properties{}, fmt.Errorf("determine output file size: %w", err)
	}
	if size < minSize {
		return Properties{}, &FormatError{Offset: size, Err: ErrTooShort}
	}

	words := make(map[string]int, len(Prolog)+len(Epilog))
	for _, f := range append(append([]Field{}, Prolog...), Epilog...) {
		offset := f.Offset
		if f.FromEnd {
			offset = size - f.Offset
		}
		v, err := readInt(r, offset)
		if err != nil {
			return Properties{}, &FormatError{Field: f.Name, Offset: offset, Err: err}
		}
		words[f.Name] = v
	}

	for _, name := range []string{"nodes", "tanks", "links", "pumps", "valves", "periods"} {
		if words[name] < 0 {
			return Properties{}, &FormatError{Field: name, Offset: fieldOffset(name, size), Err: ErrNegativeCount}
		}
	}

	p := Properties{
		Magic:        words["magic"],
		Version:      words["version"],
		NumNodes:     words["nodes"],
		NumTanks:     words["tanks"],
		NumLinks:     words["links"],
		NumPumps:     words["pumps"],
		NumValves:    words["valves"],
		NumPeriods:   words["periods"],
		ReportStart:  words["report_start"],
		ReportStep:   words["report_step"],
		Size:         size,
	}
	p.ResultsStart = ResultsStart(p)

	// The counts must fit in the file before anything is sized by them.
	room := size - 3*WordSize - p.ResultsStart
	if room < 0 || (p.PeriodSize() > 0 && int64(p.NumPeriods) > room/p.PeriodSize()) {
		return Properties{}, &FormatError{Field: "periods", Offset: fieldOffset("periods", size), Err: ErrTooShort}
	}
	return p, nil
}

func fieldOffset(name string, size int64) int64 {
	for _, f := range Prolog {
		if f.Name == name {
			return f.Offset
		}
	}
	for _, f := range Epilog {
		if f.Name == name {
			return size - f.Offset
		}
	}
	return -1
}

func readInt(r io.ReadSeeker, offset int64) (int, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	var buf [WordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int(int32(binary.LittleEndian.Uint32(buf[:]))), nil
}
