package outfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ElementKind distinguishes nodes from links.
type ElementKind int

const (
	ElementNone ElementKind = iota
	ElementNode
	ElementLink
)

func (k ElementKind) String() string {
	switch k {
	case ElementNode:
		return "Node"
	case ElementLink:
		return "Link"
	default:
		return ""
	}
}

// Result variable names, indexed from 1 in file order.
var (
	NodeVariables = []string{"Demand", "Head", "Pressure", "Quality"}
	LinkVariables = []string{"Flow", "Velocity", "Head Loss", "Quality", "Status",
		"Setting", "Reaction Rate", "Friction Factor"}
)

// VariableName returns the display name of the 1-based variable index for
// kind, or "" if there is none.
func VariableName(kind ElementKind, index int) string {
	var names []string
	switch kind {
	case ElementNode:
		names = NodeVariables
	case ElementLink:
		names = LinkVariables
	}
	if index < 1 || index > len(names) {
		return ""
	}
	return names[index-1]
}

// IDOffset returns the byte offset of the ID slot for the 1-based element
// index, or -1 for ElementNone.
func IDOffset(p Properties, kind ElementKind, index int) int64 {
	switch kind {
	case ElementNode:
		return PrologSize + int64(index-1)*IDSize
	case ElementLink:
		return PrologSize + int64(p.NumNodes)*IDSize + int64(index-1)*IDSize
	default:
		return -1
	}
}

// ReadElementID reads the ID of a node or link from the ID table.
// The slot is cut at its first NUL byte.
func ReadElementID(r io.ReadSeeker, p Properties, kind ElementKind, index int) (string, error) {
	offset := IDOffset(p, kind, index)
	if offset < 0 {
		return "", nil
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek to %s %d ID: %w", kind, index, err)
	}
	var slot [IDSize]byte
	if _, err := io.ReadFull(r, slot[:]); err != nil {
		return "", &FormatError{Field: "element id", Offset: offset, Err: err}
	}
	if i := bytes.IndexByte(slot[:], 0); i >= 0 {
		return string(slot[:i]), nil
	}
	return string(slot[:]), nil
}

// BlockReader reads blocks of result values from a results table.
type BlockReader struct {
	r      io.Reader
	buf    []byte
	offset int64
}

// NewBlockReader returns a BlockReader reading from r, which is positioned
// at byte offset start of its file.
func NewBlockReader(r io.Reader, start int64) *BlockReader {
	return &BlockReader{r: r, offset: start}
}

// Read fills dst with consecutive float values. A short read yields a
// *FormatError wrapping io.ErrUnexpectedEOF.
func (b *BlockReader) Read(dst []float32) error {
	n := len(dst) * WordSize
	if cap(b.buf) < n {
		b.buf = make([]byte, n)
	}
	buf := b.buf[:n]
	if _, err := io.ReadFull(b.r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return &FormatError{Field: "results", Offset: b.offset, Err: err}
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*WordSize:]))
	}
	b.offset += int64(n)
	return nil
}
