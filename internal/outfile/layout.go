// Package outfile decodes the binary output file written by an EPANET
// simulation run.
//
// The file is a sequence of little-endian 4-byte words. A fixed-size prolog
// carries the network dimensions and reporting times, followed by the
// element ID table, per-element metadata, the results table (one block of
// values per variable per reporting period) and a three-word epilog.
package outfile

// WordSize is the width in bytes of every integer and float in the file.
const WordSize = 4

// PrologSize is the byte offset at which the element ID table begins.
const PrologSize = 884

// IDSize is the width of one element ID slot, including its NUL padding.
const IDSize = 32

// Number of result variables stored per node and per link each period.
const (
	NumNodeVariables = 4
	NumLinkVariables = 8
)

// Field is one 4-byte integer word of the prolog or epilog.
type Field struct {
	Name string
	// Offset is measured from the start of the file, or from its end
	// when FromEnd is set.
	Offset  int64
	FromEnd bool
}

// Prolog lists the leading header words in file order.
var Prolog = []Field{
	{Name: "magic", Offset: 0},
	{Name: "version", Offset: 4},
	{Name: "nodes", Offset: 8},
	{Name: "tanks", Offset: 12},
	{Name: "links", Offset: 16},
	{Name: "pumps", Offset: 20},
	{Name: "valves", Offset: 24},
	{Name: "quality", Offset: 28},
	{Name: "trace_node", Offset: 32},
	{Name: "flow_units", Offset: 36},
	{Name: "pressure_units", Offset: 40},
	{Name: "statistics", Offset: 44},
	{Name: "report_start", Offset: 48},
	{Name: "report_step", Offset: 52},
}

// Epilog lists the trailing words, measured back from end of file.
var Epilog = []Field{
	{Name: "periods", Offset: 3 * WordSize, FromEnd: true},
	{Name: "warning", Offset: 2 * WordSize, FromEnd: true},
	{Name: "end_magic", Offset: 1 * WordSize, FromEnd: true},
}

// Per identifies which element count scales a Section.
type Per int

const (
	PerFile Per = iota
	PerNode
	PerTank
	PerLink
	PerPump
)

func (p Per) String() string {
	switch p {
	case PerNode:
		return "node"
	case PerTank:
		return "tank"
	case PerLink:
		return "link"
	case PerPump:
		return "pump"
	default:
		return "file"
	}
}

// Section is a run of bytes preceding the results table.
type Section struct {
	Name  string
	Per   Per
	Width int64
}

// Sections lists everything between the start of the file and the first
// result value. Their sizes sum to Properties.ResultsStart.
var Sections = []Section{
	{Name: "prolog", Per: PerFile, Width: PrologSize},
	{Name: "node ids", Per: PerNode, Width: IDSize},
	{Name: "link ids", Per: PerLink, Width: IDSize},
	{Name: "link connectivity", Per: PerLink, Width: 3 * WordSize},
	{Name: "tank data", Per: PerTank, Width: 2 * WordSize},
	{Name: "node elevations", Per: PerNode, Width: WordSize},
	{Name: "link geometry", Per: PerLink, Width: 2 * WordSize},
	{Name: "pump energy", Per: PerPump, Width: 7 * WordSize},
	{Name: "peak energy", Per: PerFile, Width: WordSize},
}

// minSize is the smallest file that holds every Prolog and Epilog word.
var minSize = func() int64 {
	var end int64
	for _, f := range Prolog {
		if f.Offset+WordSize > end {
			end = f.Offset + WordSize
		}
	}
	for _, f := range Epilog {
		if f.Offset > end {
			end = f.Offset
		}
	}
	return end
}()

// Count returns how many times s repeats for the element counts in p.
func (s Section) Count(p Properties) int64 {
	switch s.Per {
	case PerNode:
		return int64(p.NumNodes)
	case PerTank:
		return int64(p.NumTanks)
	case PerLink:
		return int64(p.NumLinks)
	case PerPump:
		return int64(p.NumPumps)
	default:
		return 1
	}
}

// Size returns the byte length of s for the element counts in p.
func (s Section) Size(p Properties) int64 {
	return s.Count(p) * s.Width
}

// ResultsStart sums Sections for the element counts in p.
func ResultsStart(p Properties) int64 {
	var total int64
	for _, s := range Sections {
		total += s.Size(p)
	}
	return total
}
