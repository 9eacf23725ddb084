// Package report renders human-readable diagnostics for failed test cases.
package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/AndreyAkinshin/regtest/internal/compare"
	"github.com/AndreyAkinshin/regtest/internal/outfile"
)

var printer = message.NewPrinter(language.English)

// ClockTime returns the simulated clock time of a 1-based reporting period
// as H:MM:SS. Hours are not padded or wrapped.
func ClockTime(p outfile.Properties, period int) string {
	seconds := p.ReportStart + (period-1)*p.ReportStep
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	seconds %= 60
	return fmt.Sprintf("%s%d:%02d:%02d", sign, hours, minutes, seconds)
}

// Location describes the worst failure, e.g. "Node J-10 Pressure", or
// returns "" when no element was recorded.
func Location(info compare.FailureInfo) string {
	kind := info.Worst.Kind
	if kind == outfile.ElementNone {
		return ""
	}
	return fmt.Sprintf("%s %s %s", kind, info.ElementID, outfile.VariableName(kind, info.Variable))
}

// Failure renders the worst-failure summary of a test case, each line
// prefixed by indent spaces.
func Failure(info compare.FailureInfo, p outfile.Properties, indent int) string {
	pad := strings.Repeat(" ", indent)
	var b strings.Builder

	b.WriteString(pad)
	b.WriteString(printer.Sprintf("There were %d results failing.", info.Count))
	b.WriteByte('\n')

	b.WriteString(pad)
	if loc := Location(info); loc != "" {
		fmt.Fprintf(&b, "Largest difference occurred for %s at time %s hrs\n", loc, ClockTime(p, info.Period))
		fmt.Fprintf(&b, "%sSUT value: %f\n", pad, info.TestValue)
		fmt.Fprintf(&b, "%sRef value: %f\n", pad, info.RefValue)
	} else {
		b.WriteString("Largest difference could not be located\n")
	}
	return b.String()
}
