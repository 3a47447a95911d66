package css

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter builds indented text dumps for debug reports.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label with quoted value, empty values are left as is.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	if value != "" {
		value = strconv.Quote(value)
	}
	tw.w.WriteString(value)
	tw.w.WriteByte('\n')
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

// Dump returns rule tree as indented text: one line per rule with its kind
// and header, followed by declarations.
func Dump(rules []*Rule) string {
	tw := NewTreeWriter()
	tw.Line(0, "rules: %d", len(rules))
	for _, r := range rules {
		dumpRule(tw, 1, r)
	}
	return tw.String()
}

func dumpRule(tw *TreeWriter, depth int, r *Rule) {
	tw.Line(depth, "%s %s", r.Kind, r.header())
	for _, d := range r.Declarations {
		label := d.Property
		if d.Important {
			label += " !important"
		}
		tw.TextBlock(depth+1, label, d.Value)
	}
	if r.Raw != "" {
		tw.TextBlock(depth+1, "raw", r.Raw)
	}
	for _, c := range r.Rules {
		dumpRule(tw, depth+1, c)
	}
}
