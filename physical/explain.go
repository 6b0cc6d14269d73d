package physical

import (
	"strings"

	"github.com/fatih/color"
)

type ExplainOptions struct {
	// Color highlights the convention of every node, regardless of whether
	// the output is a terminal
	Color bool

	// Annotate, if not nil, returns extra text appended to the node's line,
	// eg its cost
	Annotate func(Node) string
}

func conventionColor(c Convention) *color.Color {
	var cobj *color.Color
	if c == Native {
		cobj = color.New(color.FgCyan, color.Bold)
	} else {
		cobj = color.New(color.FgGreen)
	}
	cobj.EnableColor()
	return cobj
}

// Explain renders the tree, one node per line followed by its convention,
// inputs indented below their consumer
func Explain(n Node, opt ExplainOptions) string {
	buf := &strings.Builder{}
	explain(buf, n, 0, &opt)
	return buf.String()
}

func explain(buf *strings.Builder, n Node, depth int, opt *ExplainOptions) {
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteString(n.String())
	buf.WriteString(" :: ")

	conv := n.Convention().String()
	if opt.Color {
		conv = conventionColor(n.Convention()).Sprint(conv)
	}
	buf.WriteString(conv)

	if opt.Annotate != nil {
		if note := opt.Annotate(n); note != "" {
			buf.WriteString(" ")
			buf.WriteString(note)
		}
	}
	buf.WriteString("\n")

	for _, in := range n.Inputs() {
		explain(buf, in, depth+1, opt)
	}
}
