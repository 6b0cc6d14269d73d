package plan

import (
	"strings"
)

// Explain prints the tree, one node per line, inputs indented below their
// consumer
func Explain(n Node) string {
	buf := &strings.Builder{}
	explain(buf, n, 0)
	return buf.String()
}

func explain(buf *strings.Builder, n Node, depth int) {
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteString(n.String())
	buf.WriteString("\n")
	for _, in := range n.Inputs() {
		explain(buf, in, depth+1)
	}
}
