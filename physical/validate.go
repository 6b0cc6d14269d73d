package physical

import (
	"github.com/cockroachdb/errors"
)

// Validate checks the convention boundaries of the tree: every input has the
// convention of its consumer, except for the input of a Converter which must
// have the convention the converter converts from.
func Validate(n Node) error {
	for _, in := range n.Inputs() {
		want := n.Convention()
		if c, ok := n.(*Converter); ok {
			want = c.From
		}
		if in.Convention() != want {
			return errors.AssertionFailedf(
				"%s in convention %s reads %s in convention %s",
				n,
				n.Convention(),
				in,
				in.Convention(),
			)
		}
		if err := Validate(in); err != nil {
			return err
		}
	}
	return nil
}
