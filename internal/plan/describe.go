package plan

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"
)

// Describe returns a schematic rendering of the plan's execution
// sequence: one line per node, grouped into pipelines and barriers.
func (p *Plan) Describe() (string, error) {
	var b bytes.Buffer
	if err := p.WriteDescription(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteDescription writes the plan rendering into w.
func (p *Plan) WriteDescription(w io.Writer) error {
	steps, err := p.ExecutionSteps()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 4, 4, 1, ' ', 0)
	for i, step := range steps {
		if step.IsGlobal() {
			fmt.Fprintf(tw, "barrier %d:\n", i)
			writeNode(tw, step.Global)
			continue
		}
		fmt.Fprintf(tw, "pipeline %d:\n", i)
		for _, n := range step.Pipeline {
			writeNode(tw, n)
		}
	}
	return tw.Flush()
}

func writeNode(w io.Writer, n *Node) {
	fmt.Fprintf(w, "\t%d\t%s\t[%s]\t%d partitions\n", n.ID, n.Kind, n.OutputSchema, n.Parts)
}
