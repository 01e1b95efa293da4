package runner

import (
	"context"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/logging"
	"dataframe-engine/internal/partition"
	"dataframe-engine/internal/plan"
	"dataframe-engine/internal/shuffle"
)

// GlobalRunner executes barrier operators that consume and produce whole
// partition sets.
type GlobalRunner struct {
	log         logging.Logger
	parallelism int
	shuffleSeed uint64
}

// NewGlobalRunner creates a global operator runner.
func NewGlobalRunner(log logging.Logger, parallelism int, shuffleSeed uint64) *GlobalRunner {
	return &GlobalRunner{
		log:         log.WithComponent("global_runner"),
		parallelism: parallelism,
		shuffleSeed: shuffleSeed,
	}
}

// RunNodeList executes the ordered global nodes over the given input
// bindings and returns the last node's partition set, under the same
// registry discipline as the local runner.
func (r *GlobalRunner) RunNodeList(ctx context.Context, inputs map[int]*partition.Set, nodes []*plan.Node) (*partition.Set, error) {
	if len(nodes) == 0 {
		return nil, dferrors.NewPlanError("empty global node list")
	}
	reg := newRegistry(inputs)
	var output *partition.Set
	for _, n := range nodes {
		out, err := r.RunSingleNode(ctx, reg.entries, n)
		if err != nil {
			return nil, err
		}
		reg.insert(n.ID, out)
		for _, child := range n.Children {
			reg.release(child)
		}
		output = out
	}
	return output, nil
}

// RunSingleNode executes one global node against its bound children.
func (r *GlobalRunner) RunSingleNode(ctx context.Context, inputs map[int]*partition.Set, n *plan.Node) (*partition.Set, error) {
	reg := newRegistry(inputs)
	child, err := reg.get(n.Children[0])
	if err != nil {
		return nil, dferrors.Wrap(dferrors.NewPlanError("missing child binding").WithNode(n.ID), err)
	}
	var out *partition.Set
	switch n.Kind {
	case plan.KindGlobalLimit:
		out, err = r.runGlobalLimit(child, n.GlobalLimit.Num)
	case plan.KindRepartition:
		out, err = r.runRepartition(ctx, child, n)
	case plan.KindSort:
		out, err = r.runSort(ctx, child, n)
	case plan.KindCoalesce:
		out, err = shuffle.Run(ctx, child, n.Parts, shuffle.NewCoalesceOp(child.NumPartitions()), r.parallelism)
	default:
		return nil, dferrors.NewPlanError("%s is not a global operator", n.Kind).WithNode(n.ID)
	}
	if err != nil {
		return nil, err
	}
	if !out.Schema().Equal(n.OutputSchema) {
		return nil, dferrors.NewSchemaError("produced schema [%s], declared [%s]",
			out.Schema(), n.OutputSchema).WithNode(n.ID)
	}
	if out.NumPartitions() != n.Parts {
		return nil, dferrors.NewDataError("produced %d partitions, declared %d",
			out.NumPartitions(), n.Parts).WithNode(n.ID)
	}
	return out, nil
}

// runGlobalLimit truncates the set to its first num rows in partition-id
// order: partitions before the cut pass through, the cut partition keeps
// the remainder, and everything after comes back empty. Partition count
// is preserved.
func (r *GlobalRunner) runGlobalLimit(input *partition.Set, num int) (*partition.Set, error) {
	lens := input.Lens()
	total := 0
	for _, l := range lens {
		total += l
	}
	if total <= num {
		return input, nil
	}

	// cumulative sums, then the first partition whose running total
	// exceeds the limit takes the remainder
	cut := len(lens)
	running := 0
	remainder := 0
	for i, l := range lens {
		if running+l > num {
			cut = i
			remainder = num - running
			break
		}
		running += l
	}

	return input.Map(func(p *partition.Partition) (*partition.Partition, error) {
		switch {
		case p.ID() < cut:
			return p, nil
		case p.ID() == cut:
			return p.Head(remainder), nil
		}
		return p.Head(0), nil
	})
}

func (r *GlobalRunner) runRepartition(ctx context.Context, input *partition.Set, n *plan.Node) (*partition.Set, error) {
	var op shuffle.Op
	switch n.Repartition.Scheme {
	case plan.SchemeRandom:
		op = shuffle.NewRandomOp(r.shuffleSeed)
	case plan.SchemeHash:
		op = shuffle.NewHashOp(n.Repartition.Exprs)
	default:
		return nil, dferrors.NewPlanError("unknown partition scheme %q", n.Repartition.Scheme).WithNode(n.ID)
	}
	return shuffle.Run(ctx, input, n.Parts, op, r.parallelism)
}

func (r *GlobalRunner) runSort(ctx context.Context, input *partition.Set, n *plan.Node) (*partition.Set, error) {
	boundaries, err := shuffle.SampleBoundaries(input, n.Sort.Keys, n.Parts)
	if err != nil {
		return nil, err
	}
	if boundaries == nil {
		// no rows anywhere; emit the declared number of empty partitions
		empty := make([]*partition.Partition, n.Parts)
		for i := range empty {
			p, err := partition.Empty(i, input.Schema())
			if err != nil {
				return nil, err
			}
			empty[i] = p
		}
		return partition.NewSet(empty)
	}
	return shuffle.Run(ctx, input, n.Parts, shuffle.NewSortOp(n.Sort.Keys, boundaries), r.parallelism)
}
