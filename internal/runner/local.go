package runner

import (
	"context"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/logging"
	"dataframe-engine/internal/partition"
	"dataframe-engine/internal/plan"
	"dataframe-engine/internal/sources"
)

// LocalRunner executes a chain of partition-local operators for one
// partition id.
type LocalRunner struct {
	log logging.Logger
}

// NewLocalRunner creates a local pipeline runner.
func NewLocalRunner(log logging.Logger) *LocalRunner {
	return &LocalRunner{log: log.WithComponent("local_runner")}
}

// RunNodeList executes the ordered local nodes over the given input
// bindings and returns the partition produced by the last node. Each
// node's children must already be bound, either in inputs or by an
// earlier node of the list; a child's binding is released as soon as its
// consumer has run.
func (r *LocalRunner) RunNodeList(ctx context.Context, inputs map[int]*partition.Partition, nodes []*plan.Node, partitionID int) (*partition.Partition, error) {
	outputs, err := r.runPipeline(ctx, inputs, nodes, partitionID, nil)
	if err != nil {
		return nil, err
	}
	return outputs[nodes[len(nodes)-1].ID], nil
}

// runPipeline is RunNodeList with an extra keep set: outputs of the keep
// nodes survive the registry discipline and come back alongside the last
// node's output. The plan runner uses it for pipeline nodes consumed
// beyond their own pipeline.
func (r *LocalRunner) runPipeline(ctx context.Context, inputs map[int]*partition.Partition, nodes []*plan.Node, partitionID int, keep map[int]bool) (map[int]*partition.Partition, error) {
	if len(nodes) == 0 {
		return nil, dferrors.NewPlanError("empty pipeline")
	}
	reg := newRegistry(inputs)
	kept := make(map[int]*partition.Partition, len(keep)+1)
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, dferrors.Wrap(dferrors.NewResourceError("partition %d canceled", partitionID), err)
		}
		out, err := r.runSingleNode(ctx, reg, n, partitionID)
		if err != nil {
			return nil, err
		}
		if !out.Schema().Equal(n.OutputSchema) {
			return nil, dferrors.NewSchemaError("produced schema [%s], declared [%s]",
				out.Schema(), n.OutputSchema).WithNode(n.ID)
		}
		reg.insert(n.ID, out)
		if keep[n.ID] {
			kept[n.ID] = out
		}
		for _, child := range n.Children {
			reg.release(child)
		}
	}
	last := nodes[len(nodes)-1]
	lastOut, err := reg.get(last.ID)
	if err != nil {
		return nil, err
	}
	kept[last.ID] = lastOut
	return kept, nil
}

func (r *LocalRunner) runSingleNode(ctx context.Context, reg *registry[*partition.Partition], n *plan.Node, partitionID int) (*partition.Partition, error) {
	switch n.Kind {
	case plan.KindScan:
		return sources.Materialize(ctx, n.Scan.Source, n.OutputSchema, partitionID)
	case plan.KindProjection:
		child, err := reg.get(n.Children[0])
		if err != nil {
			return nil, err
		}
		return child.EvalExpressionList(n.Projection.Exprs)
	case plan.KindFilter:
		child, err := reg.get(n.Children[0])
		if err != nil {
			return nil, err
		}
		return child.FilterByExpr(n.Filter.Predicate)
	case plan.KindLocalLimit:
		child, err := reg.get(n.Children[0])
		if err != nil {
			return nil, err
		}
		return child.Head(n.LocalLimit.Num), nil
	case plan.KindLocalAggregate:
		child, err := reg.get(n.Children[0])
		if err != nil {
			return nil, err
		}
		return child.Agg(n.Aggregate.Aggs, n.Aggregate.GroupBy)
	case plan.KindJoin:
		left, err := reg.get(n.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := reg.get(n.Children[1])
		if err != nil {
			return nil, err
		}
		return left.Join(right, n.Join.LeftOn, n.Join.RightOn, n.OutputSchema, n.Join.How)
	}
	return nil, dferrors.NewPlanError("%s is not a local operator", n.Kind).WithNode(n.ID)
}
