package runner

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dataframe-engine/internal/config"
	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/logging"
	"dataframe-engine/internal/partition"
	"dataframe-engine/internal/plan"
)

// PlanRunner evaluates a whole logical plan: it splits the DAG into
// pipelines and barriers, fans each pipeline out across partition ids on
// a bounded worker pool, and releases every node's output as soon as its
// last consumer has run. The first error aborts the run; no partial
// result is returned.
type PlanRunner struct {
	cfg    *config.Config
	log    logging.Logger
	local  *LocalRunner
	global *GlobalRunner
}

// NewPlanRunner creates a plan runner.
func NewPlanRunner(cfg *config.Config, log logging.Logger) *PlanRunner {
	return &PlanRunner{
		cfg:    cfg,
		log:    log,
		local:  NewLocalRunner(log),
		global: NewGlobalRunner(log, cfg.Execution.MaxParallelism, uint64(cfg.Execution.ShuffleSeed)),
	}
}

// Run evaluates the plan and returns the root node's partition set.
func (r *PlanRunner) Run(ctx context.Context, p *plan.Plan) (*partition.Set, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	steps, err := p.ExecutionSteps()
	if err != nil {
		return nil, err
	}
	root, err := p.Root()
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log := r.log.WithRunID(runID).WithComponent("plan_runner")
	log.Info("starting plan execution", "steps", len(steps), "root", root.ID)

	// remaining consumer counts drive registry release across steps
	remaining := make(map[int]int, len(p.Nodes()))
	for id, consumers := range p.Consumers() {
		remaining[id] = len(consumers)
	}

	materialized := newRegistry[*partition.Set](nil)
	release := func(childID int) {
		remaining[childID]--
		if remaining[childID] <= 0 && childID != root.ID {
			materialized.release(childID)
		}
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, dferrors.Wrap(dferrors.NewResourceError("plan execution canceled"), err)
		}
		if step.IsGlobal() {
			n := step.Global
			log.Debug("running global operator", "step", i, "node", n.ID, "kind", string(n.Kind))
			out, err := r.global.RunSingleNode(ctx, materialized.entries, n)
			if err != nil {
				return nil, err
			}
			materialized.insert(n.ID, out)
			for _, child := range n.Children {
				release(child)
			}
			continue
		}

		log.Debug("running pipeline", "step", i, "nodes", len(step.Pipeline))
		if err := r.runPipelineStep(ctx, materialized, step.Pipeline, remaining, root.ID); err != nil {
			return nil, err
		}
	}

	out, err := materialized.get(root.ID)
	if err != nil {
		return nil, err
	}
	log.Info("plan execution complete", "partitions", out.NumPartitions(), "rows", out.TotalRows())
	return out, nil
}

// runPipelineStep executes one local pipeline for every partition id in
// parallel, bounded by the configured parallelism. Outputs collect into
// indexed slots so partition sets assemble in id order regardless of
// completion order.
func (r *PlanRunner) runPipelineStep(ctx context.Context, materialized *registry[*partition.Set], nodes []*plan.Node, remaining map[int]int, rootID int) error {
	inPipeline := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		inPipeline[n.ID] = true
	}

	// pipeline outputs that must survive: the last node, plus any node
	// consumed outside this pipeline
	last := nodes[len(nodes)-1]
	keep := map[int]bool{last.ID: true}
	externalChildren := make(map[int]bool)
	for _, n := range nodes {
		if n.ID != last.ID && remaining[n.ID] > countConsumersIn(n.ID, nodes) {
			keep[n.ID] = true
		}
		for _, child := range n.Children {
			if !inPipeline[child] {
				externalChildren[child] = true
			}
		}
	}

	numParts := last.Parts
	results := make([]map[int]*partition.Partition, numParts)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.Execution.MaxParallelism)
	for pid := 0; pid < numParts; pid++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			inputs := make(map[int]*partition.Partition, len(externalChildren))
			for childID := range externalChildren {
				set, err := materialized.get(childID)
				if err != nil {
					return err
				}
				part, err := set.Partition(pid)
				if err != nil {
					return err
				}
				inputs[childID] = part
			}
			outputs, err := r.local.runPipeline(egCtx, inputs, nodes, pid, keep)
			if err != nil {
				return err
			}
			results[pid] = outputs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for id := range keep {
		parts := make([]*partition.Partition, numParts)
		for pid := 0; pid < numParts; pid++ {
			parts[pid] = results[pid][id].WithID(pid)
		}
		set, err := partition.NewSet(parts)
		if err != nil {
			return err
		}
		materialized.insert(id, set)
	}

	// every pipeline node has now run; settle consumer counts for the
	// external children it read
	for _, n := range nodes {
		for _, child := range n.Children {
			if !inPipeline[child] {
				remaining[child]--
				if remaining[child] <= 0 && child != rootID {
					materialized.release(child)
				}
			}
		}
		// intra-pipeline consumption already happened inside the
		// pipeline registry; account for it so kept nodes release on
		// their last external read
		if n.ID != last.ID {
			remaining[n.ID] -= countConsumersIn(n.ID, nodes)
		}
	}
	return nil
}

func countConsumersIn(id int, nodes []*plan.Node) int {
	count := 0
	for _, n := range nodes {
		for _, child := range n.Children {
			if child == id {
				count++
			}
		}
	}
	return count
}
