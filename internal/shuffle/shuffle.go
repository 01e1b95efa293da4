// Package shuffle implements the map/reduce-over-partitions kernel and
// its concrete operators: random and hash repartitions, coalesce, and
// range-partitioned sort. A shuffle maps every source partition to
// per-target sub-partitions, then reduces each target's contributions in
// ascending source-partition order.
package shuffle

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/partition"
)

// MapFn routes one source partition to a sparse mapping from target id to
// sub-partition. Missing targets mean no rows for that target.
type MapFn func(p *partition.Partition, numTargets int) (map[int]*partition.Partition, error)

// ReduceFn combines one target's contributions, already ordered by
// ascending source partition id, into the output partition.
type ReduceFn func(parts []*partition.Partition) (*partition.Partition, error)

// Op pairs the two halves of a shuffle.
type Op struct {
	Name   string
	Map    MapFn
	Reduce ReduceFn
}

// Run executes the shuffle, producing a dense set of numTargets
// partitions. Map tasks run in parallel up to the given limit; results
// land in indexed slots so reduce always sees ascending source order.
// The map outputs are released once every target has reduced.
func Run(ctx context.Context, input *partition.Set, numTargets int, op Op, parallelism int) (*partition.Set, error) {
	if numTargets <= 0 {
		return nil, dferrors.NewPlanError("shuffle to %d targets", numTargets)
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	schema := input.Schema()
	numSource := input.NumPartitions()

	mapped := make([]map[int]*partition.Partition, numSource)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for i := 0; i < numSource; i++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			src, err := input.Partition(i)
			if err != nil {
				return err
			}
			out, err := op.Map(src, numTargets)
			if err != nil {
				return dferrors.NewDataError("%s map over partition %d: %v", op.Name, i, err)
			}
			mapped[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	reduced := make([]*partition.Partition, numTargets)
	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for t := 0; t < numTargets; t++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			var contributions []*partition.Partition
			for i := 0; i < numSource; i++ {
				if sub, ok := mapped[i][t]; ok {
					contributions = append(contributions, sub)
				}
			}
			if len(contributions) == 0 {
				empty, err := partition.Empty(t, schema)
				if err != nil {
					return err
				}
				reduced[t] = empty
				return nil
			}
			out, err := op.Reduce(contributions)
			if err != nil {
				return dferrors.NewDataError("%s reduce into partition %d: %v", op.Name, t, err)
			}
			reduced[t] = out.WithID(t)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Drop the map generation before handing out the reduce generation.
	for i := range mapped {
		mapped[i] = nil
	}
	return partition.NewSet(reduced)
}
