package shuffle

import (
	"dataframe-engine/internal/expr"
	"dataframe-engine/internal/partition"
)

// SamplesPerPartition is how many rows the sort sampler draws from each
// input partition when estimating range boundaries.
const SamplesPerPartition = 20

// SampleBoundaries estimates numTargets-1 range boundaries for a sort:
// it samples every partition, evaluates the sort keys over the samples,
// merges them into one sample partition, and takes equal-probability
// quantiles under the requested directions. Returns nil when the input
// holds no rows at all; the sort then degenerates to empty output
// partitions.
func SampleBoundaries(input *partition.Set, keys []expr.SortKey, numTargets int) (*partition.Partition, error) {
	exprs := make([]expr.Expr, len(keys))
	desc := make([]bool, len(keys))
	for i, k := range keys {
		exprs[i] = k.Expr
		desc[i] = k.Desc
	}

	sampled := make([]*partition.Partition, 0, input.NumPartitions())
	for _, p := range input.Partitions() {
		keyed, err := p.Sample(SamplesPerPartition).EvalExpressionList(exprs)
		if err != nil {
			return nil, err
		}
		sampled = append(sampled, keyed.WithID(0))
	}

	merged, err := partition.Merge(sampled, false)
	if err != nil {
		return nil, err
	}
	if merged.Len() == 0 {
		return nil, nil
	}
	return merged.Quantiles(numTargets, desc)
}
