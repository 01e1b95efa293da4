package shuffle

import (
	"encoding/binary"
	"sort"

	"github.com/spaolacci/murmur3"

	"dataframe-engine/internal/column"
	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/expr"
	"dataframe-engine/internal/partition"
)

// NewRandomOp builds the uniform repartition. Row routing hashes the row
// index under a seed derived from the shuffle seed and the source
// partition id, so a fixed seed reproduces the exact assignment.
func NewRandomOp(seed uint64) Op {
	return Op{
		Name: "repartition_random",
		Map: func(p *partition.Partition, numTargets int) (map[int]*partition.Partition, error) {
			partSeed := uint32(seed) ^ uint32(p.ID()+1)*0x9e3779b9
			var rowKey [8]byte
			targets := make([][]int, numTargets)
			for i := 0; i < p.Len(); i++ {
				binary.LittleEndian.PutUint64(rowKey[:], uint64(i))
				t := int(murmur3.Sum32WithSeed(rowKey[:], partSeed) % uint32(numTargets))
				targets[t] = append(targets[t], i)
			}
			return splitByTargets(p, targets), nil
		},
		Reduce: concatReduce,
	}
}

// NewHashOp builds the hash repartition: rows route to
// hash(key tuple) mod numTargets.
func NewHashOp(exprs []expr.Expr) Op {
	return Op{
		Name: "repartition_hash",
		Map: func(p *partition.Partition, numTargets int) (map[int]*partition.Partition, error) {
			keys, err := evalExprs(p, exprs)
			if err != nil {
				return nil, err
			}
			targets := make([][]int, numTargets)
			for i := 0; i < p.Len(); i++ {
				t := int(column.HashRow(keys, i) % uint64(numTargets))
				targets[t] = append(targets[t], i)
			}
			return splitByTargets(p, targets), nil
		},
		Reduce: concatReduce,
	}
}

// NewCoalesceOp builds the partition-count reduction: source partition i
// of numInput goes entirely to target floor(i*m/numInput).
func NewCoalesceOp(numInput int) Op {
	return Op{
		Name: "coalesce",
		Map: func(p *partition.Partition, numTargets int) (map[int]*partition.Partition, error) {
			t := p.ID() * numTargets / numInput
			return map[int]*partition.Partition{t: p}, nil
		},
		Reduce: concatReduce,
	}
}

// NewSortOp builds the range-partitioned sort. Boundaries is the m-1-row
// partition of key tuples produced by the sampler, ordered under the
// requested directions; rows bucket to the first boundary they order
// before, and each bucket sorts locally after concatenation. The local
// sort is stable.
func NewSortOp(keys []expr.SortKey, boundaries *partition.Partition) Op {
	desc := make([]bool, len(keys))
	for i, k := range keys {
		desc[i] = k.Desc
	}
	return Op{
		Name: "sort",
		Map: func(p *partition.Partition, numTargets int) (map[int]*partition.Partition, error) {
			keyCols, err := evalSortKeys(p, keys)
			if err != nil {
				return nil, err
			}
			bounds := boundaries.Blocks()
			targets := make([][]int, numTargets)
			for i := 0; i < p.Len(); i++ {
				t := sort.Search(boundaries.Len(), func(b int) bool {
					return column.CompareRows(keyCols, i, bounds, b, desc) < 0
				})
				targets[t] = append(targets[t], i)
			}
			return splitByTargets(p, targets), nil
		},
		Reduce: func(parts []*partition.Partition) (*partition.Partition, error) {
			merged, err := partition.Merge(parts, false)
			if err != nil {
				return nil, err
			}
			return merged.SortByKeys(keys)
		},
	}
}

func splitByTargets(p *partition.Partition, targets [][]int) map[int]*partition.Partition {
	out := make(map[int]*partition.Partition, len(targets))
	for t, indices := range targets {
		if len(indices) == 0 {
			continue
		}
		out[t] = p.Take(indices)
	}
	return out
}

func concatReduce(parts []*partition.Partition) (*partition.Partition, error) {
	return partition.Merge(parts, false)
}

func evalExprs(p *partition.Partition, exprs []expr.Expr) ([]column.Block, error) {
	cols := make([]column.Block, len(exprs))
	for i, e := range exprs {
		b, err := e.Eval(p)
		if err != nil {
			return nil, dferrors.NewSchemaError("evaluating %s: %v", e, err)
		}
		cols[i] = b
	}
	return cols, nil
}

func evalSortKeys(p *partition.Partition, keys []expr.SortKey) ([]column.Block, error) {
	exprs := make([]expr.Expr, len(keys))
	for i, k := range keys {
		exprs[i] = k.Expr
	}
	return evalExprs(p, exprs)
}
