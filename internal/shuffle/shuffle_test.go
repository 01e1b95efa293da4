package shuffle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataframe-engine/internal/expr"
	"dataframe-engine/internal/partition"
	"dataframe-engine/pkg/types"
)

func intSchema() types.Schema {
	return types.NewSchema(types.Field{Name: "k", Type: types.Int64})
}

func intSet(t *testing.T, parts ...[]interface{}) *partition.Set {
	t.Helper()
	out := make([]*partition.Partition, len(parts))
	for i, values := range parts {
		p, err := partition.FromValues(i, intSchema(), map[string][]interface{}{"k": values})
		require.NoError(t, err)
		out[i] = p
	}
	set, err := partition.NewSet(out)
	require.NoError(t, err)
	return set
}

func intValues(t *testing.T, p *partition.Partition) []interface{} {
	t.Helper()
	b, ok := p.Column("k")
	require.True(t, ok)
	out := make([]interface{}, b.Len())
	for i := range out {
		v, valid := b.Value(i)
		require.True(t, valid)
		out[i] = v
	}
	return out
}

func allValues(t *testing.T, s *partition.Set) []interface{} {
	t.Helper()
	var out []interface{}
	for _, p := range s.Partitions() {
		out = append(out, intValues(t, p)...)
	}
	return out
}

func TestRunPreservesSourceOrderWithinTarget(t *testing.T) {
	input := intSet(t, []interface{}{1, 2}, []interface{}{3}, []interface{}{4, 5})

	// route everything to target 0 and record concatenation order
	op := Op{
		Name: "collect",
		Map: func(p *partition.Partition, numTargets int) (map[int]*partition.Partition, error) {
			return map[int]*partition.Partition{0: p}, nil
		},
		Reduce: func(parts []*partition.Partition) (*partition.Partition, error) {
			return partition.Merge(parts, false)
		},
	}

	out, err := Run(context.Background(), input, 2, op, 4)
	require.NoError(t, err)
	require.Equal(t, 2, out.NumPartitions())

	first, err := out.Partition(0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3), int64(4), int64(5)}, intValues(t, first),
		"contributions merge in ascending source-partition order")

	second, err := out.Partition(1)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Len(), "targets with no contributions come back empty")
}

func TestHashRepartition(t *testing.T) {
	input := intSet(t, []interface{}{1, 2, 1, 2})
	op := NewHashOp([]expr.Expr{expr.Col("k")})

	out, err := Run(context.Background(), input, 2, op, 2)
	require.NoError(t, err)

	// every occurrence of a key lands in one target
	for _, key := range []interface{}{int64(1), int64(2)} {
		targetsHolding := 0
		for _, p := range out.Partitions() {
			count := 0
			for _, v := range intValues(t, p) {
				if v == key {
					count++
				}
			}
			if count > 0 {
				targetsHolding++
				assert.Equal(t, 2, count, "key %v split across targets", key)
			}
		}
		assert.Equal(t, 1, targetsHolding)
	}
	assert.Equal(t, 4, out.TotalRows(), "row count conserved")

	// re-running yields the identical assignment
	again, err := Run(context.Background(), input, 2, op, 2)
	require.NoError(t, err)
	assert.Equal(t, allValues(t, out), allValues(t, again))
}

func TestHashRepartitionIdempotent(t *testing.T) {
	input := intSet(t, []interface{}{5, 6, 7}, []interface{}{8, 9})
	op := NewHashOp([]expr.Expr{expr.Col("k")})

	once, err := Run(context.Background(), input, 2, op, 2)
	require.NoError(t, err)
	twice, err := Run(context.Background(), once, 2, op, 2)
	require.NoError(t, err)

	assert.ElementsMatch(t, allValues(t, once), allValues(t, twice))
	for i := 0; i < 2; i++ {
		p1, err := once.Partition(i)
		require.NoError(t, err)
		p2, err := twice.Partition(i)
		require.NoError(t, err)
		assert.ElementsMatch(t, intValues(t, p1), intValues(t, p2),
			"hash routing sends each key to the same target both times")
	}
}

func TestRandomRepartitionDeterministicUnderSeed(t *testing.T) {
	input := intSet(t, []interface{}{1, 2, 3, 4, 5}, []interface{}{6, 7, 8})

	out1, err := Run(context.Background(), input, 3, NewRandomOp(42), 2)
	require.NoError(t, err)
	out2, err := Run(context.Background(), input, 3, NewRandomOp(42), 2)
	require.NoError(t, err)

	assert.Equal(t, 8, out1.TotalRows(), "row count conserved")
	for i := 0; i < 3; i++ {
		p1, err := out1.Partition(i)
		require.NoError(t, err)
		p2, err := out2.Partition(i)
		require.NoError(t, err)
		assert.Equal(t, intValues(t, p1), intValues(t, p2))
	}
}

func TestCoalesce(t *testing.T) {
	input := intSet(t,
		[]interface{}{10}, []interface{}{20}, []interface{}{30}, []interface{}{40})

	out, err := Run(context.Background(), input, 2, NewCoalesceOp(4), 2)
	require.NoError(t, err)
	require.Equal(t, 2, out.NumPartitions())

	first, err := out.Partition(0)
	require.NoError(t, err)
	second, err := out.Partition(1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(10), int64(20)}, intValues(t, first))
	assert.Equal(t, []interface{}{int64(30), int64(40)}, intValues(t, second))
}

func TestSortOpRangePartitions(t *testing.T) {
	input := intSet(t, []interface{}{9, 7}, []interface{}{3, 1}, []interface{}{5, 4})
	keys := []expr.SortKey{{Expr: expr.Col("k")}}

	boundaries, err := SampleBoundaries(input, keys, 3)
	require.NoError(t, err)
	require.NotNil(t, boundaries)
	require.Equal(t, 2, boundaries.Len())

	out, err := Run(context.Background(), input, 3, NewSortOp(keys, boundaries), 2)
	require.NoError(t, err)

	assert.Equal(t,
		[]interface{}{int64(1), int64(3), int64(4), int64(5), int64(7), int64(9)},
		allValues(t, out),
		"concatenating partitions in id order yields the total order")
	assert.Equal(t, 3, out.NumPartitions())
}

func TestSortOpDescending(t *testing.T) {
	input := intSet(t, []interface{}{2, 8}, []interface{}{5, 1})
	keys := []expr.SortKey{{Expr: expr.Col("k"), Desc: true}}

	boundaries, err := SampleBoundaries(input, keys, 2)
	require.NoError(t, err)

	out, err := Run(context.Background(), input, 2, NewSortOp(keys, boundaries), 2)
	require.NoError(t, err)
	assert.Equal(t,
		[]interface{}{int64(8), int64(5), int64(2), int64(1)},
		allValues(t, out))
}

func TestSampleBoundariesEmptyInput(t *testing.T) {
	input := intSet(t, []interface{}{}, []interface{}{})
	boundaries, err := SampleBoundaries(input, []expr.SortKey{{Expr: expr.Col("k")}}, 2)
	require.NoError(t, err)
	assert.Nil(t, boundaries)
}
