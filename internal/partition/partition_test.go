package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/expr"
	"dataframe-engine/pkg/types"
)

func testSchema() types.Schema {
	return types.NewSchema(
		types.Field{Name: "a", Type: types.Int64},
		types.Field{Name: "b", Type: types.String},
	)
}

func testPartition(t *testing.T, id int, a []interface{}, b []interface{}) *Partition {
	t.Helper()
	p, err := FromValues(id, testSchema(), map[string][]interface{}{"a": a, "b": b})
	require.NoError(t, err)
	return p
}

func columnValues(t *testing.T, p *Partition, name string) []interface{} {
	t.Helper()
	b, ok := p.Column(name)
	require.True(t, ok, "column %s", name)
	out := make([]interface{}, b.Len())
	for i := range out {
		if v, valid := b.Value(i); valid {
			out[i] = v
		}
	}
	return out
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := FromValues(0, testSchema(), map[string][]interface{}{
		"a": {1, 2, 3},
		"b": {"x"},
	})
	require.Error(t, err)
	assert.Equal(t, dferrors.ErrorCodeData, dferrors.CodeOf(err))
}

func TestNewRejectsSchemaMismatch(t *testing.T) {
	_, err := FromValues(0, testSchema(), map[string][]interface{}{"a": {1}})
	require.Error(t, err)
	assert.Equal(t, dferrors.ErrorCodeSchema, dferrors.CodeOf(err))
}

func TestHead(t *testing.T) {
	p := testPartition(t, 0, []interface{}{1, 2, 3, 4}, []interface{}{"w", "x", "y", "z"})

	head := p.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, []interface{}{int64(1), int64(2)}, columnValues(t, head, "a"))

	assert.Equal(t, 4, p.Head(10).Len(), "head clamps to partition length")
	assert.Equal(t, 0, p.Head(0).Len())
}

func TestFilterByExpr(t *testing.T) {
	p := testPartition(t, 0,
		[]interface{}{1, nil, 3, 4},
		[]interface{}{"w", "x", "y", "z"})

	// null predicate rows drop out along with false ones
	out, err := p.FilterByExpr(expr.Binary(expr.OpLt, expr.Col("a"), expr.Lit(int64(4))))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(3)}, columnValues(t, out, "a"))
	assert.Equal(t, []interface{}{"w", "y"}, columnValues(t, out, "b"))

	_, err = p.FilterByExpr(expr.Col("a"))
	require.Error(t, err, "non-boolean predicate rejected")
	assert.Equal(t, dferrors.ErrorCodeSchema, dferrors.CodeOf(err))
}

func TestEvalExpressionList(t *testing.T) {
	p := testPartition(t, 0, []interface{}{1, 2}, []interface{}{"x", "y"})

	out, err := p.EvalExpressionList([]expr.Expr{
		expr.Col("b"),
		expr.Alias(expr.Binary(expr.OpMul, expr.Col("a"), expr.Lit(int64(10))), "a10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "b:string, a10:int64", out.Schema().String())
	assert.Equal(t, []interface{}{int64(10), int64(20)}, columnValues(t, out, "a10"))
}

func TestSampleIsDeterministic(t *testing.T) {
	values := make([]interface{}, 100)
	names := make([]interface{}, 100)
	for i := range values {
		values[i] = i
		names[i] = "r"
	}
	p := testPartition(t, 0, values, names)

	s1 := p.Sample(10)
	s2 := p.Sample(10)
	assert.Equal(t, 10, s1.Len())
	assert.Equal(t, columnValues(t, s1, "a"), columnValues(t, s2, "a"))

	small := p.Head(3)
	assert.Equal(t, 3, small.Sample(10).Len(), "sample of a small partition returns it whole")
}

func TestSortByKeysIsStable(t *testing.T) {
	p := testPartition(t, 0,
		[]interface{}{2, 1, 2, 1},
		[]interface{}{"first", "second", "third", "fourth"})

	out, err := p.SortByKeys([]expr.SortKey{{Expr: expr.Col("a")}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(1), int64(2), int64(2)}, columnValues(t, out, "a"))
	assert.Equal(t, []interface{}{"second", "fourth", "first", "third"}, columnValues(t, out, "b"),
		"ties keep input order")

	desc, err := p.SortByKeys([]expr.SortKey{{Expr: expr.Col("a"), Desc: true}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(2), int64(2), int64(1), int64(1)}, columnValues(t, desc, "a"))
}

func TestMerge(t *testing.T) {
	p1 := testPartition(t, 0, []interface{}{1}, []interface{}{"x"})
	p2 := testPartition(t, 1, []interface{}{2, 3}, []interface{}{"y", "z"})

	merged, err := Merge([]*Partition{p1, p2}, false)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, columnValues(t, merged, "a"))

	_, err = Merge([]*Partition{p1, p2}, true)
	require.Error(t, err, "id verification rejects mixed partitions")

	_, err = Merge(nil, false)
	assert.Error(t, err)
}

func TestQuantiles(t *testing.T) {
	schema := types.NewSchema(types.Field{Name: "k", Type: types.Int64})
	p, err := FromValues(0, schema, map[string][]interface{}{
		"k": {7, 1, 5, 3, 9, 0, 8, 2, 6, 4},
	})
	require.NoError(t, err)

	bounds, err := p.Quantiles(2, []bool{false})
	require.NoError(t, err)
	require.Equal(t, 1, bounds.Len())
	assert.Equal(t, []interface{}{int64(5)}, columnValues(t, bounds, "k"))

	// descending boundaries come back in descending key order
	bounds, err = p.Quantiles(5, []bool{true})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(7), int64(5), int64(3), int64(1)}, columnValues(t, bounds, "k"))

	empty, err := Empty(0, schema)
	require.NoError(t, err)
	_, err = empty.Quantiles(2, []bool{false})
	require.Error(t, err)
	assert.Equal(t, dferrors.ErrorCodeData, dferrors.CodeOf(err))
}
