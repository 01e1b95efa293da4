package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataframe-engine/internal/expr"
	"dataframe-engine/pkg/types"
)

func joinFixtures(t *testing.T) (*Partition, *Partition, types.Schema) {
	t.Helper()
	left, err := FromValues(0,
		types.NewSchema(
			types.Field{Name: "k", Type: types.Int64},
			types.Field{Name: "l", Type: types.String},
		),
		map[string][]interface{}{
			"k": {1, 2, nil, 4},
			"l": {"l1", "l2", "l3", "l4"},
		})
	require.NoError(t, err)

	right, err := FromValues(0,
		types.NewSchema(
			types.Field{Name: "k", Type: types.Int64},
			types.Field{Name: "r", Type: types.String},
		),
		map[string][]interface{}{
			"k": {2, nil, 5, 1},
			"r": {"r1", "r2", "r3", "r4"},
		})
	require.NoError(t, err)

	output := types.NewSchema(
		types.Field{Name: "k", Type: types.Int64},
		types.Field{Name: "l", Type: types.String},
		types.Field{Name: "r", Type: types.String},
	)
	return left, right, output
}

func joinKeys() []expr.Expr {
	return []expr.Expr{expr.Col("k")}
}

func TestJoinInner(t *testing.T) {
	left, right, output := joinFixtures(t)

	out, err := left.Join(right, joinKeys(), joinKeys(), output, JoinInner)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{int64(1), int64(2)}, columnValues(t, out, "k"),
		"left-driven order; null keys never match")
	assert.Equal(t, []interface{}{"l1", "l2"}, columnValues(t, out, "l"))
	assert.Equal(t, []interface{}{"r4", "r1"}, columnValues(t, out, "r"))
}

func TestJoinLeft(t *testing.T) {
	left, right, output := joinFixtures(t)

	out, err := left.Join(right, joinKeys(), joinKeys(), output, JoinLeft)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"l1", "l2", "l3", "l4"}, columnValues(t, out, "l"))
	assert.Equal(t, []interface{}{"r4", "r1", nil, nil}, columnValues(t, out, "r"),
		"unmatched left rows pad the right side with nulls")
}

func TestJoinRight(t *testing.T) {
	left, right, output := joinFixtures(t)

	out, err := left.Join(right, joinKeys(), joinKeys(), output, JoinRight)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"r1", "r2", "r3", "r4"}, columnValues(t, out, "r"),
		"right joins are right-driven")
	assert.Equal(t, []interface{}{"l2", nil, nil, "l1"}, columnValues(t, out, "l"))
}

func TestJoinOuter(t *testing.T) {
	left, right, output := joinFixtures(t)

	out, err := left.Join(right, joinKeys(), joinKeys(), output, JoinOuter)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"l1", "l2", "l3", "l4", nil, nil}, columnValues(t, out, "l"),
		"left-driven rows first, then unmatched right rows")
	assert.Equal(t, []interface{}{"r4", "r1", nil, nil, "r2", "r3"}, columnValues(t, out, "r"))
}

func TestJoinDuplicateKeysAreCartesian(t *testing.T) {
	left, err := FromValues(0,
		types.NewSchema(
			types.Field{Name: "k", Type: types.Int64},
			types.Field{Name: "l", Type: types.String},
		),
		map[string][]interface{}{
			"k": {1, 1},
			"l": {"a", "b"},
		})
	require.NoError(t, err)

	right, err := FromValues(0,
		types.NewSchema(
			types.Field{Name: "k", Type: types.Int64},
			types.Field{Name: "r", Type: types.String},
		),
		map[string][]interface{}{
			"k": {1, 1},
			"r": {"x", "y"},
		})
	require.NoError(t, err)

	output := types.NewSchema(
		types.Field{Name: "k", Type: types.Int64},
		types.Field{Name: "l", Type: types.String},
		types.Field{Name: "r", Type: types.String},
	)

	out, err := left.Join(right, joinKeys(), joinKeys(), output, JoinInner)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"a", "a", "b", "b"}, columnValues(t, out, "l"),
		"left-major ordering")
	assert.Equal(t, []interface{}{"x", "y", "x", "y"}, columnValues(t, out, "r"))
}

func TestJoinKeyTypeMismatch(t *testing.T) {
	left, _, output := joinFixtures(t)
	right, err := FromValues(0,
		types.NewSchema(
			types.Field{Name: "k", Type: types.String},
			types.Field{Name: "r", Type: types.String},
		),
		map[string][]interface{}{
			"k": {"1"},
			"r": {"r1"},
		})
	require.NoError(t, err)

	_, err = left.Join(right, joinKeys(), joinKeys(), output, JoinInner)
	require.Error(t, err)
}
