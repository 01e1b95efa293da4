package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataframe-engine/internal/column"
	"dataframe-engine/pkg/types"
)

// fakeInput binds column names to blocks for expression evaluation.
type fakeInput struct {
	cols map[string]column.Block
	rows int
}

func (f *fakeInput) Column(name string) (column.Block, bool) {
	b, ok := f.cols[name]
	return b, ok
}

func (f *fakeInput) NumRows() int {
	return f.rows
}

func input(t *testing.T, cols map[string][]interface{}, dts map[string]types.DataType) *fakeInput {
	t.Helper()
	out := &fakeInput{cols: make(map[string]column.Block)}
	for name, values := range cols {
		b, err := column.FromValues(dts[name], values)
		require.NoError(t, err)
		out.cols[name] = b
		out.rows = b.Len()
	}
	return out
}

func TestColEval(t *testing.T) {
	in := input(t,
		map[string][]interface{}{"a": {1, 2, 3}},
		map[string]types.DataType{"a": types.Int64})

	b, err := Col("a").Eval(in)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, column.Values(b))

	_, err = Col("missing").Eval(in)
	assert.Error(t, err)
}

func TestLitEval(t *testing.T) {
	in := input(t,
		map[string][]interface{}{"a": {1, 2}},
		map[string]types.DataType{"a": types.Int64})

	b, err := Lit(int64(7)).Eval(in)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(7), int64(7)}, column.Values(b))
}

func TestBinaryEval(t *testing.T) {
	in := input(t,
		map[string][]interface{}{
			"a": {1, 2, nil, 4},
			"b": {10.0, 20.0, 30.0, 40.0},
		},
		map[string]types.DataType{"a": types.Int64, "b": types.Float64})

	tests := []struct {
		name string
		expr Expr
		want []interface{}
	}{
		{
			name: "int addition",
			expr: Binary(OpAdd, Col("a"), Lit(int64(1))),
			want: []interface{}{int64(2), int64(3), nil, int64(5)},
		},
		{
			name: "mixed arithmetic promotes to float",
			expr: Binary(OpMul, Col("a"), Col("b")),
			want: []interface{}{10.0, 40.0, nil, 160.0},
		},
		{
			name: "comparison with null propagation",
			expr: Binary(OpLt, Col("a"), Lit(int64(3))),
			want: []interface{}{true, true, nil, false},
		},
		{
			name: "cross-type numeric comparison",
			expr: Binary(OpGe, Col("b"), Lit(20.0)),
			want: []interface{}{false, true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.expr.Eval(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, column.Values(b))
		})
	}
}

func TestBinaryResolveType(t *testing.T) {
	schema := types.NewSchema(
		types.Field{Name: "a", Type: types.Int64},
		types.Field{Name: "s", Type: types.String},
	)

	dt, err := Binary(OpAdd, Col("a"), Lit(int64(1))).ResolveType(schema)
	require.NoError(t, err)
	assert.Equal(t, types.Int64, dt)

	dt, err = Binary(OpDiv, Col("a"), Lit(int64(2))).ResolveType(schema)
	require.NoError(t, err)
	assert.Equal(t, types.Float64, dt, "division always yields float")

	_, err = Binary(OpAdd, Col("a"), Col("s")).ResolveType(schema)
	assert.Error(t, err, "arithmetic over strings rejected")

	_, err = Binary(OpAnd, Col("a"), Col("a")).ResolveType(schema)
	assert.Error(t, err, "and requires booleans")
}

func TestAliasRenames(t *testing.T) {
	schema := types.NewSchema(types.Field{Name: "a", Type: types.Int64})
	e := Alias(Binary(OpAdd, Col("a"), Lit(int64(1))), "a_plus_one")

	f, err := OutputField(e, schema)
	require.NoError(t, err)
	assert.Equal(t, "a_plus_one", f.Name)
	assert.Equal(t, types.Int64, f.Type)
}

func TestAggResolveType(t *testing.T) {
	schema := types.NewSchema(
		types.Field{Name: "v", Type: types.Int64},
		types.Field{Name: "s", Type: types.String},
	)

	tests := []struct {
		name    string
		agg     AggExpr
		want    types.DataType
		wantErr bool
	}{
		{name: "sum keeps input type", agg: AggExpr{Op: AggSum, Input: Col("v")}, want: types.Int64},
		{name: "count is int64", agg: AggExpr{Op: AggCount, Input: Col("s")}, want: types.Int64},
		{name: "mean is float64", agg: AggExpr{Op: AggMean, Input: Col("v")}, want: types.Float64},
		{name: "min on strings", agg: AggExpr{Op: AggMin, Input: Col("s")}, want: types.String},
		{name: "sum on strings rejected", agg: AggExpr{Op: AggSum, Input: Col("s")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := tt.agg.ResolveType(schema)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dt)
		})
	}
}
