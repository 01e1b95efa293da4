package expr

import (
	"fmt"

	"dataframe-engine/pkg/types"
)

// AggOp identifies an aggregation function.
type AggOp string

const (
	AggSum   AggOp = "sum"
	AggCount AggOp = "count"
	AggMin   AggOp = "min"
	AggMax   AggOp = "max"
	AggMean  AggOp = "mean"
)

// Valid reports whether op is a known aggregation.
func (op AggOp) Valid() bool {
	switch op {
	case AggSum, AggCount, AggMin, AggMax, AggMean:
		return true
	}
	return false
}

// AggExpr pairs an aggregation with its input expression and output name.
// Count counts non-null input values; the others skip nulls and yield
// null for groups with no non-null input.
type AggExpr struct {
	Op    AggOp
	Input Expr
	As    string
}

// Name returns the output column name.
func (a AggExpr) Name() string {
	if a.As != "" {
		return a.As
	}
	return fmt.Sprintf("%s(%s)", a.Op, a.Input.Name())
}

// ResolveType computes the aggregation's output type against the input
// schema.
func (a AggExpr) ResolveType(schema types.Schema) (types.DataType, error) {
	in, err := a.Input.ResolveType(schema)
	if err != nil {
		return "", err
	}
	switch a.Op {
	case AggCount:
		return types.Int64, nil
	case AggMean:
		if !in.Numeric() {
			return "", fmt.Errorf("mean requires a numeric input, got %s", in)
		}
		return types.Float64, nil
	case AggSum:
		if !in.Numeric() {
			return "", fmt.Errorf("sum requires a numeric input, got %s", in)
		}
		return in, nil
	case AggMin, AggMax:
		return in, nil
	}
	return "", fmt.Errorf("unknown aggregation %q", a.Op)
}

// OutputField resolves the schema field this aggregation produces.
func (a AggExpr) OutputField(schema types.Schema) (types.Field, error) {
	dt, err := a.ResolveType(schema)
	if err != nil {
		return types.Field{}, err
	}
	return types.Field{Name: a.Name(), Type: dt}, nil
}

func (a AggExpr) String() string {
	return fmt.Sprintf("%s(%s) as %s", a.Op, a.Input, a.Name())
}
