// Package expr implements the expression layer evaluated by the engine's
// operators: column references, literals, comparison and arithmetic
// operators, and aggregation specs. Expressions resolve their output type
// against a schema at plan-build time and evaluate to column blocks at
// run time.
package expr

import (
	"fmt"

	"dataframe-engine/internal/column"
	"dataframe-engine/pkg/types"
)

// Input is the surface expressions evaluate against. Partitions implement
// it.
type Input interface {
	Column(name string) (column.Block, bool)
	NumRows() int
}

// Expr is a typed expression tree node.
type Expr interface {
	// Name is the output column name this expression produces.
	Name() string

	// ResolveType computes the output type against an input schema.
	ResolveType(schema types.Schema) (types.DataType, error)

	// Eval computes the expression over every row of the input.
	Eval(in Input) (column.Block, error)

	fmt.Stringer
}

// Col references an input column by name.
func Col(name string) Expr {
	return &colExpr{name: name}
}

type colExpr struct {
	name string
}

func (e *colExpr) Name() string {
	return e.name
}

func (e *colExpr) ResolveType(schema types.Schema) (types.DataType, error) {
	f, ok := schema.Field(e.name)
	if !ok {
		return "", fmt.Errorf("unknown column %q", e.name)
	}
	return f.Type, nil
}

func (e *colExpr) Eval(in Input) (column.Block, error) {
	b, ok := in.Column(e.name)
	if !ok {
		return nil, fmt.Errorf("unknown column %q", e.name)
	}
	return b, nil
}

func (e *colExpr) String() string {
	return "col(" + e.name + ")"
}

// Lit is a constant expression broadcast over every input row.
func Lit(value interface{}) Expr {
	return &litExpr{value: value}
}

type litExpr struct {
	value interface{}
}

func (e *litExpr) Name() string {
	return "literal"
}

func (e *litExpr) ResolveType(types.Schema) (types.DataType, error) {
	return litType(e.value)
}

func litType(v interface{}) (types.DataType, error) {
	switch v.(type) {
	case int, int64:
		return types.Int64, nil
	case float64:
		return types.Float64, nil
	case string:
		return types.String, nil
	case bool:
		return types.Bool, nil
	}
	return "", fmt.Errorf("unsupported literal %T", v)
}

func (e *litExpr) Eval(in Input) (column.Block, error) {
	dt, err := litType(e.value)
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, in.NumRows())
	for i := range values {
		values[i] = e.value
	}
	return column.FromValues(dt, values)
}

func (e *litExpr) String() string {
	return fmt.Sprintf("lit(%v)", e.value)
}

// Alias renames the output column of an expression.
func Alias(inner Expr, name string) Expr {
	return &aliasExpr{inner: inner, name: name}
}

type aliasExpr struct {
	inner Expr
	name  string
}

func (e *aliasExpr) Name() string {
	return e.name
}

func (e *aliasExpr) ResolveType(schema types.Schema) (types.DataType, error) {
	return e.inner.ResolveType(schema)
}

func (e *aliasExpr) Eval(in Input) (column.Block, error) {
	return e.inner.Eval(in)
}

func (e *aliasExpr) String() string {
	return fmt.Sprintf("%s as %s", e.inner, e.name)
}

// OutputField resolves the schema field an expression produces.
func OutputField(e Expr, schema types.Schema) (types.Field, error) {
	dt, err := e.ResolveType(schema)
	if err != nil {
		return types.Field{}, err
	}
	return types.Field{Name: e.Name(), Type: dt}, nil
}

// OutputSchema resolves the schema an ordered expression list produces.
func OutputSchema(exprs []Expr, input types.Schema) (types.Schema, error) {
	fields := make([]types.Field, 0, len(exprs))
	for _, e := range exprs {
		f, err := OutputField(e, input)
		if err != nil {
			return types.Schema{}, err
		}
		fields = append(fields, f)
	}
	return types.NewSchema(fields...), nil
}

// SortKey pairs a sort expression with its direction.
type SortKey struct {
	Expr Expr
	Desc bool
}
