package expr

import (
	"fmt"

	"dataframe-engine/internal/column"
	"dataframe-engine/pkg/types"
)

// Op identifies a binary operator.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLe  Op = "<="
	OpGt  Op = ">"
	OpGe  Op = ">="
	OpAnd Op = "and"
	OpOr  Op = "or"
)

func (op Op) arithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	}
	return false
}

func (op Op) comparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Binary applies op to two expressions. Nulls propagate: a null operand
// yields a null result row.
func Binary(op Op, left, right Expr) Expr {
	return &binaryExpr{op: op, left: left, right: right}
}

type binaryExpr struct {
	op    Op
	left  Expr
	right Expr
}

func (e *binaryExpr) Name() string {
	return e.String()
}

func (e *binaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.left, e.op, e.right)
}

func (e *binaryExpr) ResolveType(schema types.Schema) (types.DataType, error) {
	lt, err := e.left.ResolveType(schema)
	if err != nil {
		return "", err
	}
	rt, err := e.right.ResolveType(schema)
	if err != nil {
		return "", err
	}
	switch {
	case e.op.arithmetic():
		if !lt.Numeric() || !rt.Numeric() {
			return "", fmt.Errorf("operator %s requires numeric operands, got %s and %s", e.op, lt, rt)
		}
		if lt == types.Float64 || rt == types.Float64 || e.op == OpDiv {
			return types.Float64, nil
		}
		return types.Int64, nil
	case e.op.comparison():
		if lt != rt && !(lt.Numeric() && rt.Numeric()) {
			return "", fmt.Errorf("operator %s requires comparable operands, got %s and %s", e.op, lt, rt)
		}
		return types.Bool, nil
	case e.op == OpAnd || e.op == OpOr:
		if lt != types.Bool || rt != types.Bool {
			return "", fmt.Errorf("operator %s requires boolean operands, got %s and %s", e.op, lt, rt)
		}
		return types.Bool, nil
	}
	return "", fmt.Errorf("unknown operator %q", e.op)
}

func (e *binaryExpr) Eval(in Input) (column.Block, error) {
	lb, err := e.left.Eval(in)
	if err != nil {
		return nil, err
	}
	rb, err := e.right.Eval(in)
	if err != nil {
		return nil, err
	}
	if lb.Len() != rb.Len() {
		return nil, fmt.Errorf("operator %s: operand lengths differ (%d vs %d)", e.op, lb.Len(), rb.Len())
	}

	n := lb.Len()
	out := make([]interface{}, n)
	for i := 0; i < n; i++ {
		lv, lok := lb.Value(i)
		rv, rok := rb.Value(i)
		if !lok || !rok {
			continue // null propagates
		}
		v, err := applyBinary(e.op, lv, rv)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}

	dt, err := outputType(e.op, lb.DataType(), rb.DataType())
	if err != nil {
		return nil, err
	}
	return column.FromValues(dt, out)
}

func outputType(op Op, lt, rt types.DataType) (types.DataType, error) {
	switch {
	case op.arithmetic():
		if lt == types.Float64 || rt == types.Float64 || op == OpDiv {
			return types.Float64, nil
		}
		return types.Int64, nil
	case op.comparison(), op == OpAnd, op == OpOr:
		return types.Bool, nil
	}
	return "", fmt.Errorf("unknown operator %q", op)
}

func applyBinary(op Op, lv, rv interface{}) (interface{}, error) {
	switch {
	case op.arithmetic():
		return applyArithmetic(op, lv, rv)
	case op.comparison():
		return applyComparison(op, lv, rv)
	case op == OpAnd, op == OpOr:
		lb, lok := lv.(bool)
		rb, rok := rv.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("operator %s requires boolean operands, got %T and %T", op, lv, rv)
		}
		if op == OpAnd {
			return lb && rb, nil
		}
		return lb || rb, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func applyArithmetic(op Op, lv, rv interface{}) (interface{}, error) {
	li, lIsInt := lv.(int64)
	ri, rIsInt := rv.(int64)
	if lIsInt && rIsInt && op != OpDiv {
		switch op {
		case OpAdd:
			return li + ri, nil
		case OpSub:
			return li - ri, nil
		case OpMul:
			return li * ri, nil
		}
	}
	lf, err := toFloat(lv)
	if err != nil {
		return nil, err
	}
	rf, err := toFloat(rv)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpAdd:
		return lf + rf, nil
	case OpSub:
		return lf - rf, nil
	case OpMul:
		return lf * rf, nil
	case OpDiv:
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func applyComparison(op Op, lv, rv interface{}) (interface{}, error) {
	cmp, err := compareValues(lv, rv)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGe:
		return cmp >= 0, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func compareValues(lv, rv interface{}) (int, error) {
	switch l := lv.(type) {
	case string:
		r, ok := rv.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %T", rv)
		}
		switch {
		case l < r:
			return -1, nil
		case l > r:
			return 1, nil
		}
		return 0, nil
	case bool:
		r, ok := rv.(bool)
		if !ok {
			return 0, fmt.Errorf("cannot compare bool with %T", rv)
		}
		return boolOrder(l) - boolOrder(r), nil
	}
	lf, err := toFloat(lv)
	if err != nil {
		return 0, err
	}
	rf, err := toFloat(rv)
	if err != nil {
		return 0, err
	}
	switch {
	case lf < rf:
		return -1, nil
	case lf > rf:
		return 1, nil
	}
	return 0, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("value %T is not numeric", v)
}

func boolOrder(v bool) int {
	if v {
		return 1
	}
	return 0
}
