package partition

import (
	"dataframe-engine/internal/column"
	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/expr"
	"dataframe-engine/pkg/types"
)

// Agg groups rows by the group-by expressions and computes each listed
// aggregation. An empty group-by list aggregates the whole partition into
// a single group. Output has one row per distinct group key, in order of
// first appearance; null group keys form their own group.
func (p *Partition) Agg(aggs []expr.AggExpr, groupBy []expr.Expr) (*Partition, error) {
	if len(aggs) == 0 {
		return nil, dferrors.NewPlanError("aggregate with no aggregations")
	}

	keyCols := make([]column.Block, len(groupBy))
	for i, e := range groupBy {
		b, err := e.Eval(p)
		if err != nil {
			return nil, dferrors.NewSchemaError("evaluating group key %s: %v", e, err)
		}
		keyCols[i] = b
	}

	groups, firstRow := groupRows(keyCols, p.Len())

	fields := make([]types.Field, 0, len(groupBy)+len(aggs))
	blocks := make([]column.Block, 0, len(groupBy)+len(aggs))
	for i, e := range groupBy {
		fields = append(fields, types.Field{Name: e.Name(), Type: keyCols[i].DataType()})
		blocks = append(blocks, keyCols[i].Take(firstRow))
	}

	for _, a := range aggs {
		in, err := a.Input.Eval(p)
		if err != nil {
			return nil, dferrors.NewSchemaError("evaluating aggregation input %s: %v", a.Input, err)
		}
		b, err := accumulate(a, in, groups)
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.Field{Name: a.Name(), Type: b.DataType()})
		blocks = append(blocks, b)
	}

	return New(p.id, types.NewSchema(fields...), blocks)
}

// groupRows assigns each row to a group by hashing the key columns, and
// returns per-group row lists plus the first row index of each group.
// With no key columns every row lands in one group (present even for an
// empty partition, matching single-group aggregate semantics).
func groupRows(keyCols []column.Block, numRows int) (groups [][]int, firstRow []int) {
	if len(keyCols) == 0 {
		all := make([]int, numRows)
		for i := range all {
			all[i] = i
		}
		return [][]int{all}, []int{0}
	}

	byHash := make(map[uint64][]int) // hash -> group indices
	for i := 0; i < numRows; i++ {
		h := column.HashRow(keyCols, i)
		found := -1
		for _, g := range byHash[h] {
			if column.RowsEqual(keyCols, i, keyCols, firstRow[g]) {
				found = g
				break
			}
		}
		if found < 0 {
			found = len(groups)
			groups = append(groups, nil)
			firstRow = append(firstRow, i)
			byHash[h] = append(byHash[h], found)
		}
		groups[found] = append(groups[found], i)
	}
	return groups, firstRow
}

func accumulate(a expr.AggExpr, in column.Block, groups [][]int) (column.Block, error) {
	out := make([]interface{}, len(groups))
	for g, rows := range groups {
		v, err := accumulateGroup(a.Op, in, rows)
		if err != nil {
			return nil, err
		}
		out[g] = v
	}

	dt := in.DataType()
	switch a.Op {
	case expr.AggCount:
		dt = types.Int64
	case expr.AggMean:
		dt = types.Float64
	case expr.AggSum, expr.AggMin, expr.AggMax:
		// input type preserved
	default:
		return nil, dferrors.NewPlanError("unknown aggregation %q", a.Op)
	}
	b, err := column.FromValues(dt, out)
	if err != nil {
		return nil, dferrors.NewDataError("aggregation %s: %v", a.Op, err)
	}
	return b, nil
}

func accumulateGroup(op expr.AggOp, in column.Block, rows []int) (interface{}, error) {
	if op == expr.AggCount {
		count := int64(0)
		for _, i := range rows {
			if !in.IsNull(i) {
				count++
			}
		}
		return count, nil
	}

	var acc interface{}
	n := 0
	for _, i := range rows {
		v, ok := in.Value(i)
		if !ok {
			continue
		}
		n++
		if acc == nil {
			acc = v
			continue
		}
		switch op {
		case expr.AggSum, expr.AggMean:
			acc = addValues(acc, v)
		case expr.AggMin:
			if lessValues(v, acc) {
				acc = v
			}
		case expr.AggMax:
			if lessValues(acc, v) {
				acc = v
			}
		default:
			return nil, dferrors.NewPlanError("unknown aggregation %q", op)
		}
	}
	if acc == nil {
		return nil, nil // all-null group
	}
	if op == expr.AggMean {
		return asFloat(acc) / float64(n), nil
	}
	return acc, nil
}

func addValues(a, b interface{}) interface{} {
	ai, aOK := a.(int64)
	bi, bOK := b.(int64)
	if aOK && bOK {
		return ai + bi
	}
	return asFloat(a) + asFloat(b)
}

func lessValues(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		return av < b.(string)
	case bool:
		return !av && b.(bool)
	}
	return asFloat(a) < asFloat(b)
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
