package partition

import (
	"dataframe-engine/internal/column"
	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/expr"
	"dataframe-engine/pkg/types"
)

// JoinType selects the join semantics.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinOuter JoinType = "outer"
)

// Valid reports whether t is a known join type.
func (t JoinType) Valid() bool {
	switch t {
	case JoinInner, JoinLeft, JoinRight, JoinOuter:
		return true
	}
	return false
}

// Join equality-joins p with other on leftOn/rightOn key expressions.
// Null keys never match. Output row order is left-driven for inner and
// left joins, right-driven for right joins; outer joins emit the
// left-driven rows followed by unmatched right rows. Duplicate keys
// produce the Cartesian product in left-major input order. The output
// schema is declared by the caller; its names resolve against the left
// side first, then the right.
func (p *Partition) Join(other *Partition, leftOn, rightOn []expr.Expr, outputSchema types.Schema, how JoinType) (*Partition, error) {
	if len(leftOn) == 0 || len(leftOn) != len(rightOn) {
		return nil, dferrors.NewPlanError("join requires matching key lists, got %d and %d", len(leftOn), len(rightOn))
	}

	leftKeys, err := evalKeys(p, leftOn)
	if err != nil {
		return nil, err
	}
	rightKeys, err := evalKeys(other, rightOn)
	if err != nil {
		return nil, err
	}
	for i := range leftKeys {
		if leftKeys[i].DataType() != rightKeys[i].DataType() {
			return nil, dferrors.NewSchemaError("join key %s is %s on the left, %s on the right",
				leftOn[i], leftKeys[i].DataType(), rightKeys[i].DataType())
		}
	}

	// Hash the right side; nulls are excluded so they can never match.
	byHash := make(map[uint64][]int)
	for j := 0; j < other.Len(); j++ {
		if anyNull(rightKeys, j) {
			continue
		}
		h := column.HashRow(rightKeys, j)
		byHash[h] = append(byHash[h], j)
	}

	matches := func(i int) []int {
		if anyNull(leftKeys, i) {
			return nil
		}
		h := column.HashRow(leftKeys, i)
		var out []int
		for _, j := range byHash[h] {
			if column.RowsEqual(leftKeys, i, rightKeys, j) {
				out = append(out, j)
			}
		}
		return out
	}

	var leftIdx, rightIdx []int // -1 marks a null-padded side
	rightMatched := make([]bool, other.Len())
	for i := 0; i < p.Len(); i++ {
		js := matches(i)
		if len(js) == 0 {
			if how == JoinLeft || how == JoinOuter {
				leftIdx = append(leftIdx, i)
				rightIdx = append(rightIdx, -1)
			}
			continue
		}
		for _, j := range js {
			rightMatched[j] = true
			if how == JoinRight {
				continue // right joins are right-driven below
			}
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}

	switch how {
	case JoinRight:
		leftIdx = leftIdx[:0]
		rightIdx = rightIdx[:0]
		// Rebuild in right-row order so the output is right-driven.
		leftByRight := make(map[int][]int)
		for i := 0; i < p.Len(); i++ {
			for _, j := range matches(i) {
				leftByRight[j] = append(leftByRight[j], i)
			}
		}
		for j := 0; j < other.Len(); j++ {
			ls := leftByRight[j]
			if len(ls) == 0 {
				leftIdx = append(leftIdx, -1)
				rightIdx = append(rightIdx, j)
				continue
			}
			for _, i := range ls {
				leftIdx = append(leftIdx, i)
				rightIdx = append(rightIdx, j)
			}
		}
	case JoinOuter:
		for j := 0; j < other.Len(); j++ {
			if !rightMatched[j] {
				leftIdx = append(leftIdx, -1)
				rightIdx = append(rightIdx, j)
			}
		}
	case JoinInner, JoinLeft:
		// left-driven pass above is already complete
	default:
		return nil, dferrors.NewPlanError("unknown join type %q", how)
	}

	blocks := make([]column.Block, 0, outputSchema.Len())
	for _, f := range outputSchema.Fields {
		var src column.Block
		var idx []int
		if i := p.schema.IndexOf(f.Name); i >= 0 {
			src, idx = p.blocks[i], leftIdx
		} else if i := other.schema.IndexOf(f.Name); i >= 0 {
			src, idx = other.blocks[i], rightIdx
		} else {
			return nil, dferrors.NewSchemaError("join output column %q exists on neither side", f.Name)
		}
		blocks = append(blocks, takeWithNulls(src, idx))
	}
	return New(p.id, outputSchema, blocks)
}

func evalKeys(p *Partition, exprs []expr.Expr) ([]column.Block, error) {
	cols := make([]column.Block, len(exprs))
	for i, e := range exprs {
		b, err := e.Eval(p)
		if err != nil {
			return nil, dferrors.NewSchemaError("evaluating join key %s: %v", e, err)
		}
		cols[i] = b
	}
	return cols, nil
}

func anyNull(cols []column.Block, i int) bool {
	for _, c := range cols {
		if c.IsNull(i) {
			return true
		}
	}
	return false
}

// takeWithNulls gathers rows by index, emitting a null for the -1 indices
// left by unmatched join rows.
func takeWithNulls(src column.Block, indices []int) column.Block {
	values := make([]interface{}, len(indices))
	for out, i := range indices {
		if i < 0 {
			continue
		}
		if v, ok := src.Value(i); ok {
			values[out] = v
		}
	}
	b, _ := column.FromValues(src.DataType(), values)
	return b
}
