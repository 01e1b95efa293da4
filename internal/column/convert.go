package column

import (
	"fmt"
	"sort"

	"dataframe-engine/pkg/types"
)

// FromValues converts loosely typed values (as produced by source readers
// and tests) into a typed block. nil entries become nulls. Integers widen
// to int64, and ints are accepted for float columns.
func FromValues(dt types.DataType, values []interface{}) (Block, error) {
	valid := make([]bool, len(values))
	hasNull := false
	for i, v := range values {
		valid[i] = v != nil
		if v == nil {
			hasNull = true
		}
	}
	if !hasNull {
		valid = nil
	}

	switch dt {
	case types.Int64:
		out := make([]int64, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			switch n := v.(type) {
			case int64:
				out[i] = n
			case int:
				out[i] = int64(n)
			case int32:
				out[i] = int64(n)
			default:
				return nil, fmt.Errorf("row %d: cannot store %T in int64 column", i, v)
			}
		}
		return NewInt64(out, valid), nil
	case types.Float64:
		out := make([]float64, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			switch n := v.(type) {
			case float64:
				out[i] = n
			case float32:
				out[i] = float64(n)
			case int64:
				out[i] = float64(n)
			case int:
				out[i] = float64(n)
			default:
				return nil, fmt.Errorf("row %d: cannot store %T in float64 column", i, v)
			}
		}
		return NewFloat64(out, valid), nil
	case types.String:
		out := make([]string, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("row %d: cannot store %T in string column", i, v)
			}
			out[i] = s
		}
		return NewString(out, valid), nil
	case types.Bool:
		out := make([]bool, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("row %d: cannot store %T in bool column", i, v)
			}
			out[i] = b
		}
		return NewBool(out, valid), nil
	}
	return nil, fmt.Errorf("unsupported column type %q", dt)
}

// NewEmpty returns a zero-length block of the given type.
func NewEmpty(dt types.DataType) Block {
	b, _ := FromValues(dt, nil)
	return b
}

// Values exports a block back into loosely typed values, nil for nulls.
func Values(b Block) []interface{} {
	out := make([]interface{}, b.Len())
	for i := range out {
		if v, ok := b.Value(i); ok {
			out[i] = v
		}
	}
	return out
}

// Concat appends blocks of one type into a single block, preserving input
// order.
func Concat(blocks ...Block) (Block, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("concat of zero blocks")
	}
	dt := blocks[0].DataType()
	total := 0
	for _, b := range blocks {
		if b.DataType() != dt {
			return nil, fmt.Errorf("concat type mismatch: %q vs %q", dt, b.DataType())
		}
		total += b.Len()
	}
	values := make([]interface{}, 0, total)
	for _, b := range blocks {
		values = append(values, Values(b)...)
	}
	return FromValues(dt, values)
}

// Quantiles returns m-1 boundary values splitting the block's sorted
// values into m equal-probability buckets. Nulls take part and sort
// before every non-null value. The block must be non-empty.
func Quantiles(b Block, m int) (Block, error) {
	n := b.Len()
	if n == 0 {
		return nil, fmt.Errorf("quantiles of an empty block")
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return b.Compare(order[x], b, order[y]) < 0
	})
	boundaries := make([]int, 0, m-1)
	for t := 1; t < m; t++ {
		boundaries = append(boundaries, order[t*n/m])
	}
	return b.Take(boundaries), nil
}
