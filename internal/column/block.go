// Package column implements the typed, length-uniform arrays backing
// partition columns, plus the kernel primitives the expression layer and
// the shuffle operators need: slice, take, filter, compare, hash and
// quantiles. Blocks are immutable once built; every kernel returns a new
// block.
package column

import (
	"math"

	"github.com/segmentio/fasthash/fnv1a"

	"dataframe-engine/pkg/types"
)

// Block is a typed array of values with optional nulls.
type Block interface {
	Len() int
	DataType() types.DataType

	// Slice returns rows [start, end).
	Slice(start, end int) Block

	// Take returns the rows at the given indices, in index order.
	Take(indices []int) Block

	// Value returns the value at i and whether it is non-null.
	Value(i int) (interface{}, bool)

	// IsNull reports whether row i is null.
	IsNull(i int) bool

	// Compare orders row i against row j of another block of the same
	// type. Nulls order before every non-null value.
	Compare(i int, other Block, j int) int

	// Hash folds row i into the running fnv1a hash h. Null rows fold a
	// fixed marker so they land in one group.
	Hash(i int, h uint64) uint64
}

const nullHashMarker = 0x9e3779b97f4a7c15

type ordered interface {
	~int64 | ~float64 | ~string
}

type orderedBlock[T ordered] struct {
	dt     types.DataType
	values []T
	valid  []bool // nil means all rows valid
}

// NewInt64 builds an int64 block. valid may be nil for no nulls.
func NewInt64(values []int64, valid []bool) Block {
	return &orderedBlock[int64]{dt: types.Int64, values: values, valid: valid}
}

// NewFloat64 builds a float64 block. valid may be nil for no nulls.
func NewFloat64(values []float64, valid []bool) Block {
	return &orderedBlock[float64]{dt: types.Float64, values: values, valid: valid}
}

// NewString builds a string block. valid may be nil for no nulls.
func NewString(values []string, valid []bool) Block {
	return &orderedBlock[string]{dt: types.String, values: values, valid: valid}
}

func (b *orderedBlock[T]) Len() int {
	return len(b.values)
}

func (b *orderedBlock[T]) DataType() types.DataType {
	return b.dt
}

func (b *orderedBlock[T]) Slice(start, end int) Block {
	out := &orderedBlock[T]{dt: b.dt, values: b.values[start:end]}
	if b.valid != nil {
		out.valid = b.valid[start:end]
	}
	return out
}

func (b *orderedBlock[T]) Take(indices []int) Block {
	values := make([]T, len(indices))
	var valid []bool
	if b.valid != nil {
		valid = make([]bool, len(indices))
	}
	for out, i := range indices {
		values[out] = b.values[i]
		if valid != nil {
			valid[out] = b.valid[i]
		}
	}
	return &orderedBlock[T]{dt: b.dt, values: values, valid: valid}
}

func (b *orderedBlock[T]) Value(i int) (interface{}, bool) {
	if b.IsNull(i) {
		return nil, false
	}
	return b.values[i], true
}

func (b *orderedBlock[T]) IsNull(i int) bool {
	return b.valid != nil && !b.valid[i]
}

func (b *orderedBlock[T]) Compare(i int, other Block, j int) int {
	o := other.(*orderedBlock[T])
	in, jn := b.IsNull(i), o.IsNull(j)
	if in || jn {
		return boolOrder(jn) - boolOrder(in)
	}
	vi, vj := b.values[i], o.values[j]
	switch {
	case vi < vj:
		return -1
	case vi > vj:
		return 1
	}
	return 0
}

func (b *orderedBlock[T]) Hash(i int, h uint64) uint64 {
	if b.IsNull(i) {
		return fnv1a.AddUint64(h, nullHashMarker)
	}
	switch v := interface{}(b.values[i]).(type) {
	case int64:
		return fnv1a.AddUint64(h, uint64(v))
	case float64:
		return fnv1a.AddUint64(h, math.Float64bits(v))
	case string:
		return fnv1a.AddString64(h, v)
	}
	return h
}

// boolBlock stores booleans; kept separate from the ordered blocks since
// bool does not satisfy an ordering constraint.
type boolBlock struct {
	values []bool
	valid  []bool
}

// NewBool builds a bool block. valid may be nil for no nulls.
func NewBool(values []bool, valid []bool) Block {
	return &boolBlock{values: values, valid: valid}
}

func (b *boolBlock) Len() int {
	return len(b.values)
}

func (b *boolBlock) DataType() types.DataType {
	return types.Bool
}

func (b *boolBlock) Slice(start, end int) Block {
	out := &boolBlock{values: b.values[start:end]}
	if b.valid != nil {
		out.valid = b.valid[start:end]
	}
	return out
}

func (b *boolBlock) Take(indices []int) Block {
	values := make([]bool, len(indices))
	var valid []bool
	if b.valid != nil {
		valid = make([]bool, len(indices))
	}
	for out, i := range indices {
		values[out] = b.values[i]
		if valid != nil {
			valid[out] = b.valid[i]
		}
	}
	return &boolBlock{values: values, valid: valid}
}

func (b *boolBlock) Value(i int) (interface{}, bool) {
	if b.IsNull(i) {
		return nil, false
	}
	return b.values[i], true
}

func (b *boolBlock) IsNull(i int) bool {
	return b.valid != nil && !b.valid[i]
}

func (b *boolBlock) Compare(i int, other Block, j int) int {
	o := other.(*boolBlock)
	in, jn := b.IsNull(i), o.IsNull(j)
	if in || jn {
		return boolOrder(jn) - boolOrder(in)
	}
	return boolOrder(b.values[i]) - boolOrder(o.values[j])
}

func (b *boolBlock) Hash(i int, h uint64) uint64 {
	if b.IsNull(i) {
		return fnv1a.AddUint64(h, nullHashMarker)
	}
	return fnv1a.AddUint64(h, uint64(boolOrder(b.values[i])))
}

func boolOrder(v bool) int {
	if v {
		return 1
	}
	return 0
}

// HashSeed is the initial value for row hashing.
const HashSeed = fnv1a.Init64

// Truths extracts the boolean values of a mask block; null entries come
// back false. Returns false when the block is not boolean.
func Truths(b Block) ([]bool, bool) {
	mask, ok := b.(*boolBlock)
	if !ok {
		return nil, false
	}
	out := make([]bool, mask.Len())
	for i := range out {
		out[i] = mask.values[i] && !mask.IsNull(i)
	}
	return out, true
}
