// Package partition implements the columnar table fragments the engine
// executes over, and the capability surface its operators call:
// expression evaluation, filtering, head/sample, aggregation, joins,
// merging and sorting. Partitions are immutable; every operation returns
// a new partition.
package partition

import (
	"sort"

	"dataframe-engine/internal/column"
	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/expr"
	"dataframe-engine/pkg/types"
)

// Partition is an immutable columnar table fragment: a partition id, a
// schema, and one block per schema field, all of equal length.
type Partition struct {
	id     int
	schema types.Schema
	blocks []column.Block
}

// New builds a partition after validating that blocks line up with the
// schema and share one length. Ragged input is a DATA_ERROR.
func New(id int, schema types.Schema, blocks []column.Block) (*Partition, error) {
	if err := schema.Validate(); err != nil {
		return nil, dferrors.NewSchemaError("invalid partition schema: %v", err)
	}
	if len(blocks) != schema.Len() {
		return nil, dferrors.NewSchemaError("partition has %d columns, schema declares %d", len(blocks), schema.Len())
	}
	for i, b := range blocks {
		if b.DataType() != schema.Fields[i].Type {
			return nil, dferrors.NewSchemaError("column %q is %s, schema declares %s",
				schema.Fields[i].Name, b.DataType(), schema.Fields[i].Type)
		}
		if b.Len() != blocks[0].Len() {
			return nil, dferrors.NewDataError("ragged partition: column %q has %d rows, expected %d",
				schema.Fields[i].Name, b.Len(), blocks[0].Len())
		}
	}
	return &Partition{id: id, schema: schema, blocks: blocks}, nil
}

// FromValues builds a partition from loosely typed per-column values, in
// schema order.
func FromValues(id int, schema types.Schema, data map[string][]interface{}) (*Partition, error) {
	blocks := make([]column.Block, 0, schema.Len())
	for _, f := range schema.Fields {
		values, ok := data[f.Name]
		if !ok {
			return nil, dferrors.NewSchemaError("missing values for column %q", f.Name)
		}
		b, err := column.FromValues(f.Type, values)
		if err != nil {
			return nil, dferrors.NewDataError("column %q: %v", f.Name, err)
		}
		blocks = append(blocks, b)
	}
	return New(id, schema, blocks)
}

// Empty returns a zero-row partition with the given schema.
func Empty(id int, schema types.Schema) (*Partition, error) {
	blocks := make([]column.Block, schema.Len())
	for i, f := range schema.Fields {
		blocks[i] = column.NewEmpty(f.Type)
	}
	return New(id, schema, blocks)
}

// ID returns the partition id.
func (p *Partition) ID() int {
	return p.id
}

// Schema returns the partition schema.
func (p *Partition) Schema() types.Schema {
	return p.schema
}

// Len returns the row count.
func (p *Partition) Len() int {
	if len(p.blocks) == 0 {
		return 0
	}
	return p.blocks[0].Len()
}

// NumRows implements expr.Input.
func (p *Partition) NumRows() int {
	return p.Len()
}

// Column implements expr.Input, resolving a block by column name.
func (p *Partition) Column(name string) (column.Block, bool) {
	i := p.schema.IndexOf(name)
	if i < 0 {
		return nil, false
	}
	return p.blocks[i], true
}

// Blocks returns the partition's blocks in schema order.
func (p *Partition) Blocks() []column.Block {
	return p.blocks
}

// WithID returns the same partition under a different partition id.
func (p *Partition) WithID(id int) *Partition {
	return &Partition{id: id, schema: p.schema, blocks: p.blocks}
}

// Head returns the first min(k, len) rows.
func (p *Partition) Head(k int) *Partition {
	if k > p.Len() {
		k = p.Len()
	}
	if k < 0 {
		k = 0
	}
	return p.slice(0, k)
}

// slice returns rows [start, end).
func (p *Partition) slice(start, end int) *Partition {
	blocks := make([]column.Block, len(p.blocks))
	for i, b := range p.blocks {
		blocks[i] = b.Slice(start, end)
	}
	return &Partition{id: p.id, schema: p.schema, blocks: blocks}
}

// Take returns the rows at the given indices, in index order.
func (p *Partition) Take(indices []int) *Partition {
	blocks := make([]column.Block, len(p.blocks))
	for i, b := range p.blocks {
		blocks[i] = b.Take(indices)
	}
	return &Partition{id: p.id, schema: p.schema, blocks: blocks}
}

// Sample returns up to k rows spread evenly across the partition. The
// stride sample is deterministic, which keeps sort boundaries stable
// between runs over the same data.
func (p *Partition) Sample(k int) *Partition {
	n := p.Len()
	if n <= k {
		return p
	}
	indices := make([]int, k)
	for i := range indices {
		indices[i] = i * n / k
	}
	return p.Take(indices)
}

// EvalExpressionList evaluates an ordered expression list, producing a
// partition whose schema is the expression-list schema.
func (p *Partition) EvalExpressionList(exprs []expr.Expr) (*Partition, error) {
	if len(exprs) == 0 {
		return nil, dferrors.NewPlanError("empty expression list")
	}
	fields := make([]types.Field, 0, len(exprs))
	blocks := make([]column.Block, 0, len(exprs))
	for _, e := range exprs {
		b, err := e.Eval(p)
		if err != nil {
			return nil, dferrors.NewSchemaError("evaluating %s: %v", e, err)
		}
		fields = append(fields, types.Field{Name: e.Name(), Type: b.DataType()})
		blocks = append(blocks, b)
	}
	return New(p.id, types.NewSchema(fields...), blocks)
}

// FilterByExpr retains the rows where the predicate is true. Null mask
// entries are treated as false.
func (p *Partition) FilterByExpr(predicate expr.Expr) (*Partition, error) {
	b, err := predicate.Eval(p)
	if err != nil {
		return nil, dferrors.NewSchemaError("evaluating predicate %s: %v", predicate, err)
	}
	mask, ok := column.Truths(b)
	if !ok {
		return nil, dferrors.NewSchemaError("predicate %s is %s, not bool", predicate, b.DataType())
	}
	indices := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			indices = append(indices, i)
		}
	}
	return p.Take(indices), nil
}

// SortByKeys returns the partition stably sorted by the given keys.
func (p *Partition) SortByKeys(keys []expr.SortKey) (*Partition, error) {
	cols := make([]column.Block, len(keys))
	desc := make([]bool, len(keys))
	for i, k := range keys {
		b, err := k.Expr.Eval(p)
		if err != nil {
			return nil, dferrors.NewSchemaError("evaluating sort key %s: %v", k.Expr, err)
		}
		cols[i] = b
		desc[i] = k.Desc
	}
	order := make([]int, p.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return column.CompareRows(cols, order[x], cols, order[y], desc) < 0
	})
	return p.Take(order), nil
}

// Merge concatenates partitions in input order under the first
// partition's schema and id. With verifyID set, all inputs must carry the
// same partition id.
func Merge(parts []*Partition, verifyID bool) (*Partition, error) {
	if len(parts) == 0 {
		return nil, dferrors.NewDataError("merge of zero partitions")
	}
	first := parts[0]
	for _, p := range parts[1:] {
		if !p.schema.Equal(first.schema) {
			return nil, dferrors.NewSchemaError("merge schema mismatch: [%s] vs [%s]", first.schema, p.schema)
		}
		if verifyID && p.id != first.id {
			return nil, dferrors.NewDataError("merge of partitions %d and %d", first.id, p.id)
		}
	}
	blocks := make([]column.Block, first.schema.Len())
	for c := range blocks {
		toConcat := make([]column.Block, len(parts))
		for i, p := range parts {
			toConcat[i] = p.blocks[c]
		}
		merged, err := column.Concat(toConcat...)
		if err != nil {
			return nil, dferrors.NewDataError("merging column %q: %v", first.schema.Fields[c].Name, err)
		}
		blocks[c] = merged
	}
	return New(first.id, first.schema, blocks)
}

// Quantiles computes m-1 boundary rows splitting this partition's rows
// into m equal-probability buckets under the given per-column directions.
// The partition's columns are the sort-key columns. Empty input is a
// DATA_ERROR.
func (p *Partition) Quantiles(m int, desc []bool) (*Partition, error) {
	if p.Len() == 0 {
		return nil, dferrors.NewDataError("quantiles of an empty partition")
	}
	if len(p.blocks) == 1 && (len(desc) == 0 || !desc[0]) {
		b, err := column.Quantiles(p.blocks[0], m)
		if err != nil {
			return nil, dferrors.NewDataError("quantiles: %v", err)
		}
		return New(p.id, p.schema, []column.Block{b})
	}
	order := make([]int, p.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return column.CompareRows(p.blocks, order[x], p.blocks, order[y], desc) < 0
	})
	boundaries := make([]int, 0, m-1)
	for t := 1; t < m; t++ {
		boundaries = append(boundaries, order[t*p.Len()/m])
	}
	return p.Take(boundaries), nil
}

// Row exports row i as loosely typed values in schema order. Used by the
// CLI printer and tests.
func (p *Partition) Row(i int) []interface{} {
	out := make([]interface{}, len(p.blocks))
	for c, b := range p.blocks {
		if v, ok := b.Value(i); ok {
			out[c] = v
		}
	}
	return out
}
