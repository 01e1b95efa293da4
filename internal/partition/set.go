package partition

import (
	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/pkg/types"
)

// Set is a dense mapping from partition id to partition: ids are exactly
// 0..n-1 and all members share one schema.
type Set struct {
	parts []*Partition
}

// NewSet assembles a set from partitions already carrying dense ids in
// slice order.
func NewSet(parts []*Partition) (*Set, error) {
	if len(parts) == 0 {
		return nil, dferrors.NewDataError("partition set with no partitions")
	}
	schema := parts[0].Schema()
	for i, p := range parts {
		if p == nil {
			return nil, dferrors.NewDataError("partition %d missing from set", i)
		}
		if p.ID() != i {
			return nil, dferrors.NewDataError("partition at slot %d carries id %d", i, p.ID())
		}
		if !p.Schema().Equal(schema) {
			return nil, dferrors.NewSchemaError("partition %d schema [%s] differs from [%s]", i, p.Schema(), schema)
		}
	}
	return &Set{parts: parts}, nil
}

// NumPartitions returns the partition count.
func (s *Set) NumPartitions() int {
	return len(s.parts)
}

// Partition returns the partition with the given id.
func (s *Set) Partition(id int) (*Partition, error) {
	if id < 0 || id >= len(s.parts) {
		return nil, dferrors.NewDataError("partition id %d out of range [0, %d)", id, len(s.parts))
	}
	return s.parts[id], nil
}

// Partitions returns the partitions in id order.
func (s *Set) Partitions() []*Partition {
	return s.parts
}

// Schema returns the schema shared by all member partitions.
func (s *Set) Schema() types.Schema {
	return s.parts[0].Schema()
}

// Lens returns the per-partition row counts in id order.
func (s *Set) Lens() []int {
	lens := make([]int, len(s.parts))
	for i, p := range s.parts {
		lens[i] = p.Len()
	}
	return lens
}

// TotalRows returns the summed row count over all partitions.
func (s *Set) TotalRows() int {
	total := 0
	for _, p := range s.parts {
		total += p.Len()
	}
	return total
}

// Map builds a new set by applying fn to every partition in id order.
func (s *Set) Map(fn func(p *Partition) (*Partition, error)) (*Set, error) {
	out := make([]*Partition, len(s.parts))
	for i, p := range s.parts {
		mapped, err := fn(p)
		if err != nil {
			return nil, err
		}
		out[i] = mapped.WithID(i)
	}
	return NewSet(out)
}
