// Package plan defines the logical plan DAG the engine executes: typed
// node records with stable integer ids, the plan partitioner that splits
// the DAG into local pipelines and global barriers, and the JSON codec
// for serialized plans.
package plan

import (
	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/expr"
	"dataframe-engine/internal/partition"
	"dataframe-engine/internal/sources"
	"dataframe-engine/pkg/types"
)

// Kind tags a plan node variant.
type Kind string

const (
	KindScan           Kind = "scan"
	KindProjection     Kind = "projection"
	KindFilter         Kind = "filter"
	KindLocalLimit     Kind = "local_limit"
	KindLocalAggregate Kind = "local_aggregate"
	KindJoin           Kind = "join"
	KindGlobalLimit    Kind = "global_limit"
	KindRepartition    Kind = "repartition"
	KindSort           Kind = "sort"
	KindCoalesce       Kind = "coalesce"
)

// Global reports whether the node requires cross-partition coordination.
// Global nodes act as barriers between local pipelines.
func (k Kind) Global() bool {
	switch k {
	case KindGlobalLimit, KindRepartition, KindSort, KindCoalesce:
		return true
	}
	return false
}

// Valid reports whether k is a known node kind.
func (k Kind) Valid() bool {
	switch k {
	case KindScan, KindProjection, KindFilter, KindLocalLimit, KindLocalAggregate,
		KindJoin, KindGlobalLimit, KindRepartition, KindSort, KindCoalesce:
		return true
	}
	return false
}

// PartitionScheme selects how a repartition routes rows.
type PartitionScheme string

const (
	SchemeRandom PartitionScheme = "random"
	SchemeHash   PartitionScheme = "hash"
)

// Node is one vertex of the logical plan: a variant tag, children ids,
// the declared output schema and partition count, and the parameters of
// its variant. The parameter pointer matching Kind is set and the others
// are nil; a Coalesce node sets none, as its only parameter is Parts.
type Node struct {
	ID       int
	Kind     Kind
	Children []int

	// OutputSchema is the schema every partition this node produces
	// must carry.
	OutputSchema types.Schema

	// Parts is the node's declared partition count.
	Parts int

	Scan        *ScanArgs
	Projection  *ProjectionArgs
	Filter      *FilterArgs
	LocalLimit  *LimitArgs
	Aggregate   *AggregateArgs
	Join        *JoinArgs
	GlobalLimit *LimitArgs
	Repartition *RepartitionArgs
	Sort        *SortArgs
}

// ScanArgs parameterizes a Scan node.
type ScanArgs struct {
	Source sources.SourceInfo
}

// ProjectionArgs parameterizes a Projection node.
type ProjectionArgs struct {
	Exprs []expr.Expr
}

// FilterArgs parameterizes a Filter node.
type FilterArgs struct {
	Predicate expr.Expr
}

// LimitArgs parameterizes LocalLimit and GlobalLimit nodes.
type LimitArgs struct {
	Num int
}

// AggregateArgs parameterizes a LocalAggregate node.
type AggregateArgs struct {
	Aggs    []expr.AggExpr
	GroupBy []expr.Expr
}

// JoinArgs parameterizes a Join node.
type JoinArgs struct {
	LeftOn  []expr.Expr
	RightOn []expr.Expr
	How     partition.JoinType
}

// RepartitionArgs parameterizes a Repartition node. Exprs is required for
// the hash scheme and ignored for random.
type RepartitionArgs struct {
	Scheme PartitionScheme
	Exprs  []expr.Expr
}

// SortArgs parameterizes a Sort node.
type SortArgs struct {
	Keys []expr.SortKey
}

// JoinOutputSchema computes the schema a join produces: every left field,
// then every right field whose name is not already taken by a left field
// via the key equality. A non-key name collision is a SCHEMA_ERROR.
func JoinOutputSchema(left, right types.Schema, leftOn, rightOn []expr.Expr) (types.Schema, error) {
	rightKeyNames := make(map[string]struct{}, len(rightOn))
	for _, e := range rightOn {
		rightKeyNames[e.Name()] = struct{}{}
	}
	fields := make([]types.Field, 0, left.Len()+right.Len())
	fields = append(fields, left.Fields...)
	for _, f := range right.Fields {
		if _, isKey := rightKeyNames[f.Name]; isKey {
			continue
		}
		if left.IndexOf(f.Name) >= 0 {
			return types.Schema{}, dferrors.NewSchemaError("join would duplicate column %q", f.Name)
		}
		fields = append(fields, f)
	}
	return types.NewSchema(fields...), nil
}
