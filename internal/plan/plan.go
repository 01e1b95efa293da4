package plan

import (
	"sort"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/expr"
	"dataframe-engine/internal/partition"
	"dataframe-engine/internal/sources"
	"dataframe-engine/pkg/types"
)

// Plan is a DAG of nodes with a designated root. Nodes are added
// leaves-first through the builder methods, which compute each node's
// output schema and partition count from its children.
type Plan struct {
	nodes  map[int]*Node
	root   int
	nextID int
}

// New creates an empty plan.
func New() *Plan {
	return &Plan{nodes: make(map[int]*Node), root: -1, nextID: 1}
}

// Node returns the node with the given id.
func (p *Plan) Node(id int) (*Node, error) {
	n, ok := p.nodes[id]
	if !ok {
		return nil, dferrors.NewPlanError("unknown node %d", id)
	}
	return n, nil
}

// Root returns the root node.
func (p *Plan) Root() (*Node, error) {
	return p.Node(p.root)
}

// Nodes returns all nodes in id order.
func (p *Plan) Nodes() []*Node {
	out := make([]*Node, 0, len(p.nodes))
	for _, n := range p.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (p *Plan) add(n *Node) *Node {
	if n.ID == 0 {
		n.ID = p.nextID
	}
	if n.ID >= p.nextID {
		p.nextID = n.ID + 1
	}
	p.nodes[n.ID] = n
	p.root = n.ID
	return n
}

// AddScan appends a Scan leaf with the declared schema. The partition
// count comes from the source.
func (p *Plan) AddScan(schema types.Schema, src sources.SourceInfo) (*Node, error) {
	if err := schema.Validate(); err != nil {
		return nil, dferrors.NewSchemaError("scan schema: %v", err)
	}
	if src.NumPartitions() <= 0 {
		return nil, dferrors.NewPlanError("scan source declares %d partitions", src.NumPartitions())
	}
	return p.add(&Node{
		Kind:         KindScan,
		OutputSchema: schema,
		Parts:        src.NumPartitions(),
		Scan:         &ScanArgs{Source: src},
	}), nil
}

// AddProjection appends a Projection over child.
func (p *Plan) AddProjection(child *Node, exprs []expr.Expr) (*Node, error) {
	schema, err := expr.OutputSchema(exprs, child.OutputSchema)
	if err != nil {
		return nil, dferrors.NewSchemaError("projection: %v", err)
	}
	return p.add(&Node{
		Kind:         KindProjection,
		Children:     []int{child.ID},
		OutputSchema: schema,
		Parts:        child.Parts,
		Projection:   &ProjectionArgs{Exprs: exprs},
	}), nil
}

// AddFilter appends a Filter over child.
func (p *Plan) AddFilter(child *Node, predicate expr.Expr) (*Node, error) {
	dt, err := predicate.ResolveType(child.OutputSchema)
	if err != nil {
		return nil, dferrors.NewSchemaError("filter predicate: %v", err)
	}
	if dt != types.Bool {
		return nil, dferrors.NewSchemaError("filter predicate %s is %s, not bool", predicate, dt)
	}
	return p.add(&Node{
		Kind:         KindFilter,
		Children:     []int{child.ID},
		OutputSchema: child.OutputSchema,
		Parts:        child.Parts,
		Filter:       &FilterArgs{Predicate: predicate},
	}), nil
}

// AddLocalLimit appends a per-partition limit over child.
func (p *Plan) AddLocalLimit(child *Node, num int) (*Node, error) {
	if num < 0 {
		return nil, dferrors.NewPlanError("limit of %d rows", num)
	}
	return p.add(&Node{
		Kind:         KindLocalLimit,
		Children:     []int{child.ID},
		OutputSchema: child.OutputSchema,
		Parts:        child.Parts,
		LocalLimit:   &LimitArgs{Num: num},
	}), nil
}

// AddLocalAggregate appends a per-partition aggregation over child.
func (p *Plan) AddLocalAggregate(child *Node, aggs []expr.AggExpr, groupBy []expr.Expr) (*Node, error) {
	if len(aggs) == 0 {
		return nil, dferrors.NewPlanError("aggregate with no aggregations")
	}
	fields := make([]types.Field, 0, len(groupBy)+len(aggs))
	for _, e := range groupBy {
		f, err := expr.OutputField(e, child.OutputSchema)
		if err != nil {
			return nil, dferrors.NewSchemaError("group key: %v", err)
		}
		fields = append(fields, f)
	}
	for _, a := range aggs {
		f, err := a.OutputField(child.OutputSchema)
		if err != nil {
			return nil, dferrors.NewSchemaError("aggregation: %v", err)
		}
		fields = append(fields, f)
	}
	return p.add(&Node{
		Kind:         KindLocalAggregate,
		Children:     []int{child.ID},
		OutputSchema: types.NewSchema(fields...),
		Parts:        child.Parts,
		Aggregate:    &AggregateArgs{Aggs: aggs, GroupBy: groupBy},
	}), nil
}

// AddJoin appends an equality join of left and right.
func (p *Plan) AddJoin(left, right *Node, leftOn, rightOn []expr.Expr, how partition.JoinType) (*Node, error) {
	if !how.Valid() {
		return nil, dferrors.NewPlanError("unknown join type %q", how)
	}
	if left.Parts != right.Parts {
		return nil, dferrors.NewPlanError("join children declare %d and %d partitions", left.Parts, right.Parts)
	}
	schema, err := JoinOutputSchema(left.OutputSchema, right.OutputSchema, leftOn, rightOn)
	if err != nil {
		return nil, err
	}
	return p.add(&Node{
		Kind:         KindJoin,
		Children:     []int{left.ID, right.ID},
		OutputSchema: schema,
		Parts:        left.Parts,
		Join:         &JoinArgs{LeftOn: leftOn, RightOn: rightOn, How: how},
	}), nil
}

// AddGlobalLimit appends a cross-partition limit over child.
func (p *Plan) AddGlobalLimit(child *Node, num int) (*Node, error) {
	if num < 0 {
		return nil, dferrors.NewPlanError("limit of %d rows", num)
	}
	return p.add(&Node{
		Kind:         KindGlobalLimit,
		Children:     []int{child.ID},
		OutputSchema: child.OutputSchema,
		Parts:        child.Parts,
		GlobalLimit:  &LimitArgs{Num: num},
	}), nil
}

// AddRepartition appends a random or hash repartition over child.
func (p *Plan) AddRepartition(child *Node, scheme PartitionScheme, exprs []expr.Expr, numPartitions int) (*Node, error) {
	if numPartitions <= 0 {
		return nil, dferrors.NewPlanError("repartition to %d partitions", numPartitions)
	}
	if scheme == SchemeHash && len(exprs) == 0 {
		return nil, dferrors.NewPlanError("hash repartition requires key expressions")
	}
	if scheme != SchemeHash && scheme != SchemeRandom {
		return nil, dferrors.NewPlanError("unknown partition scheme %q", scheme)
	}
	return p.add(&Node{
		Kind:         KindRepartition,
		Children:     []int{child.ID},
		OutputSchema: child.OutputSchema,
		Parts:        numPartitions,
		Repartition:  &RepartitionArgs{Scheme: scheme, Exprs: exprs},
	}), nil
}

// AddSort appends a range-partitioned sort over child.
func (p *Plan) AddSort(child *Node, keys []expr.SortKey, numPartitions int) (*Node, error) {
	if len(keys) == 0 {
		return nil, dferrors.NewPlanError("sort requires at least one key")
	}
	if numPartitions <= 0 {
		return nil, dferrors.NewPlanError("sort to %d partitions", numPartitions)
	}
	return p.add(&Node{
		Kind:         KindSort,
		Children:     []int{child.ID},
		OutputSchema: child.OutputSchema,
		Parts:        numPartitions,
		Sort:         &SortArgs{Keys: keys},
	}), nil
}

// AddCoalesce appends a partition-count reduction over child.
func (p *Plan) AddCoalesce(child *Node, numPartitions int) (*Node, error) {
	if numPartitions <= 0 || numPartitions > child.Parts {
		return nil, dferrors.NewPlanError("cannot coalesce %d partitions to %d", child.Parts, numPartitions)
	}
	return p.add(&Node{
		Kind:         KindCoalesce,
		Children:     []int{child.ID},
		OutputSchema: child.OutputSchema,
		Parts:        numPartitions,
	}), nil
}

// SetRoot overrides the root node, which otherwise tracks the most
// recently added node.
func (p *Plan) SetRoot(id int) error {
	if _, ok := p.nodes[id]; !ok {
		return dferrors.NewPlanError("unknown node %d", id)
	}
	p.root = id
	return nil
}

// Consumers returns, for every node id, the ids of the nodes that read
// its output.
func (p *Plan) Consumers() map[int][]int {
	out := make(map[int][]int, len(p.nodes))
	for _, n := range p.Nodes() {
		for _, child := range n.Children {
			out[child] = append(out[child], n.ID)
		}
	}
	return out
}

// TopoOrder returns the nodes reachable from the root, children before
// parents. A cycle is a PLAN_ERROR.
func (p *Plan) TopoOrder() ([]*Node, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[int]int, len(p.nodes))
	var order []*Node

	var visit func(id int) error
	visit = func(id int) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return dferrors.NewPlanError("plan contains a cycle through node %d", id)
		}
		state[id] = visiting
		n, err := p.Node(id)
		if err != nil {
			return err
		}
		for _, child := range n.Children {
			if err := visit(child); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, n)
		return nil
	}

	if p.root < 0 {
		return nil, dferrors.NewPlanError("plan has no root")
	}
	if err := visit(p.root); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate checks the structural invariants: known kinds, declared
// schemas and partition counts, existing children, and acyclicity.
func (p *Plan) Validate() error {
	order, err := p.TopoOrder()
	if err != nil {
		return err
	}
	for _, n := range order {
		if !n.Kind.Valid() {
			return dferrors.NewPlanError("unknown node kind %q", n.Kind).WithNode(n.ID)
		}
		if err := n.OutputSchema.Validate(); err != nil {
			return dferrors.NewSchemaError("declared schema: %v", err).WithNode(n.ID)
		}
		if n.Parts <= 0 {
			return dferrors.NewPlanError("declares %d partitions", n.Parts).WithNode(n.ID)
		}
		wantChildren := 1
		switch n.Kind {
		case KindScan:
			wantChildren = 0
		case KindJoin:
			wantChildren = 2
		}
		if len(n.Children) != wantChildren {
			return dferrors.NewPlanError("%s node has %d children, expected %d",
				n.Kind, len(n.Children), wantChildren).WithNode(n.ID)
		}
	}
	return nil
}
