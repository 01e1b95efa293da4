package plan

import (
	"encoding/json"
	"math"

	"github.com/go-viper/mapstructure/v2"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/expr"
	"dataframe-engine/internal/partition"
	"dataframe-engine/internal/sources"
	"dataframe-engine/pkg/types"
)

// The serialized plan format is a flat list of typed node records with
// stable integer ids and child-id references:
//
//	{
//	  "root": 3,
//	  "nodes": [
//	    {"id": 1, "kind": "scan", "num_partitions": 2,
//	     "schema": {"fields": [{"name": "a", "type": "int64"}]},
//	     "params": {"source": {"type": "in_memory", "num_partitions": 2,
//	                           "data": {"a": [1, 2, 3, 4]}}}},
//	    {"id": 2, "kind": "filter", "children": [1],
//	     "params": {"predicate": {"op": "<", "left": {"op": "col", "name": "a"},
//	                              "right": {"op": "lit", "value": 3}}}},
//	    {"id": 3, "kind": "global_limit", "children": [2], "params": {"num": 1}}
//	  ]
//	}
//
// Schemas and partition counts of non-scan nodes are computed from their
// children; the records only declare operator parameters.

type planFile struct {
	Root  int          `mapstructure:"root"`
	Nodes []nodeRecord `mapstructure:"nodes"`
}

type nodeRecord struct {
	ID       int                    `mapstructure:"id"`
	Kind     string                 `mapstructure:"kind"`
	Children []int                  `mapstructure:"children"`
	Schema   *types.Schema          `mapstructure:"schema"`
	Params   map[string]interface{} `mapstructure:"params"`
}

// Unmarshal decodes a serialized plan.
func Unmarshal(data []byte) (*Plan, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, dferrors.Wrap(dferrors.NewPlanError("malformed plan document: %v", err), err)
	}
	var file planFile
	if err := decode(raw, &file); err != nil {
		return nil, dferrors.NewPlanError("malformed plan document: %v", err)
	}
	if len(file.Nodes) == 0 {
		return nil, dferrors.NewPlanError("plan document has no nodes")
	}

	records := make(map[int]nodeRecord, len(file.Nodes))
	for _, rec := range file.Nodes {
		if _, dup := records[rec.ID]; dup {
			return nil, dferrors.NewPlanError("duplicate node id %d", rec.ID)
		}
		records[rec.ID] = rec
	}

	p := New()
	built := make(map[int]*Node, len(file.Nodes))

	var build func(id int, trail map[int]bool) (*Node, error)
	build = func(id int, trail map[int]bool) (*Node, error) {
		if n, ok := built[id]; ok {
			return n, nil
		}
		if trail[id] {
			return nil, dferrors.NewPlanError("plan contains a cycle through node %d", id)
		}
		trail[id] = true
		rec, ok := records[id]
		if !ok {
			return nil, dferrors.NewPlanError("node %d references missing node", id)
		}
		children := make([]*Node, len(rec.Children))
		for i, childID := range rec.Children {
			child, err := build(childID, trail)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		delete(trail, id)
		n, err := buildNode(p, rec, children)
		if err != nil {
			return nil, err
		}
		built[id] = n
		return n, nil
	}

	root, err := build(file.Root, map[int]bool{})
	if err != nil {
		return nil, err
	}
	if err := p.SetRoot(root.ID); err != nil {
		return nil, err
	}
	return p, p.Validate()
}

func buildNode(p *Plan, rec nodeRecord, children []*Node) (*Node, error) {
	kind := Kind(rec.Kind)
	if !kind.Valid() {
		return nil, dferrors.NewPlanError("unknown node kind %q", rec.Kind).WithNode(rec.ID)
	}
	switch kind {
	case KindScan:
		if rec.Schema == nil {
			return nil, dferrors.NewPlanError("scan node declares no schema").WithNode(rec.ID)
		}
		src, err := decodeSource(rec.Params["source"], *rec.Schema)
		if err != nil {
			return nil, err
		}
		return p.AddScan(*rec.Schema, src)
	case KindProjection:
		exprs, err := decodeExprList(rec.Params["exprs"])
		if err != nil {
			return nil, err
		}
		return p.AddProjection(children[0], exprs)
	case KindFilter:
		pred, err := decodeExpr(rec.Params["predicate"])
		if err != nil {
			return nil, err
		}
		return p.AddFilter(children[0], pred)
	case KindLocalLimit, KindGlobalLimit:
		var args struct {
			Num int `mapstructure:"num"`
		}
		if err := decode(rec.Params, &args); err != nil {
			return nil, dferrors.NewPlanError("limit params: %v", err).WithNode(rec.ID)
		}
		if kind == KindLocalLimit {
			return p.AddLocalLimit(children[0], args.Num)
		}
		return p.AddGlobalLimit(children[0], args.Num)
	case KindLocalAggregate:
		aggs, err := decodeAggList(rec.Params["aggregations"])
		if err != nil {
			return nil, err
		}
		groupBy, err := decodeExprList(rec.Params["group_by"])
		if err != nil {
			return nil, err
		}
		return p.AddLocalAggregate(children[0], aggs, groupBy)
	case KindJoin:
		leftOn, err := decodeExprList(rec.Params["left_on"])
		if err != nil {
			return nil, err
		}
		rightOn, err := decodeExprList(rec.Params["right_on"])
		if err != nil {
			return nil, err
		}
		how, _ := rec.Params["how"].(string)
		return p.AddJoin(children[0], children[1], leftOn, rightOn, partition.JoinType(how))
	case KindRepartition:
		var args struct {
			Scheme        string `mapstructure:"scheme"`
			NumPartitions int    `mapstructure:"num_partitions"`
		}
		if err := decode(rec.Params, &args); err != nil {
			return nil, dferrors.NewPlanError("repartition params: %v", err).WithNode(rec.ID)
		}
		exprs, err := decodeExprList(rec.Params["exprs"])
		if err != nil {
			return nil, err
		}
		return p.AddRepartition(children[0], PartitionScheme(args.Scheme), exprs, args.NumPartitions)
	case KindSort:
		var args struct {
			NumPartitions int `mapstructure:"num_partitions"`
		}
		if err := decode(rec.Params, &args); err != nil {
			return nil, dferrors.NewPlanError("sort params: %v", err).WithNode(rec.ID)
		}
		keys, err := decodeSortKeys(rec.Params["keys"])
		if err != nil {
			return nil, err
		}
		return p.AddSort(children[0], keys, args.NumPartitions)
	case KindCoalesce:
		var args struct {
			NumPartitions int `mapstructure:"num_partitions"`
		}
		if err := decode(rec.Params, &args); err != nil {
			return nil, dferrors.NewPlanError("coalesce params: %v", err).WithNode(rec.ID)
		}
		return p.AddCoalesce(children[0], args.NumPartitions)
	}
	return nil, dferrors.NewPlanError("unknown node kind %q", rec.Kind).WithNode(rec.ID)
}

func decodeSource(raw interface{}, schema types.Schema) (sources.SourceInfo, error) {
	params, ok := raw.(map[string]interface{})
	if !ok {
		return nil, dferrors.NewPlanError("scan node declares no source")
	}
	scanType, _ := params["type"].(string)
	switch sources.ScanType(scanType) {
	case sources.ScanInMemory:
		var args struct {
			Data          map[string][]interface{} `mapstructure:"data"`
			NumPartitions int                      `mapstructure:"num_partitions"`
		}
		if err := decode(params, &args); err != nil {
			return nil, dferrors.NewPlanError("in-memory source: %v", err)
		}
		for _, f := range schema.Fields {
			if values, ok := args.Data[f.Name]; ok {
				args.Data[f.Name] = coerceValues(values, f.Type)
			}
		}
		return &sources.InMemorySource{Data: args.Data, Num: args.NumPartitions}, nil
	case sources.ScanCSV:
		var args struct {
			Filepaths  []string `mapstructure:"filepaths"`
			Delimiter  string   `mapstructure:"delimiter"`
			HasHeaders bool     `mapstructure:"has_headers"`
		}
		if err := decode(params, &args); err != nil {
			return nil, dferrors.NewPlanError("csv source: %v", err)
		}
		delim := ','
		if args.Delimiter != "" {
			delim = []rune(args.Delimiter)[0]
		}
		return &sources.CSVSource{Filepaths: args.Filepaths, Delimiter: delim, HasHeaders: args.HasHeaders}, nil
	case sources.ScanParquet:
		var args struct {
			Filepaths []string `mapstructure:"filepaths"`
		}
		if err := decode(params, &args); err != nil {
			return nil, dferrors.NewPlanError("parquet source: %v", err)
		}
		return &sources.ParquetSource{Filepaths: args.Filepaths}, nil
	case sources.ScanSQLite:
		var args struct {
			Path          string `mapstructure:"path"`
			Table         string `mapstructure:"table"`
			NumPartitions int    `mapstructure:"num_partitions"`
		}
		if err := decode(params, &args); err != nil {
			return nil, dferrors.NewPlanError("sqlite source: %v", err)
		}
		return &sources.SQLiteSource{Path: args.Path, Table: args.Table, Num: args.NumPartitions}, nil
	}
	return nil, dferrors.NewPlanError("unknown source type %q", scanType)
}

func decodeExpr(raw interface{}) (expr.Expr, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, dferrors.NewPlanError("expression is not an object: %v", raw)
	}
	op, _ := m["op"].(string)
	switch op {
	case "col":
		name, _ := m["name"].(string)
		if name == "" {
			return nil, dferrors.NewPlanError("column reference without a name")
		}
		return expr.Col(name), nil
	case "lit":
		return expr.Lit(coerceLiteral(m["value"], m["type"])), nil
	case "alias":
		inner, err := decodeExpr(m["input"])
		if err != nil {
			return nil, err
		}
		name, _ := m["name"].(string)
		return expr.Alias(inner, name), nil
	case "":
		return nil, dferrors.NewPlanError("expression without an op")
	}
	left, err := decodeExpr(m["left"])
	if err != nil {
		return nil, err
	}
	right, err := decodeExpr(m["right"])
	if err != nil {
		return nil, err
	}
	return expr.Binary(expr.Op(op), left, right), nil
}

func decodeExprList(raw interface{}) ([]expr.Expr, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, dferrors.NewPlanError("expression list is not an array")
	}
	out := make([]expr.Expr, len(items))
	for i, item := range items {
		e, err := decodeExpr(item)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeAggList(raw interface{}) ([]expr.AggExpr, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, dferrors.NewPlanError("aggregation list is not an array")
	}
	out := make([]expr.AggExpr, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, dferrors.NewPlanError("aggregation is not an object")
		}
		op, _ := m["op"].(string)
		input, err := decodeExpr(m["input"])
		if err != nil {
			return nil, err
		}
		as, _ := m["as"].(string)
		agg := expr.AggExpr{Op: expr.AggOp(op), Input: input, As: as}
		if !agg.Op.Valid() {
			return nil, dferrors.NewPlanError("unknown aggregation %q", op)
		}
		out[i] = agg
	}
	return out, nil
}

func decodeSortKeys(raw interface{}) ([]expr.SortKey, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, dferrors.NewPlanError("sort key list is not an array")
	}
	out := make([]expr.SortKey, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, dferrors.NewPlanError("sort key is not an object")
		}
		e, err := decodeExpr(m["expr"])
		if err != nil {
			return nil, err
		}
		desc, _ := m["desc"].(bool)
		out[i] = expr.SortKey{Expr: e, Desc: desc}
	}
	return out, nil
}

// coerceLiteral fixes up JSON's single number type: integral numbers
// become int64 unless the record declares "type": "float64".
func coerceLiteral(v interface{}, typeHint interface{}) interface{} {
	hint, _ := typeHint.(string)
	f, isNumber := v.(float64)
	if !isNumber {
		return v
	}
	if types.DataType(hint) == types.Float64 {
		return f
	}
	if f == math.Trunc(f) {
		return int64(f)
	}
	return f
}

func coerceValues(values []interface{}, dt types.DataType) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if f, ok := v.(float64); ok && dt == types.Int64 && f == math.Trunc(f) {
			out[i] = int64(f)
			continue
		}
		out[i] = v
	}
	return out
}

func decode(input, output interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  output,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
