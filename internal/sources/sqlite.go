package sources

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// SQLite driver, registered as "sqlite3".
	_ "github.com/mattn/go-sqlite3"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/partition"
	"dataframe-engine/pkg/types"
)

// materializeSQLite reads the partition's rowid slice of the table. The
// connection is opened per partition so parallel scans never share a
// handle.
func materializeSQLite(ctx context.Context, src *SQLiteSource, schema types.Schema, partitionID int) (*partition.Partition, error) {
	db, err := sql.Open("sqlite3", src.Path)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.NewSourceError("opening %s: %v", src.Path, err), err)
	}
	defer func() { _ = db.Close() }()

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %q", src.Table)
	if err := db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, dferrors.Wrap(dferrors.NewSourceError("counting rows of %s: %v", src.Table, err), err)
	}
	start, end := sliceBounds(total, src.Num, partitionID)

	cols := make([]string, schema.Len())
	for i, f := range schema.Fields {
		cols[i] = fmt.Sprintf("%q", f.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %q ORDER BY rowid LIMIT ? OFFSET ?",
		strings.Join(cols, ", "), src.Table)
	rows, err := db.QueryContext(ctx, query, end-start, start)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.NewSourceError("querying %s: %v", src.Table, err), err)
	}
	defer func() { _ = rows.Close() }()

	data := make(map[string][]interface{}, schema.Len())
	for _, f := range schema.Fields {
		data[f.Name] = nil
	}
	scanned := make([]interface{}, schema.Len())
	targets := make([]interface{}, schema.Len())
	for i := range scanned {
		targets[i] = &scanned[i]
	}
	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return nil, dferrors.Wrap(dferrors.NewSourceError("scanning %s: %v", src.Table, err), err)
		}
		for i, f := range schema.Fields {
			v, err := sqliteValue(scanned[i], f.Type)
			if err != nil {
				return nil, dferrors.NewSourceError("%s column %q: %v", src.Table, f.Name, err)
			}
			data[f.Name] = append(data[f.Name], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dferrors.Wrap(dferrors.NewSourceError("reading %s: %v", src.Table, err), err)
	}

	return partition.FromValues(partitionID, schema, data)
}

func sqliteValue(v interface{}, dt types.DataType) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch dt {
	case types.Int64:
		if n, ok := v.(int64); ok {
			return n, nil
		}
	case types.Float64:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	case types.String:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
	case types.Bool:
		if n, ok := v.(int64); ok {
			return n != 0, nil
		}
	}
	return nil, fmt.Errorf("cannot store %T in %s column", v, dt)
}
