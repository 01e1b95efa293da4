package sources

import (
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/partition"
	"dataframe-engine/pkg/types"
)

// materializeParquet reads the partition's file and selects the declared
// columns by name.
func materializeParquet(src *ParquetSource, schema types.Schema, partitionID int) (*partition.Partition, error) {
	path := src.Filepaths[partitionID]
	f, err := os.Open(path)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.NewSourceError("opening %s: %v", path, err), err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, dferrors.Wrap(dferrors.NewResourceError("stat %s: %v", path, err), err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, dferrors.Wrap(dferrors.NewSourceError("reading %s: %v", path, err), err)
	}

	// Map declared columns onto the file's leaf columns.
	fileFields := pf.Schema().Fields()
	colIndex := make(map[string]int, len(fileFields))
	for i, field := range fileFields {
		colIndex[field.Name()] = i
	}
	for _, f := range schema.Fields {
		if _, ok := colIndex[f.Name]; !ok {
			return nil, dferrors.NewSourceError("%s has no column %q", path, f.Name)
		}
	}

	data := make(map[string][]interface{}, schema.Len())
	for _, f := range schema.Fields {
		data[f.Name] = nil
	}

	buf := make([]parquet.Row, 128)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				for _, field := range schema.Fields {
					v, convErr := parquetValue(row[colIndex[field.Name]], field.Type)
					if convErr != nil {
						return nil, dferrors.NewSourceError("%s column %q: %v", path, field.Name, convErr)
					}
					data[field.Name] = append(data[field.Name], v)
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = rows.Close()
				return nil, dferrors.Wrap(dferrors.NewSourceError("reading %s: %v", path, err), err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, dferrors.Wrap(dferrors.NewResourceError("closing %s: %v", path, err), err)
		}
	}

	return partition.FromValues(partitionID, schema, data)
}

func parquetValue(v parquet.Value, dt types.DataType) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch dt {
	case types.Int64:
		return v.Int64(), nil
	case types.Float64:
		return v.Double(), nil
	case types.String:
		return v.String(), nil
	case types.Bool:
		return v.Boolean(), nil
	}
	return nil, dferrors.NewSourceError("unsupported column type %q", dt)
}
