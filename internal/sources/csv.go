package sources

import (
	"encoding/csv"
	"os"
	"strconv"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/partition"
	"dataframe-engine/pkg/types"
)

// materializeCSV parses the partition's file with the configured
// delimiter. Column names come from the declared schema; a header row, if
// present, is skipped. Rows come back in file order. Empty cells become
// nulls, except in string columns, where they stay empty strings.
func materializeCSV(src *CSVSource, schema types.Schema, partitionID int) (*partition.Partition, error) {
	path := src.Filepaths[partitionID]
	f, err := os.Open(path)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.NewSourceError("opening %s: %v", path, err), err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	if src.Delimiter != 0 {
		r.Comma = src.Delimiter
	}
	r.FieldsPerRecord = schema.Len()

	records, err := r.ReadAll()
	if err != nil {
		return nil, dferrors.Wrap(dferrors.NewSourceError("parsing %s: %v", path, err), err)
	}
	if src.HasHeaders && len(records) > 0 {
		records = records[1:]
	}

	data := make(map[string][]interface{}, schema.Len())
	for c, field := range schema.Fields {
		values := make([]interface{}, len(records))
		for row, record := range records {
			v, err := parseCell(record[c], field.Type)
			if err != nil {
				return nil, dferrors.NewSourceError("%s row %d column %q: %v", path, row+1, field.Name, err)
			}
			values[row] = v
		}
		data[field.Name] = values
	}
	return partition.FromValues(partitionID, schema, data)
}

func parseCell(cell string, dt types.DataType) (interface{}, error) {
	if cell == "" && dt != types.String {
		return nil, nil
	}
	switch dt {
	case types.Int64:
		return strconv.ParseInt(cell, 10, 64)
	case types.Float64:
		return strconv.ParseFloat(cell, 64)
	case types.Bool:
		return strconv.ParseBool(cell)
	case types.String:
		return cell, nil
	}
	return nil, dferrors.NewSourceError("unsupported column type %q", dt)
}
