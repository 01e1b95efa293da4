// Package sources implements the data sources a Scan node can
// materialize partitions from: in-memory column data, CSV files, Parquet
// files and SQLite tables. One partition corresponds to one slice of the
// in-memory/SQLite data or to one file of a file-backed source.
package sources

import (
	"context"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/internal/partition"
	"dataframe-engine/pkg/types"
)

// ScanType identifies a source-info variant.
type ScanType string

const (
	ScanInMemory ScanType = "in_memory"
	ScanCSV      ScanType = "csv"
	ScanParquet  ScanType = "parquet"
	ScanSQLite   ScanType = "sqlite"
)

// SourceInfo describes where a Scan node reads from and how many
// partitions the source splits into.
type SourceInfo interface {
	ScanType() ScanType
	NumPartitions() int
}

// InMemorySource partitions a column dict into equal slices. The last
// partition takes the remainder rows so no input row is lost.
type InMemorySource struct {
	Data map[string][]interface{}
	Num  int
}

func (s *InMemorySource) ScanType() ScanType { return ScanInMemory }
func (s *InMemorySource) NumPartitions() int { return s.Num }

// CSVSource reads one file per partition.
type CSVSource struct {
	Filepaths  []string
	Delimiter  rune
	HasHeaders bool
}

func (s *CSVSource) ScanType() ScanType { return ScanCSV }
func (s *CSVSource) NumPartitions() int { return len(s.Filepaths) }

// ParquetSource reads one file per partition, selecting the declared
// columns.
type ParquetSource struct {
	Filepaths []string
}

func (s *ParquetSource) ScanType() ScanType { return ScanParquet }
func (s *ParquetSource) NumPartitions() int { return len(s.Filepaths) }

// SQLiteSource partitions a table into dense rowid slices, using the same
// slicing rule as the in-memory source.
type SQLiteSource struct {
	Path  string
	Table string
	Num   int
}

func (s *SQLiteSource) ScanType() ScanType { return ScanSQLite }
func (s *SQLiteSource) NumPartitions() int { return s.Num }

// Materialize produces the given partition of a source under the declared
// schema.
func Materialize(ctx context.Context, src SourceInfo, schema types.Schema, partitionID int) (*partition.Partition, error) {
	if partitionID < 0 || partitionID >= src.NumPartitions() {
		return nil, dferrors.NewSourceError("partition %d out of range for %s source with %d partitions",
			partitionID, src.ScanType(), src.NumPartitions())
	}
	switch s := src.(type) {
	case *InMemorySource:
		return materializeInMemory(s, schema, partitionID)
	case *CSVSource:
		return materializeCSV(s, schema, partitionID)
	case *ParquetSource:
		return materializeParquet(s, schema, partitionID)
	case *SQLiteSource:
		return materializeSQLite(ctx, s, schema, partitionID)
	}
	return nil, dferrors.NewSourceError("unknown source type %T", src)
}

// sliceBounds computes partition p's row range under the equal-slice rule
// with the remainder assigned to the last partition.
func sliceBounds(total, numPartitions, p int) (start, end int) {
	size := total / numPartitions
	start = size * p
	end = start + size
	if p == numPartitions-1 {
		end = total
	}
	return start, end
}

func materializeInMemory(src *InMemorySource, schema types.Schema, partitionID int) (*partition.Partition, error) {
	total := -1
	for _, f := range schema.Fields {
		col, ok := src.Data[f.Name]
		if !ok {
			return nil, dferrors.NewSourceError("in-memory source is missing column %q", f.Name)
		}
		if total < 0 {
			total = len(col)
		} else if len(col) != total {
			return nil, dferrors.NewDataError("in-memory source is ragged: column %q has %d rows, expected %d",
				f.Name, len(col), total)
		}
	}
	start, end := sliceBounds(total, src.Num, partitionID)
	data := make(map[string][]interface{}, schema.Len())
	for _, f := range schema.Fields {
		data[f.Name] = src.Data[f.Name][start:end]
	}
	return partition.FromValues(partitionID, schema, data)
}
