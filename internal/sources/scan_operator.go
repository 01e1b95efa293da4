package sources

import (
	"dataframe-engine/pkg/types"
)

// FileType identifies the format a scan task reads.
type FileType string

const (
	FileTypeCSV     FileType = "csv"
	FileTypeParquet FileType = "parquet"
)

// ScanTask describes one unit of scan work a scan operator hands out.
type ScanTask struct {
	FileType FileType
	Path     string
	Columns  []string // nil means all declared columns
	Limit    int      // 0 means no limit
}

// ScanOperator is the catalog-facing scan surface. The engine only needs
// Schema at plan-build time; Tasks feeds file-backed sources.
type ScanOperator interface {
	Schema() types.Schema
	Tasks() []ScanTask
}

// CatalogTable adapts a static table descriptor (the shape an external
// catalog such as Iceberg resolves to) into a ScanOperator.
type CatalogTable struct {
	Name        string
	TableSchema types.Schema
	Files       []string
	Format      FileType
}

// Schema returns the table schema.
func (t *CatalogTable) Schema() types.Schema {
	return t.TableSchema
}

// Tasks returns one scan task per data file.
func (t *CatalogTable) Tasks() []ScanTask {
	tasks := make([]ScanTask, len(t.Files))
	for i, path := range t.Files {
		tasks[i] = ScanTask{FileType: t.Format, Path: path, Columns: t.TableSchema.Names()}
	}
	return tasks
}

// SourceFromOperator builds the engine source-info for a scan operator's
// task list.
func SourceFromOperator(op ScanOperator) SourceInfo {
	tasks := op.Tasks()
	paths := make([]string, len(tasks))
	format := FileTypeParquet
	for i, t := range tasks {
		paths[i] = t.Path
		format = t.FileType
	}
	if format == FileTypeCSV {
		return &CSVSource{Filepaths: paths, Delimiter: ',', HasHeaders: true}
	}
	return &ParquetSource{Filepaths: paths}
}
