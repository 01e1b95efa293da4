package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dferrors "dataframe-engine/internal/errors"
	"dataframe-engine/pkg/types"
)

func intSchema() types.Schema {
	return types.NewSchema(types.Field{Name: "a", Type: types.Int64})
}

func TestInMemoryScanSlices(t *testing.T) {
	src := &InMemorySource{
		Data: map[string][]interface{}{"a": {0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		Num:  2,
	}

	p0, err := Materialize(context.Background(), src, intSchema(), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, p0.Len())

	p1, err := Materialize(context.Background(), src, intSchema(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, p1.Len())
}

func TestInMemoryScanLastPartitionTakesRemainder(t *testing.T) {
	src := &InMemorySource{
		Data: map[string][]interface{}{"a": {0, 1, 2, 3, 4, 5, 6}},
		Num:  3,
	}

	lens := make([]int, 3)
	total := 0
	for i := range lens {
		p, err := Materialize(context.Background(), src, intSchema(), i)
		require.NoError(t, err)
		lens[i] = p.Len()
		total += p.Len()
	}
	assert.Equal(t, []int{2, 2, 3}, lens, "trailing rows land in the last partition")
	assert.Equal(t, 7, total, "no rows dropped")
}

func TestInMemoryScanRejectsRaggedData(t *testing.T) {
	src := &InMemorySource{
		Data: map[string][]interface{}{"a": {1, 2}, "b": {1}},
		Num:  1,
	}
	schema := types.NewSchema(
		types.Field{Name: "a", Type: types.Int64},
		types.Field{Name: "b", Type: types.Int64},
	)
	_, err := Materialize(context.Background(), src, schema, 0)
	require.Error(t, err)
	assert.Equal(t, dferrors.ErrorCodeData, dferrors.CodeOf(err))
}

func TestMaterializePartitionOutOfRange(t *testing.T) {
	src := &InMemorySource{Data: map[string][]interface{}{"a": {1}}, Num: 1}
	_, err := Materialize(context.Background(), src, intSchema(), 5)
	require.Error(t, err)
	assert.Equal(t, dferrors.ErrorCodeSource, dferrors.CodeOf(err))
}

func TestCSVScan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part0.csv")
	require.NoError(t, os.WriteFile(path, []byte("id|name\n1|alice\n2|bob\n3|\n"), 0o600))

	schema := types.NewSchema(
		types.Field{Name: "id", Type: types.Int64},
		types.Field{Name: "name", Type: types.String},
	)
	src := &CSVSource{Filepaths: []string{path}, Delimiter: '|', HasHeaders: true}

	p, err := Materialize(context.Background(), src, schema, 0)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())

	ids, _ := p.Column("id")
	v, ok := ids.Value(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	names, _ := p.Column("name")
	v, ok = names.Value(2)
	require.True(t, ok)
	assert.Equal(t, "", v, "empty string cells stay strings")
}

func TestCSVScanMissingFile(t *testing.T) {
	src := &CSVSource{Filepaths: []string{"/missing/file.csv"}, Delimiter: ','}
	_, err := Materialize(context.Background(), src, intSchema(), 0)
	require.Error(t, err)
	assert.Equal(t, dferrors.ErrorCodeSource, dferrors.CodeOf(err))
}

func TestCSVScanParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0o600))

	src := &CSVSource{Filepaths: []string{path}, Delimiter: ','}
	_, err := Materialize(context.Background(), src, intSchema(), 0)
	require.Error(t, err)
	assert.Equal(t, dferrors.ErrorCodeSource, dferrors.CodeOf(err))
}

func TestCatalogTableScanOperator(t *testing.T) {
	table := &CatalogTable{
		Name:        "events",
		TableSchema: intSchema(),
		Files:       []string{"a.parquet", "b.parquet"},
		Format:      FileTypeParquet,
	}

	assert.Equal(t, "a:int64", table.Schema().String())
	tasks := table.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, FileTypeParquet, tasks[0].FileType)

	src := SourceFromOperator(table)
	assert.Equal(t, ScanParquet, src.ScanType())
	assert.Equal(t, 2, src.NumPartitions())
}
