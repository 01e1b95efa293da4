package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{
			name: "valid",
			schema: NewSchema(
				Field{Name: "a", Type: Int64},
				Field{Name: "b", Type: String},
			),
		},
		{
			name:    "empty",
			schema:  Schema{},
			wantErr: true,
		},
		{
			name: "duplicate names",
			schema: NewSchema(
				Field{Name: "a", Type: Int64},
				Field{Name: "a", Type: String},
			),
			wantErr: true,
		},
		{
			name:    "unsupported type",
			schema:  NewSchema(Field{Name: "a", Type: DataType("decimal")}),
			wantErr: true,
		},
		{
			name:    "empty name",
			schema:  NewSchema(Field{Name: "", Type: Int64}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSchemaLookups(t *testing.T) {
	s := NewSchema(
		Field{Name: "a", Type: Int64},
		Field{Name: "b", Type: Float64},
	)

	assert.Equal(t, []string{"a", "b"}, s.Names())
	assert.Equal(t, 1, s.IndexOf("b"))
	assert.Equal(t, -1, s.IndexOf("missing"))

	f, ok := s.Field("a")
	require.True(t, ok)
	assert.Equal(t, Int64, f.Type)

	assert.Equal(t, "a:int64, b:float64", s.String())
}

func TestSchemaEqualIgnoresIDs(t *testing.T) {
	a := NewSchema(Field{ID: 1, Name: "a", Type: Int64})
	b := NewSchema(Field{ID: 9, Name: "a", Type: Int64})
	c := NewSchema(Field{Name: "a", Type: Float64})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestNewSchemaAssignsIDs(t *testing.T) {
	s := NewSchema(
		Field{Name: "a", Type: Int64},
		Field{ID: 7, Name: "b", Type: Int64},
	)
	assert.Equal(t, 1, s.Fields[0].ID)
	assert.Equal(t, 7, s.Fields[1].ID)
}
