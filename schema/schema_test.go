package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{"valid", Schema{Int("id", 8), String("name", 32), Float("score")}, false},
		{"default int width", Schema{Int("id", 0)}, false},
		{"empty", Schema{}, true},
		{"empty name", Schema{Int("", 4)}, true},
		{"bad int width", Schema{Int("id", 3)}, true},
		{"zero string length", Schema{String("name", 0)}, true},
		{"unknown type", Schema{{Name: "x", Type: TypeInvalid}}, true},
		{"duplicate", Schema{Int("id", 4), String("id", 8)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestColumn_Width(t *testing.T) {
	assert.Equal(t, 4, Int("a", 0).Width())
	assert.Equal(t, 2, Int("a", 2).Width())
	assert.Equal(t, 8, Float("f").Width())
	assert.Equal(t, 16, String("s", 16).Width())
}

func TestSchema_Lookup(t *testing.T) {
	s := Schema{Int("id", 8), String("name", 32)}

	assert.Equal(t, 1, s.Index("name"))
	assert.Equal(t, -1, s.Index("missing"))

	c, ok := s.Lookup("id")
	require.True(t, ok)
	assert.Equal(t, TypeInt, c.Type)

	assert.Equal(t, []string{"id", "name"}, s.Names())

	clone := s.Clone()
	clone[0].Name = "changed"
	assert.Equal(t, "id", s[0].Name)
}
