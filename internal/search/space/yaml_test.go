package space

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	data := []byte(`
parameters:
  - name: learning_rate
    min: 1.0e-4
    max: 1.0e-1
    count: 15
    scale: log
  - name: batch_size
    values: [16, 32, 48, 64, 96, 128, 192, 256]
  - name: dropout
    min: 0.0
    max: 0.6
    count: 7
  - name: num_layers
    values: [2, 3, 4, 5, 6, 7, 8]
  - name: optimizer_type
    values: [0, 1, 2]
`)

	sp, err := ParseYAML(data)
	require.NoError(t, err)

	assert.Equal(t, 22050, sp.Size())
	assert.Equal(t, []string{"learning_rate", "batch_size", "dropout", "num_layers", "optimizer_type"}, sp.Names())

	params := sp.Parameters()
	assert.InDelta(t, 1e-4, params[0].Values[0], 1e-12)
	assert.InDelta(t, 1e-1, params[0].Values[14], 1e-9)
	assert.Equal(t, []float64{16, 32, 48, 64, 96, 128, 192, 256}, params[1].Values)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "not yaml",
			yaml:    "{{nope",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "no parameters",
			yaml:    "parameters: []",
			wantErr: "at least one parameter",
		},
		{
			name:    "missing name",
			yaml:    "parameters:\n  - values: [1, 2]",
			wantErr: "missing a name",
		},
		{
			name:    "values and range",
			yaml:    "parameters:\n  - name: x\n    values: [1]\n    min: 0\n    max: 1\n    count: 3",
			wantErr: `parameter "x"`,
		},
		{
			name:    "neither values nor range",
			yaml:    "parameters:\n  - name: x",
			wantErr: `parameter "x"`,
		},
		{
			name:    "count too small",
			yaml:    "parameters:\n  - name: x\n    min: 0\n    max: 1\n    count: 1",
			wantErr: "count of at least 2",
		},
		{
			name:    "min not below max",
			yaml:    "parameters:\n  - name: x\n    min: 2\n    max: 1\n    count: 3",
			wantErr: "min < max",
		},
		{
			name:    "log scale with zero min",
			yaml:    "parameters:\n  - name: x\n    min: 0\n    max: 1\n    count: 3\n    scale: log",
			wantErr: "min > 0",
		},
		{
			name:    "unknown scale",
			yaml:    "parameters:\n  - name: x\n    min: 1\n    max: 2\n    count: 3\n    scale: cubic",
			wantErr: `unknown scale "cubic"`,
		},
		{
			name:    "duplicate names",
			yaml:    "parameters:\n  - name: x\n    values: [1]\n  - name: x\n    values: [2]",
			wantErr: "duplicate parameter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
parameters:
  - name: x
    values: [1, 2]
  - name: y
    min: 0
    max: 1
    count: 3
`), 0o644))

	sp, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, sp.Size())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("parameters:\n  - name: x"), 0o644))
	_, err = LoadFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}
