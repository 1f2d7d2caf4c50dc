package space

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues(t *testing.T) {
	p := Values("batch_size", 16, 32, 64)
	assert.Equal(t, "batch_size", p.Name)
	assert.Equal(t, []float64{16, 32, 64}, p.Values)

	fromFloats := Values("dropout", 0.1, 0.2)
	assert.Equal(t, []float64{0.1, 0.2}, fromFloats.Values)

	assert.Panics(t, func() { Values[int]("empty") })
}

func TestSpan(t *testing.T) {
	p := Span("dropout", 0.0, 0.6, 7)
	require.Len(t, p.Values, 7)
	assert.Equal(t, 0.0, p.Values[0])
	assert.InDelta(t, 0.6, p.Values[6], 1e-12)
	assert.InDelta(t, 0.1, p.Values[1], 1e-12)

	assert.Panics(t, func() { Span("bad", 0, 1, 1) })
	assert.Panics(t, func() { Span("bad", 1, 0, 5) })
}

func TestLogSpan(t *testing.T) {
	p := LogSpan("learning_rate", 1e-4, 1e-1, 4)
	require.Len(t, p.Values, 4)
	assert.InDelta(t, 1e-4, p.Values[0], 1e-12)
	assert.InDelta(t, 1e-3, p.Values[1], 1e-9)
	assert.InDelta(t, 1e-2, p.Values[2], 1e-9)
	assert.InDelta(t, 1e-1, p.Values[3], 1e-9)

	assert.Panics(t, func() { LogSpan("bad", 0, 1, 5) })
	assert.Panics(t, func() { LogSpan("bad", 1e-4, 1e-1, 1) })
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		params []Parameter
	}{
		{name: "no parameters", params: nil},
		{name: "empty name", params: []Parameter{{Name: "", Values: []float64{1}}}},
		{
			name: "duplicate name",
			params: []Parameter{
				{Name: "x", Values: []float64{1}},
				{Name: "x", Values: []float64{2}},
			},
		},
		{name: "no values", params: []Parameter{{Name: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params...)
			assert.Error(t, err)
		})
	}
}

func TestSpaceSizeAndNames(t *testing.T) {
	sp := MustNew(
		Values("a", 1, 2, 3),
		Values("b", 10, 20),
		Values("c", 100),
	)

	assert.Equal(t, 6, sp.Size())
	assert.Equal(t, []string{"a", "b", "c"}, sp.Names())
}

func TestAtDecoding(t *testing.T) {
	sp := MustNew(
		Values("a", 1, 2),
		Values("b", 10, 20, 30),
	)
	require.Equal(t, 6, sp.Size())

	// The last declared parameter varies fastest.
	want := []map[string]float64{
		{"a": 1, "b": 10},
		{"a": 1, "b": 20},
		{"a": 1, "b": 30},
		{"a": 2, "b": 10},
		{"a": 2, "b": 20},
		{"a": 2, "b": 30},
	}
	for i, w := range want {
		assert.Equal(t, w, sp.At(i), "cell %d", i)
	}

	assert.Panics(t, func() { sp.At(-1) })
	assert.Panics(t, func() { sp.At(6) })
}

func TestAtEndpoints(t *testing.T) {
	sp := MustNew(
		Values("a", 1, 2, 3),
		Values("b", 10, 20),
		Values("c", 100, 200, 300, 400),
	)

	first := sp.At(0)
	assert.Equal(t, map[string]float64{"a": 1, "b": 10, "c": 100}, first,
		"index 0 selects the first value of every parameter")

	last := sp.At(sp.Size() - 1)
	assert.Equal(t, map[string]float64{"a": 3, "b": 20, "c": 400}, last,
		"the last index selects the last value of every parameter")
}

func TestAtEnumeratesAllCells(t *testing.T) {
	sp := MustNew(
		Values("a", 0, 1),
		Values("b", 0, 1, 2),
		Values("c", 0, 1),
	)

	seen := make(map[[3]float64]bool)
	for i := 0; i < sp.Size(); i++ {
		p := sp.At(i)
		cell := [3]float64{p["a"], p["b"], p["c"]}
		assert.False(t, seen[cell], "cell %v decoded twice", cell)
		seen[cell] = true
	}
	assert.Len(t, seen, sp.Size())
}

func TestSpaceIsImmutable(t *testing.T) {
	values := []float64{1, 2, 3}
	sp := MustNew(Parameter{Name: "a", Values: values})

	values[0] = 99
	assert.Equal(t, 1.0, sp.At(0)["a"], "mutating the input slice must not affect the space")

	sp.Parameters()[0].Values[0] = 99
	assert.Equal(t, 1.0, sp.At(0)["a"], "mutating a returned copy must not affect the space")
}
