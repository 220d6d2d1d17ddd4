package orderedmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMap_InsertionOrder(t *testing.T) {
	m := New[int]()
	m.Set("zeta", 1)
	m.Set("alpha", 2)
	m.Set("mid", 3)
	m.Set("alpha", 20)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	assert.Equal(t, 3, m.Len())

	v, ok := m.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, 20, v)

	var seen []string
	for k := range m.All() {
		seen = append(seen, k)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, seen)
}

func TestMap_ZeroValueAndNil(t *testing.T) {
	var zero Map[string]
	zero.Set("a", "b")
	assert.True(t, zero.Has("a"))

	var nilMap *Map[string]
	assert.Equal(t, 0, nilMap.Len())
	assert.Nil(t, nilMap.Keys())
	assert.False(t, nilMap.Has("a"))
}

func TestMap_JSONKeepsOrder(t *testing.T) {
	inner := New[float64]()
	inner.Set("uv", 1.5)
	inner.Set("python3", 0.5)

	outer := New[*Map[float64]]()
	outer.Set("pure_python", inner)
	outer.Set("mixed_io", New[float64]())

	data, err := json.Marshal(outer)
	require.NoError(t, err)
	assert.Equal(t, `{"pure_python":{"uv":1.5,"python3":0.5},"mixed_io":{}}`, string(data))

	decoded := New[*Map[float64]]()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, []string{"pure_python", "mixed_io"}, decoded.Keys())

	cell, ok := decoded.Get("pure_python")
	require.True(t, ok)
	assert.Equal(t, []string{"uv", "python3"}, cell.Keys())
}

func TestMap_JSONRejectsNonObject(t *testing.T) {
	m := New[int]()

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), m))
}

func TestMap_YAMLKeepsOrder(t *testing.T) {
	m := New[int]()
	m.Set("b", 1)
	m.Set("a", 2)

	data, err := yaml.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "b: 1\na: 2\n", string(data))

	decoded := New[int]()
	require.NoError(t, yaml.Unmarshal([]byte("z: 3\ny: 4\n"), decoded))
	assert.Equal(t, []string{"z", "y"}, decoded.Keys())
}
