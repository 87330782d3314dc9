package block

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
  "minecraft:air": {"states": [{"id": 0, "default": true}]},
  "minecraft:stone": {"states": [{"id": 1, "default": true}]},
  "minecraft:grass_block": {
    "properties": {"snowy": ["true", "false"]},
    "states": [
      {"id": 8, "properties": {"snowy": "true"}},
      {"id": 9, "default": true, "properties": {"snowy": "false"}}
    ]
  },
  "minecraft:cave_air": {"states": [{"id": 13981, "default": true}]},
  "minecraft:oak_log": {
    "states": [
      {"id": 136, "properties": {"axis": "x"}},
      {"id": 137, "properties": {"axis": "y"}},
      {"id": 138, "properties": {"axis": "z"}}
    ]
  }
}`

func TestLoadReport(t *testing.T) {
	reg, err := LoadReport(strings.NewReader(sampleReport))
	require.NoError(t, err)

	assert.Equal(t, 13982, reg.Len())
	assert.Equal(t, 14, reg.BitsPerState())
	assert.True(t, reg.IsAir(0))
	assert.True(t, reg.IsAir(13981))
	assert.False(t, reg.IsAir(1))

	id, ok := reg.Default("grass_block")
	require.True(t, ok)
	assert.Equal(t, StateID(9), id)

	id, ok = reg.Lookup("minecraft:grass_block", map[string]string{"snowy": "true"})
	require.True(t, ok)
	assert.Equal(t, StateID(8), id)

	// no default in the report: the lowest id wins
	id, ok = reg.Default("minecraft:oak_log")
	require.True(t, ok)
	assert.Equal(t, StateID(136), id)

	_, ok = reg.Lookup("minecraft:grass_block", map[string]string{"axis": "x"})
	assert.False(t, ok)
	_, ok = reg.Default("minecraft:diamond_block")
	assert.False(t, ok)

	s, ok := reg.State(137)
	require.True(t, ok)
	assert.Equal(t, "minecraft:oak_log[axis=y]", s.String())
}

func TestLoadReportGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sampleReport))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	reg, err := LoadReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, 13982, reg.Len())
}

func TestLoadReportErrors(t *testing.T) {
	_, err := LoadReport(strings.NewReader(`{`))
	assert.Error(t, err)

	_, err = LoadReport(strings.NewReader(`{}`))
	assert.Error(t, err)

	_, err = LoadReport(strings.NewReader(`{"a":{"states":[{"id":1}]},"b":{"states":[{"id":1}]}}`))
	assert.Error(t, err)
}

func TestBuiltin(t *testing.T) {
	reg := Builtin()
	assert.Equal(t, 15, reg.BitsPerState())
	assert.True(t, reg.IsAir(Air))
	assert.True(t, reg.Valid(20000))
	assert.False(t, reg.Valid(-1))

	id, ok := reg.Default("minecraft:stone")
	require.True(t, ok)
	assert.Equal(t, StateID(1), id)

	id, ok = reg.Default("grass_block")
	require.True(t, ok)
	assert.Equal(t, StateID(9), id)
}
