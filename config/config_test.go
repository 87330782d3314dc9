package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint8(1), cfg.GameModeID())
	assert.Equal(t, -60, cfg.SpawnHeight(cfg.Dimensions[0]))

	_, err := world.ResolveLayers(block.Builtin(), cfg.FlatLayers)
	assert.NoError(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "server.yaml", `
address: "127.0.0.1:25570"
online_mode: true
compression_threshold: -1
keep_alive_interval: 5s
dimensions:
  - name: minecraft:overworld
    type: minecraft:overworld
    biome: minecraft:plains
    min_y: 0
    height: 256
flat_layers:
  - block: minecraft:stone
    height: 60
connection_throttle:
  rate: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:25570", cfg.Address)
	assert.True(t, cfg.OnlineMode)
	assert.Equal(t, -1, cfg.CompressionThreshold)
	assert.Equal(t, 5*time.Second, cfg.KeepAliveInterval)
	assert.Equal(t, 20, cfg.MaxPlayers)
	assert.Equal(t, 256, cfg.Dimensions[0].Height)
	assert.Equal(t, 60, cfg.SpawnHeight(cfg.Dimensions[0]))
	assert.Equal(t, float64(0), cfg.Throttle.Rate)
	assert.Equal(t, 20, cfg.Throttle.Burst)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"threshold":  "compression_threshold: -2",
		"level":      "compression_level: 10",
		"frame":      "max_frame_size: 3000000",
		"view":       "view_distance: 1",
		"game mode":  "game_mode: hardcore",
		"dimensions": "dimensions: []",
		"height":     "dimensions: [{name: a, type: minecraft:overworld, min_y: 0, height: 100}]",
		"twice":      "dimensions: [{name: a, type: t, min_y: 0, height: 16}, {name: a, type: t, min_y: 0, height: 16}]",
		"burst":      "connection_throttle: {rate: 5, burst: 0}",
		"syntax":     "address: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "server.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRegistries(t *testing.T) {
	path := writeFile(t, "registries.json", `{"minecraft:dimension_type": ["overworld"], "minecraft:worldgen/biome": ["plains", "desert"]}`)
	ids, err := LoadRegistries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"plains", "desert"}, ids["minecraft:worldgen/biome"])

	_, err = LoadRegistries(writeFile(t, "empty.yaml", "{}"))
	assert.Error(t, err)
}
