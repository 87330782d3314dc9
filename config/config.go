// Package config holds the server settings, read from a YAML file over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/astei/voxelwire/transport"
	"github.com/astei/voxelwire/world"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address    string `yaml:"address"`
	MaxPlayers int    `yaml:"max_players"`
	MOTD       string `yaml:"motd"`
	OnlineMode bool   `yaml:"online_mode"`
	Brand      string `yaml:"brand"`

	// CompressionThreshold is the smallest packet that gets compressed; -1 disables compression.
	CompressionThreshold int `yaml:"compression_threshold"`
	CompressionLevel     int `yaml:"compression_level"`
	MaxFrameSize         int `yaml:"max_frame_size"`

	ViewDistance      int           `yaml:"view_distance"`
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`
	GameMode          string        `yaml:"game_mode"`

	Dimensions []Dimension        `yaml:"dimensions"`
	FlatLayers []world.LayerSpec  `yaml:"flat_layers"`
	Throttle   ConnectionThrottle `yaml:"connection_throttle"`

	// Registries names a YAML or JSON file mapping registry ids to their entry ids. It replaces the
	// built-in registry list sent during configuration.
	Registries string `yaml:"registries,omitempty"`
	// BlockReport is a blocks.json from the vanilla data generator.
	BlockReport string `yaml:"block_report,omitempty"`
	// PacketReport is a packets.json from the vanilla data generator; its ids override the built-in
	// ones.
	PacketReport string `yaml:"packet_report,omitempty"`
}

type Dimension struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Biome  string `yaml:"biome"`
	MinY   int    `yaml:"min_y"`
	Height int    `yaml:"height"`
}

// ConnectionThrottle limits how fast new connections are accepted. A zero rate disables it.
type ConnectionThrottle struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

var gameModes = map[string]uint8{
	"survival":  0,
	"creative":  1,
	"adventure": 2,
	"spectator": 3,
}

// Default returns the settings of a fresh server: an offline creative flat world.
func Default() Config {
	return Config{
		Address:              ":25565",
		MaxPlayers:           20,
		MOTD:                 "A voxelwire server",
		Brand:                "voxelwire",
		CompressionThreshold: 256,
		CompressionLevel:     6,
		MaxFrameSize:         transport.MaxFrameSize,
		ViewDistance:         8,
		KeepAliveInterval:    15 * time.Second,
		GameMode:             "creative",
		Dimensions: []Dimension{
			{Name: "minecraft:overworld", Type: "minecraft:overworld", Biome: "minecraft:plains", MinY: -64, Height: 384},
		},
		FlatLayers: []world.LayerSpec{
			{Block: "minecraft:stone", Height: 1},
			{Block: "minecraft:dirt", Height: 2},
			{Block: "minecraft:grass_block", Properties: map[string]string{"snowy": "false"}, Height: 1},
		},
		Throttle: ConnectionThrottle{Rate: 10, Burst: 20},
	}
}

// Load reads the file at path over the defaults. An empty path gives the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("address is empty")
	}
	if c.MaxPlayers <= 0 {
		return fmt.Errorf("max_players must be positive, got %d", c.MaxPlayers)
	}
	if c.CompressionThreshold < -1 {
		return fmt.Errorf("compression_threshold must be -1 or more, got %d", c.CompressionThreshold)
	}
	if c.CompressionLevel < -1 || c.CompressionLevel > 9 {
		return fmt.Errorf("compression_level must be within [-1, 9], got %d", c.CompressionLevel)
	}
	if c.MaxFrameSize < 256 || c.MaxFrameSize > transport.MaxFrameSize {
		return fmt.Errorf("max_frame_size must be within [256, %d], got %d", transport.MaxFrameSize, c.MaxFrameSize)
	}
	if c.ViewDistance < 2 || c.ViewDistance > 32 {
		return fmt.Errorf("view_distance must be within [2, 32], got %d", c.ViewDistance)
	}
	if c.KeepAliveInterval <= 0 {
		return fmt.Errorf("keep_alive_interval must be positive, got %s", c.KeepAliveInterval)
	}
	if _, ok := gameModes[c.GameMode]; !ok {
		return fmt.Errorf("unknown game_mode %q", c.GameMode)
	}
	if len(c.Dimensions) == 0 {
		return errors.New("no dimensions")
	}
	seen := make(map[string]bool, len(c.Dimensions))
	for _, d := range c.Dimensions {
		if seen[d.Name] {
			return fmt.Errorf("dimension %s is listed twice", d.Name)
		}
		seen[d.Name] = true
		if d.Type == "" {
			return fmt.Errorf("dimension %s has no type", d.Name)
		}
		if err := (world.Dimension{Name: d.Name, MinY: d.MinY, Height: d.Height}).Validate(); err != nil {
			return err
		}
	}
	for _, l := range c.FlatLayers {
		if l.Height <= 0 || l.Height > 4064 {
			return fmt.Errorf("flat layer %s has height %d", l.Block, l.Height)
		}
	}
	if c.Throttle.Rate < 0 {
		return fmt.Errorf("connection_throttle rate must not be negative, got %g", c.Throttle.Rate)
	}
	if c.Throttle.Rate > 0 && c.Throttle.Burst < 1 {
		return fmt.Errorf("connection_throttle burst must be at least 1, got %d", c.Throttle.Burst)
	}
	return nil
}

// GameModeID is the network id of the configured game mode.
func (c Config) GameModeID() uint8 {
	return gameModes[c.GameMode]
}

// SpawnHeight is the first y above the flat layers of dimension d.
func (c Config) SpawnHeight(d Dimension) int {
	y := d.MinY
	for _, l := range c.FlatLayers {
		y += l.Height
	}
	if top := d.MinY + d.Height - 1; y > top {
		y = top
	}
	return y
}

// LoadRegistries reads a registry override file: a mapping of registry ids to lists of entry ids.
// JSON files work too.
func LoadRegistries(path string) (map[string][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ids map[string][]string
	if err := yaml.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: no registries", path)
	}
	return ids, nil
}
