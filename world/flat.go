package world

import (
	"fmt"

	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/chunk"
)

// Layer is a run of one block state, counted upward from the bottom of the world.
type Layer struct {
	Block  block.StateID
	Height int
}

// FlatGenerator stacks layers from the bottom of each column. Layers past the top of the
// dimension are cut off.
func FlatGenerator(layers []Layer) Generator {
	return func(dim Dimension, c *chunk.Column) {
		y := dim.MinY
		for _, l := range layers {
			for n := 0; n < l.Height && y < dim.MaxY(); n++ {
				rel := y - dim.MinY
				if rel%chunk.SectionWidth == 0 && n+chunk.SectionWidth <= l.Height && y+chunk.SectionWidth <= dim.MaxY() {
					c.FillSection(rel/chunk.SectionWidth, l.Block)
					y += chunk.SectionWidth
					n += chunk.SectionWidth - 1
					continue
				}
				for x := 0; x < chunk.SectionWidth; x++ {
					for z := 0; z < chunk.SectionWidth; z++ {
						c.SetBlock(x, y, z, l.Block)
					}
				}
				y++
			}
		}
	}
}

// LayerSpec names a layer's block as a resource name with optional properties.
type LayerSpec struct {
	Block      string            `yaml:"block"`
	Properties map[string]string `yaml:"properties,omitempty"`
	Height     int               `yaml:"height"`
}

// ResolveLayers turns named layers into state ids.
func ResolveLayers(reg *block.Registry, specs []LayerSpec) ([]Layer, error) {
	out := make([]Layer, 0, len(specs))
	for _, spec := range specs {
		if spec.Height <= 0 {
			return nil, fmt.Errorf("world: layer %s has height %d", spec.Block, spec.Height)
		}
		id, ok := reg.Lookup(spec.Block, spec.Properties)
		if !ok {
			return nil, fmt.Errorf("%w: unknown block %s", ErrInvalidState, spec.Block)
		}
		out = append(out, Layer{Block: id, Height: spec.Height})
	}
	return out, nil
}
