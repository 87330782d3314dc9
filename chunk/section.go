package chunk

import (
	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/codec"
)

const (
	SectionWidth  = 16
	SectionVolume = SectionWidth * SectionWidth * SectionWidth
)

// AirFunc reports whether a block state counts as air.
type AirFunc func(block.StateID) bool

// SectionIndex is the cell index of local coordinates inside a section.
func SectionIndex(x, y, z int) int {
	return y<<8 | z<<4 | x
}

// Section is one 16x16x16 cube of a column: its block states, its biomes and the number of
// non-air blocks, which clients use to skip empty sections.
type Section struct {
	Blocks *PalettedContainer
	Biomes *PalettedContainer

	nonAir int
	air    AirFunc
}

func NewSection(fill block.StateID, biome int32, blockBits int, air AirFunc) *Section {
	s := &Section{
		Blocks: NewPalettedContainer(BlockStrategy(blockBits), int32(fill)),
		Biomes: NewPalettedContainer(BiomeStrategy, biome),
		air:    air,
	}
	if !s.isAir(fill) {
		s.nonAir = SectionVolume
	}
	return s
}

func (s *Section) isAir(id block.StateID) bool {
	if s.air == nil {
		return id == block.Air
	}
	return s.air(id)
}

func (s *Section) NonAir() int { return s.nonAir }
func (s *Section) Empty() bool { return s.nonAir == 0 }

func (s *Section) Block(x, y, z int) block.StateID {
	return block.StateID(s.Blocks.Get(SectionIndex(x, y, z)))
}

// SetBlock stores state at local coordinates and returns the previous state.
func (s *Section) SetBlock(x, y, z int, state block.StateID) block.StateID {
	old := block.StateID(s.Blocks.Set(SectionIndex(x, y, z), int32(state)))
	if old != state {
		wasAir, nowAir := s.isAir(old), s.isAir(state)
		if wasAir && !nowAir {
			s.nonAir++
		} else if !wasAir && nowAir {
			s.nonAir--
		}
	}
	return old
}

// Fill sets every block of the section to state.
func (s *Section) Fill(state block.StateID) {
	s.Blocks.Fill(int32(state))
	if s.isAir(state) {
		s.nonAir = 0
	} else {
		s.nonAir = SectionVolume
	}
}

// Biome returns the biome of the 4x4x4 cell holding local block coordinates x, y, z.
func (s *Section) Biome(x, y, z int) int32 {
	return s.Biomes.Get((y>>2)<<4 | (z>>2)<<2 | x>>2)
}

func (s *Section) SetBiome(x, y, z int, biome int32) {
	s.Biomes.Set((y>>2)<<4|(z>>2)<<2|x>>2, biome)
}

// recount recomputes the non-air count from the block data.
func (s *Section) recount() {
	s.nonAir = s.Blocks.Count(func(v int32) bool { return !s.isAir(block.StateID(v)) })
}

// Encode writes the section as it appears in the chunk data packet: the non-air count, then the
// block and biome containers.
func (s *Section) Encode(w *codec.Writer) {
	w.Int16(int16(s.nonAir))
	s.Blocks.Encode(w)
	s.Biomes.Encode(w)
}

func (s *Section) EncodedSize() int {
	return 2 + s.Blocks.EncodedSize() + s.Biomes.EncodedSize()
}

// DecodeSection reads one section. The non-air count sent by the peer is not trusted and is
// recomputed.
func DecodeSection(r *codec.Reader, blockBits int, air AirFunc) (*Section, error) {
	if _, err := r.Int16(); err != nil {
		return nil, err
	}
	blocks, err := DecodePalettedContainer(r, BlockStrategy(blockBits))
	if err != nil {
		return nil, err
	}
	biomes, err := DecodePalettedContainer(r, BiomeStrategy)
	if err != nil {
		return nil, err
	}
	s := &Section{Blocks: blocks, Biomes: biomes, air: air}
	s.recount()
	return s, nil
}
