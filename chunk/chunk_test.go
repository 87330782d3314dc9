package chunk

import (
	"math/rand"
	"testing"

	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlockBits = 15

func TestBitStorageKnownLayout(t *testing.T) {
	values := []int{1, 2, 2, 3, 4, 4, 5, 6, 6, 4, 8, 0, 7, 4, 3, 13, 15, 16, 9, 14, 10, 12, 0, 2}
	s, err := NewBitStorage(5, len(values), nil)
	require.NoError(t, err)
	for i, v := range values {
		s.Set(i, v)
	}
	assert.Equal(t, []uint64{0x0020863148418841, 0x01018A7260F68C87}, s.Raw())
	for i, v := range values {
		assert.Equal(t, v, s.Get(i))
	}
}

func TestBitStorageWordCounts(t *testing.T) {
	cases := []struct{ bits, size, words int }{
		{0, 4096, 0},
		{1, 4096, 64},
		{4, 4096, 256},
		{5, 4096, 342},
		{8, 4096, 512},
		{15, 4096, 1024},
		{1, 64, 1},
		{3, 64, 4},
		{6, 64, 7},
		{9, 256, 37},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.words, wordsFor(tc.bits, tc.size), "%d bits x %d", tc.bits, tc.size)
	}

	_, err := NewBitStorage(4, 4096, make([]uint64, 10))
	assert.Error(t, err)
}

func TestBitStorageSwapAndMask(t *testing.T) {
	s := mustBitStorage(3, 30)
	s.Set(20, 5)
	assert.Equal(t, 5, s.Swap(20, 15)) // 15 does not fit in 3 bits
	assert.Equal(t, 7, s.Get(20))
	assert.Equal(t, 0, s.Get(19))
	assert.Equal(t, 0, s.Get(21))
}

func TestPaletteStartsSingle(t *testing.T) {
	p := NewPalettedContainer(BlockStrategy(testBlockBits), 0)
	assert.Equal(t, Single, p.Mode())
	assert.Equal(t, 0, p.Bits())
	assert.Equal(t, int32(0), p.Get(4095))
	assert.Equal(t, int32(0), p.Set(10, 0))
	assert.Equal(t, Single, p.Mode())
}

func TestPalettePromotion(t *testing.T) {
	p := NewPalettedContainer(BlockStrategy(testBlockBits), 0)
	ref := make([]int32, SectionVolume)

	lastBits := p.Bits()
	for v := int32(1); v <= 300; v++ {
		cell := int(v) * 13 % SectionVolume
		p.Set(cell, v)
		ref[cell] = v

		assert.GreaterOrEqual(t, p.Bits(), lastBits, "width shrank at value %d", v)
		lastBits = p.Bits()

		distinct := int(v) + 1
		switch {
		case distinct <= 256:
			assert.Equal(t, Indirect, p.Mode())
			assert.Equal(t, requiredBits(distinct), p.Bits())
		default:
			assert.Equal(t, Direct, p.Mode())
			assert.Equal(t, testBlockBits, p.Bits())
		}

		if v == 2 || v == 4 || v == 16 || v == 256 || v == 257 {
			for i := range ref {
				require.Equal(t, ref[i], p.Get(i), "cell %d after inserting %d", i, v)
			}
		}
	}
}

func TestPaletteWidthSteps(t *testing.T) {
	p := NewPalettedContainer(BiomeStrategy, 0)
	widths := []int{}
	for v := int32(1); v < 10; v++ {
		p.Set(int(v), v)
		widths = append(widths, p.Bits())
	}
	// 2 values: 1 bit, 3-4: 2 bits, 5-8: 3 bits, 9: direct
	assert.Equal(t, []int{1, 2, 2, 3, 3, 3, 3, 6, 6}, widths)
	assert.Equal(t, Direct, p.Mode())
	for v := int32(1); v < 10; v++ {
		assert.Equal(t, v, p.Get(int(v)))
	}
	assert.Equal(t, int32(0), p.Get(0))
}

func TestPaletteSkipsSevenBits(t *testing.T) {
	p := NewPalettedContainer(BlockStrategy(testBlockBits), 0)
	for v := int32(1); v < 64; v++ {
		p.Set(int(v), v)
	}
	assert.Equal(t, 6, p.Bits())

	p.Set(64, 64)
	assert.Equal(t, Indirect, p.Mode())
	assert.Equal(t, 8, p.Bits())

	for v := int32(65); v < 100; v++ {
		p.Set(int(v), v)
	}
	assert.Equal(t, Indirect, p.Mode())
	assert.Equal(t, 8, p.Bits())
	for v := int32(0); v < 100; v++ {
		assert.Equal(t, v, p.Get(int(v)))
	}
}

func TestPaletteRejectsValuesOutsideDirectWidth(t *testing.T) {
	p := NewPalettedContainer(BlockStrategy(testBlockBits), 0)
	assert.Panics(t, func() { p.Set(0, 1<<testBlockBits) })
	assert.Panics(t, func() { p.Set(0, -1) })
	assert.Panics(t, func() { p.Fill(1 << testBlockBits) })
	assert.Equal(t, Single, p.Mode())
	assert.Equal(t, int32(0), p.Get(0))

	for i := 0; i < 300; i++ {
		p.Set(i, int32(i))
	}
	require.Equal(t, Direct, p.Mode())
	assert.Panics(t, func() { p.Set(0, 1<<testBlockBits) })
	assert.Equal(t, int32(0), p.Get(0))

	biomes := NewPalettedContainer(BiomeStrategy, 0)
	assert.Panics(t, func() { biomes.Set(0, 64) })
	assert.NotPanics(t, func() { biomes.Set(0, 63) })
}

func TestPaletteAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, distinct := range []int{2, 9, 40, 300} {
		p := NewPalettedContainer(BlockStrategy(testBlockBits), 0)
		ref := make([]int32, SectionVolume)
		for n := 0; n < 20000; n++ {
			cell := rng.Intn(SectionVolume)
			v := int32(rng.Intn(distinct))
			old := p.Set(cell, v)
			require.Equal(t, ref[cell], old)
			ref[cell] = v
			if n%997 == 0 {
				for i := range ref {
					require.Equal(t, ref[i], p.Get(i))
				}
			}
		}
		for i := range ref {
			require.Equal(t, ref[i], p.Get(i))
		}
	}
}

func TestPaletteKeepsUnusedEntries(t *testing.T) {
	p := NewPalettedContainer(BlockStrategy(testBlockBits), 0)
	p.Set(0, 5)
	p.Set(0, 0)
	assert.Equal(t, []int32{0, 5}, p.Palette())
	assert.Equal(t, 1, p.Bits())

	p.Fill(7)
	assert.Equal(t, Single, p.Mode())
	assert.Equal(t, []int32{7}, p.Palette())
}

func encodeDecode(t *testing.T, p *PalettedContainer) (*PalettedContainer, []byte) {
	w := codec.NewWriter(0)
	p.Encode(w)
	assert.Equal(t, p.EncodedSize(), w.Len())
	r := codec.NewReader(w.Bytes())
	got, err := DecodePalettedContainer(r, p.Strategy())
	require.NoError(t, err)
	require.NoError(t, r.Finish())
	return got, w.Bytes()
}

func TestPaletteWireSingle(t *testing.T) {
	p := NewPalettedContainer(BlockStrategy(testBlockBits), 9)
	got, raw := encodeDecode(t, p)
	assert.Equal(t, []byte{0x00, 0x09}, raw)
	assert.Equal(t, Single, got.Mode())
	assert.Equal(t, int32(9), got.Get(100))
}

func TestPaletteWireIndirectIsClamped(t *testing.T) {
	p := NewPalettedContainer(BlockStrategy(testBlockBits), 0)
	p.Set(1, 1)
	require.Equal(t, 1, p.Bits())

	got, raw := encodeDecode(t, p)
	assert.Equal(t, byte(4), raw[0])
	assert.Equal(t, byte(2), raw[1]) // palette length
	assert.Len(t, raw, 1+1+2+256*8)
	assert.Equal(t, Indirect, got.Mode())
	assert.Equal(t, 4, got.Bits())
	assert.Equal(t, int32(1), got.Get(1))
	assert.Equal(t, int32(0), got.Get(2))
}

func TestPaletteWireDirect(t *testing.T) {
	p := NewPalettedContainer(BlockStrategy(testBlockBits), 0)
	for i := 0; i < 300; i++ {
		p.Set(i, int32(i+1000))
	}
	got, raw := encodeDecode(t, p)
	assert.Equal(t, byte(testBlockBits), raw[0])
	assert.Len(t, raw, 1+1024*8)
	for i := 0; i < 300; i++ {
		assert.Equal(t, int32(i+1000), got.Get(i))
	}
}

func TestPaletteWireRejectsBadIndex(t *testing.T) {
	w := codec.NewWriter(0)
	w.Byte(4)
	w.VarInt(1)
	w.VarInt(7)
	words := make([]uint64, 256)
	words[0] = 3 // index 3 with a palette of one entry
	w.Longs(words)
	_, err := DecodePalettedContainer(codec.NewReader(w.Bytes()), BlockStrategy(testBlockBits))
	assert.ErrorIs(t, err, codec.ErrFormat)

	_, err = DecodePalettedContainer(codec.NewReader([]byte{4, 1, 7, 0, 0}), BlockStrategy(testBlockBits))
	assert.ErrorIs(t, err, codec.ErrUnexpectedEnd)

	single := codec.NewWriter(0)
	single.Byte(0)
	single.VarInt(1 << testBlockBits)
	_, err = DecodePalettedContainer(codec.NewReader(single.Bytes()), BlockStrategy(testBlockBits))
	assert.ErrorIs(t, err, codec.ErrFormat)

	w = codec.NewWriter(0)
	w.Byte(1)
	w.VarInt(1)
	w.VarInt(64)
	w.Longs(make([]uint64, 1))
	_, err = DecodePalettedContainer(codec.NewReader(w.Bytes()), BiomeStrategy)
	assert.ErrorIs(t, err, codec.ErrFormat)
}

func isAir(id block.StateID) bool { return id == 0 }

func TestSectionNonAirCount(t *testing.T) {
	s := NewSection(block.Air, 0, testBlockBits, isAir)
	assert.True(t, s.Empty())

	s.SetBlock(1, 2, 3, 1)
	s.SetBlock(1, 2, 3, 2)
	s.SetBlock(4, 5, 6, 1)
	assert.Equal(t, 2, s.NonAir())
	assert.Equal(t, block.StateID(2), s.Block(1, 2, 3))
	assert.Equal(t, block.StateID(2), block.StateID(s.Blocks.Get(3<<4|2<<8|1)))

	s.SetBlock(1, 2, 3, block.Air)
	assert.Equal(t, 1, s.NonAir())

	s.Fill(1)
	assert.Equal(t, SectionVolume, s.NonAir())
}

func TestSectionBiomes(t *testing.T) {
	s := NewSection(block.Air, 3, testBlockBits, isAir)
	assert.Equal(t, int32(3), s.Biome(15, 15, 15))
	s.SetBiome(5, 9, 13, 2)
	assert.Equal(t, int32(2), s.Biome(4, 8, 12))
	assert.Equal(t, int32(3), s.Biome(3, 8, 12))
}

func TestColumnDirtyTracking(t *testing.T) {
	c := NewColumn(2, -3, -64, 384, block.Air, 0, testBlockBits, isAir)
	assert.Len(t, c.Sections(), 24)
	assert.False(t, c.Dirty())

	c.SetBlock(1, -64, 1, 1)
	c.SetBlock(2, 70, 3, 1)
	c.SetBlock(2, 70, 3, 1) // no change
	c.SetBlock(0, 71, 0, 1)
	require.True(t, c.Dirty())

	refs := c.DrainDirty()
	require.Len(t, refs, 2)
	assert.Equal(t, -4, refs[0].Y)
	assert.Equal(t, []uint16{uint16(SectionIndex(1, 0, 1))}, refs[0].Changes)
	assert.Equal(t, 4, refs[1].Y)
	assert.Equal(t, []uint16{uint16(SectionIndex(2, 6, 3)), uint16(SectionIndex(0, 7, 0))}, refs[1].Changes)

	x, y, z := CellPosition(refs[1].Changes[0])
	assert.Equal(t, []int{2, 6, 3}, []int{x, y, z})

	assert.False(t, c.Dirty())
	assert.Nil(t, c.DrainDirty())

	c.FillSection(0, 1)
	c.SetBlock(3, -60, 3, 2)
	refs = c.DrainDirty()
	require.Len(t, refs, 1)
	assert.Nil(t, refs[0].Changes)
}

func TestColumnRange(t *testing.T) {
	c := NewColumn(0, 0, -64, 384, block.Air, 0, testBlockBits, isAir)
	assert.True(t, c.InRange(-64))
	assert.True(t, c.InRange(319))
	assert.False(t, c.InRange(320))
	assert.False(t, c.InRange(-65))
	assert.Nil(t, c.SectionAt(320))
	assert.NotNil(t, c.SectionAt(0))
}

func TestHeightmap(t *testing.T) {
	c := NewColumn(0, 0, -64, 384, block.Air, 0, testBlockBits, isAir)
	c.SetBlock(0, -64, 0, 1)
	c.SetBlock(5, 100, 7, 1)

	storage, err := NewBitStorage(9, 256, c.Heightmap())
	require.NoError(t, err)
	assert.Equal(t, 1, storage.Get(0))
	assert.Equal(t, 165, storage.Get(7<<4|5))
	assert.Equal(t, 0, storage.Get(1))
}

func TestChunkDataRoundTrip(t *testing.T) {
	c := NewColumn(4, 5, -64, 384, block.Air, 0, testBlockBits, isAir)
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			c.SetBlock(x, -64, z, 1)
			c.SetBlock(x, -63, z, 10)
			c.SetBlock(x, -62, z, 9)
		}
	}
	c.SetBlock(8, 200, 8, 14)

	data := c.ChunkData()
	w := codec.NewWriter(0)
	require.NoError(t, data.Encode(w))
	lightData := c.LightData(LightBright)
	lightData.Encode(w)

	r := codec.NewReader(w.Bytes())
	var got ChunkData
	require.NoError(t, got.Decode(r))
	var light LightData
	require.NoError(t, light.Decode(r))
	require.NoError(t, r.Finish())

	assert.Len(t, got.Heightmaps, 2)
	assert.Equal(t, data.Heightmaps[0].Data, got.Heightmaps[0].Data)
	assert.Len(t, light.SkyLight, 26)
	assert.True(t, light.SkyMask.Test(25))

	sections, err := DecodeSections(got.Data, 24, testBlockBits, isAir)
	require.NoError(t, err)
	decoded := FromSections(4, 5, -64, sections, testBlockBits, isAir)
	for y := -64; y < 320; y++ {
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				require.Equal(t, c.Block(x, y, z), decoded.Block(x, y, z))
			}
		}
	}
	assert.Equal(t, 768, decoded.Sections()[0].NonAir())
	assert.Equal(t, 1, decoded.SectionAt(200).NonAir())
}

func TestLightDark(t *testing.T) {
	c := NewColumn(0, 0, 0, 256, block.Air, 0, testBlockBits, isAir)
	l := c.LightData(LightDark)
	assert.Empty(t, l.SkyLight)
	assert.Equal(t, uint(18), l.EmptySkyMask.Count())
	assert.Equal(t, uint(0), l.SkyMask.Count())
}
