package chunk

import (
	"math/bits"

	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/codec"
	"github.com/astei/voxelwire/nbt"
	"github.com/willf/bitset"
)

// Heightmap types as numbered on the wire.
const (
	HeightmapWorldSurfaceWorldgen int32 = iota
	HeightmapWorldSurface
	HeightmapOceanFloorWorldgen
	HeightmapOceanFloor
	HeightmapMotionBlocking
	HeightmapMotionBlockingNoLeaves
)

const (
	maxHeightmaps     = 16
	maxChunkDataSize  = 2 << 20
	maxBlockEntities  = 4096
	maxLightArrays    = 4096 / SectionWidth
	LightArraySize    = 2048
	maxHeightmapLongs = 256
)

type Heightmap struct {
	Type int32
	Data []uint64
}

type BlockEntity struct {
	// PackedXZ holds local x in the high nibble and local z in the low nibble.
	PackedXZ byte
	Y        int16
	Type     int32
	Data     nbt.Tag
}

// ChunkData is the column part of the chunk data packet.
type ChunkData struct {
	Heightmaps    []Heightmap
	Data          []byte
	BlockEntities []BlockEntity
}

func (d *ChunkData) Encode(w *codec.Writer) error {
	w.VarInt(int32(len(d.Heightmaps)))
	for _, h := range d.Heightmaps {
		w.VarInt(h.Type)
		w.PrefixedLongs(h.Data)
	}
	w.ByteArray(d.Data)
	w.VarInt(int32(len(d.BlockEntities)))
	for _, be := range d.BlockEntities {
		w.Byte(be.PackedXZ)
		w.Int16(be.Y)
		w.VarInt(be.Type)
		if err := nbt.WriteNetwork(w, be.Data); err != nil {
			return err
		}
	}
	return nil
}

func (d *ChunkData) Decode(r *codec.Reader) error {
	n, err := r.Length(maxHeightmaps)
	if err != nil {
		return err
	}
	d.Heightmaps = make([]Heightmap, n)
	for i := range d.Heightmaps {
		if d.Heightmaps[i].Type, err = r.VarInt(); err != nil {
			return err
		}
		if d.Heightmaps[i].Data, err = r.PrefixedLongs(maxHeightmapLongs); err != nil {
			return err
		}
	}
	if d.Data, err = r.ByteArray(maxChunkDataSize); err != nil {
		return err
	}
	if n, err = r.Length(maxBlockEntities); err != nil {
		return err
	}
	d.BlockEntities = make([]BlockEntity, n)
	for i := range d.BlockEntities {
		be := &d.BlockEntities[i]
		if be.PackedXZ, err = r.ReadByte(); err != nil {
			return err
		}
		if be.Y, err = r.Int16(); err != nil {
			return err
		}
		if be.Type, err = r.VarInt(); err != nil {
			return err
		}
		if be.Data, err = nbt.ReadNetwork(r); err != nil {
			return err
		}
	}
	return nil
}

// LightData is the light part of the chunk data packet. Masks have one bit per section plus one
// below and one above the world; each set bit in a mask has a matching array.
type LightData struct {
	SkyMask        *bitset.BitSet
	BlockMask      *bitset.BitSet
	EmptySkyMask   *bitset.BitSet
	EmptyBlockMask *bitset.BitSet
	SkyLight       [][]byte
	BlockLight     [][]byte
}

func (l *LightData) Encode(w *codec.Writer) {
	w.BitSet(l.SkyMask)
	w.BitSet(l.BlockMask)
	w.BitSet(l.EmptySkyMask)
	w.BitSet(l.EmptyBlockMask)
	for _, arrays := range [][][]byte{l.SkyLight, l.BlockLight} {
		w.VarInt(int32(len(arrays)))
		for _, a := range arrays {
			w.ByteArray(a)
		}
	}
}

func (l *LightData) Decode(r *codec.Reader) error {
	var err error
	for _, mask := range []**bitset.BitSet{&l.SkyMask, &l.BlockMask, &l.EmptySkyMask, &l.EmptyBlockMask} {
		if *mask, err = r.BitSet(maxLightArrays/64 + 1); err != nil {
			return err
		}
	}
	for _, arrays := range []*[][]byte{&l.SkyLight, &l.BlockLight} {
		n, err := r.Length(maxLightArrays)
		if err != nil {
			return err
		}
		*arrays = make([][]byte, n)
		for i := range *arrays {
			a, err := r.ByteArray(LightArraySize)
			if err != nil {
				return err
			}
			if len(a) != LightArraySize {
				return codec.Errorf("light array of %d bytes", len(a))
			}
			(*arrays)[i] = a
		}
	}
	return nil
}

// Light selects the light sent with a column. No light is computed; the client is told either
// that everything is dark or that everything is fully lit.
type Light uint8

const (
	LightDark Light = iota
	LightBright
)

// heightmapBits is the entry width of a heightmap for a world of the given height.
func heightmapBits(height int) int {
	return bits.Len(uint(height))
}

// Heightmap computes, for every x, z, one more than the highest non-air block relative to the
// bottom of the column, or 0 for an all-air column of blocks.
func (c *Column) Heightmap() []uint64 {
	storage := mustBitStorage(heightmapBits(c.Height()), 256)
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			storage.Set(z<<4|x, c.surface(x, z))
		}
	}
	return storage.Raw()
}

func (c *Column) surface(x, z int) int {
	for i := len(c.sections) - 1; i >= 0; i-- {
		s := c.sections[i]
		if s.Empty() {
			continue
		}
		for y := 15; y >= 0; y-- {
			if !s.isAir(s.Block(x, y, z)) {
				return i*SectionWidth + y + 1
			}
		}
	}
	return 0
}

// ChunkData renders the column for the chunk data packet.
func (c *Column) ChunkData() ChunkData {
	size := 0
	for _, s := range c.sections {
		size += s.EncodedSize()
	}
	w := codec.NewWriter(size)
	for _, s := range c.sections {
		s.Encode(w)
	}
	hm := c.Heightmap()
	return ChunkData{
		Heightmaps: []Heightmap{
			{Type: HeightmapWorldSurface, Data: hm},
			{Type: HeightmapMotionBlocking, Data: hm},
		},
		Data: w.Bytes(),
	}
}

// LightData renders the light part of the chunk data packet for the column.
func (c *Column) LightData(mode Light) LightData {
	n := uint(len(c.sections) + 2)
	l := LightData{
		SkyMask:        bitset.New(n),
		BlockMask:      bitset.New(n),
		EmptySkyMask:   bitset.New(n),
		EmptyBlockMask: bitset.New(n),
	}
	if mode == LightBright {
		full := make([]byte, LightArraySize)
		for i := range full {
			full[i] = 0xFF
		}
		for i := uint(0); i < n; i++ {
			l.SkyMask.Set(i)
			l.SkyLight = append(l.SkyLight, full)
		}
		return l
	}
	for i := uint(0); i < n; i++ {
		l.EmptySkyMask.Set(i)
		l.EmptyBlockMask.Set(i)
	}
	return l
}

// DecodeSections reads the section data of a chunk data packet back into sections.
func DecodeSections(data []byte, count, blockBits int, air AirFunc) ([]*Section, error) {
	r := codec.NewReader(data)
	out := make([]*Section, count)
	for i := range out {
		s, err := DecodeSection(r, blockBits, air)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, r.Finish()
}

// FromSections builds a column out of decoded sections.
func FromSections(x, z int32, minY int, sections []*Section, blockBits int, air AirFunc) *Column {
	n := uint(len(sections))
	return &Column{
		X:         x,
		Z:         z,
		minY:      minY,
		blockBits: blockBits,
		sections:  sections,
		air:       air,
		dirty:     bitset.New(n),
		full:      bitset.New(n),
		changes:   make([]*bitset.BitSet, n),
	}
}

// IsAir reports whether id counts as air in this column.
func (c *Column) IsAir(id block.StateID) bool {
	if c.air == nil {
		return id == block.Air
	}
	return c.air(id)
}
