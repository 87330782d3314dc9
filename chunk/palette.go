package chunk

import (
	"fmt"
	"math/bits"

	"github.com/astei/voxelwire/codec"
)

type Mode uint8

const (
	Single Mode = iota
	Indirect
	Direct
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Indirect:
		return "indirect"
	case Direct:
		return "direct"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Strategy describes one kind of paletted container: how many cells it has, the entry widths
// that use an indirect palette and the width of a direct entry.
type Strategy struct {
	Size        int
	MinIndirect int
	MaxIndirect int
	DirectBits  int
}

// BlockStrategy is used for the 16x16x16 block states of a section. directBits is the width
// needed for the whole block state id space.
func BlockStrategy(directBits int) Strategy {
	return Strategy{Size: SectionVolume, MinIndirect: 4, MaxIndirect: 8, DirectBits: directBits}
}

// BiomeStrategy is used for the 4x4x4 biome cells of a section.
var BiomeStrategy = Strategy{Size: 64, MinIndirect: 1, MaxIndirect: 3, DirectBits: 6}

// requiredBits is ceil(log2(count)): the width needed to address count palette entries. Seven
// bits are never used; 65 to 128 entries take eight.
func requiredBits(count int) int {
	if count <= 1 {
		return 0
	}
	n := bits.Len(uint(count - 1))
	if n == 7 {
		n = 8
	}
	return n
}

// PalettedContainer stores Size values, picking the cheapest of three encodings: one value for
// every cell, a palette with packed indices, or the raw values packed directly. The entry width
// only ever grows; palette entries are not removed when their last cell is overwritten.
type PalettedContainer struct {
	strategy Strategy
	mode     Mode
	palette  []int32
	index    map[int32]int
	storage  *BitStorage
}

// NewPalettedContainer returns a container with every cell set to value.
func NewPalettedContainer(s Strategy, value int32) *PalettedContainer {
	p := &PalettedContainer{strategy: s}
	p.Fill(value)
	return p
}

func (p *PalettedContainer) Strategy() Strategy { return p.strategy }
func (p *PalettedContainer) Mode() Mode         { return p.mode }
func (p *PalettedContainer) Bits() int          { return p.storage.Bits() }
func (p *PalettedContainer) Len() int           { return p.strategy.Size }

// Palette returns a copy of the palette. It is empty in direct mode.
func (p *PalettedContainer) Palette() []int32 {
	return append([]int32(nil), p.palette...)
}

// Fill sets every cell to value and drops back to a single value container.
func (p *PalettedContainer) Fill(value int32) {
	p.checkValue(value)
	p.mode = Single
	p.palette = []int32{value}
	p.index = map[int32]int{value: 0}
	p.storage = mustBitStorage(0, p.strategy.Size)
}

func (p *PalettedContainer) Get(i int) int32 {
	switch p.mode {
	case Single:
		return p.palette[0]
	case Indirect:
		return p.palette[p.storage.Get(i)]
	default:
		return int32(p.storage.Get(i))
	}
}

// Set stores value at cell i and returns what was there before. It panics if value does not fit
// in the strategy's direct width.
func (p *PalettedContainer) Set(i int, value int32) int32 {
	p.checkValue(value)
	old := p.Get(i)
	if old == value {
		return old
	}
	idx := p.indexFor(value)
	p.storage.Set(i, idx)
	return old
}

func (s Strategy) fits(value int32) bool {
	return value >= 0 && value < 1<<s.DirectBits
}

func (p *PalettedContainer) checkValue(value int32) {
	if !p.strategy.fits(value) {
		panic(fmt.Sprintf("chunk: value %d out of range [0, %d)", value, 1<<p.strategy.DirectBits))
	}
}

// indexFor returns the storage entry representing value, growing the palette and widening or
// promoting the storage first if value is new.
func (p *PalettedContainer) indexFor(value int32) int {
	if p.mode == Direct {
		return int(value)
	}
	if idx, ok := p.index[value]; ok {
		return idx
	}

	p.palette = append(p.palette, value)
	idx := len(p.palette) - 1
	p.index[value] = idx

	need := requiredBits(len(p.palette))
	if need > p.strategy.MaxIndirect {
		p.promoteToDirect()
		return int(value)
	}
	if need > p.storage.Bits() {
		p.storage = p.storage.Resized(need)
		p.mode = Indirect
	}
	return idx
}

func (p *PalettedContainer) promoteToDirect() {
	direct := mustBitStorage(p.strategy.DirectBits, p.strategy.Size)
	for i := 0; i < p.strategy.Size; i++ {
		direct.Set(i, int(p.Get(i)))
	}
	p.storage = direct
	p.mode = Direct
	p.palette = nil
	p.index = nil
}

// Count returns how many cells hold a value for which pred is true.
func (p *PalettedContainer) Count(pred func(int32) bool) int {
	if p.mode == Single {
		if pred(p.palette[0]) {
			return p.strategy.Size
		}
		return 0
	}
	n := 0
	for i := 0; i < p.strategy.Size; i++ {
		if pred(p.Get(i)) {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (p *PalettedContainer) Clone() *PalettedContainer {
	out := &PalettedContainer{
		strategy: p.strategy,
		mode:     p.mode,
		palette:  append([]int32(nil), p.palette...),
	}
	if p.index != nil {
		out.index = make(map[int32]int, len(p.index))
		for k, v := range p.index {
			out.index[k] = v
		}
	}
	out.storage, _ = NewBitStorage(p.storage.Bits(), p.storage.Len(), append([]uint64(nil), p.storage.Raw()...))
	return out
}

// Encode writes the network form: the entry width, the palette, then the packed longs with no
// length prefix. Indirect widths below the strategy's minimum are sent at the minimum, since that
// is the width the client sizes its storage for.
func (p *PalettedContainer) Encode(w *codec.Writer) {
	switch p.mode {
	case Single:
		w.Byte(0)
		w.VarInt(p.palette[0])
	case Indirect:
		storage := p.storage
		if storage.Bits() < p.strategy.MinIndirect {
			storage = storage.Resized(p.strategy.MinIndirect)
		}
		w.Byte(byte(storage.Bits()))
		w.VarInt(int32(len(p.palette)))
		for _, v := range p.palette {
			w.VarInt(v)
		}
		w.Longs(storage.Raw())
	case Direct:
		w.Byte(byte(p.strategy.DirectBits))
		w.Longs(p.storage.Raw())
	}
}

// EncodedSize is the number of bytes Encode will write.
func (p *PalettedContainer) EncodedSize() int {
	switch p.mode {
	case Single:
		return 1 + codec.VarIntSize(p.palette[0])
	case Indirect:
		n := 1 + codec.VarIntSize(int32(len(p.palette)))
		for _, v := range p.palette {
			n += codec.VarIntSize(v)
		}
		width := p.storage.Bits()
		if width < p.strategy.MinIndirect {
			width = p.strategy.MinIndirect
		}
		return n + 8*wordsFor(width, p.strategy.Size)
	default:
		return 1 + 8*wordsFor(p.strategy.DirectBits, p.strategy.Size)
	}
}

// DecodePalettedContainer reads the network form written by Encode, checking that every packed
// index points into the palette.
func DecodePalettedContainer(r *codec.Reader, s Strategy) (*PalettedContainer, error) {
	width, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	bits := int(width)

	switch {
	case bits == 0:
		v, err := r.VarInt()
		if err != nil {
			return nil, err
		}
		if !s.fits(v) {
			return nil, codec.Errorf("value %d does not fit in %d bits", v, s.DirectBits)
		}
		return NewPalettedContainer(s, v), nil

	case bits <= s.MaxIndirect:
		if bits < s.MinIndirect {
			bits = s.MinIndirect
		}
		n, err := r.Length(1 << uint(bits))
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, codec.Errorf("empty palette")
		}
		p := &PalettedContainer{strategy: s, mode: Indirect, palette: make([]int32, n), index: make(map[int32]int, n)}
		for i := range p.palette {
			if p.palette[i], err = r.VarInt(); err != nil {
				return nil, err
			}
			if !s.fits(p.palette[i]) {
				return nil, codec.Errorf("palette value %d does not fit in %d bits", p.palette[i], s.DirectBits)
			}
			if _, dup := p.index[p.palette[i]]; !dup {
				p.index[p.palette[i]] = i
			}
		}
		words, err := r.Longs(wordsFor(bits, s.Size))
		if err != nil {
			return nil, err
		}
		p.storage, _ = NewBitStorage(bits, s.Size, words)
		for i := 0; i < s.Size; i++ {
			if p.storage.Get(i) >= n {
				return nil, codec.Errorf("palette index %d out of range at cell %d", p.storage.Get(i), i)
			}
		}
		return p, nil

	default:
		words, err := r.Longs(wordsFor(s.DirectBits, s.Size))
		if err != nil {
			return nil, err
		}
		p := &PalettedContainer{strategy: s, mode: Direct}
		p.storage, _ = NewBitStorage(s.DirectBits, s.Size, words)
		return p, nil
	}
}
