package chunk

import (
	"fmt"

	"github.com/astei/voxelwire/block"
	"github.com/willf/bitset"
)

// Column is the full vertical stack of sections at one chunk position. It tracks which sections
// changed, and which cells inside them, since the last DrainDirty.
//
// A Column is not safe for concurrent use.
type Column struct {
	X, Z int32

	minY      int
	blockBits int
	sections  []*Section
	air       AirFunc

	dirty   *bitset.BitSet
	full    *bitset.BitSet
	changes []*bitset.BitSet
}

// SectionRef names a section that changed and the cells that changed in it.
type SectionRef struct {
	// Y is the section coordinate, i.e. block y >> 4.
	Y       int
	Section *Section
	// Changes holds the changed cell indices in ascending order.
	Changes []uint16
}

// NewColumn creates a column covering [minY, minY+height) with every block set to fill and
// every biome cell set to biome. minY and height must be multiples of 16.
func NewColumn(x, z int32, minY, height int, fill block.StateID, biome int32, blockBits int, air AirFunc) *Column {
	if minY%SectionWidth != 0 || height <= 0 || height%SectionWidth != 0 {
		panic(fmt.Sprintf("chunk: invalid column range %d+%d", minY, height))
	}
	n := height / SectionWidth
	c := &Column{
		X:         x,
		Z:         z,
		minY:      minY,
		blockBits: blockBits,
		sections:  make([]*Section, n),
		air:       air,
		dirty:     bitset.New(uint(n)),
		full:      bitset.New(uint(n)),
		changes:   make([]*bitset.BitSet, n),
	}
	for i := range c.sections {
		c.sections[i] = NewSection(fill, biome, blockBits, air)
	}
	return c
}

func (c *Column) MinY() int   { return c.minY }
func (c *Column) Height() int { return len(c.sections) * SectionWidth }

// BlockBits is the direct palette width the column's sections use.
func (c *Column) BlockBits() int { return c.blockBits }

// Sections returns the sections from bottom to top.
func (c *Column) Sections() []*Section { return c.sections }

// SectionAt returns the section holding block y, or nil if y is out of range.
func (c *Column) SectionAt(y int) *Section {
	i := (y - c.minY) >> 4
	if y < c.minY || i >= len(c.sections) {
		return nil
	}
	return c.sections[i]
}

// InRange reports whether block y lies inside the column.
func (c *Column) InRange(y int) bool {
	return y >= c.minY && y < c.minY+c.Height()
}

// Block returns the state at local x, z (0..15) and absolute y.
func (c *Column) Block(x, y, z int) block.StateID {
	return c.sections[(y-c.minY)>>4].Block(x, (y-c.minY)&15, z)
}

// SetBlock stores state at local x, z and absolute y, marking the section dirty if anything
// changed, and returns the previous state.
func (c *Column) SetBlock(x, y, z int, state block.StateID) block.StateID {
	i := (y - c.minY) >> 4
	ly := (y - c.minY) & 15
	old := c.sections[i].SetBlock(x, ly, z, state)
	if old != state {
		c.markChanged(i, SectionIndex(x, ly, z))
	}
	return old
}

// FillSection sets every block of section i (counted from the bottom) to state and marks every
// cell changed.
func (c *Column) FillSection(i int, state block.StateID) {
	c.sections[i].Fill(state)
	c.dirty.Set(uint(i))
	c.full.Set(uint(i))
	c.changes[i] = nil
}

func (c *Column) markChanged(section, cell int) {
	c.dirty.Set(uint(section))
	if c.full.Test(uint(section)) {
		return
	}
	if c.changes[section] == nil {
		c.changes[section] = bitset.New(SectionVolume)
	}
	c.changes[section].Set(uint(cell))
}

// Dirty reports whether any section changed since the last drain.
func (c *Column) Dirty() bool {
	return c.dirty.Any()
}

// DrainDirty returns the sections changed since the last call, bottom first, and clears the
// dirty set. A section that was filled wholesale is returned with nil Changes.
func (c *Column) DrainDirty() []SectionRef {
	if !c.dirty.Any() {
		return nil
	}
	var refs []SectionRef
	for i, ok := c.dirty.NextSet(0); ok; i, ok = c.dirty.NextSet(i + 1) {
		ref := SectionRef{Y: c.minY>>4 + int(i), Section: c.sections[i]}
		if changed := c.changes[i]; changed != nil && !c.full.Test(i) {
			ref.Changes = make([]uint16, 0, changed.Count())
			for j, ok := changed.NextSet(0); ok; j, ok = changed.NextSet(j + 1) {
				ref.Changes = append(ref.Changes, uint16(j))
			}
		}
		refs = append(refs, ref)
		c.changes[i] = nil
	}
	c.dirty.ClearAll()
	c.full.ClearAll()
	return refs
}

// CellPosition turns a cell index back into local coordinates.
func CellPosition(cell uint16) (x, y, z int) {
	return int(cell & 15), int(cell >> 8), int(cell >> 4 & 15)
}
