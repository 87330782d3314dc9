// Package world holds the loaded chunk columns of every dimension and gives block level access to
// them. It does no locking: callers must serialise access to a Store.
package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/chunk"
)

var (
	// ErrOutOfBounds is returned for block access in a column that is not loaded or at a y outside
	// the dimension's height range.
	ErrOutOfBounds      = errors.New("world: position out of bounds")
	ErrUnknownDimension = errors.New("world: unknown dimension")
	ErrInvalidState     = errors.New("world: invalid block state")
)

// Dimension describes the vertical extent of a world and what fills new columns.
type Dimension struct {
	Name string
	// TypeID is the index of the dimension type in the minecraft:dimension_type registry.
	TypeID     int32
	MinY       int
	Height     int
	EmptyBlock block.StateID
	Biome      int32
}

func (d Dimension) Validate() error {
	if d.Name == "" {
		return errors.New("world: dimension has no name")
	}
	if d.MinY%chunk.SectionWidth != 0 || d.Height <= 0 || d.Height%chunk.SectionWidth != 0 {
		return fmt.Errorf("world: dimension %s: min y %d and height %d must be positive multiples of 16", d.Name, d.MinY, d.Height)
	}
	if d.MinY < -2032 || d.MinY+d.Height > 2032 {
		return fmt.Errorf("world: dimension %s: height range exceeds [-2032, 2032)", d.Name)
	}
	if d.Biome < 0 || d.Biome >= 1<<chunk.BiomeStrategy.DirectBits {
		return fmt.Errorf("world: dimension %s: biome %d out of range", d.Name, d.Biome)
	}
	return nil
}

// MaxY is one past the highest block y.
func (d Dimension) MaxY() int { return d.MinY + d.Height }

// Sections is the number of sections in a column.
func (d Dimension) Sections() int { return d.Height / chunk.SectionWidth }

type ColumnPos struct {
	X, Z int32
}

// ColumnOf returns the position of the column holding block x, z.
func ColumnOf(x, z int) ColumnPos {
	return ColumnPos{X: int32(x >> 4), Z: int32(z >> 4)}
}

// Generator populates a freshly created column.
type Generator func(dim Dimension, c *chunk.Column)

type dimension struct {
	Dimension
	columns map[ColumnPos]*chunk.Column
}

type Store struct {
	blocks    *block.Registry
	dims      map[string]*dimension
	generator Generator
}

func NewStore(blocks *block.Registry) *Store {
	return &Store{
		blocks: blocks,
		dims:   make(map[string]*dimension),
	}
}

// SetGenerator installs a hook run on every column Load creates.
func (s *Store) SetGenerator(g Generator) {
	s.generator = g
}

func (s *Store) Blocks() *block.Registry {
	return s.blocks
}

func (s *Store) AddDimension(d Dimension) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, ok := s.dims[d.Name]; ok {
		return fmt.Errorf("world: dimension %s already exists", d.Name)
	}
	if !s.blocks.Valid(d.EmptyBlock) {
		return fmt.Errorf("%w: empty block %d of dimension %s", ErrInvalidState, d.EmptyBlock, d.Name)
	}
	s.dims[d.Name] = &dimension{Dimension: d, columns: make(map[ColumnPos]*chunk.Column)}
	return nil
}

func (s *Store) Dimension(name string) (Dimension, bool) {
	d, ok := s.dims[name]
	if !ok {
		return Dimension{}, false
	}
	return d.Dimension, true
}

// Dimensions returns every dimension sorted by name.
func (s *Store) Dimensions() []Dimension {
	out := make([]Dimension, 0, len(s.dims))
	for _, d := range s.dims {
		out = append(out, d.Dimension)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) dimension(name string) (*dimension, error) {
	d, ok := s.dims[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDimension, name)
	}
	return d, nil
}

// Load returns the column at x, z, creating it if it is not loaded. A new column has every
// section set to the dimension's empty block and is then handed to the generator, if any. A new
// column starts clean: whatever the generator changed is not reported by DrainDirty.
func (s *Store) Load(dim string, x, z int32) (*chunk.Column, error) {
	d, err := s.dimension(dim)
	if err != nil {
		return nil, err
	}
	pos := ColumnPos{x, z}
	if c, ok := d.columns[pos]; ok {
		return c, nil
	}
	c := chunk.NewColumn(x, z, d.MinY, d.Height, d.EmptyBlock, d.Biome, s.blocks.BitsPerState(), s.blocks.IsAir)
	if s.generator != nil {
		s.generator(d.Dimension, c)
		c.DrainDirty()
	}
	d.columns[pos] = c
	return c, nil
}

// Unload drops the column at x, z. It reports whether the column was loaded.
func (s *Store) Unload(dim string, x, z int32) (bool, error) {
	d, err := s.dimension(dim)
	if err != nil {
		return false, err
	}
	pos := ColumnPos{x, z}
	_, ok := d.columns[pos]
	delete(d.columns, pos)
	return ok, nil
}

// Column returns a loaded column, or ErrOutOfBounds if it is not loaded.
func (s *Store) Column(dim string, x, z int32) (*chunk.Column, error) {
	d, err := s.dimension(dim)
	if err != nil {
		return nil, err
	}
	c, ok := d.columns[ColumnPos{x, z}]
	if !ok {
		return nil, fmt.Errorf("%w: column %d, %d is not loaded", ErrOutOfBounds, x, z)
	}
	return c, nil
}

// Loaded returns the positions of every loaded column of dim, sorted by x then z.
func (s *Store) Loaded(dim string) ([]ColumnPos, error) {
	d, err := s.dimension(dim)
	if err != nil {
		return nil, err
	}
	out := make([]ColumnPos, 0, len(d.columns))
	for pos := range d.columns {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Z < out[j].Z
	})
	return out, nil
}

func (s *Store) locate(dim string, x, y, z int) (*chunk.Column, error) {
	d, err := s.dimension(dim)
	if err != nil {
		return nil, err
	}
	if y < d.MinY || y >= d.MaxY() {
		return nil, fmt.Errorf("%w: y %d outside [%d, %d)", ErrOutOfBounds, y, d.MinY, d.MaxY())
	}
	pos := ColumnOf(x, z)
	c, ok := d.columns[pos]
	if !ok {
		return nil, fmt.Errorf("%w: column %d, %d is not loaded", ErrOutOfBounds, pos.X, pos.Z)
	}
	return c, nil
}

// GetBlock returns the state at world coordinates x, y, z.
func (s *Store) GetBlock(dim string, x, y, z int) (block.StateID, error) {
	c, err := s.locate(dim, x, y, z)
	if err != nil {
		return 0, err
	}
	return c.Block(x&15, y, z&15), nil
}

// SetBlock stores state at world coordinates x, y, z, marks the section dirty when the block
// actually changed, and returns the previous state.
func (s *Store) SetBlock(dim string, x, y, z int, state block.StateID) (block.StateID, error) {
	if !s.blocks.Valid(state) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidState, state)
	}
	c, err := s.locate(dim, x, y, z)
	if err != nil {
		return 0, err
	}
	return c.SetBlock(x&15, y, z&15, state), nil
}

// DrainDirty returns and clears the changed sections of a loaded column.
func (s *Store) DrainDirty(dim string, x, z int32) ([]chunk.SectionRef, error) {
	c, err := s.Column(dim, x, z)
	if err != nil {
		return nil, err
	}
	return c.DrainDirty(), nil
}

// ColumnsInRange loads every column within radius columns of center (a square, as clients use)
// and returns them nearest first.
func (s *Store) ColumnsInRange(dim string, center ColumnPos, radius int) ([]*chunk.Column, error) {
	if _, err := s.dimension(dim); err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, nil
	}
	positions := make([]ColumnPos, 0, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			positions = append(positions, ColumnPos{center.X + int32(dx), center.Z + int32(dz)})
		}
	}
	dist := func(p ColumnPos) int64 {
		dx, dz := int64(p.X-center.X), int64(p.Z-center.Z)
		return dx*dx + dz*dz
	}
	sort.SliceStable(positions, func(i, j int) bool { return dist(positions[i]) < dist(positions[j]) })

	out := make([]*chunk.Column, len(positions))
	for i, pos := range positions {
		c, err := s.Load(dim, pos.X, pos.Z)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
