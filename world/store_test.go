package world

import (
	"testing"

	"github.com/astei/voxelwire/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var overworld = Dimension{Name: "minecraft:overworld", MinY: -64, Height: 384}

func newStore(t *testing.T) *Store {
	s := NewStore(block.Builtin())
	require.NoError(t, s.AddDimension(overworld))
	return s
}

func TestDimensionValidate(t *testing.T) {
	assert.NoError(t, overworld.Validate())
	assert.Error(t, Dimension{Name: "a", MinY: -60, Height: 384}.Validate())
	assert.Error(t, Dimension{Name: "a", MinY: 0, Height: 0}.Validate())
	assert.Error(t, Dimension{MinY: 0, Height: 16}.Validate())
	assert.Error(t, Dimension{Name: "a", MinY: -2048, Height: 16}.Validate())
	assert.Error(t, Dimension{Name: "a", MinY: 0, Height: 16, Biome: 64}.Validate())

	s := newStore(t)
	assert.Error(t, s.AddDimension(overworld))
	assert.ErrorIs(t, s.AddDimension(Dimension{Name: "x", Height: 16, EmptyBlock: 1 << 20}), ErrInvalidState)
}

func TestLoadCreatesEmptyColumn(t *testing.T) {
	s := newStore(t)
	c, err := s.Load(overworld.Name, 3, -7)
	require.NoError(t, err)
	assert.Len(t, c.Sections(), 24)
	for _, sec := range c.Sections() {
		assert.True(t, sec.Empty())
	}

	again, err := s.Load(overworld.Name, 3, -7)
	require.NoError(t, err)
	assert.Same(t, c, again)

	_, err = s.Load("minecraft:the_nether", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownDimension)
}

func TestGetSetBlock(t *testing.T) {
	s := newStore(t)
	_, err := s.Load(overworld.Name, -1, 0)
	require.NoError(t, err)

	old, err := s.SetBlock(overworld.Name, -5, 70, 9, 14)
	require.NoError(t, err)
	assert.Equal(t, block.Air, old)

	got, err := s.GetBlock(overworld.Name, -5, 70, 9)
	require.NoError(t, err)
	assert.Equal(t, block.StateID(14), got)

	c, err := s.Column(overworld.Name, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, block.StateID(14), c.Block(11, 70, 9))

	refs, err := s.DrainDirty(overworld.Name, -1, 0)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, 4, refs[0].Y)
	assert.Len(t, refs[0].Changes, 1)

	refs, err = s.DrainDirty(overworld.Name, -1, 0)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestOutOfBounds(t *testing.T) {
	s := newStore(t)
	_, err := s.Load(overworld.Name, 0, 0)
	require.NoError(t, err)

	_, err = s.GetBlock(overworld.Name, 0, 320, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = s.GetBlock(overworld.Name, 0, -65, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = s.SetBlock(overworld.Name, 16, 0, 0, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = s.SetBlock(overworld.Name, 0, 0, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.Column(overworld.Name, 1, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = s.DrainDirty(overworld.Name, 1, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = s.GetBlock(overworld.Name, 0, 319, 0)
	assert.NoError(t, err)
}

func TestUnload(t *testing.T) {
	s := newStore(t)
	_, err := s.Load(overworld.Name, 0, 0)
	require.NoError(t, err)
	_, err = s.SetBlock(overworld.Name, 1, 1, 1, 1)
	require.NoError(t, err)

	ok, err := s.Unload(overworld.Name, 0, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Unload(overworld.Name, 0, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.GetBlock(overworld.Name, 1, 1, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	c, err := s.Load(overworld.Name, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, block.Air, c.Block(1, 1, 1))
}

func TestColumnsInRange(t *testing.T) {
	s := newStore(t)
	cols, err := s.ColumnsInRange(overworld.Name, ColumnPos{10, -10}, 2)
	require.NoError(t, err)
	require.Len(t, cols, 25)
	assert.Equal(t, int32(10), cols[0].X)
	assert.Equal(t, int32(-10), cols[0].Z)

	loaded, err := s.Loaded(overworld.Name)
	require.NoError(t, err)
	assert.Len(t, loaded, 25)
	assert.Equal(t, ColumnPos{8, -12}, loaded[0])
	assert.Equal(t, ColumnPos{12, -8}, loaded[24])
}

func TestColumnOfNegative(t *testing.T) {
	assert.Equal(t, ColumnPos{-1, -1}, ColumnOf(-1, -16))
	assert.Equal(t, ColumnPos{-2, 0}, ColumnOf(-17, 15))
	assert.Equal(t, ColumnPos{1, 0}, ColumnOf(16, 0))
}

func TestFlatGenerator(t *testing.T) {
	reg := block.Builtin()
	layers, err := ResolveLayers(reg, []LayerSpec{
		{Block: "stone", Height: 20},
		{Block: "minecraft:dirt", Height: 2},
		{Block: "grass_block", Properties: map[string]string{"snowy": "false"}, Height: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []Layer{{1, 20}, {10, 2}, {9, 1}}, layers)

	s := newStore(t)
	s.SetGenerator(FlatGenerator(layers))
	c, err := s.Load(overworld.Name, 0, 0)
	require.NoError(t, err)
	assert.False(t, c.Dirty())

	for _, tc := range []struct {
		y    int
		want block.StateID
	}{
		{-64, 1}, {-49, 1}, {-45, 1}, {-44, 10}, {-43, 10}, {-42, 9}, {-41, 0},
	} {
		got, err := s.GetBlock(overworld.Name, 7, tc.y, 3)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "y=%d", tc.y)
	}
	assert.Equal(t, 4096, c.Sections()[0].NonAir())
	assert.Equal(t, 7*256, c.Sections()[1].NonAir())

	_, err = ResolveLayers(reg, []LayerSpec{{Block: "minecraft:unobtainium", Height: 1}})
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = ResolveLayers(reg, []LayerSpec{{Block: "stone"}})
	assert.Error(t, err)
}
