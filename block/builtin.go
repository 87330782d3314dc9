package block

// vanillaStateSpace covers the global palette of 1.21.5, which needs 15 bits per entry.
const vanillaStateSpace = 1 << 15

var builtinStates = []State{
	{ID: 0, Block: "minecraft:air", Default: true},
	{ID: 1, Block: "minecraft:stone", Default: true},
	{ID: 2, Block: "minecraft:granite", Default: true},
	{ID: 3, Block: "minecraft:polished_granite", Default: true},
	{ID: 4, Block: "minecraft:diorite", Default: true},
	{ID: 5, Block: "minecraft:polished_diorite", Default: true},
	{ID: 6, Block: "minecraft:andesite", Default: true},
	{ID: 7, Block: "minecraft:polished_andesite", Default: true},
	{ID: 8, Block: "minecraft:grass_block", Properties: map[string]string{"snowy": "true"}},
	{ID: 9, Block: "minecraft:grass_block", Properties: map[string]string{"snowy": "false"}, Default: true},
	{ID: 10, Block: "minecraft:dirt", Default: true},
	{ID: 11, Block: "minecraft:coarse_dirt", Default: true},
	{ID: 12, Block: "minecraft:podzol", Properties: map[string]string{"snowy": "true"}},
	{ID: 13, Block: "minecraft:podzol", Properties: map[string]string{"snowy": "false"}, Default: true},
	{ID: 14, Block: "minecraft:cobblestone", Default: true},
}

// Builtin returns a registry with the first few vanilla states and the vanilla id space. It is
// enough to build simple worlds without a data generator report.
func Builtin() *Registry {
	reg := newRegistry()
	for _, s := range builtinStates {
		reg.add(s)
	}
	reg.size = vanillaStateSpace
	return reg
}
