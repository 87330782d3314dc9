package protocol

import (
	"sort"
	"strings"
)

// Registry ids synchronised during configuration.
const (
	RegistryDimensionType = "minecraft:dimension_type"
	RegistryBiome         = "minecraft:worldgen/biome"
)

// RegistrySet is one synchronised registry. The position of an entry is its network id.
type RegistrySet struct {
	ID      string
	Entries []RegistryEntry
}

// Registries is the registry data sent to a client during configuration.
type Registries []RegistrySet

// Packets returns one RegistryData packet per registry.
func (r Registries) Packets() []*RegistryData {
	out := make([]*RegistryData, len(r))
	for i, set := range r {
		out[i] = &RegistryData{Registry: set.ID, Entries: set.Entries}
	}
	return out
}

// Index returns the network id of entry in registry.
func (r Registries) Index(registry, entry string) (int32, bool) {
	registry, entry = qualify(registry), qualify(entry)
	for _, set := range r {
		if set.ID != registry {
			continue
		}
		for i, e := range set.Entries {
			if e.ID == entry {
				return int32(i), true
			}
		}
	}
	return 0, false
}

func qualify(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return "minecraft:" + id
}

// RegistriesFromIDs builds registries whose entries all come from the core pack, so they carry
// no data. Registries are sorted by id; entries keep their order.
func RegistriesFromIDs(ids map[string][]string) Registries {
	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(Registries, 0, len(names))
	for _, name := range names {
		set := RegistrySet{ID: qualify(name)}
		for _, e := range ids[name] {
			set.Entries = append(set.Entries, RegistryEntry{ID: qualify(e)})
		}
		out = append(out, set)
	}
	return out
}

// DefaultRegistryIDs lists the registries a 1.21.5 client refuses to play without, with entries
// taken from the core pack.
func DefaultRegistryIDs() map[string][]string {
	return map[string][]string{
		"minecraft:dimension_type": {"overworld", "overworld_caves", "the_end", "the_nether"},
		"minecraft:worldgen/biome": {"plains", "desert", "forest", "ocean", "the_void", "nether_wastes", "the_end"},
		"minecraft:chat_type": {
			"chat", "emote_command", "msg_command_incoming", "msg_command_outgoing", "say_command",
			"team_msg_command_incoming", "team_msg_command_outgoing",
		},
		"minecraft:damage_type": {
			"arrow", "bad_respawn_point", "cactus", "campfire", "cramming", "dragon_breath", "drown",
			"dry_out", "ender_pearl", "explosion", "fall", "falling_anvil", "falling_block",
			"falling_stalactite", "fireball", "fireworks", "fly_into_wall", "freeze", "generic",
			"generic_kill", "hot_floor", "in_fire", "in_wall", "indirect_magic", "lava", "lightning_bolt",
			"mace_smash", "magic", "mob_attack", "mob_attack_no_aggro", "mob_projectile", "on_fire",
			"out_of_world", "outside_border", "player_attack", "player_explosion", "sonic_boom", "spit",
			"stalagmite", "starve", "sting", "sweet_berry_bush", "thorns", "thrown", "trident",
			"unattributed_fireball", "wind_charge", "wither", "wither_skull",
		},
		"minecraft:painting_variant": {"kebab", "aztec", "alban", "aztec2", "bomb", "plant", "wasteland"},
		"minecraft:wolf_variant": {
			"ashen", "black", "chestnut", "pale", "rusty", "snowy", "spotted", "striped", "woods",
		},
		"minecraft:wolf_sound_variant": {"angry", "big", "classic", "cute", "grumpy", "puglin", "sad"},
		"minecraft:cat_variant": {
			"all_black", "black", "british_shorthair", "calico", "jellie", "persian", "ragdoll", "red",
			"siamese", "tabby", "white",
		},
		"minecraft:chicken_variant": {"cold", "temperate", "warm"},
		"minecraft:cow_variant":     {"cold", "temperate", "warm"},
		"minecraft:frog_variant":    {"cold", "temperate", "warm"},
		"minecraft:pig_variant":     {"cold", "temperate", "warm"},
	}
}

func DefaultRegistries() Registries {
	return RegistriesFromIDs(DefaultRegistryIDs())
}
