package block

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// StateID is a block state's index in the global palette.
type StateID int32

const Air StateID = 0

type State struct {
	ID         StateID
	Block      string
	Properties map[string]string
	Default    bool
}

// String formats the state the way commands do, e.g. minecraft:grass_block[snowy=false].
func (s State) String() string {
	if len(s.Properties) == 0 {
		return s.Block
	}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + s.Properties[k]
	}
	return s.Block + "[" + strings.Join(parts, ",") + "]"
}

// Registry maps state ids to block states. It is read-only once built and safe to share.
type Registry struct {
	states   map[StateID]State
	byBlock  map[string][]StateID
	defaults map[string]StateID
	air      map[StateID]bool
	size     int
}

func newRegistry() *Registry {
	return &Registry{
		states:   make(map[StateID]State),
		byBlock:  make(map[string][]StateID),
		defaults: make(map[string]StateID),
		air:      make(map[StateID]bool),
	}
}

func (r *Registry) add(s State) {
	r.states[s.ID] = s
	r.byBlock[s.Block] = append(r.byBlock[s.Block], s.ID)
	if s.Default {
		r.defaults[s.Block] = s.ID
	}
	if isAirBlock(s.Block) {
		r.air[s.ID] = true
	}
	if int(s.ID)+1 > r.size {
		r.size = int(s.ID) + 1
	}
}

func isAirBlock(name string) bool {
	switch name {
	case "minecraft:air", "minecraft:cave_air", "minecraft:void_air":
		return true
	}
	return false
}

// Len returns the size of the global id space.
func (r *Registry) Len() int {
	return r.size
}

// BitsPerState is the width of a direct palette entry: enough bits for every id.
func (r *Registry) BitsPerState() int {
	if r.size <= 1 {
		return 1
	}
	return bits.Len(uint(r.size - 1))
}

func (r *Registry) State(id StateID) (State, bool) {
	s, ok := r.states[id]
	return s, ok
}

func (r *Registry) Valid(id StateID) bool {
	return id >= 0 && int(id) < r.size
}

// IsAir reports whether id is one of the air blocks. Ids outside the registry count as solid.
func (r *Registry) IsAir(id StateID) bool {
	return r.air[id]
}

// Default returns the default state of a block, by resource name.
func (r *Registry) Default(block string) (StateID, bool) {
	if !strings.Contains(block, ":") {
		block = "minecraft:" + block
	}
	id, ok := r.defaults[block]
	return id, ok
}

// Lookup finds the state of block whose properties equal props; unspecified properties take their
// default values.
func (r *Registry) Lookup(block string, props map[string]string) (StateID, bool) {
	def, ok := r.Default(block)
	if !ok {
		return 0, false
	}
	base := r.states[def]
	if len(props) == 0 {
		return def, true
	}
	want := make(map[string]string, len(base.Properties))
	for k, v := range base.Properties {
		want[k] = v
	}
	for k, v := range props {
		if _, known := want[k]; !known {
			return 0, false
		}
		want[k] = v
	}
	for _, id := range r.byBlock[base.Block] {
		if sameProperties(r.states[id].Properties, want) {
			return id, true
		}
	}
	return 0, false
}

func sameProperties(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

type reportState struct {
	ID         int32             `json:"id"`
	Default    bool              `json:"default"`
	Properties map[string]string `json:"properties"`
}

type reportBlock struct {
	States []reportState `json:"states"`
}

// LoadReport reads the blocks.json report produced by the vanilla data generator. The report may
// be gzip compressed.
func LoadReport(r io.Reader) (*Registry, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		src = gz
	}

	var report map[string]reportBlock
	if err := json.NewDecoder(src).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding block report: %w", err)
	}

	reg := newRegistry()
	for name, b := range report {
		for _, s := range b.States {
			if s.ID < 0 {
				return nil, fmt.Errorf("block report: %s has negative state id %d", name, s.ID)
			}
			if prev, dup := reg.states[StateID(s.ID)]; dup {
				return nil, fmt.Errorf("block report: state %d used by both %s and %s", s.ID, prev.Block, name)
			}
			reg.add(State{ID: StateID(s.ID), Block: name, Properties: s.Properties, Default: s.Default})
		}
	}
	if len(reg.states) == 0 {
		return nil, fmt.Errorf("block report has no states")
	}
	for name, ids := range reg.byBlock {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if _, ok := reg.defaults[name]; !ok {
			reg.defaults[name] = ids[0]
		}
	}
	return reg, nil
}

func LoadReportFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadReport(f)
}
