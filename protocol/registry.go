package protocol

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/astei/voxelwire/codec"
	"github.com/goccy/go-json"
)

// Packet is one message of the protocol. Each packet type knows its resource name; its numeric
// id depends on the state and direction and comes from a PacketTable.
type Packet interface {
	PacketName() string
	Encode(w *codec.Writer) error
	Decode(r *codec.Reader) error
}

// PacketTable maps packet names to ids, per state and direction.
type PacketTable map[State]map[Direction]map[string]int32

func (t PacketTable) Set(s State, d Direction, name string, id int32) {
	if t[s] == nil {
		t[s] = make(map[Direction]map[string]int32)
	}
	if t[s][d] == nil {
		t[s][d] = make(map[string]int32)
	}
	t[s][d][name] = id
}

// Merge copies every entry of other into t, replacing ids t already has.
func (t PacketTable) Merge(other PacketTable) {
	for s, dirs := range other {
		for d, names := range dirs {
			for name, id := range names {
				t.Set(s, d, name, id)
			}
		}
	}
}

type packetReport map[string]map[string]map[string]struct {
	ProtocolID int32 `json:"protocol_id"`
}

// LoadPacketReport reads the packets.json report written by the vanilla data generator. Unknown
// states and directions are ignored.
func LoadPacketReport(r io.Reader) (PacketTable, error) {
	var report packetReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("protocol: reading packet report: %w", err)
	}
	table := make(PacketTable)
	for stateName, dirs := range report {
		s, ok := ParseState(stateName)
		if !ok {
			continue
		}
		for dirName, packets := range dirs {
			var d Direction
			switch dirName {
			case "serverbound":
				d = Serverbound
			case "clientbound":
				d = Clientbound
			default:
				continue
			}
			for name, p := range packets {
				table.Set(s, d, name, p.ProtocolID)
			}
		}
	}
	return table, nil
}

func LoadPacketReportFile(path string) (PacketTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPacketReport(f)
}

type space struct {
	state State
	dir   Direction
}

// Registry resolves packet ids to packet types and back. It is read-only once built and can be
// shared by every connection.
type Registry struct {
	byID   map[space]map[int32]func() Packet
	byName map[space]map[string]int32
}

// NewRegistry registers every implemented packet that has an id in table. Entries of the table
// without an implementation are ignored, so a full vanilla report can be used as it is.
func NewRegistry(table PacketTable) (*Registry, error) {
	reg := &Registry{
		byID:   make(map[space]map[int32]func() Packet),
		byName: make(map[space]map[string]int32),
	}
	for _, pt := range packetTypes {
		name := pt.new().PacketName()
		id, ok := table[pt.state][pt.dir][name]
		if !ok {
			continue
		}
		sp := space{pt.state, pt.dir}
		if reg.byID[sp] == nil {
			reg.byID[sp] = make(map[int32]func() Packet)
			reg.byName[sp] = make(map[string]int32)
		}
		if _, dup := reg.byID[sp][id]; dup {
			return nil, fmt.Errorf("protocol: %s %s id 0x%02X is used twice", pt.state, pt.dir, id)
		}
		reg.byID[sp][id] = pt.new
		reg.byName[sp][name] = id
	}
	return reg, nil
}

// DefaultRegistry is built from DefaultTable.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultTable())
	if err != nil {
		panic(err)
	}
	return reg
}

// ID returns the id of a named packet.
func (r *Registry) ID(s State, d Direction, name string) (int32, bool) {
	id, ok := r.byName[space{s, d}][name]
	return id, ok
}

// Names lists the registered packet names of a state and direction, sorted by id.
func (r *Registry) Names(s State, d Direction) []string {
	names := r.byName[space{s, d}]
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return names[out[i]] < names[out[j]] })
	return out
}

// Decode parses a frame payload: the packet id, then the body, which must be consumed exactly.
//
// An id with no packet in s is an UnknownPacketError, except in the handshake and status states
// and after close, whose exchanges are fixed: there it is a protocol violation.
func (r *Registry) Decode(s State, d Direction, payload []byte) (Packet, error) {
	rd := codec.NewReader(payload)
	id, err := rd.VarInt()
	if err != nil {
		return nil, err
	}
	newPacket, ok := r.byID[space{s, d}][id]
	if !ok {
		switch s {
		case Handshake, Status, Closed:
			return nil, violation("packet 0x%02X is not allowed in state %s", id, s)
		}
		return nil, &UnknownPacketError{State: s, Direction: d, ID: id}
	}
	p := newPacket()
	if err := p.Decode(rd); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p.PacketName(), err)
	}
	if err := rd.Finish(); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p.PacketName(), err)
	}
	return p, nil
}

// Encode writes the packet id and body of p.
func (r *Registry) Encode(s State, d Direction, p Packet) ([]byte, error) {
	id, ok := r.byName[space{s, d}][p.PacketName()]
	if !ok {
		return nil, violation("%s cannot be sent %s in state %s", p.PacketName(), d, s)
	}
	w := codec.NewWriter(64)
	w.VarInt(id)
	if err := p.Encode(w); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", p.PacketName(), err)
	}
	return w.Bytes(), nil
}
