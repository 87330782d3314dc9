package protocol

import (
	"github.com/astei/voxelwire/codec"
	"github.com/astei/voxelwire/nbt"
)

const (
	maxPayloadSize    = 1 << 20
	maxKnownPacks     = 64
	maxRegistryLength = 4096
)

// BrandChannel is the plugin channel clients and servers announce their brand on.
const BrandChannel = "minecraft:brand"

type ClientInformation struct {
	Locale              string
	ViewDistance        int8
	ChatMode            int32
	ChatColors          bool
	DisplayedSkinParts  uint8
	MainHand            int32
	EnableTextFiltering bool
	AllowServerListings bool
	ParticleStatus      int32
}

func (*ClientInformation) PacketName() string { return "minecraft:client_information" }

func (p *ClientInformation) Encode(w *codec.Writer) error {
	w.String(p.Locale)
	w.Int8(p.ViewDistance)
	w.VarInt(p.ChatMode)
	w.Bool(p.ChatColors)
	w.Byte(p.DisplayedSkinParts)
	w.VarInt(p.MainHand)
	w.Bool(p.EnableTextFiltering)
	w.Bool(p.AllowServerListings)
	w.VarInt(p.ParticleStatus)
	return nil
}

func (p *ClientInformation) Decode(r *codec.Reader) (err error) {
	if p.Locale, err = r.String(16 * 4); err != nil {
		return
	}
	if p.ViewDistance, err = r.Int8(); err != nil {
		return
	}
	if p.ChatMode, err = r.VarInt(); err != nil {
		return
	}
	if p.ChatColors, err = r.Bool(); err != nil {
		return
	}
	if p.DisplayedSkinParts, err = r.ReadByte(); err != nil {
		return
	}
	if p.MainHand, err = r.VarInt(); err != nil {
		return
	}
	if p.EnableTextFiltering, err = r.Bool(); err != nil {
		return
	}
	if p.AllowServerListings, err = r.Bool(); err != nil {
		return
	}
	p.ParticleStatus, err = r.VarInt()
	return
}

// CustomPayload is a plugin message. Data is the rest of the packet, in whatever format the
// channel uses.
type CustomPayload struct {
	Channel string
	Data    []byte
}

// BrandPayload builds the brand announcement.
func BrandPayload(brand string) *CustomPayload {
	w := codec.NewWriter(len(brand) + 1)
	w.String(brand)
	return &CustomPayload{Channel: BrandChannel, Data: w.Bytes()}
}

// Brand decodes the payload of a brand message.
func (p *CustomPayload) Brand() (string, bool) {
	if p.Channel != BrandChannel {
		return "", false
	}
	r := codec.NewReader(p.Data)
	s, err := r.String(codec.MaxStringLength)
	if err != nil || r.Finish() != nil {
		return "", false
	}
	return s, true
}

func (*CustomPayload) PacketName() string { return "minecraft:custom_payload" }

func (p *CustomPayload) Encode(w *codec.Writer) error {
	w.String(p.Channel)
	w.Raw(p.Data)
	return nil
}

func (p *CustomPayload) Decode(r *codec.Reader) (err error) {
	if p.Channel, err = r.Identifier(); err != nil {
		return
	}
	if r.Remaining() > maxPayloadSize {
		return codec.Errorf("custom payload of %d bytes", r.Remaining())
	}
	p.Data = append([]byte{}, r.Rest()...)
	return nil
}

type FinishConfiguration struct{}

func (*FinishConfiguration) PacketName() string         { return "minecraft:finish_configuration" }
func (*FinishConfiguration) Encode(*codec.Writer) error { return nil }
func (*FinishConfiguration) Decode(*codec.Reader) error { return nil }

// KeepAlive is used in both directions, in configuration and in play. The client echoes the id
// the server sent.
type KeepAlive struct {
	ID int64
}

func (*KeepAlive) PacketName() string { return "minecraft:keep_alive" }

func (p *KeepAlive) Encode(w *codec.Writer) error {
	w.Int64(p.ID)
	return nil
}

func (p *KeepAlive) Decode(r *codec.Reader) (err error) {
	p.ID, err = r.Int64()
	return
}

type KnownPack struct {
	Namespace string
	ID        string
	Version   string
}

// CoreKnownPack is the data pack built into the 1.21.5 client. When both sides know it, registry
// entries can be sent without their data.
var CoreKnownPack = KnownPack{Namespace: "minecraft", ID: "core", Version: VersionName}

type SelectKnownPacks struct {
	Packs []KnownPack
}

func (*SelectKnownPacks) PacketName() string { return "minecraft:select_known_packs" }

func (p *SelectKnownPacks) Encode(w *codec.Writer) error {
	w.VarInt(int32(len(p.Packs)))
	for _, pack := range p.Packs {
		w.String(pack.Namespace)
		w.String(pack.ID)
		w.String(pack.Version)
	}
	return nil
}

func (p *SelectKnownPacks) Decode(r *codec.Reader) error {
	n, err := r.Length(maxKnownPacks)
	if err != nil {
		return err
	}
	p.Packs = make([]KnownPack, n)
	for i := range p.Packs {
		pack := &p.Packs[i]
		if pack.Namespace, err = r.String(codec.MaxStringLength); err != nil {
			return err
		}
		if pack.ID, err = r.String(codec.MaxStringLength); err != nil {
			return err
		}
		if pack.Version, err = r.String(codec.MaxStringLength); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether pack is among the selected packs.
func (p *SelectKnownPacks) Has(pack KnownPack) bool {
	for _, k := range p.Packs {
		if k == pack {
			return true
		}
	}
	return false
}

type RegistryEntry struct {
	ID string
	// Data is nil when the entry comes from a known pack.
	Data nbt.Tag
}

type RegistryData struct {
	Registry string
	Entries  []RegistryEntry
}

func (*RegistryData) PacketName() string { return "minecraft:registry_data" }

func (p *RegistryData) Encode(w *codec.Writer) error {
	w.String(p.Registry)
	w.VarInt(int32(len(p.Entries)))
	for _, e := range p.Entries {
		w.String(e.ID)
		w.Bool(e.Data != nil)
		if e.Data != nil {
			if err := nbt.WriteNetwork(w, e.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *RegistryData) Decode(r *codec.Reader) error {
	var err error
	if p.Registry, err = r.Identifier(); err != nil {
		return err
	}
	n, err := r.Length(maxRegistryLength)
	if err != nil {
		return err
	}
	p.Entries = make([]RegistryEntry, n)
	for i := range p.Entries {
		e := &p.Entries[i]
		if e.ID, err = r.Identifier(); err != nil {
			return err
		}
		has, err := r.Bool()
		if err != nil {
			return err
		}
		if has {
			if e.Data, err = nbt.ReadNetwork(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Disconnect ends a configuration or play connection with a reason.
type Disconnect struct {
	Reason Text
}

func (*Disconnect) PacketName() string { return "minecraft:disconnect" }

func (p *Disconnect) Encode(w *codec.Writer) error {
	return writeTextNBT(w, p.Reason)
}

func (p *Disconnect) Decode(r *codec.Reader) (err error) {
	p.Reason, err = readTextNBT(r)
	return
}
