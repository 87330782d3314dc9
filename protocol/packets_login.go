package protocol

import (
	"github.com/astei/voxelwire/auth"
	"github.com/astei/voxelwire/codec"
	"github.com/google/uuid"
)

const (
	MaxNameLength   = 16
	maxKeyLength    = 512
	maxCustomQuery  = 1 << 20
	maxServerIDSize = 20
)

// Hello starts the login.
type Hello struct {
	Name string
	UUID uuid.UUID
}

func (*Hello) PacketName() string { return "minecraft:hello" }

func (p *Hello) Encode(w *codec.Writer) error {
	w.String(p.Name)
	w.UUID(p.UUID)
	return nil
}

func (p *Hello) Decode(r *codec.Reader) (err error) {
	if p.Name, err = r.String(MaxNameLength * 4); err != nil {
		return
	}
	if n := len([]rune(p.Name)); n == 0 || n > MaxNameLength {
		return codec.Errorf("player name of %d characters", n)
	}
	p.UUID, err = r.UUID()
	return
}

// Key is the client's encryption response: the shared secret and the verify token, both
// encrypted with the server's public key.
type Key struct {
	SharedSecret []byte
	VerifyToken  []byte
}

func (*Key) PacketName() string { return "minecraft:key" }

func (p *Key) Encode(w *codec.Writer) error {
	w.ByteArray(p.SharedSecret)
	w.ByteArray(p.VerifyToken)
	return nil
}

func (p *Key) Decode(r *codec.Reader) (err error) {
	if p.SharedSecret, err = r.ByteArray(maxKeyLength); err != nil {
		return
	}
	p.VerifyToken, err = r.ByteArray(maxKeyLength)
	return
}

type CustomQueryAnswer struct {
	MessageID int32
	// Data is nil when the client did not understand the query.
	Data []byte
}

func (*CustomQueryAnswer) PacketName() string { return "minecraft:custom_query_answer" }

func (p *CustomQueryAnswer) Encode(w *codec.Writer) error {
	w.VarInt(p.MessageID)
	w.Bool(p.Data != nil)
	w.Raw(p.Data)
	return nil
}

func (p *CustomQueryAnswer) Decode(r *codec.Reader) (err error) {
	if p.MessageID, err = r.VarInt(); err != nil {
		return
	}
	var present bool
	if present, err = r.Bool(); err != nil || !present {
		return
	}
	if r.Remaining() > maxCustomQuery {
		return codec.Errorf("custom query answer of %d bytes", r.Remaining())
	}
	p.Data = append([]byte{}, r.Rest()...)
	return nil
}

type LoginAcknowledged struct{}

func (*LoginAcknowledged) PacketName() string         { return "minecraft:login_acknowledged" }
func (*LoginAcknowledged) Encode(*codec.Writer) error { return nil }
func (*LoginAcknowledged) Decode(*codec.Reader) error { return nil }

// LoginDisconnect carries its reason as JSON.
type LoginDisconnect struct {
	Reason Text
}

func (*LoginDisconnect) PacketName() string { return "minecraft:login_disconnect" }

func (p *LoginDisconnect) Encode(w *codec.Writer) error {
	return writeTextJSON(w, p.Reason)
}

func (p *LoginDisconnect) Decode(r *codec.Reader) (err error) {
	p.Reason, err = readTextJSON(r)
	return
}

type EncryptionRequest struct {
	ServerID           string
	PublicKey          []byte
	VerifyToken        []byte
	ShouldAuthenticate bool
}

func (*EncryptionRequest) PacketName() string { return "minecraft:hello" }

func (p *EncryptionRequest) Encode(w *codec.Writer) error {
	w.String(p.ServerID)
	w.ByteArray(p.PublicKey)
	w.ByteArray(p.VerifyToken)
	w.Bool(p.ShouldAuthenticate)
	return nil
}

func (p *EncryptionRequest) Decode(r *codec.Reader) (err error) {
	if p.ServerID, err = r.String(maxServerIDSize); err != nil {
		return
	}
	if p.PublicKey, err = r.ByteArray(maxKeyLength); err != nil {
		return
	}
	if p.VerifyToken, err = r.ByteArray(maxKeyLength); err != nil {
		return
	}
	p.ShouldAuthenticate, err = r.Bool()
	return
}

// LoginFinished tells the client who it is and ends the login.
type LoginFinished struct {
	Profile auth.Profile
}

func (*LoginFinished) PacketName() string { return "minecraft:login_finished" }

func (p *LoginFinished) Encode(w *codec.Writer) error {
	w.UUID(p.Profile.ID)
	w.String(p.Profile.Name)
	w.VarInt(int32(len(p.Profile.Properties)))
	for _, prop := range p.Profile.Properties {
		w.String(prop.Name)
		w.String(prop.Value)
		w.Bool(prop.Signature != "")
		if prop.Signature != "" {
			w.String(prop.Signature)
		}
	}
	return nil
}

func (p *LoginFinished) Decode(r *codec.Reader) (err error) {
	if p.Profile.ID, err = r.UUID(); err != nil {
		return
	}
	if p.Profile.Name, err = r.String(MaxNameLength * 4); err != nil {
		return
	}
	n, err := r.Length(16)
	if err != nil {
		return err
	}
	p.Profile.Properties = make([]auth.Property, n)
	for i := range p.Profile.Properties {
		prop := &p.Profile.Properties[i]
		if prop.Name, err = r.String(64 * 4); err != nil {
			return
		}
		if prop.Value, err = r.String(codec.MaxStringLength); err != nil {
			return
		}
		var signed bool
		if signed, err = r.Bool(); err != nil {
			return
		}
		if signed {
			if prop.Signature, err = r.String(1024 * 4); err != nil {
				return
			}
		}
	}
	return nil
}

type LoginCompression struct {
	Threshold int32
}

func (*LoginCompression) PacketName() string { return "minecraft:login_compression" }

func (p *LoginCompression) Encode(w *codec.Writer) error {
	w.VarInt(p.Threshold)
	return nil
}

func (p *LoginCompression) Decode(r *codec.Reader) (err error) {
	p.Threshold, err = r.VarInt()
	return
}
