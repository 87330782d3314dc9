package protocol

import (
	"github.com/astei/voxelwire/codec"
	"github.com/goccy/go-json"
)

// Intents of the handshake.
const (
	IntentStatus   = 1
	IntentLogin    = 2
	IntentTransfer = 3
)

// Intention opens every connection and names the state it continues in.
type Intention struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	Intent          int32
}

func (*Intention) PacketName() string { return "minecraft:intention" }

func (p *Intention) Encode(w *codec.Writer) error {
	w.VarInt(p.ProtocolVersion)
	w.String(p.ServerAddress)
	w.Uint16(p.ServerPort)
	w.VarInt(p.Intent)
	return nil
}

func (p *Intention) Decode(r *codec.Reader) (err error) {
	if p.ProtocolVersion, err = r.VarInt(); err != nil {
		return
	}
	if p.ServerAddress, err = r.String(255 * 3); err != nil {
		return
	}
	if p.ServerPort, err = r.Uint16(); err != nil {
		return
	}
	p.Intent, err = r.VarInt()
	return
}

// NextState is the state the intent leads to. A transfer logs in like a fresh connection.
func (p *Intention) NextState() (State, error) {
	switch p.Intent {
	case IntentStatus:
		return Status, nil
	case IntentLogin, IntentTransfer:
		return Login, nil
	}
	return Closed, violation("unknown handshake intent %d", p.Intent)
}

type StatusRequest struct{}

func (*StatusRequest) PacketName() string         { return "minecraft:status_request" }
func (*StatusRequest) Encode(*codec.Writer) error { return nil }
func (*StatusRequest) Decode(*codec.Reader) error { return nil }

type PingRequest struct {
	Payload int64
}

func (*PingRequest) PacketName() string { return "minecraft:ping_request" }

func (p *PingRequest) Encode(w *codec.Writer) error {
	w.Int64(p.Payload)
	return nil
}

func (p *PingRequest) Decode(r *codec.Reader) (err error) {
	p.Payload, err = r.Int64()
	return
}

type PongResponse struct {
	Payload int64
}

func (*PongResponse) PacketName() string { return "minecraft:pong_response" }

func (p *PongResponse) Encode(w *codec.Writer) error {
	w.Int64(p.Payload)
	return nil
}

func (p *PongResponse) Decode(r *codec.Reader) (err error) {
	p.Payload, err = r.Int64()
	return
}

// ServerStatus is the JSON document shown in the multiplayer server list.
type ServerStatus struct {
	Version            StatusVersion `json:"version"`
	Players            StatusPlayers `json:"players"`
	Description        Text          `json:"description"`
	Favicon            string        `json:"favicon,omitempty"`
	EnforcesSecureChat bool          `json:"enforcesSecureChat"`
}

type StatusVersion struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

type StatusPlayers struct {
	Max    int            `json:"max"`
	Online int            `json:"online"`
	Sample []StatusPlayer `json:"sample,omitempty"`
}

type StatusPlayer struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type StatusResponse struct {
	Status ServerStatus
}

func (*StatusResponse) PacketName() string { return "minecraft:status_response" }

func (p *StatusResponse) Encode(w *codec.Writer) error {
	b, err := json.Marshal(&p.Status)
	if err != nil {
		return err
	}
	w.String(string(b))
	return nil
}

func (p *StatusResponse) Decode(r *codec.Reader) error {
	s, err := r.String(codec.MaxStringLength)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), &p.Status); err != nil {
		return codec.Errorf("status response: %v", err)
	}
	return nil
}
