package protocol

import (
	"github.com/astei/voxelwire/chunk"
	"github.com/astei/voxelwire/codec"
)

const (
	maxDimensions  = 64
	maxSectionSize = 4096
	maxChatLength  = 256
)

// PlayLogin is the first packet of the play state. It names the player's entity and the
// dimension it spawns in.
type PlayLogin struct {
	EntityID            int32
	Hardcore            bool
	Dimensions          []string
	MaxPlayers          int32
	ViewDistance        int32
	SimulationDistance  int32
	ReducedDebugInfo    bool
	EnableRespawnScreen bool
	LimitedCrafting     bool
	DimensionType       int32
	DimensionName       string
	HashedSeed          int64
	GameMode            uint8
	PreviousGameMode    int8
	Debug               bool
	Flat                bool
	DeathDimension      string
	DeathLocation       *codec.Position
	PortalCooldown      int32
	SeaLevel            int32
	EnforcesSecureChat  bool
}

func (*PlayLogin) PacketName() string { return "minecraft:login" }

func (p *PlayLogin) Encode(w *codec.Writer) error {
	w.Int32(p.EntityID)
	w.Bool(p.Hardcore)
	w.VarInt(int32(len(p.Dimensions)))
	for _, d := range p.Dimensions {
		w.String(d)
	}
	w.VarInt(p.MaxPlayers)
	w.VarInt(p.ViewDistance)
	w.VarInt(p.SimulationDistance)
	w.Bool(p.ReducedDebugInfo)
	w.Bool(p.EnableRespawnScreen)
	w.Bool(p.LimitedCrafting)
	w.VarInt(p.DimensionType)
	w.String(p.DimensionName)
	w.Int64(p.HashedSeed)
	w.Byte(p.GameMode)
	w.Int8(p.PreviousGameMode)
	w.Bool(p.Debug)
	w.Bool(p.Flat)
	w.Bool(p.DeathLocation != nil)
	if p.DeathLocation != nil {
		w.String(p.DeathDimension)
		w.Position(*p.DeathLocation)
	}
	w.VarInt(p.PortalCooldown)
	w.VarInt(p.SeaLevel)
	w.Bool(p.EnforcesSecureChat)
	return nil
}

func (p *PlayLogin) Decode(r *codec.Reader) (err error) {
	if p.EntityID, err = r.Int32(); err != nil {
		return
	}
	if p.Hardcore, err = r.Bool(); err != nil {
		return
	}
	n, err := r.Length(maxDimensions)
	if err != nil {
		return err
	}
	p.Dimensions = make([]string, n)
	for i := range p.Dimensions {
		if p.Dimensions[i], err = r.Identifier(); err != nil {
			return
		}
	}
	for _, v := range []*int32{&p.MaxPlayers, &p.ViewDistance, &p.SimulationDistance} {
		if *v, err = r.VarInt(); err != nil {
			return
		}
	}
	for _, b := range []*bool{&p.ReducedDebugInfo, &p.EnableRespawnScreen, &p.LimitedCrafting} {
		if *b, err = r.Bool(); err != nil {
			return
		}
	}
	if p.DimensionType, err = r.VarInt(); err != nil {
		return
	}
	if p.DimensionName, err = r.Identifier(); err != nil {
		return
	}
	if p.HashedSeed, err = r.Int64(); err != nil {
		return
	}
	if p.GameMode, err = r.ReadByte(); err != nil {
		return
	}
	if p.PreviousGameMode, err = r.Int8(); err != nil {
		return
	}
	if p.Debug, err = r.Bool(); err != nil {
		return
	}
	if p.Flat, err = r.Bool(); err != nil {
		return
	}
	var hasDeath bool
	if hasDeath, err = r.Bool(); err != nil {
		return
	}
	if hasDeath {
		if p.DeathDimension, err = r.Identifier(); err != nil {
			return
		}
		pos, err := r.Position()
		if err != nil {
			return err
		}
		p.DeathLocation = &pos
	}
	if p.PortalCooldown, err = r.VarInt(); err != nil {
		return
	}
	if p.SeaLevel, err = r.VarInt(); err != nil {
		return
	}
	p.EnforcesSecureChat, err = r.Bool()
	return
}

// Game events used by the server.
const (
	GameEventChangeGameMode  = 3
	GameEventRespawnScreen   = 11
	GameEventLimitedCrafting = 12
	GameEventWaitForChunks   = 13
)

type GameEvent struct {
	Event uint8
	Value float32
}

func (*GameEvent) PacketName() string { return "minecraft:game_event" }

func (p *GameEvent) Encode(w *codec.Writer) error {
	w.Byte(p.Event)
	w.Float32(p.Value)
	return nil
}

func (p *GameEvent) Decode(r *codec.Reader) (err error) {
	if p.Event, err = r.ReadByte(); err != nil {
		return
	}
	p.Value, err = r.Float32()
	return
}

// PlayerPosition teleports the player. The client answers with AcceptTeleportation carrying
// TeleportID.
type PlayerPosition struct {
	TeleportID                      int32
	X, Y, Z                         float64
	VelocityX, VelocityY, VelocityZ float64
	Yaw, Pitch                      float32
	Flags                           int32
}

func (*PlayerPosition) PacketName() string { return "minecraft:player_position" }

func (p *PlayerPosition) Encode(w *codec.Writer) error {
	w.VarInt(p.TeleportID)
	for _, v := range []float64{p.X, p.Y, p.Z, p.VelocityX, p.VelocityY, p.VelocityZ} {
		w.Float64(v)
	}
	w.Float32(p.Yaw)
	w.Float32(p.Pitch)
	w.Int32(p.Flags)
	return nil
}

func (p *PlayerPosition) Decode(r *codec.Reader) (err error) {
	if p.TeleportID, err = r.VarInt(); err != nil {
		return
	}
	for _, v := range []*float64{&p.X, &p.Y, &p.Z, &p.VelocityX, &p.VelocityY, &p.VelocityZ} {
		if *v, err = r.Float64(); err != nil {
			return
		}
	}
	if p.Yaw, err = r.Float32(); err != nil {
		return
	}
	if p.Pitch, err = r.Float32(); err != nil {
		return
	}
	p.Flags, err = r.Int32()
	return
}

type SetChunkCacheCenter struct {
	X, Z int32
}

func (*SetChunkCacheCenter) PacketName() string { return "minecraft:set_chunk_cache_center" }

func (p *SetChunkCacheCenter) Encode(w *codec.Writer) error {
	w.VarInt(p.X)
	w.VarInt(p.Z)
	return nil
}

func (p *SetChunkCacheCenter) Decode(r *codec.Reader) (err error) {
	if p.X, err = r.VarInt(); err != nil {
		return
	}
	p.Z, err = r.VarInt()
	return
}

// LevelChunkWithLight sends one whole column.
type LevelChunkWithLight struct {
	X, Z  int32
	Chunk chunk.ChunkData
	Light chunk.LightData
}

func (*LevelChunkWithLight) PacketName() string { return "minecraft:level_chunk_with_light" }

func (p *LevelChunkWithLight) Encode(w *codec.Writer) error {
	w.Int32(p.X)
	w.Int32(p.Z)
	if err := p.Chunk.Encode(w); err != nil {
		return err
	}
	p.Light.Encode(w)
	return nil
}

func (p *LevelChunkWithLight) Decode(r *codec.Reader) (err error) {
	if p.X, err = r.Int32(); err != nil {
		return
	}
	if p.Z, err = r.Int32(); err != nil {
		return
	}
	if err = p.Chunk.Decode(r); err != nil {
		return
	}
	return p.Light.Decode(r)
}

// ForgetLevelChunk unloads a column on the client. The coordinates go z first.
type ForgetLevelChunk struct {
	X, Z int32
}

func (*ForgetLevelChunk) PacketName() string { return "minecraft:forget_level_chunk" }

func (p *ForgetLevelChunk) Encode(w *codec.Writer) error {
	w.Int32(p.Z)
	w.Int32(p.X)
	return nil
}

func (p *ForgetLevelChunk) Decode(r *codec.Reader) (err error) {
	if p.Z, err = r.Int32(); err != nil {
		return
	}
	p.X, err = r.Int32()
	return
}

type BlockUpdate struct {
	Position codec.Position
	State    int32
}

func (*BlockUpdate) PacketName() string { return "minecraft:block_update" }

func (p *BlockUpdate) Encode(w *codec.Writer) error {
	w.Position(p.Position)
	w.VarInt(p.State)
	return nil
}

func (p *BlockUpdate) Decode(r *codec.Reader) (err error) {
	if p.Position, err = r.Position(); err != nil {
		return
	}
	p.State, err = r.VarInt()
	return
}

// BlockChange is one entry of a SectionBlocksUpdate, in section-local coordinates.
type BlockChange struct {
	X, Y, Z uint8
	State   int32
}

// SectionBlocksUpdate changes several blocks of one section at once. SectionX, SectionY and
// SectionZ are section coordinates.
type SectionBlocksUpdate struct {
	SectionX, SectionY, SectionZ int32
	Changes                      []BlockChange
}

func (*SectionBlocksUpdate) PacketName() string { return "minecraft:section_blocks_update" }

func (p *SectionBlocksUpdate) Encode(w *codec.Writer) error {
	w.Int64(int64(p.SectionX)&0x3FFFFF<<42 | int64(p.SectionZ)&0x3FFFFF<<20 | int64(p.SectionY)&0xFFFFF)
	w.VarInt(int32(len(p.Changes)))
	for _, c := range p.Changes {
		w.VarLong(int64(c.State)<<12 | int64(c.X&15)<<8 | int64(c.Z&15)<<4 | int64(c.Y&15))
	}
	return nil
}

func (p *SectionBlocksUpdate) Decode(r *codec.Reader) error {
	pos, err := r.Int64()
	if err != nil {
		return err
	}
	p.SectionX = int32(pos >> 42)
	p.SectionY = int32(pos << 44 >> 44)
	p.SectionZ = int32(pos << 22 >> 42)
	n, err := r.Length(maxSectionSize)
	if err != nil {
		return err
	}
	p.Changes = make([]BlockChange, n)
	for i := range p.Changes {
		v, err := r.VarLong()
		if err != nil {
			return err
		}
		p.Changes[i] = BlockChange{
			X:     uint8(v >> 8 & 15),
			Y:     uint8(v & 15),
			Z:     uint8(v >> 4 & 15),
			State: int32(v >> 12),
		}
	}
	return nil
}

// BlockChangedAck confirms that the server has processed every block interaction of the client
// up to Sequence.
type BlockChangedAck struct {
	Sequence int32
}

func (*BlockChangedAck) PacketName() string { return "minecraft:block_changed_ack" }

func (p *BlockChangedAck) Encode(w *codec.Writer) error {
	w.VarInt(p.Sequence)
	return nil
}

func (p *BlockChangedAck) Decode(r *codec.Reader) (err error) {
	p.Sequence, err = r.VarInt()
	return
}

type ChunkBatchStart struct{}

func (*ChunkBatchStart) PacketName() string         { return "minecraft:chunk_batch_start" }
func (*ChunkBatchStart) Encode(*codec.Writer) error { return nil }
func (*ChunkBatchStart) Decode(*codec.Reader) error { return nil }

type ChunkBatchFinished struct {
	BatchSize int32
}

func (*ChunkBatchFinished) PacketName() string { return "minecraft:chunk_batch_finished" }

func (p *ChunkBatchFinished) Encode(w *codec.Writer) error {
	w.VarInt(p.BatchSize)
	return nil
}

func (p *ChunkBatchFinished) Decode(r *codec.Reader) (err error) {
	p.BatchSize, err = r.VarInt()
	return
}

type StartConfiguration struct{}

func (*StartConfiguration) PacketName() string         { return "minecraft:start_configuration" }
func (*StartConfiguration) Encode(*codec.Writer) error { return nil }
func (*StartConfiguration) Decode(*codec.Reader) error { return nil }

type SystemChat struct {
	Content Text
	Overlay bool
}

func (*SystemChat) PacketName() string { return "minecraft:system_chat" }

func (p *SystemChat) Encode(w *codec.Writer) error {
	if err := writeTextNBT(w, p.Content); err != nil {
		return err
	}
	w.Bool(p.Overlay)
	return nil
}

func (p *SystemChat) Decode(r *codec.Reader) (err error) {
	if p.Content, err = readTextNBT(r); err != nil {
		return
	}
	p.Overlay, err = r.Bool()
	return
}

type AcceptTeleportation struct {
	TeleportID int32
}

func (*AcceptTeleportation) PacketName() string { return "minecraft:accept_teleportation" }

func (p *AcceptTeleportation) Encode(w *codec.Writer) error {
	w.VarInt(p.TeleportID)
	return nil
}

func (p *AcceptTeleportation) Decode(r *codec.Reader) (err error) {
	p.TeleportID, err = r.VarInt()
	return
}

type ChunkBatchReceived struct {
	ChunksPerTick float32
}

func (*ChunkBatchReceived) PacketName() string { return "minecraft:chunk_batch_received" }

func (p *ChunkBatchReceived) Encode(w *codec.Writer) error {
	w.Float32(p.ChunksPerTick)
	return nil
}

func (p *ChunkBatchReceived) Decode(r *codec.Reader) (err error) {
	p.ChunksPerTick, err = r.Float32()
	return
}

type ClientTickEnd struct{}

func (*ClientTickEnd) PacketName() string         { return "minecraft:client_tick_end" }
func (*ClientTickEnd) Encode(*codec.Writer) error { return nil }
func (*ClientTickEnd) Decode(*codec.Reader) error { return nil }

type ConfigurationAcknowledged struct{}

func (*ConfigurationAcknowledged) PacketName() string         { return "minecraft:configuration_acknowledged" }
func (*ConfigurationAcknowledged) Encode(*codec.Writer) error { return nil }
func (*ConfigurationAcknowledged) Decode(*codec.Reader) error { return nil }

type PlayerLoaded struct{}

func (*PlayerLoaded) PacketName() string         { return "minecraft:player_loaded" }
func (*PlayerLoaded) Encode(*codec.Writer) error { return nil }
func (*PlayerLoaded) Decode(*codec.Reader) error { return nil }

// Movement flags.
const (
	MoveOnGround           = 0x01
	MovePushingAgainstWall = 0x02
)

type MovePlayerPos struct {
	X, Y, Z float64
	Flags   uint8
}

func (*MovePlayerPos) PacketName() string { return "minecraft:move_player_pos" }

func (p *MovePlayerPos) Encode(w *codec.Writer) error {
	w.Float64(p.X)
	w.Float64(p.Y)
	w.Float64(p.Z)
	w.Byte(p.Flags)
	return nil
}

func (p *MovePlayerPos) Decode(r *codec.Reader) (err error) {
	if err = readFloats(r, &p.X, &p.Y, &p.Z); err != nil {
		return
	}
	p.Flags, err = r.ReadByte()
	return
}

type MovePlayerPosRot struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	Flags      uint8
}

func (*MovePlayerPosRot) PacketName() string { return "minecraft:move_player_pos_rot" }

func (p *MovePlayerPosRot) Encode(w *codec.Writer) error {
	w.Float64(p.X)
	w.Float64(p.Y)
	w.Float64(p.Z)
	w.Float32(p.Yaw)
	w.Float32(p.Pitch)
	w.Byte(p.Flags)
	return nil
}

func (p *MovePlayerPosRot) Decode(r *codec.Reader) (err error) {
	if err = readFloats(r, &p.X, &p.Y, &p.Z); err != nil {
		return
	}
	if p.Yaw, err = r.Float32(); err != nil {
		return
	}
	if p.Pitch, err = r.Float32(); err != nil {
		return
	}
	p.Flags, err = r.ReadByte()
	return
}

type MovePlayerRot struct {
	Yaw, Pitch float32
	Flags      uint8
}

func (*MovePlayerRot) PacketName() string { return "minecraft:move_player_rot" }

func (p *MovePlayerRot) Encode(w *codec.Writer) error {
	w.Float32(p.Yaw)
	w.Float32(p.Pitch)
	w.Byte(p.Flags)
	return nil
}

func (p *MovePlayerRot) Decode(r *codec.Reader) (err error) {
	if p.Yaw, err = r.Float32(); err != nil {
		return
	}
	if p.Pitch, err = r.Float32(); err != nil {
		return
	}
	p.Flags, err = r.ReadByte()
	return
}

type MovePlayerStatusOnly struct {
	Flags uint8
}

func (*MovePlayerStatusOnly) PacketName() string { return "minecraft:move_player_status_only" }

func (p *MovePlayerStatusOnly) Encode(w *codec.Writer) error {
	w.Byte(p.Flags)
	return nil
}

func (p *MovePlayerStatusOnly) Decode(r *codec.Reader) (err error) {
	p.Flags, err = r.ReadByte()
	return
}

func readFloats(r *codec.Reader, vs ...*float64) (err error) {
	for _, v := range vs {
		if *v, err = r.Float64(); err != nil {
			return
		}
	}
	return
}

// Player action statuses.
const (
	ActionStartDigging   = 0
	ActionCancelDigging  = 1
	ActionFinishDigging  = 2
	ActionDropItemStack  = 3
	ActionDropItem       = 4
	ActionReleaseUseItem = 5
	ActionSwapItemInHand = 6
)

type PlayerAction struct {
	Status   int32
	Position codec.Position
	Face     int8
	Sequence int32
}

func (*PlayerAction) PacketName() string { return "minecraft:player_action" }

func (p *PlayerAction) Encode(w *codec.Writer) error {
	w.VarInt(p.Status)
	w.Position(p.Position)
	w.Int8(p.Face)
	w.VarInt(p.Sequence)
	return nil
}

func (p *PlayerAction) Decode(r *codec.Reader) (err error) {
	if p.Status, err = r.VarInt(); err != nil {
		return
	}
	if p.Position, err = r.Position(); err != nil {
		return
	}
	if p.Face, err = r.Int8(); err != nil {
		return
	}
	p.Sequence, err = r.VarInt()
	return
}

// UseItemOn is sent when the player right-clicks a block face, which places a block when the
// player holds one.
type UseItemOn struct {
	Hand                      int32
	Position                  codec.Position
	Face                      int32
	CursorX, CursorY, CursorZ float32
	InsideBlock               bool
	WorldBorderHit            bool
	Sequence                  int32
}

func (*UseItemOn) PacketName() string { return "minecraft:use_item_on" }

func (p *UseItemOn) Encode(w *codec.Writer) error {
	w.VarInt(p.Hand)
	w.Position(p.Position)
	w.VarInt(p.Face)
	w.Float32(p.CursorX)
	w.Float32(p.CursorY)
	w.Float32(p.CursorZ)
	w.Bool(p.InsideBlock)
	w.Bool(p.WorldBorderHit)
	w.VarInt(p.Sequence)
	return nil
}

func (p *UseItemOn) Decode(r *codec.Reader) (err error) {
	if p.Hand, err = r.VarInt(); err != nil {
		return
	}
	if p.Position, err = r.Position(); err != nil {
		return
	}
	if p.Face, err = r.VarInt(); err != nil {
		return
	}
	for _, v := range []*float32{&p.CursorX, &p.CursorY, &p.CursorZ} {
		if *v, err = r.Float32(); err != nil {
			return
		}
	}
	if p.InsideBlock, err = r.Bool(); err != nil {
		return
	}
	if p.WorldBorderHit, err = r.Bool(); err != nil {
		return
	}
	p.Sequence, err = r.VarInt()
	return
}

// Chat is a chat message from the player. Signatures are carried but never checked.
type Chat struct {
	Message      string
	Timestamp    int64
	Salt         int64
	Signature    []byte
	MessageCount int32
	Acknowledged [3]byte
	Checksum     byte
}

func (*Chat) PacketName() string { return "minecraft:chat" }

func (p *Chat) Encode(w *codec.Writer) error {
	w.String(p.Message)
	w.Int64(p.Timestamp)
	w.Int64(p.Salt)
	w.Bool(p.Signature != nil)
	w.Raw(p.Signature)
	w.VarInt(p.MessageCount)
	w.Raw(p.Acknowledged[:])
	w.Byte(p.Checksum)
	return nil
}

func (p *Chat) Decode(r *codec.Reader) (err error) {
	if p.Message, err = r.String(maxChatLength * 4); err != nil {
		return
	}
	if p.Timestamp, err = r.Int64(); err != nil {
		return
	}
	if p.Salt, err = r.Int64(); err != nil {
		return
	}
	var signed bool
	if signed, err = r.Bool(); err != nil {
		return
	}
	if signed {
		sig, err := r.Take(256)
		if err != nil {
			return err
		}
		p.Signature = append([]byte(nil), sig...)
	}
	if p.MessageCount, err = r.VarInt(); err != nil {
		return
	}
	ack, err := r.Take(len(p.Acknowledged))
	if err != nil {
		return err
	}
	copy(p.Acknowledged[:], ack)
	p.Checksum, err = r.ReadByte()
	return
}
