package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/astei/voxelwire/auth"
	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/chunk"
	"github.com/astei/voxelwire/codec"
	"github.com/astei/voxelwire/protocol"
	"github.com/astei/voxelwire/world"
	"go.uber.org/zap"
)

// outboxSize bounds the packets other sessions may queue for a player before it is dropped.
const outboxSize = 4096

var (
	errTimedOut        = errors.New("keep alive timed out")
	errLagging         = errors.New("outbound queue is full")
	errMissingCorePack = errors.New("client does not know the core data pack")
)

type inbound struct {
	p   protocol.Packet
	err error
}

// session drives one logged in player through configuration and play.
//
// Its goroutine owns the connection's writes and state. A reader goroutine decodes packets, one
// at a time: it reads the next packet only once the previous one has been handled, so every
// packet is decoded in the state its predecessor left the connection in.
type session struct {
	srv      *Server
	conn     *protocol.Conn
	profile  *auth.Profile
	log      *zap.Logger
	cancel   context.CancelCauseFunc
	entityID int32

	// dim is set before the session joins the server and does not change afterwards.
	dim    world.Dimension
	spawnY int

	in      chan inbound
	resume  chan struct{}
	outbox  chan protocol.Packet
	reading bool

	viewDistance  int
	center        world.ColumnPos
	sent          map[world.ColumnPos]bool
	keepAliveID   int64
	teleportID    int32
	reconfiguring bool
}

func newSession(srv *Server, c *protocol.Conn, profile *auth.Profile, cancel context.CancelCauseFunc) *session {
	return &session{
		srv:          srv,
		conn:         c,
		profile:      profile,
		log:          c.Logger().With(zap.String("player", profile.Name)),
		cancel:       cancel,
		entityID:     srv.nextEntity.Add(1),
		in:           make(chan inbound),
		resume:       make(chan struct{}, 1),
		outbox:       make(chan protocol.Packet, outboxSize),
		viewDistance: srv.cfg.ViewDistance,
	}
}

func (s *session) run(ctx context.Context) error {
	go s.readLoop(ctx)

	if err := s.configure(ctx); err != nil {
		return err
	}

	spawn := s.srv.cfg.Dimensions[0]
	s.srv.mu.Lock()
	s.dim, _ = s.srv.world.Dimension(spawn.Name)
	s.srv.mu.Unlock()
	s.spawnY = s.srv.cfg.SpawnHeight(spawn)

	s.srv.join(s)
	defer s.srv.leave(s)
	if err := s.enterWorld(); err != nil {
		return err
	}
	return s.play(ctx)
}

func (s *session) readLoop(ctx context.Context) {
	for {
		select {
		case <-s.resume:
		case <-ctx.Done():
			return
		}
		p, err := s.conn.ReadPacket()
		select {
		case s.in <- inbound{p, err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// release lets the reader decode the next packet.
func (s *session) release() {
	if !s.reading {
		s.reading = true
		s.resume <- struct{}{}
	}
}

func (s *session) recv(ctx context.Context) (protocol.Packet, error) {
	s.release()
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case in := <-s.in:
		s.reading = false
		return in.p, in.err
	}
}

// send queues packets for the session. It may be called from any goroutine holding the server
// lock. A session that cannot keep up is cancelled.
func (s *session) send(packets ...protocol.Packet) {
	for _, p := range packets {
		select {
		case s.outbox <- p:
		default:
			s.cancel(errLagging)
			return
		}
	}
}

func (s *session) write(p protocol.Packet) error {
	if _, ok := p.(*protocol.StartConfiguration); ok {
		if s.conn.State() != protocol.Play || s.reconfiguring {
			return nil
		}
		s.reconfiguring = true
	}
	return s.conn.WritePacket(p)
}

// configure runs the configuration state: brand, known packs, registry data. It returns with the
// connection in play.
func (s *session) configure(ctx context.Context) error {
	if err := s.write(protocol.BrandPayload(s.srv.cfg.Brand)); err != nil {
		return err
	}
	if err := s.write(&protocol.SelectKnownPacks{Packs: []protocol.KnownPack{protocol.CoreKnownPack}}); err != nil {
		return err
	}

	var known *protocol.SelectKnownPacks
	for known == nil {
		p, err := s.recv(ctx)
		if err != nil {
			return err
		}
		if k, ok := p.(*protocol.SelectKnownPacks); ok {
			known = k
			continue
		}
		if err := s.handleConfiguration(p); err != nil {
			return err
		}
	}
	if !known.Has(protocol.CoreKnownPack) {
		return errMissingCorePack
	}

	for _, data := range s.srv.currentRegistries().Packets() {
		if err := s.write(data); err != nil {
			return err
		}
	}
	if err := s.write(&protocol.FinishConfiguration{}); err != nil {
		return err
	}
	for {
		p, err := s.recv(ctx)
		if err != nil {
			return err
		}
		if _, ok := p.(*protocol.FinishConfiguration); ok {
			return s.conn.SetState(protocol.Play)
		}
		if err := s.handleConfiguration(p); err != nil {
			return err
		}
	}
}

func (s *session) handleConfiguration(p protocol.Packet) error {
	switch p := p.(type) {
	case *protocol.ClientInformation:
		s.viewDistance = clamp(int(p.ViewDistance), 2, s.srv.cfg.ViewDistance)
		s.log.Debug("client information", zap.String("locale", p.Locale), zap.Int("view_distance", s.viewDistance))
	case *protocol.CustomPayload:
		if brand, ok := p.Brand(); ok {
			s.log.Info("client brand", zap.String("brand", brand))
		}
	case *protocol.KeepAlive:
	default:
		return fmt.Errorf("%w: unexpected %s during configuration", protocol.ErrProtocolViolation, p.PacketName())
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// enterWorld spawns the player and sends the columns around the spawn point.
func (s *session) enterWorld() error {
	s.srv.mu.Lock()
	dims := s.srv.world.Dimensions()
	s.srv.mu.Unlock()
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.Name
	}

	err := s.write(&protocol.PlayLogin{
		EntityID:            s.entityID,
		Dimensions:          names,
		MaxPlayers:          int32(s.srv.cfg.MaxPlayers),
		ViewDistance:        int32(s.srv.cfg.ViewDistance),
		SimulationDistance:  int32(s.srv.cfg.ViewDistance),
		EnableRespawnScreen: true,
		DimensionType:       s.dim.TypeID,
		DimensionName:       s.dim.Name,
		GameMode:            s.srv.cfg.GameModeID(),
		PreviousGameMode:    -1,
		Flat:                true,
		SeaLevel:            63,
	})
	if err != nil {
		return err
	}
	if err := s.write(&protocol.GameEvent{Event: protocol.GameEventWaitForChunks}); err != nil {
		return err
	}

	s.center = world.ColumnPos{}
	s.sent = make(map[world.ColumnPos]bool)
	s.keepAliveID = 0
	if err := s.write(&protocol.SetChunkCacheCenter{X: s.center.X, Z: s.center.Z}); err != nil {
		return err
	}
	if err := s.sendView(); err != nil {
		return err
	}
	s.teleportID++
	return s.write(&protocol.PlayerPosition{TeleportID: s.teleportID, X: 0.5, Y: float64(s.spawnY), Z: 0.5})
}

// sendView sends the columns in view of the current center that the client lacks and tells it
// to forget those out of view.
func (s *session) sendView() error {
	s.srv.mu.Lock()
	cols, err := s.srv.world.ColumnsInRange(s.dim.Name, s.center, s.viewDistance)
	wanted := make(map[world.ColumnPos]bool, len(cols))
	var fresh []protocol.Packet
	for _, c := range cols {
		pos := world.ColumnPos{X: c.X, Z: c.Z}
		wanted[pos] = true
		if !s.sent[pos] {
			fresh = append(fresh, &protocol.LevelChunkWithLight{
				X:     c.X,
				Z:     c.Z,
				Chunk: c.ChunkData(),
				Light: c.LightData(chunk.LightBright),
			})
		}
	}
	s.srv.mu.Unlock()
	if err != nil {
		return err
	}

	for pos := range s.sent {
		if wanted[pos] {
			continue
		}
		if err := s.write(&protocol.ForgetLevelChunk{X: pos.X, Z: pos.Z}); err != nil {
			return err
		}
		delete(s.sent, pos)
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := s.write(&protocol.ChunkBatchStart{}); err != nil {
		return err
	}
	for _, p := range fresh {
		if err := s.write(p); err != nil {
			return err
		}
		c := p.(*protocol.LevelChunkWithLight)
		s.sent[world.ColumnPos{X: c.X, Z: c.Z}] = true
	}
	return s.write(&protocol.ChunkBatchFinished{BatchSize: int32(len(fresh))})
}

func (s *session) play(ctx context.Context) error {
	ticker := time.NewTicker(s.srv.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		s.release()
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case in := <-s.in:
			s.reading = false
			if in.err != nil {
				return in.err
			}
			if err := s.handlePlay(ctx, in.p); err != nil {
				return err
			}
		case p := <-s.outbox:
			if err := s.write(p); err != nil {
				return err
			}
		case <-ticker.C:
			if s.keepAliveID != 0 {
				return errTimedOut
			}
			s.keepAliveID = time.Now().UnixMilli()
			if err := s.write(&protocol.KeepAlive{ID: s.keepAliveID}); err != nil {
				return err
			}
		}
	}
}

func (s *session) handlePlay(ctx context.Context, p protocol.Packet) error {
	switch p := p.(type) {
	case *protocol.KeepAlive:
		if p.ID != s.keepAliveID {
			return fmt.Errorf("%w: keep alive %d does not match %d", protocol.ErrProtocolViolation, p.ID, s.keepAliveID)
		}
		s.keepAliveID = 0
	case *protocol.AcceptTeleportation:
		if p.TeleportID == s.teleportID {
			s.teleportID = 0
		}
	case *protocol.MovePlayerPos:
		return s.moveTo(p.X, p.Z)
	case *protocol.MovePlayerPosRot:
		return s.moveTo(p.X, p.Z)
	case *protocol.PlayerAction:
		return s.dig(p)
	case *protocol.UseItemOn:
		return s.place(p)
	case *protocol.Chat:
		return s.chat(p)
	case *protocol.ConfigurationAcknowledged:
		if !s.reconfiguring {
			return fmt.Errorf("%w: configuration acknowledged without a request", protocol.ErrProtocolViolation)
		}
		s.reconfiguring = false
		if err := s.conn.SetState(protocol.Configuration); err != nil {
			return err
		}
		if err := s.configure(ctx); err != nil {
			return err
		}
		return s.enterWorld()
	case *protocol.ChunkBatchReceived:
		s.log.Debug("chunk batch received", zap.Float32("chunks_per_tick", p.ChunksPerTick))
	}
	return nil
}

// moveTo follows the player to a new column, sending the columns that come into view. Movement
// before the spawn teleport is accepted is ignored.
func (s *session) moveTo(x, z float64) error {
	if s.teleportID != 0 {
		return nil
	}
	col := world.ColumnOf(int(math.Floor(x)), int(math.Floor(z)))
	if col == s.center {
		return nil
	}
	s.center = col
	if err := s.write(&protocol.SetChunkCacheCenter{X: col.X, Z: col.Z}); err != nil {
		return err
	}
	return s.sendView()
}

// dig breaks the block when the player finishes digging, or immediately in creative mode.
func (s *session) dig(p *protocol.PlayerAction) error {
	switch p.Status {
	case protocol.ActionStartDigging:
		if s.srv.cfg.GameMode == "creative" {
			if err := s.changeBlock(p.Position, block.Air); err != nil {
				return err
			}
		}
	case protocol.ActionFinishDigging:
		if err := s.changeBlock(p.Position, block.Air); err != nil {
			return err
		}
	case protocol.ActionCancelDigging:
	default:
		return nil
	}
	s.send(&protocol.BlockChangedAck{Sequence: p.Sequence})
	return nil
}

// place puts a stone block against the clicked face when that spot is free.
func (s *session) place(p *protocol.UseItemOn) error {
	target := p.Position.Offset(p.Face)
	blocks := s.srv.world.Blocks()
	if blocks.IsAir(s.srv.blockAt(s.dim.Name, target)) {
		stone, ok := blocks.Default("minecraft:stone")
		if ok {
			if err := s.changeBlock(target, stone); err != nil {
				return err
			}
		}
	}
	s.send(&protocol.BlockChangedAck{Sequence: p.Sequence})
	return nil
}

// changeBlock applies a block change made by the player. Positions outside the world are
// ignored.
func (s *session) changeBlock(pos codec.Position, state block.StateID) error {
	err := s.srv.setBlock(s.dim.Name, pos, state)
	if errors.Is(err, world.ErrOutOfBounds) {
		s.log.Debug("block change out of bounds", zap.Stringer("position", pos))
		return nil
	}
	return err
}

func (s *session) chat(p *protocol.Chat) error {
	for _, r := range p.Message {
		if r == '§' || r < ' ' || r == 0x7F {
			return fmt.Errorf("%w: illegal characters in chat", protocol.ErrProtocolViolation)
		}
	}
	msg := strings.TrimSpace(p.Message)
	if msg == "" {
		return nil
	}
	s.log.Info("chat", zap.String("message", msg))
	line := protocol.Text{Text: "<" + s.profile.Name + "> ", Extra: []protocol.Text{protocol.PlainText(msg)}}
	s.srv.mu.Lock()
	s.srv.broadcast("", &protocol.SystemChat{Content: line})
	s.srv.mu.Unlock()
	return nil
}

// sectionUpdates turns the drained changes of a column into block update packets: a single
// change becomes a BlockUpdate, anything more a SectionBlocksUpdate.
func sectionUpdates(col world.ColumnPos, refs []chunk.SectionRef) []protocol.Packet {
	var out []protocol.Packet
	for _, ref := range refs {
		if len(ref.Changes) == 1 {
			x, y, z := chunk.CellPosition(ref.Changes[0])
			out = append(out, &protocol.BlockUpdate{
				Position: codec.Position{
					X: col.X<<4 + int32(x),
					Y: int32(ref.Y<<4 + y),
					Z: col.Z<<4 + int32(z),
				},
				State: int32(ref.Section.Block(x, y, z)),
			})
			continue
		}
		cells := ref.Changes
		if cells == nil {
			cells = make([]uint16, chunk.SectionWidth*chunk.SectionWidth*chunk.SectionWidth)
			for i := range cells {
				cells[i] = uint16(i)
			}
		}
		update := &protocol.SectionBlocksUpdate{SectionX: col.X, SectionY: int32(ref.Y), SectionZ: col.Z}
		for _, cell := range cells {
			x, y, z := chunk.CellPosition(cell)
			update.Changes = append(update.Changes, protocol.BlockChange{
				X:     uint8(x),
				Y:     uint8(y),
				Z:     uint8(z),
				State: int32(ref.Section.Block(x, y, z)),
			})
		}
		out = append(out, update)
	}
	return out
}
