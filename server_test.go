package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/chunk"
	"github.com/astei/voxelwire/codec"
	"github.com/astei/voxelwire/config"
	"github.com/astei/voxelwire/protocol"
	"github.com/astei/voxelwire/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startServer(t *testing.T) (addr string, srv *Server, stop func()) {
	cfg := config.Default()
	cfg.Address = "127.0.0.1:0"
	cfg.ViewDistance = 2
	cfg.KeepAliveInterval = time.Hour
	cfg.Throttle.Rate = 0

	srv, err := NewServer(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	ln, err := net.Listen("tcp", cfg.Address)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	return ln.Addr().String(), srv, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func dial(t *testing.T, addr string, intent int32) *protocol.Conn {
	nc, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	c := protocol.NewClientConn(nc, protocol.DefaultRegistry(), nil)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.WritePacket(&protocol.Intention{
		ProtocolVersion: protocol.Version,
		ServerAddress:   "localhost",
		ServerPort:      25565,
		Intent:          intent,
	}))
	next := protocol.Login
	if intent == protocol.IntentStatus {
		next = protocol.Status
	}
	require.NoError(t, c.SetState(next))
	return c
}

func expect[T protocol.Packet](t *testing.T, c *protocol.Conn) T {
	t.Helper()
	p, err := c.ReadPacket()
	require.NoError(t, err)
	v, ok := p.(T)
	require.True(t, ok, "expected %T, got %T", *new(T), p)
	return v
}

// configure answers the server's configuration exchange the way a vanilla client does.
func configure(t *testing.T, c *protocol.Conn) {
	brand, ok := expect[*protocol.CustomPayload](t, c).Brand()
	assert.True(t, ok)
	assert.Equal(t, "voxelwire", brand)
	packs := expect[*protocol.SelectKnownPacks](t, c)
	assert.True(t, packs.Has(protocol.CoreKnownPack))

	require.NoError(t, c.WritePacket(&protocol.ClientInformation{Locale: "en_us", ViewDistance: 12}))
	require.NoError(t, c.WritePacket(protocol.BrandPayload("vanilla")))
	require.NoError(t, c.WritePacket(&protocol.SelectKnownPacks{Packs: []protocol.KnownPack{protocol.CoreKnownPack}}))

	registries := 0
	for {
		p, err := c.ReadPacket()
		require.NoError(t, err)
		if _, ok := p.(*protocol.FinishConfiguration); ok {
			break
		}
		require.IsType(t, &protocol.RegistryData{}, p)
		registries++
	}
	assert.Equal(t, len(protocol.DefaultRegistryIDs()), registries)
	require.NoError(t, c.WritePacket(&protocol.FinishConfiguration{}))
	require.NoError(t, c.SetState(protocol.Play))
}

// spawn reads the packets that put the player into the world and returns the spawn teleport.
func spawn(t *testing.T, c *protocol.Conn) *protocol.PlayerPosition {
	login := expect[*protocol.PlayLogin](t, c)
	assert.Equal(t, "minecraft:overworld", login.DimensionName)
	assert.Equal(t, uint8(1), login.GameMode)
	assert.Equal(t, []string{"minecraft:overworld"}, login.Dimensions)

	event := expect[*protocol.GameEvent](t, c)
	assert.Equal(t, uint8(protocol.GameEventWaitForChunks), event.Event)
	assert.Equal(t, &protocol.SetChunkCacheCenter{}, expect[*protocol.SetChunkCacheCenter](t, c))

	expect[*protocol.ChunkBatchStart](t, c)
	columns := 0
	for {
		p, err := c.ReadPacket()
		require.NoError(t, err)
		if finished, ok := p.(*protocol.ChunkBatchFinished); ok {
			assert.Equal(t, int32(columns), finished.BatchSize)
			break
		}
		col, ok := p.(*protocol.LevelChunkWithLight)
		require.True(t, ok, "got %T", p)
		assert.Len(t, col.Light.SkyLight, 26)
		columns++
	}
	assert.Equal(t, 25, columns)

	pos := expect[*protocol.PlayerPosition](t, c)
	assert.Equal(t, -60.0, pos.Y)
	require.NoError(t, c.WritePacket(&protocol.AcceptTeleportation{TeleportID: pos.TeleportID}))
	return pos
}

func TestServerSession(t *testing.T) {
	addr, srv, stop := startServer(t)

	c := dial(t, addr, protocol.IntentLogin)
	require.NoError(t, c.WritePacket(&protocol.Hello{Name: "Tester"}))
	assert.Equal(t, &protocol.LoginCompression{Threshold: 256}, expect[*protocol.LoginCompression](t, c))
	c.SetCompression(256)
	finished := expect[*protocol.LoginFinished](t, c)
	assert.Equal(t, "Tester", finished.Profile.Name)
	require.NoError(t, c.WritePacket(&protocol.LoginAcknowledged{}))
	require.NoError(t, c.SetState(protocol.Configuration))

	configure(t, c)
	spawn(t, c)

	grass := codec.Position{X: 0, Y: -61, Z: 0}
	require.NoError(t, c.WritePacket(&protocol.PlayerAction{Status: protocol.ActionFinishDigging, Position: grass, Face: 1, Sequence: 5}))
	assert.Equal(t, &protocol.BlockUpdate{Position: grass, State: 0}, expect[*protocol.BlockUpdate](t, c))
	assert.Equal(t, &protocol.BlockChangedAck{Sequence: 5}, expect[*protocol.BlockChangedAck](t, c))

	dirt := codec.Position{X: 0, Y: -62, Z: 0}
	require.NoError(t, c.WritePacket(&protocol.UseItemOn{Position: dirt, Face: 1, Sequence: 6}))
	assert.Equal(t, &protocol.BlockUpdate{Position: grass, State: 1}, expect[*protocol.BlockUpdate](t, c))
	assert.Equal(t, &protocol.BlockChangedAck{Sequence: 6}, expect[*protocol.BlockChangedAck](t, c))

	require.NoError(t, c.WritePacket(&protocol.Chat{Message: "hello"}))
	assert.Equal(t, "<Tester> hello", expect[*protocol.SystemChat](t, c).Content.String())

	status := dial(t, addr, protocol.IntentStatus)
	require.NoError(t, status.WritePacket(&protocol.StatusRequest{}))
	players := expect[*protocol.StatusResponse](t, status).Status.Players
	assert.Equal(t, 1, players.Online)
	require.Len(t, players.Sample, 1)
	assert.Equal(t, "Tester", players.Sample[0].Name)

	srv.Reconfigure(nil)
	expect[*protocol.StartConfiguration](t, c)
	require.NoError(t, c.WritePacket(&protocol.ConfigurationAcknowledged{}))
	require.NoError(t, c.SetState(protocol.Configuration))
	configure(t, c)
	spawn(t, c)

	stop()
	assert.Equal(t, "Server closed", expect[*protocol.Disconnect](t, c).Reason.String())
}

func TestServerRejectsOtherVersions(t *testing.T) {
	addr, _, stop := startServer(t)
	defer stop()

	nc, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	c := protocol.NewClientConn(nc, protocol.DefaultRegistry(), nil)
	defer c.Close()
	require.NoError(t, c.WritePacket(&protocol.Intention{ProtocolVersion: 769, ServerAddress: "localhost", Intent: protocol.IntentLogin}))
	require.NoError(t, c.SetState(protocol.Login))
	assert.Contains(t, expect[*protocol.LoginDisconnect](t, c).Reason.String(), protocol.VersionName)
}

func TestSectionUpdates(t *testing.T) {
	reg := block.Builtin()
	col := chunk.NewColumn(-1, 2, -64, 384, block.Air, 0, reg.BitsPerState(), reg.IsAir)
	col.SetBlock(3, 5, 7, 1)
	col.SetBlock(3, 6, 7, 2)
	col.SetBlock(0, 100, 0, 14)

	updates := sectionUpdates(world.ColumnPos{X: -1, Z: 2}, col.DrainDirty())
	require.Len(t, updates, 2)
	multi := updates[0].(*protocol.SectionBlocksUpdate)
	assert.Equal(t, [3]int32{-1, 0, 2}, [3]int32{multi.SectionX, multi.SectionY, multi.SectionZ})
	assert.Equal(t, []protocol.BlockChange{{X: 3, Y: 5, Z: 7, State: 1}, {X: 3, Y: 6, Z: 7, State: 2}}, multi.Changes)
	assert.Equal(t, &protocol.BlockUpdate{Position: codec.Position{X: -16, Y: 100, Z: 32}, State: 14}, updates[1])

	col.FillSection(0, 1)
	updates = sectionUpdates(world.ColumnPos{X: -1, Z: 2}, col.DrainDirty())
	require.Len(t, updates, 1)
	whole := updates[0].(*protocol.SectionBlocksUpdate)
	assert.Equal(t, int32(-4), whole.SectionY)
	assert.Len(t, whole.Changes, 4096)
	assert.Equal(t, int32(1), whole.Changes[4095].State)
}
