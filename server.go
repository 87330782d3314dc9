package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/astei/voxelwire/auth"
	"github.com/astei/voxelwire/block"
	"github.com/astei/voxelwire/codec"
	"github.com/astei/voxelwire/config"
	"github.com/astei/voxelwire/protocol"
	"github.com/astei/voxelwire/world"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// maxStatusSample is the number of player names shown in the server list.
	maxStatusSample = 12
	// loginTimeout bounds the handshake, status and login exchanges. Sessions use keep alives.
	loginTimeout = 30 * time.Second
)

// Server accepts connections and runs one session per player. The world is shared by every
// session and guarded by mu, as is the set of sessions.
type Server struct {
	cfg      config.Config
	log      *zap.Logger
	packets  *protocol.Registry
	keys     *auth.KeyPair
	verifier auth.SessionVerifier
	limiter  *rate.Limiter

	mu         sync.Mutex
	world      *world.Store
	registries protocol.Registries
	sessions   map[*session]struct{}

	nextEntity atomic.Int32
	wg         sync.WaitGroup
}

// NewServer builds the world and the protocol tables described by cfg.
func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		sessions: make(map[*session]struct{}),
	}

	table := protocol.DefaultTable()
	if cfg.PacketReport != "" {
		report, err := protocol.LoadPacketReportFile(cfg.PacketReport)
		if err != nil {
			return nil, err
		}
		table.Merge(report)
	}
	packets, err := protocol.NewRegistry(table)
	if err != nil {
		return nil, err
	}
	s.packets = packets

	blocks := block.Builtin()
	if cfg.BlockReport != "" {
		if blocks, err = block.LoadReportFile(cfg.BlockReport); err != nil {
			return nil, err
		}
	}
	if s.registries, err = loadRegistries(cfg); err != nil {
		return nil, err
	}
	if s.world, err = buildWorld(cfg, blocks, s.registries); err != nil {
		return nil, err
	}

	if cfg.OnlineMode {
		if s.keys, err = auth.GenerateKeyPair(); err != nil {
			return nil, err
		}
		s.verifier = auth.NewMojangVerifier()
	}
	if cfg.Throttle.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Throttle.Rate), cfg.Throttle.Burst)
	}
	return s, nil
}

func loadRegistries(cfg config.Config) (protocol.Registries, error) {
	if cfg.Registries == "" {
		return protocol.DefaultRegistries(), nil
	}
	ids, err := config.LoadRegistries(cfg.Registries)
	if err != nil {
		return nil, err
	}
	return protocol.RegistriesFromIDs(ids), nil
}

func buildWorld(cfg config.Config, blocks *block.Registry, regs protocol.Registries) (*world.Store, error) {
	layers, err := world.ResolveLayers(blocks, cfg.FlatLayers)
	if err != nil {
		return nil, err
	}
	store := world.NewStore(blocks)
	store.SetGenerator(world.FlatGenerator(layers))
	for _, d := range cfg.Dimensions {
		typeID, ok := regs.Index(protocol.RegistryDimensionType, d.Type)
		if !ok {
			return nil, fmt.Errorf("dimension %s: unknown dimension type %s", d.Name, d.Type)
		}
		var biome int32
		if d.Biome != "" {
			if biome, ok = regs.Index(protocol.RegistryBiome, d.Biome); !ok {
				return nil, fmt.Errorf("dimension %s: unknown biome %s", d.Name, d.Biome)
			}
		}
		err := store.AddDimension(world.Dimension{
			Name:       d.Name,
			TypeID:     typeID,
			MinY:       d.MinY,
			Height:     d.Height,
			EmptyBlock: block.Air,
			Biome:      biome,
		})
		if err != nil {
			return nil, err
		}
	}
	return store, nil
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes every session and waits for
// them to end.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("listening", zap.Stringer("address", ln.Addr()), zap.Bool("online_mode", s.cfg.OnlineMode))
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer s.wg.Wait()

	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, nc)
		}()
	}
}

func (s *Server) handle(ctx context.Context, nc net.Conn) {
	c := protocol.NewConn(nc, s.packets, s.log)
	c.Framer().SetCompressionLevel(s.cfg.CompressionLevel)
	c.Framer().SetMaxFrameSize(s.cfg.MaxFrameSize)
	defer c.Close()

	log := c.Logger()
	log.Debug("accepted connection")
	_ = nc.SetDeadline(time.Now().Add(loginTimeout))
	err := s.serveConn(ctx, c, nc)
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		_ = c.Disconnect(protocol.PlainText("Server closed"))
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		log.Debug("connection closed", zap.Stringer("state", c.State()))
	case errors.Is(err, auth.ErrAuthentication):
		// already reported to the client
	default:
		log.Info("dropping connection", zap.Stringer("state", c.State()), zap.Error(err))
		if c.State() != protocol.Closed {
			_ = c.Disconnect(protocol.PlainText(disconnectReason(err)))
		}
	}
}

func disconnectReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrProtocolViolation), errors.Is(err, codec.ErrFormat):
		return "Protocol error: " + err.Error()
	case errors.Is(err, errTimedOut):
		return "Timed out"
	case errors.Is(err, errLagging):
		return "Too many pending updates"
	case errors.Is(err, errMissingCorePack):
		return "This server needs the vanilla " + protocol.VersionName + " data pack"
	}
	return "Internal server error"
}

func (s *Server) serveConn(ctx context.Context, c *protocol.Conn, nc net.Conn) error {
	// Until the player has a session, shutting down just drops the connection.
	unblock := context.AfterFunc(ctx, func() { c.Close() })
	defer unblock()

	intent, err := protocol.AcceptHandshake(c)
	if err != nil {
		return err
	}
	if c.State() == protocol.Status {
		return protocol.ServeStatus(c, s.status)
	}

	if intent.ProtocolVersion != protocol.Version {
		c.Logger().Info("wrong protocol version", zap.Int32("version", intent.ProtocolVersion))
		return c.Disconnect(protocol.PlainText("Outdated client! Please use " + protocol.VersionName))
	}
	if s.full() {
		return c.Disconnect(protocol.PlainText("The server is full!"))
	}
	profile, err := protocol.AcceptLogin(ctx, c, protocol.LoginConfig{
		OnlineMode:           s.cfg.OnlineMode,
		Keys:                 s.keys,
		Verifier:             s.verifier,
		CompressionThreshold: s.cfg.CompressionThreshold,
	})
	if err != nil {
		return err
	}

	if !unblock() {
		return ctx.Err()
	}
	if err := nc.SetDeadline(time.Time{}); err != nil {
		return err
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	sess := newSession(s, c, profile, cancel)
	return sess.run(ctx)
}

func (s *Server) full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions) >= s.cfg.MaxPlayers
}

// status describes the server for the server list.
func (s *Server) status() protocol.ServerStatus {
	s.mu.Lock()
	names := make([]protocol.StatusPlayer, 0, len(s.sessions))
	for sess := range s.sessions {
		names = append(names, protocol.StatusPlayer{Name: sess.profile.Name, ID: sess.profile.ID.String()})
	}
	s.mu.Unlock()

	sort.Slice(names, func(i, j int) bool { return names[i].Name < names[j].Name })
	online := len(names)
	if len(names) > maxStatusSample {
		names = names[:maxStatusSample]
	}
	return protocol.ServerStatus{
		Version:     protocol.StatusVersion{Name: protocol.VersionName, Protocol: protocol.Version},
		Players:     protocol.StatusPlayers{Max: s.cfg.MaxPlayers, Online: online, Sample: names},
		Description: protocol.PlainText(s.cfg.MOTD),
	}
}

func (s *Server) join(sess *session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	n := len(s.sessions)
	s.mu.Unlock()
	sess.log.Info("joined", zap.String("dimension", sess.dim.Name), zap.Int("online", n))
}

func (s *Server) leave(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	n := len(s.sessions)
	s.mu.Unlock()
	sess.log.Info("left", zap.Int("online", n))
}

// broadcast queues packets for every session in dimension dim. An empty dim reaches everyone.
// The caller holds mu.
func (s *Server) broadcast(dim string, packets ...protocol.Packet) {
	for sess := range s.sessions {
		if dim == "" || sess.dim.Name == dim {
			sess.send(packets...)
		}
	}
}

// Reconfigure sends every player in play back to the configuration state, where it receives the
// current registries again.
func (s *Server) Reconfigure(regs protocol.Registries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if regs != nil {
		s.registries = regs
	}
	s.broadcast("", &protocol.StartConfiguration{})
}

func (s *Server) currentRegistries() protocol.Registries {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registries
}

// setBlock changes one block and sends the resulting section updates to the dimension.
func (s *Server) setBlock(dim string, pos codec.Position, state block.StateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	x, y, z := int(pos.X), int(pos.Y), int(pos.Z)
	if _, err := s.world.SetBlock(dim, x, y, z, state); err != nil {
		return err
	}
	col := world.ColumnOf(x, z)
	refs, err := s.world.DrainDirty(dim, col.X, col.Z)
	if err != nil {
		return err
	}
	s.broadcast(dim, sectionUpdates(col, refs)...)
	return nil
}

// blockAt returns the state at pos, or air when the position is outside the world.
func (s *Server) blockAt(dim string, pos codec.Position) block.StateID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.world.GetBlock(dim, int(pos.X), int(pos.Y), int(pos.Z))
	if err != nil {
		return block.Air
	}
	return id
}
