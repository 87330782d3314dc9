package protocol

import (
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/astei/voxelwire/transport"
	"go.uber.org/zap"
)

// Conn is one end of a connection. It owns the framing of the stream and the connection state,
// which selects the packet table used to decode and encode.
//
// Reads and writes may run on two goroutines. A state change must not overlap a read, except
// for Close, which unblocks it.
type Conn struct {
	rwc      io.ReadWriteCloser
	framer   *transport.Framer
	registry *Registry
	state    atomic.Uint32
	in, out  Direction
	remote   string
	log      *zap.Logger
	closed   atomic.Bool
}

// NewConn wraps the server side of a connection: it reads serverbound packets and writes
// clientbound ones.
func NewConn(rwc io.ReadWriteCloser, registry *Registry, log *zap.Logger) *Conn {
	return newConn(rwc, registry, log, Serverbound, Clientbound)
}

// NewClientConn wraps the client side of a connection.
func NewClientConn(rwc io.ReadWriteCloser, registry *Registry, log *zap.Logger) *Conn {
	return newConn(rwc, registry, log, Clientbound, Serverbound)
}

func newConn(rwc io.ReadWriteCloser, registry *Registry, log *zap.Logger, in, out Direction) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	remote := "pipe"
	if nc, ok := rwc.(net.Conn); ok && nc.RemoteAddr() != nil {
		remote = nc.RemoteAddr().String()
	}
	return &Conn{
		rwc:      rwc,
		framer:   transport.NewFramer(rwc),
		registry: registry,
		in:       in,
		out:      out,
		remote:   remote,
		log:      log.With(zap.String("remote", remote)),
	}
}

func (c *Conn) State() State        { return State(c.state.Load()) }
func (c *Conn) RemoteAddr() string  { return c.remote }
func (c *Conn) Logger() *zap.Logger { return c.log }

// Framer exposes the framing layer, for diagnostics such as its sequence counters.
func (c *Conn) Framer() *transport.Framer { return c.framer }

// SetState moves the connection to another state. It must be called as soon as the packet that
// causes the transition has been handled, before the next packet is read.
func (c *Conn) SetState(s State) error {
	from := c.State()
	if !CanTransition(from, s) {
		return violation("cannot go from %s to %s", from, s)
	}
	c.log.Debug("state change", zap.Stringer("from", from), zap.Stringer("to", s))
	c.state.Store(uint32(s))
	return nil
}

// SetCompression sets the compression threshold of both directions; negative turns it off.
func (c *Conn) SetCompression(threshold int) {
	c.framer.SetCompression(threshold)
}

func (c *Conn) EnableEncryption(secret []byte) error {
	return c.framer.EnableEncryption(secret)
}

// ReadPacket blocks until the next packet known in the current state arrives. Unknown packets
// are logged and skipped. Any error it returns is fatal to the connection.
func (c *Conn) ReadPacket() (Packet, error) {
	for {
		frame, err := c.framer.ReadFrame()
		if err != nil {
			return nil, err
		}
		state := c.State()
		p, err := c.registry.Decode(state, c.in, frame)
		var unknown *UnknownPacketError
		if errors.As(err, &unknown) {
			c.log.Debug("skipping unknown packet", zap.Stringer("state", state), zap.Int32("id", unknown.ID),
				zap.Int("size", len(frame)))
			continue
		}
		if err != nil {
			c.log.Warn("bad packet", zap.Stringer("state", state), zap.Error(err))
			return nil, err
		}
		return p, nil
	}
}

// WritePacket encodes p with the current state's table and sends it.
func (c *Conn) WritePacket(p Packet) error {
	payload, err := c.registry.Encode(c.State(), c.out, p)
	if err != nil {
		return err
	}
	return c.framer.WriteFrame(payload)
}

// Disconnect tells the peer why the connection ends, where the state has a way to do that, and
// closes the connection.
func (c *Conn) Disconnect(reason Text) error {
	var err error
	state := c.State()
	switch {
	case c.out == Serverbound:
	case state == Login:
		err = c.WritePacket(&LoginDisconnect{Reason: reason})
	case state == Configuration || state == Play:
		err = c.WritePacket(&Disconnect{Reason: reason})
	}
	c.log.Info("disconnecting", zap.Stringer("state", state), zap.String("reason", reason.String()))
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close closes the stream. The connection ends in the Closed state.
func (c *Conn) Close() error {
	c.state.Store(uint32(Closed))
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.rwc.Close()
}
