package protocol

import (
	"errors"
	"fmt"

	"github.com/astei/voxelwire/world"
)

// ErrProtocolViolation is returned for a packet or transition that is not legal in the current
// state, such as a play packet during the handshake.
var ErrProtocolViolation = errors.New("protocol: protocol violation")

// UnknownPacketError is returned for an id that has no packet in the current state. It does not
// break the stream: the frame was read whole and the next one can be decoded normally.
type UnknownPacketError struct {
	State     State
	Direction Direction
	ID        int32
}

func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("protocol: unknown %s packet 0x%02X in state %s", e.Direction, e.ID, e.State)
}

func violation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err means the connection must be closed. Malformed data, protocol
// violations and failed authentication are fatal; unknown packets and out of bounds world access
// are not. Errors this package does not know about, I/O errors included, are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var unknown *UnknownPacketError
	switch {
	case errors.As(err, &unknown):
		return false
	case errors.Is(err, world.ErrOutOfBounds):
		return false
	}
	return true
}
