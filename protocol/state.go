// Package protocol implements the packets of Minecraft Java Edition 1.21.5 (protocol 770), the
// table that maps them to numeric ids in each connection state, and a connection handle that
// drives the state machine.
package protocol

import "fmt"

// Version is the protocol number of Minecraft 1.21.5.
const (
	Version     = 770
	VersionName = "1.21.5"
)

type State uint8

const (
	Handshake State = iota
	Status
	Login
	Configuration
	Play
	Closed
)

var stateNames = [...]string{"handshake", "status", "login", "configuration", "play", "closed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ParseState maps the names used by packet reports back to a state.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name && State(i) != Closed {
			return State(i), true
		}
	}
	return 0, false
}

type Direction uint8

const (
	Serverbound Direction = iota
	Clientbound
)

func (d Direction) String() string {
	if d == Serverbound {
		return "serverbound"
	}
	return "clientbound"
}

// CanTransition reports whether a connection may move from one state to another. Status only
// ever ends in Closed; Configuration and Play may alternate for as long as the connection lives.
func CanTransition(from, to State) bool {
	if to == Closed {
		return true
	}
	switch from {
	case Handshake:
		return to == Status || to == Login
	case Login:
		return to == Configuration
	case Configuration:
		return to == Play
	case Play:
		return to == Configuration
	}
	return false
}
