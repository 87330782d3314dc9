package codec

import "fmt"

// Position is a block position packed on the wire as x:26 | z:26 | y:12 in one long.
type Position struct {
	X, Y, Z int32
}

func (p Position) Pack() int64 {
	return (int64(p.X)&0x3FFFFFF)<<38 | (int64(p.Z)&0x3FFFFFF)<<12 | int64(p.Y)&0xFFF
}

func UnpackPosition(v int64) Position {
	return Position{
		X: int32(v >> 38),
		Y: int32(v << 52 >> 52),
		Z: int32(v << 26 >> 38),
	}
}

// Offset returns the position one block away in the direction of the given face
// (0 down, 1 up, 2 north, 3 south, 4 west, 5 east).
func (p Position) Offset(face int32) Position {
	switch face {
	case 0:
		p.Y--
	case 1:
		p.Y++
	case 2:
		p.Z--
	case 3:
		p.Z++
	case 4:
		p.X--
	case 5:
		p.X++
	}
	return p
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}
