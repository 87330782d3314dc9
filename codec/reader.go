package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/willf/bitset"
)

const (
	// MaxStringLength is the default byte limit for protocol strings: 32767 UTF-16 units, each of
	// which can take up to three UTF-8 bytes.
	MaxStringLength     = 32767 * 3
	MaxIdentifierLength = 32767
)

// Reader is a bounded cursor over a byte slice. No read ever goes past the end of the slice;
// running out of input yields ErrUnexpectedEnd instead.
//
// Slices returned by Take and Rest alias the underlying buffer.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset returns how many bytes have been consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Finish reports ErrTrailingBytes if anything is left unread.
func (r *Reader) Finish() error {
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d left", ErrTrailingBytes, r.Remaining())
	}
	return nil
}

// Take returns the next n bytes without copying.
func (r *Reader) Take(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, ErrUnexpectedEnd
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Rest consumes and returns everything that is left.
func (r *Reader) Rest() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}

func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, ErrUnexpectedEnd
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, Errorf("boolean must be 0 or 1, got %d", b)
	}
}

func (r *Reader) Int8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

func (r *Reader) Int32() (int32, error) {
	b, err := r.Take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.Take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

func (r *Reader) Float32() (float32, error) {
	v, err := r.Int32()
	return math.Float32frombits(uint32(v)), err
}

func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	return math.Float64frombits(v), err
}

// VarInt decodes a variable-length 32-bit integer of at most five bytes.
func (r *Reader) VarInt() (int32, error) {
	var result uint32
	for i := 0; i < MaxVarIntLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7F) << (7 * uint(i))
		if b&0x80 == 0 {
			return int32(result), nil
		}
	}
	return 0, ErrVarIntTooBig
}

// VarLong decodes a variable-length 64-bit integer of at most ten bytes.
func (r *Reader) VarLong() (int64, error) {
	var result uint64
	for i := 0; i < MaxVarLongLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7F) << (7 * uint(i))
		if b&0x80 == 0 {
			return int64(result), nil
		}
	}
	return 0, ErrVarIntTooBig
}

// Length reads a VarInt used as a count and checks it lies in [0, max].
func (r *Reader) Length(max int) (int, error) {
	n, err := r.VarInt()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, Errorf("negative length %d", n)
	}
	if int(n) > max {
		return 0, Errorf("length %d exceeds maximum %d", n, max)
	}
	return int(n), nil
}

// String reads a VarInt-prefixed UTF-8 string whose encoded size is at most maxBytes.
func (r *Reader) String(maxBytes int) (string, error) {
	n, err := r.Length(maxBytes)
	if err != nil {
		return "", err
	}
	b, err := r.Take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", Errorf("string is not valid UTF-8")
	}
	return string(b), nil
}

func (r *Reader) Identifier() (string, error) {
	return r.String(MaxIdentifierLength)
}

// ByteArray reads a VarInt-prefixed byte array and returns a copy of it.
func (r *Reader) ByteArray(max int) ([]byte, error) {
	n, err := r.Length(max)
	if err != nil {
		return nil, err
	}
	b, err := r.Take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (r *Reader) UUID() (uuid.UUID, error) {
	var id uuid.UUID
	b, err := r.Take(16)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

func (r *Reader) Position() (Position, error) {
	v, err := r.Int64()
	if err != nil {
		return Position{}, err
	}
	return UnpackPosition(v), nil
}

// Longs reads exactly n big-endian 64-bit words.
func (r *Reader) Longs(n int) ([]uint64, error) {
	if n < 0 || n > r.Remaining()/8 {
		return nil, ErrUnexpectedEnd
	}
	out := make([]uint64, n)
	for i := range out {
		out[i], _ = r.Uint64()
	}
	return out, nil
}

// PrefixedLongs reads a VarInt count followed by that many longs.
func (r *Reader) PrefixedLongs(max int) ([]uint64, error) {
	n, err := r.Length(max)
	if err != nil {
		return nil, err
	}
	return r.Longs(n)
}

// BitSet reads the protocol's BitSet: a VarInt count of longs, little-end word first.
func (r *Reader) BitSet(maxLongs int) (*bitset.BitSet, error) {
	words, err := r.PrefixedLongs(maxLongs)
	if err != nil {
		return nil, err
	}
	set := bitset.New(uint(len(words) * 64))
	for w, word := range words {
		for bit := uint(0); word != 0; bit++ {
			if word&1 != 0 {
				set.Set(uint(w)*64 + bit)
			}
			word >>= 1
		}
	}
	return set, nil
}
