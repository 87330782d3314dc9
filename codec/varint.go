package codec

import "io"

const (
	MaxVarIntLen  = 5
	MaxVarLongLen = 10
)

// PutVarInt encodes value into buf, which must hold at least MaxVarIntLen bytes, and returns the
// number of bytes written.
func PutVarInt(buf []byte, value int32) int {
	uval := uint32(value)
	n := 0
	for uval&^0x7F != 0 {
		buf[n] = byte(uval&0x7F) | 0x80
		uval >>= 7
		n++
	}
	buf[n] = byte(uval)
	return n + 1
}

// PutVarLong is the 64-bit counterpart of PutVarInt.
func PutVarLong(buf []byte, value int64) int {
	uval := uint64(value)
	n := 0
	for uval&^0x7F != 0 {
		buf[n] = byte(uval&0x7F) | 0x80
		uval >>= 7
		n++
	}
	buf[n] = byte(uval)
	return n + 1
}

// VarIntSize returns the number of bytes needed to encode value.
func VarIntSize(value int32) int {
	uval := uint32(value)
	size := 1
	for uval&^0x7F != 0 {
		uval >>= 7
		size++
	}
	return size
}

// ReadVarIntFrom reads a VarInt one byte at a time from a stream, refusing to consume more than
// maxLen bytes. It is used where the input is not yet buffered, like frame length prefixes.
func ReadVarIntFrom(r io.ByteReader, maxLen int) (int32, error) {
	var result uint32
	for i := 0; ; i++ {
		if i >= maxLen {
			return 0, ErrVarIntTooBig
		}
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		result |= uint32(b&0x7F) << (7 * uint(i))
		if b&0x80 == 0 {
			return int32(result), nil
		}
	}
}
