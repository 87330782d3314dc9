package codec

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
	"github.com/willf/bitset"
)

// Writer accumulates an encoded payload in memory. Writes never fail; the buffer simply grows.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }
func (w *Writer) Reset()        { w.buf = w.buf[:0] }

// Write implements io.Writer so a Writer can be handed to encoders that expect one.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *Writer) Raw(p []byte) {
	w.buf = append(w.buf, p...)
}

func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) Int8(v int8) {
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) Uint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Int16(v int16) {
	w.Uint16(uint16(v))
}

func (w *Writer) Int32(v int32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) Int64(v int64) {
	w.Uint64(uint64(v))
}

func (w *Writer) Float32(v float32) {
	w.Int32(int32(math.Float32bits(v)))
}

func (w *Writer) Float64(v float64) {
	w.Uint64(math.Float64bits(v))
}

func (w *Writer) VarInt(v int32) {
	var tmp [MaxVarIntLen]byte
	n := PutVarInt(tmp[:], v)
	w.buf = append(w.buf, tmp[:n]...)
}

func (w *Writer) VarLong(v int64) {
	var tmp [MaxVarLongLen]byte
	n := PutVarLong(tmp[:], v)
	w.buf = append(w.buf, tmp[:n]...)
}

func (w *Writer) String(s string) {
	w.VarInt(int32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) ByteArray(b []byte) {
	w.VarInt(int32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) UUID(id uuid.UUID) {
	w.buf = append(w.buf, id[:]...)
}

func (w *Writer) Position(p Position) {
	w.Int64(p.Pack())
}

func (w *Writer) Longs(words []uint64) {
	for _, v := range words {
		w.Uint64(v)
	}
}

func (w *Writer) PrefixedLongs(words []uint64) {
	w.VarInt(int32(len(words)))
	w.Longs(words)
}

// BitSet writes set as a VarInt-prefixed array of longs. A nil set is written as empty.
func (w *Writer) BitSet(set *bitset.BitSet) {
	if set == nil || set.Count() == 0 {
		w.VarInt(0)
		return
	}
	words := set.Bytes()
	// trailing zero words are not significant on the wire
	n := len(words)
	for n > 0 && words[n-1] == 0 {
		n--
	}
	w.PrefixedLongs(words[:n])
}
