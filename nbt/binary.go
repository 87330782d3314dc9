package nbt

import (
	"fmt"
	"math"

	"github.com/astei/voxelwire/codec"
)

// MaxDepth is the deepest nesting of lists and compounds accepted when decoding.
const MaxDepth = 512

var ErrTooDeep = fmt.Errorf("%w: nbt nested deeper than %d", codec.ErrFormat, MaxDepth)

// Read decodes a named root tag, the form used by files.
func Read(r *codec.Reader) (name string, root Tag, err error) {
	id, err := r.ReadByte()
	if err != nil {
		return "", nil, err
	}
	if id == TagEnd {
		return "", End{}, nil
	}
	if name, err = readName(r); err != nil {
		return "", nil, err
	}
	root, err = readPayload(r, id, 0)
	return
}

// ReadNetwork decodes the nameless root tag used on the wire since 1.20.2. A lone TAG_End is
// returned as End{} and means the value is absent.
func ReadNetwork(r *codec.Reader) (Tag, error) {
	id, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if id == TagEnd {
		return End{}, nil
	}
	return readPayload(r, id, 0)
}

func readName(r *codec.Reader) (string, error) {
	n, err := r.Uint16()
	if err != nil {
		return "", err
	}
	b, err := r.Take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readCount reads a signed 32-bit element count. Negative counts are treated as empty; counts
// that could not possibly fit in the remaining input fail before anything is allocated.
func readCount(r *codec.Reader, elemSize int) (int, error) {
	n, err := r.Int32()
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	if int64(n)*int64(elemSize) > int64(r.Remaining()) {
		return 0, codec.ErrUnexpectedEnd
	}
	return int(n), nil
}

func readPayload(r *codec.Reader, id byte, depth int) (Tag, error) {
	switch id {
	case TagByte:
		v, err := r.Int8()
		return Byte(v), err
	case TagShort:
		v, err := r.Int16()
		return Short(v), err
	case TagInt:
		v, err := r.Int32()
		return Int(v), err
	case TagLong:
		v, err := r.Int64()
		return Long(v), err
	case TagFloat:
		v, err := r.Float32()
		return Float(v), err
	case TagDouble:
		v, err := r.Float64()
		return Double(v), err
	case TagByteArray:
		n, err := readCount(r, 1)
		if err != nil {
			return nil, err
		}
		b, err := r.Take(n)
		if err != nil {
			return nil, err
		}
		return append(ByteArray(nil), b...), nil
	case TagString:
		s, err := readName(r)
		return String(s), err
	case TagList:
		return readList(r, depth+1)
	case TagCompound:
		return readCompound(r, depth+1)
	case TagIntArray:
		n, err := readCount(r, 4)
		if err != nil {
			return nil, err
		}
		out := make(IntArray, n)
		for i := range out {
			out[i], _ = r.Int32()
		}
		return out, nil
	case TagLongArray:
		n, err := readCount(r, 8)
		if err != nil {
			return nil, err
		}
		out := make(LongArray, n)
		for i := range out {
			out[i], _ = r.Int64()
		}
		return out, nil
	default:
		return nil, codec.Errorf("unknown nbt tag id %d", id)
	}
}

func readList(r *codec.Reader, depth int) (Tag, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	elem, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if elem > TagLongArray {
		return nil, codec.Errorf("unknown nbt list element id %d", elem)
	}
	n, err := readCount(r, 1)
	if err != nil {
		return nil, err
	}
	if elem == TagEnd && n > 0 {
		return nil, codec.Errorf("nbt list of %s with %d elements", TagName(TagEnd), n)
	}
	l := List{Elem: elem}
	if n > 0 {
		l.Values = make([]Tag, 0, n)
	}
	for i := 0; i < n; i++ {
		v, err := readPayload(r, elem, depth)
		if err != nil {
			return nil, err
		}
		l.Values = append(l.Values, v)
	}
	return l, nil
}

func readCompound(r *codec.Reader, depth int) (Tag, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	c := NewCompound()
	for {
		id, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if id == TagEnd {
			return c, nil
		}
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		v, err := readPayload(r, id, depth)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		c.Set(name, v)
	}
}

// Write encodes root with a name, the form used by files.
func Write(w *codec.Writer, name string, root Tag) error {
	if root == nil {
		root = End{}
	}
	w.Byte(root.ID())
	if root.ID() == TagEnd {
		return nil
	}
	if err := writeName(w, name); err != nil {
		return err
	}
	return writePayload(w, root)
}

// WriteNetwork encodes root without a name. A nil root is written as a lone TAG_End.
func WriteNetwork(w *codec.Writer, root Tag) error {
	if root == nil {
		root = End{}
	}
	w.Byte(root.ID())
	if root.ID() == TagEnd {
		return nil
	}
	return writePayload(w, root)
}

func writeName(w *codec.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("nbt: string of %d bytes is too long", len(s))
	}
	w.Uint16(uint16(len(s)))
	w.Raw([]byte(s))
	return nil
}

func writePayload(w *codec.Writer, t Tag) error {
	switch v := t.(type) {
	case End:
	case Byte:
		w.Int8(int8(v))
	case Short:
		w.Int16(int16(v))
	case Int:
		w.Int32(int32(v))
	case Long:
		w.Int64(int64(v))
	case Float:
		w.Float32(float32(v))
	case Double:
		w.Float64(float64(v))
	case ByteArray:
		w.Int32(int32(len(v)))
		w.Raw(v)
	case String:
		return writeName(w, string(v))
	case List:
		if err := v.Validate(); err != nil {
			return err
		}
		w.Byte(v.Elem)
		w.Int32(int32(len(v.Values)))
		for _, e := range v.Values {
			if err := writePayload(w, e); err != nil {
				return err
			}
		}
	case *Compound:
		if v != nil {
			for _, k := range v.keys {
				e := v.values[k]
				if e == nil || e.ID() == TagEnd {
					return fmt.Errorf("nbt: compound entry %q has no value", k)
				}
				w.Byte(e.ID())
				if err := writeName(w, k); err != nil {
					return err
				}
				if err := writePayload(w, e); err != nil {
					return err
				}
			}
		}
		w.Byte(TagEnd)
	case IntArray:
		w.Int32(int32(len(v)))
		for _, e := range v {
			w.Int32(e)
		}
	case LongArray:
		w.Int32(int32(len(v)))
		for _, e := range v {
			w.Int64(e)
		}
	default:
		return fmt.Errorf("nbt: cannot encode %T", t)
	}
	return nil
}
