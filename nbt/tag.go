package nbt

import (
	"errors"
	"fmt"
)

const (
	TagEnd byte = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var tagNames = [...]string{
	TagEnd:       "TAG_End",
	TagByte:      "TAG_Byte",
	TagShort:     "TAG_Short",
	TagInt:       "TAG_Int",
	TagLong:      "TAG_Long",
	TagFloat:     "TAG_Float",
	TagDouble:    "TAG_Double",
	TagByteArray: "TAG_Byte_Array",
	TagString:    "TAG_String",
	TagList:      "TAG_List",
	TagCompound:  "TAG_Compound",
	TagIntArray:  "TAG_Int_Array",
	TagLongArray: "TAG_Long_Array",
}

// TagName returns the conventional name of a tag id.
func TagName(id byte) string {
	if int(id) < len(tagNames) {
		return tagNames[id]
	}
	return fmt.Sprintf("TAG_Unknown(%d)", id)
}

var ErrMixedList = errors.New("nbt: list elements must share one tag type")

// Tag is one node of an NBT tree. The set of implementations is closed: End, Byte, Short, Int,
// Long, Float, Double, ByteArray, String, List, *Compound, IntArray and LongArray.
type Tag interface {
	ID() byte
	tag()
}

type (
	End       struct{}
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	String    string
	IntArray  []int32
	LongArray []int64
)

func (End) ID() byte       { return TagEnd }
func (Byte) ID() byte      { return TagByte }
func (Short) ID() byte     { return TagShort }
func (Int) ID() byte       { return TagInt }
func (Long) ID() byte      { return TagLong }
func (Float) ID() byte     { return TagFloat }
func (Double) ID() byte    { return TagDouble }
func (ByteArray) ID() byte { return TagByteArray }
func (String) ID() byte    { return TagString }
func (List) ID() byte      { return TagList }
func (*Compound) ID() byte { return TagCompound }
func (IntArray) ID() byte  { return TagIntArray }
func (LongArray) ID() byte { return TagLongArray }

func (End) tag()       {}
func (Byte) tag()      {}
func (Short) tag()     {}
func (Int) tag()       {}
func (Long) tag()      {}
func (Float) tag()     {}
func (Double) tag()    {}
func (ByteArray) tag() {}
func (String) tag()    {}
func (List) tag()      {}
func (*Compound) tag() {}
func (IntArray) tag()  {}
func (LongArray) tag() {}

// List is a homogeneous sequence of tags. An empty list may carry TagEnd as its element type.
type List struct {
	Elem   byte
	Values []Tag
}

// NewList builds a list from values, taking the element type from the first one.
func NewList(values ...Tag) (List, error) {
	if len(values) == 0 {
		return List{Elem: TagEnd}, nil
	}
	l := List{Elem: values[0].ID(), Values: values}
	return l, l.Validate()
}

// Validate checks that every element has the declared element type.
func (l List) Validate() error {
	if l.Elem == TagEnd && len(l.Values) > 0 {
		return fmt.Errorf("%w: non-empty list of %s", ErrMixedList, TagName(TagEnd))
	}
	for i, v := range l.Values {
		if v == nil || v.ID() != l.Elem {
			return fmt.Errorf("%w: element %d is not %s", ErrMixedList, i, TagName(l.Elem))
		}
	}
	return nil
}

// Compound is a mapping from names to tags that remembers insertion order, so a tree written back
// out keeps the field order it was read or built with.
type Compound struct {
	keys   []string
	values map[string]Tag
}

func NewCompound() *Compound {
	return &Compound{values: make(map[string]Tag)}
}

// Set stores tag under name, replacing any previous value in place. It returns c for chaining.
func (c *Compound) Set(name string, tag Tag) *Compound {
	if c.values == nil {
		c.values = make(map[string]Tag)
	}
	if _, ok := c.values[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.values[name] = tag
	return c
}

func (c *Compound) Get(name string) (Tag, bool) {
	t, ok := c.values[name]
	return t, ok
}

func (c *Compound) Delete(name string) {
	if _, ok := c.values[name]; !ok {
		return
	}
	delete(c.values, name)
	for i, k := range c.keys {
		if k == name {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the names in insertion order.
func (c *Compound) Keys() []string {
	return append([]string(nil), c.keys...)
}

func (c *Compound) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Clone returns a deep copy of t.
func Clone(t Tag) Tag {
	switch v := t.(type) {
	case ByteArray:
		return append(ByteArray(nil), v...)
	case IntArray:
		return append(IntArray(nil), v...)
	case LongArray:
		return append(LongArray(nil), v...)
	case List:
		out := List{Elem: v.Elem, Values: make([]Tag, len(v.Values))}
		for i, e := range v.Values {
			out.Values[i] = Clone(e)
		}
		return out
	case *Compound:
		if v == nil {
			return v
		}
		out := &Compound{keys: append([]string(nil), v.keys...), values: make(map[string]Tag, len(v.values))}
		for k, e := range v.values {
			out.values[k] = Clone(e)
		}
		return out
	default:
		return t
	}
}
