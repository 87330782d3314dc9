package chunk

import "fmt"

// BitStorage packs fixed-width unsigned entries into 64-bit words, lowest bits first. Entries
// never straddle two words: each word holds 64/bits entries and the leftover high bits are
// unused. This is the layout clients have expected since 1.16.
type BitStorage struct {
	bits    int
	size    int
	perWord int
	mask    uint64
	data    []uint64
}

// wordsFor returns how many longs a storage of size entries at the given width needs.
func wordsFor(bits, size int) int {
	if bits == 0 {
		return 0
	}
	perWord := 64 / bits
	return (size + perWord - 1) / perWord
}

// NewBitStorage makes a storage of size entries. If data is nil a zeroed array is allocated,
// otherwise data is adopted and must have exactly the right length.
func NewBitStorage(bits, size int, data []uint64) (*BitStorage, error) {
	if bits < 0 || bits > 32 {
		return nil, fmt.Errorf("chunk: invalid entry width %d", bits)
	}
	n := wordsFor(bits, size)
	if data == nil {
		data = make([]uint64, n)
	} else if len(data) != n {
		return nil, fmt.Errorf("chunk: %d-bit storage of %d entries needs %d longs, got %d", bits, size, n, len(data))
	}
	s := &BitStorage{bits: bits, size: size, data: data}
	if bits > 0 {
		s.perWord = 64 / bits
		s.mask = 1<<uint(bits) - 1
	}
	return s, nil
}

func mustBitStorage(bits, size int) *BitStorage {
	s, err := NewBitStorage(bits, size, nil)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *BitStorage) Bits() int { return s.bits }
func (s *BitStorage) Len() int  { return s.size }

// Raw returns the backing words. The slice is shared with the storage.
func (s *BitStorage) Raw() []uint64 { return s.data }

func (s *BitStorage) locate(i int) (word int, shift uint) {
	if i < 0 || i >= s.size {
		panic(fmt.Sprintf("chunk: index %d out of range [0, %d)", i, s.size))
	}
	return i / s.perWord, uint(i%s.perWord) * uint(s.bits)
}

func (s *BitStorage) Get(i int) int {
	if s.bits == 0 {
		return 0
	}
	w, shift := s.locate(i)
	return int(s.data[w] >> shift & s.mask)
}

// Set stores v at i. Bits of v above the entry width are dropped.
func (s *BitStorage) Set(i, v int) {
	if s.bits == 0 {
		return
	}
	w, shift := s.locate(i)
	s.data[w] = s.data[w]&^(s.mask<<shift) | (uint64(v)&s.mask)<<shift
}

// Swap stores v at i and returns the previous entry.
func (s *BitStorage) Swap(i, v int) int {
	old := s.Get(i)
	s.Set(i, v)
	return old
}

// Resized copies every entry into a new storage of the given width.
func (s *BitStorage) Resized(bits int) *BitStorage {
	out := mustBitStorage(bits, s.size)
	if s.bits == 0 {
		return out
	}
	for i := 0; i < s.size; i++ {
		out.Set(i, s.Get(i))
	}
	return out
}
