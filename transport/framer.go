package transport

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"

	"github.com/Tnze/go-mc/net/CFB8"
	"github.com/astei/voxelwire/codec"
	"github.com/klauspost/compress/zlib"
)

const (
	// MaxFrameSize is the largest frame length expressible in a three byte VarInt.
	MaxFrameSize = 2097151
	// maxLengthPrefix is how many bytes a frame length prefix may take.
	maxLengthPrefix = 3

	CompressionDisabled = -1
)

var (
	ErrFrameTooLarge     = fmt.Errorf("%w: frame too large", codec.ErrFormat)
	ErrBadCompression    = fmt.Errorf("%w: badly compressed frame", codec.ErrFormat)
	ErrAlreadyEncrypted  = errors.New("transport: encryption already enabled")
	ErrInvalidSecretSize = errors.New("transport: shared secret must be 16 bytes")
)

// Framer turns a byte stream into length-prefixed frames and back. It applies compression and
// encryption in the fixed order compress, frame, encrypt when writing and the inverse when
// reading.
//
// A Framer is owned by one goroutine; it does no locking of its own.
type Framer struct {
	raw io.Writer
	in  *bufio.Reader

	threshold int
	level     int
	maxFrame  int

	encrypt cipher.Stream
	decrypt cipher.Stream

	readSeq  uint64
	writeSeq uint64

	out  *codec.Writer
	zbuf bytes.Buffer
}

func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		raw:       rw,
		in:        bufio.NewReader(rw),
		threshold: CompressionDisabled,
		level:     zlib.DefaultCompression,
		maxFrame:  MaxFrameSize,
		out:       codec.NewWriter(512),
	}
}

// SetCompression turns on compression for payloads of at least threshold bytes. A negative
// threshold turns it off.
func (f *Framer) SetCompression(threshold int) {
	if threshold < 0 {
		threshold = CompressionDisabled
	}
	f.threshold = threshold
}

// SetCompressionLevel selects the zlib level used for outgoing frames.
func (f *Framer) SetCompressionLevel(level int) {
	f.level = level
}

// SetMaxFrameSize lowers the largest frame accepted in either direction.
func (f *Framer) SetMaxFrameSize(n int) {
	if n <= 0 || n > MaxFrameSize {
		n = MaxFrameSize
	}
	f.maxFrame = n
}

func (f *Framer) CompressionThreshold() int { return f.threshold }
func (f *Framer) Encrypted() bool           { return f.encrypt != nil }

// Sequence returns how many frames have been read and written so far.
func (f *Framer) Sequence() (read, written uint64) {
	return f.readSeq, f.writeSeq
}

// EnableEncryption switches both directions to AES-128/CFB8 keyed and IV'd by secret. Every byte
// after this call is encrypted, length prefixes included.
func (f *Framer) EnableEncryption(secret []byte) error {
	if f.encrypt != nil {
		return ErrAlreadyEncrypted
	}
	if len(secret) != 16 {
		return ErrInvalidSecretSize
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return err
	}
	f.encrypt = CFB8.NewCFB8Encrypt(block, append([]byte(nil), secret...))
	f.decrypt = CFB8.NewCFB8Decrypt(block, append([]byte(nil), secret...))
	return nil
}

// ReadByte reads one decrypted byte from the stream.
func (f *Framer) ReadByte() (byte, error) {
	b, err := f.in.ReadByte()
	if err != nil {
		return 0, err
	}
	if f.decrypt != nil {
		var one [1]byte
		f.decrypt.XORKeyStream(one[:], []byte{b})
		b = one[0]
	}
	return b, nil
}

func (f *Framer) readFull(p []byte) error {
	if _, err := io.ReadFull(f.in, p); err != nil {
		return err
	}
	if f.decrypt != nil {
		f.decrypt.XORKeyStream(p, p)
	}
	return nil
}

// ReadFrame blocks until a whole frame has arrived and returns its decompressed payload, which
// starts with the packet id.
func (f *Framer) ReadFrame() ([]byte, error) {
	length, err := codec.ReadVarIntFrom(f, maxLengthPrefix)
	if err != nil {
		if errors.Is(err, codec.ErrVarIntTooBig) {
			return nil, ErrFrameTooLarge
		}
		return nil, err
	}
	if length <= 0 {
		return nil, codec.Errorf("frame length %d", length)
	}
	if int(length) > f.maxFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	frame := make([]byte, length)
	if err := f.readFull(frame); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	f.readSeq++

	if f.threshold < 0 {
		return frame, nil
	}
	return f.inflate(frame)
}

func (f *Framer) inflate(frame []byte) ([]byte, error) {
	r := codec.NewReader(frame)
	dataLen, err := r.VarInt()
	if err != nil {
		return nil, err
	}
	if dataLen == 0 {
		return r.Rest(), nil
	}
	if dataLen < int32(f.threshold) {
		return nil, fmt.Errorf("%w: %d bytes is below the threshold %d", ErrBadCompression, dataLen, f.threshold)
	}
	if dataLen < 0 || int(dataLen) > f.maxFrame {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, dataLen)
	}

	zr, err := zlib.NewReader(bytes.NewReader(r.Rest()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
	}
	defer zr.Close()

	payload := make([]byte, dataLen)
	if _, err := io.ReadFull(zr, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
	}
	// anything left over means the declared length was a lie
	var extra [1]byte
	if n, _ := zr.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: inflated size exceeds %d", ErrBadCompression, dataLen)
	}
	return payload, nil
}

// WriteFrame frames payload, compressing and encrypting it as configured, and hands it to the
// underlying writer in a single Write call.
func (f *Framer) WriteFrame(payload []byte) error {
	body := payload
	f.out.Reset()

	if f.threshold >= 0 {
		if len(payload) > f.maxFrame {
			return fmt.Errorf("%w: %d bytes before compression", ErrFrameTooLarge, len(payload))
		}
		if len(payload) >= f.threshold {
			f.zbuf.Reset()
			zw, err := zlib.NewWriterLevel(&f.zbuf, f.level)
			if err != nil {
				return err
			}
			if _, err := zw.Write(payload); err != nil {
				return err
			}
			if err := zw.Close(); err != nil {
				return err
			}
			var prefix [codec.MaxVarIntLen]byte
			n := codec.PutVarInt(prefix[:], int32(len(payload)))
			body = append(prefix[:n:n], f.zbuf.Bytes()...)
		} else {
			body = append([]byte{0}, payload...)
		}
	}

	if len(body) > f.maxFrame {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}
	f.out.VarInt(int32(len(body)))
	f.out.Raw(body)

	out := f.out.Bytes()
	if f.encrypt != nil {
		f.encrypt.XORKeyStream(out, out)
	}
	if _, err := f.raw.Write(out); err != nil {
		return err
	}
	f.writeSeq++
	return nil
}
