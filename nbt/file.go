package nbt

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/astei/voxelwire/codec"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

type Compression byte

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZlib
)

// MaxFileSize bounds how much decompressed data Decode will buffer.
const MaxFileSize = 64 << 20

var ErrFileTooLarge = errors.New("nbt: decompressed file is too large")

// Decode reads a named root tag from r, detecting gzip and zlib compression by their magic bytes.
func Decode(r io.Reader) (name string, root Tag, compression Compression, err error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && len(magic) == 0 {
		return "", nil, CompressionNone, err
	}

	var src io.Reader = br
	switch {
	case len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		compression = CompressionGzip
		gz, err := gzip.NewReader(br)
		if err != nil {
			return "", nil, compression, err
		}
		defer gz.Close()
		src = gz
	case len(magic) == 2 && magic[0] == 0x78 && (uint16(magic[0])<<8|uint16(magic[1]))%31 == 0:
		compression = CompressionZlib
		zr, err := zlib.NewReader(br)
		if err != nil {
			return "", nil, compression, err
		}
		defer zr.Close()
		src = zr
	}

	data, err := io.ReadAll(io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		return "", nil, compression, err
	}
	if len(data) > MaxFileSize {
		return "", nil, compression, ErrFileTooLarge
	}

	cr := codec.NewReader(data)
	name, root, err = Read(cr)
	if err != nil {
		return "", nil, compression, err
	}
	return name, root, compression, cr.Finish()
}

// Encode writes root under name to w using the given compression.
func Encode(w io.Writer, name string, root Tag, compression Compression) (err error) {
	buf := codec.NewWriter(4096)
	if err = Write(buf, name, root); err != nil {
		return err
	}

	switch compression {
	case CompressionGzip:
		gz := gzip.NewWriter(w)
		if _, err = gz.Write(buf.Bytes()); err != nil {
			return err
		}
		return gz.Close()
	case CompressionZlib:
		zw := zlib.NewWriter(w)
		if _, err = zw.Write(buf.Bytes()); err != nil {
			return err
		}
		return zw.Close()
	default:
		_, err = w.Write(buf.Bytes())
		return err
	}
}

func ReadFile(path string) (name string, root Tag, compression Compression, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	return Decode(f)
}

func WriteFile(path, name string, root Tag, compression Compression) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err = Encode(f, name, root, compression); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
