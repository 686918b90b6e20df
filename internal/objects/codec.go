package objects

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Codec compresses object payloads.
type Codec interface {
	Name() string
	// Encode compresses data. best selects the slowest, smallest setting.
	Encode(data []byte, best bool) ([]byte, error)
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "gzip":
		return GzipCodec{}, nil
	case "xz":
		return XZCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown compression codec: %s", name)
	}
}

// GzipCodec writes gzip streams.
type GzipCodec struct{}

func (GzipCodec) Name() string { return "gzip" }

func (GzipCodec) Encode(data []byte, best bool) ([]byte, error) {
	level := gzip.DefaultCompression
	if best {
		level = gzip.BestCompression
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XZCodec writes xz streams.
type XZCodec struct{}

func (XZCodec) Name() string { return "xz" }

func (XZCodec) Encode(data []byte, best bool) ([]byte, error) {
	cfg := xz.WriterConfig{}
	if best {
		cfg.DictCap = 64 << 20
	}
	var buf bytes.Buffer
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decompresses a payload written by any registered codec,
// detecting the format from its magic bytes.
func Decode(payload []byte) ([]byte, error) {
	var r io.Reader
	switch {
	case bytes.HasPrefix(payload, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	case bytes.HasPrefix(payload, xzMagic):
		xr, err := xz.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r = xr
	default:
		return nil, fmt.Errorf("unrecognized object encoding")
	}
	return io.ReadAll(r)
}
