// Package compression decodes thread dumps that arrive gzip- or zstd-compressed
// and compresses exported reports.
package compression

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Type represents the compression algorithm used.
type Type uint8

const (
	TypeNone Type = iota
	TypeGzip
	TypeZstd
)

// String returns the algorithm name.
func (t Type) String() string {
	switch t {
	case TypeGzip:
		return "gzip"
	case TypeZstd:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file suffix conventionally used for the type.
func (t Type) Extension() string {
	switch t {
	case TypeGzip:
		return ".gz"
	case TypeZstd:
		return ".zst"
	default:
		return ""
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectType inspects the leading magic bytes. Anything unrecognised is TypeNone.
func DetectType(data []byte) Type {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return TypeZstd
	case bytes.HasPrefix(data, gzipMagic):
		return TypeGzip
	default:
		return TypeNone
	}
}

// ErrSizeLimitExceeded is returned when input, before or after
// decompression, is larger than the permitted limit.
var ErrSizeLimitExceeded = errors.New("thread dump exceeds size limit")

// Decode returns data decompressed according to its detected type.
// Plain input is returned unchanged.
func Decode(data []byte) ([]byte, error) {
	return DecodeLimit(data, 0)
}

// DecodeLimit is Decode with a cap on the decompressed size. The cap also
// applies to plain input. limit <= 0 means unbounded.
func DecodeLimit(data []byte, limit int64) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch DetectType(data) {
	case TypeGzip:
		out, err = decodeGzip(data, limit)
	case TypeZstd:
		out, err = decodeZstd(data, limit)
	default:
		out = data
	}
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrSizeLimitExceeded, limit)
	}
	return out, nil
}

func decodeGzip(data []byte, limit int64) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer r.Close()
	out, err := readAtMost(r, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress gzip data: %w", err)
	}
	return out, nil
}

func decodeZstd(data []byte, limit int64) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if limit > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(uint64(limit)))
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrSizeLimitExceeded, err)
		}
		return nil, fmt.Errorf("failed to decompress zstd data: %w", err)
	}
	return out, nil
}

// readAtMost reads one byte past limit so the caller can tell an exact fit
// from an overflow without inflating the rest of the stream.
func readAtMost(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	return io.ReadAll(r)
}

// DecodeReader reads at most limit bytes from r (limit <= 0 means unbounded)
// and decodes them with the same limit.
func DecodeReader(r io.Reader, limit int64) ([]byte, error) {
	data, err := readAtMost(r, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: input exceeds %d bytes", ErrSizeLimitExceeded, limit)
	}
	return DecodeLimit(data, limit)
}

// Encode compresses data with the given algorithm. TypeNone returns data unchanged.
func Encode(t Type, data []byte) ([]byte, error) {
	switch t {
	case TypeGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to write gzip data: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
		return buf.Bytes(), nil
	case TypeZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case TypeNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", t)
	}
}

// ParseType maps "gzip", "zstd" or "none"/"" to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "", "none":
		return TypeNone, nil
	case "gzip", "gz":
		return TypeGzip, nil
	case "zstd", "zst":
		return TypeZstd, nil
	default:
		return TypeNone, fmt.Errorf("unknown compression type: %q", name)
	}
}
