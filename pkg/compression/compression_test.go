package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDump = `"main" #1 prio=5 os_prio=0 tid=0x00007f nid=0x1 runnable
   java.lang.Thread.State: RUNNABLE
	at com.example.App.main(App.java:10)
`

func TestEncodeDecode(t *testing.T) {
	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd} {
		t.Run(typ.String(), func(t *testing.T) {
			encoded, err := Encode(typ, []byte(sampleDump))
			require.NoError(t, err)
			assert.Equal(t, typ, DetectType(encoded))

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, sampleDump, string(decoded))
		})
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Type
	}{
		{"empty", nil, TypeNone},
		{"short", []byte{0x1f}, TypeNone},
		{"gzip", []byte{0x1f, 0x8b, 0x08}, TypeGzip},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, TypeZstd},
		{"text", []byte("Full thread dump"), TypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectType(tt.data))
		})
	}
}

func TestDecode_CorruptGzip(t *testing.T) {
	_, err := Decode([]byte{0x1f, 0x8b, 0x00, 0x01})
	assert.Error(t, err)
}

func TestDecodeReader(t *testing.T) {
	gz, err := Encode(TypeGzip, []byte(sampleDump))
	require.NoError(t, err)

	out, err := DecodeReader(bytes.NewReader(gz), 0)
	require.NoError(t, err)
	assert.Equal(t, sampleDump, string(out))

	_, err = DecodeReader(strings.NewReader(sampleDump), 10)
	assert.ErrorIs(t, err, ErrSizeLimitExceeded)
}

func TestDecodeLimit(t *testing.T) {
	const limit = 64 << 10
	bomb := bytes.Repeat([]byte{0}, 4<<20)

	for _, typ := range []Type{TypeGzip, TypeZstd} {
		t.Run(typ.String(), func(t *testing.T) {
			encoded, err := Encode(typ, bomb)
			require.NoError(t, err)
			require.Less(t, len(encoded), limit)

			_, err = DecodeLimit(encoded, limit)
			assert.ErrorIs(t, err, ErrSizeLimitExceeded)

			_, err = DecodeReader(bytes.NewReader(encoded), limit)
			assert.ErrorIs(t, err, ErrSizeLimitExceeded)

			out, err := DecodeLimit(encoded, int64(len(bomb)))
			require.NoError(t, err)
			assert.Len(t, out, len(bomb))
		})
	}

	t.Run("plain", func(t *testing.T) {
		_, err := DecodeLimit([]byte(sampleDump), 10)
		assert.ErrorIs(t, err, ErrSizeLimitExceeded)

		out, err := DecodeLimit([]byte(sampleDump), int64(len(sampleDump)))
		require.NoError(t, err)
		assert.Equal(t, sampleDump, string(out))
	})

	t.Run("unbounded", func(t *testing.T) {
		encoded, err := Encode(TypeGzip, bomb)
		require.NoError(t, err)
		out, err := DecodeLimit(encoded, 0)
		require.NoError(t, err)
		assert.Len(t, out, len(bomb))
	})
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("gz")
	require.NoError(t, err)
	assert.Equal(t, TypeGzip, typ)
	assert.Equal(t, ".gz", typ.Extension())

	typ, err = ParseType("zstd")
	require.NoError(t, err)
	assert.Equal(t, ".zst", typ.Extension())

	typ, err = ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypeNone, typ)
	assert.Equal(t, "", typ.Extension())

	_, err = ParseType("brotli")
	assert.Error(t, err)
}
