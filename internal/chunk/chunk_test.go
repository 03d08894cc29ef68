package chunk

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParse(t *testing.T) {
	items := [][]byte{[]byte("a"), {}, []byte("hello"), []byte("xyz")}

	data, err := Build(items)
	require.NoError(t, err)
	require.Len(t, data, HeaderSize(4)+9)
	assert.Equal(t, Size(4, 9), int64(len(data)))

	v, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, 4, v.Len())
	for i, want := range items {
		got, err := v.Item(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = v.Item(4)
	assert.Error(t, err)
	_, err = v.Item(-1)
	assert.Error(t, err)
}

func TestBuild_Empty(t *testing.T) {
	data, err := Build(nil)
	require.NoError(t, err)
	assert.Len(t, data, HeaderSize(0))

	v, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())
}

func TestOffsetsAreAbsolute(t *testing.T) {
	data, err := Build([][]byte{[]byte("ab"), []byte("cde")})
	require.NoError(t, err)

	header := uint64(HeaderSize(2))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data))
	assert.Equal(t, header, binary.LittleEndian.Uint64(data[4:]))
	assert.Equal(t, header+2, binary.LittleEndian.Uint64(data[12:]))
	assert.Equal(t, uint64(len(data)), binary.LittleEndian.Uint64(data[20:]))
}

func TestParse_Corrupt(t *testing.T) {
	good, err := Build([][]byte{[]byte("ab"), []byte("cde")})
	require.NoError(t, err)

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return f(b)
	}

	cases := map[string][]byte{
		"short":      {1, 0},
		"huge count": mutate(func(b []byte) []byte { binary.LittleEndian.PutUint32(b, 1000); return b }),
		"first offset": mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[4:], 0)
			return b
		}),
		"descending": mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[12:], uint64(HeaderSize(2))-1)
			return b
		}),
		"truncated": good[:len(good)-1],
		"trailing":  append(append([]byte(nil), good...), 0),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("chunk"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Checksum([]byte("chunk")))
	assert.NotEqual(t, a, Checksum([]byte("chunk!")))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "chunk-0-0.bin", FileName(0, 0, ""))
	assert.Equal(t, "chunk-3-12.zstd.bin", FileName(3, 12, "zstd"))
}
