package compression

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressors_RoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("chunkstore chunk payload "), 200)
	random := make([]byte, 512)
	for i := range random {
		random[i] = byte(i*7919 + i>>3)
	}

	for _, name := range Default.Names() {
		c, err := Default.Lookup(name)
		require.NoError(t, err)

		t.Run(name, func(t *testing.T) {
			for _, input := range [][]byte{compressible, random, {}} {
				out, err := c.Compress(input)
				require.NoError(t, err)

				raw, err := c.Decompress(out, len(input))
				require.NoError(t, err)
				assert.True(t, bytes.Equal(input, raw))
			}
		})
	}
}

func TestCompressors_ShrinkRepetitiveInput(t *testing.T) {
	input := bytes.Repeat([]byte{0xAB}, 4096)
	for _, name := range []string{"zstd", "lz4", "snappy"} {
		c, err := ByName(name)
		require.NoError(t, err)
		out, err := c.Compress(input)
		require.NoError(t, err)
		assert.Less(t, len(out), len(input), name)
	}
}

func TestCompressors_SizeMismatch(t *testing.T) {
	input := bytes.Repeat([]byte("abc"), 100)
	for _, name := range []string{"zstd", "lz4", "snappy"} {
		c, err := ByName(name)
		require.NoError(t, err)
		out, err := c.Compress(input)
		require.NoError(t, err)

		_, err = c.Decompress(out, len(input)+1)
		assert.Error(t, err, name)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	t.Run("unknown name", func(t *testing.T) {
		_, err := Default.Lookup("something_else")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.Contains(t, err.Error(), "The provided compression something_else isn't available")

		var ue *UnavailableError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, []string{"lz4", "snappy", "zstd"}, ue.Available)
	})

	t.Run("empty registry", func(t *testing.T) {
		_, err := NewRegistry().Lookup("zstd")
		assert.ErrorIs(t, err, ErrNoneInstalled)
		assert.Equal(t, NoneInstalledMessage, err.Error())
	})

	t.Run("register", func(t *testing.T) {
		r := NewRegistry()
		r.Register(Snappy{})
		c, err := r.Lookup("snappy")
		require.NoError(t, err)
		assert.Equal(t, "snappy", c.Name())
	})
}

func TestLZ4_CorruptFlag(t *testing.T) {
	_, err := LZ4{}.Decompress([]byte{9, 1, 2, 3}, 3)
	assert.Error(t, err)

	_, err = LZ4{}.Decompress(nil, 0)
	assert.Error(t, err)
}

func TestCompressors_ImplausibleRawSize(t *testing.T) {
	input := bytes.Repeat([]byte("abc"), 100)
	for _, name := range []string{"zstd", "lz4", "snappy"} {
		c, err := ByName(name)
		require.NoError(t, err)
		out, err := c.Compress(input)
		require.NoError(t, err)

		for _, rawSize := range []int{-1, -len(input), 1 << 40} {
			assert.NotPanics(t, func() {
				_, err = c.Decompress(out, rawSize)
			}, "%s %d", name, rawSize)
			assert.ErrorIs(t, err, ErrSizeMismatch, "%s %d", name, rawSize)
		}
	}
}
