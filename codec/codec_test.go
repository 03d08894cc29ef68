package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Version  int      `json:"version"`
	Rank     int      `json:"rank"`
	Files    []string `json:"files"`
	Done     bool     `json:"done"`
	Checksum string   `json:"checksum,omitempty"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}

	c, ok := ByName("")
	require.True(t, ok)
	assert.Equal(t, Default.Name(), c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAreInterchangeable(t *testing.T) {
	in := doc{Version: 1, Rank: 3, Files: []string{"chunk-3-0.bin", "chunk-3-1.zstd.bin"}, Done: true}

	codecs := []Codec{JSON{}, GoJSON{}}
	for _, enc := range codecs {
		data := MustMarshal(enc, in)
		for _, dec := range codecs {
			var out doc
			require.NoError(t, dec.Unmarshal(data, &out), "%s -> %s", enc.Name(), dec.Name())
			assert.Equal(t, in, out)
		}
	}
}

func TestMustMarshalPanics(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(nil, make(chan int)) })
}
