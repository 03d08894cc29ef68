package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk-0-0.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpen(t *testing.T) {
	m, err := Open(writeFile(t, []byte("header|payload")))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 14, m.Size())
	assert.Equal(t, []byte("header|payload"), m.Bytes())
	assert.NoError(t, m.Advise(AdviseSequential))
}

func TestReadAt(t *testing.T) {
	m, err := Open(writeFile(t, []byte("header|payload")))
	require.NoError(t, err)
	defer m.Close()

	buf := make([]byte, 7)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))

	n, err = m.ReadAt(make([]byte, 10), 10)
	assert.Equal(t, 4, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, 100)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.ErrorIs(t, err, ErrNegativeOffset)
}

func TestOpen_Empty(t *testing.T) {
	m, err := Open(writeFile(t, nil))
	require.NoError(t, err)

	assert.Equal(t, 0, m.Size())
	assert.NoError(t, m.Advise(AdviseWillNeed))
	assert.NoError(t, m.Close())
}

func TestClose(t *testing.T) {
	m, err := Open(writeFile(t, make([]byte, 8192)))
	require.NoError(t, err)

	for _, a := range []Advice{AdviseNormal, AdviseSequential, AdviseWillNeed} {
		assert.NoError(t, m.Advise(a))
	}

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AdviseSequential), ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
