package roi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"readout/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "cfg", roiFile), zaptest.NewLogger(t))
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, Default, s.Load())
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	for _, r := range []geometry.RectInt{
		{X: 50, Y: 60, Width: 200, Height: 100},
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 0, Y: 0, Width: 0, Height: 0},
		{X: 1920, Y: 1080, Width: 7, Height: 3},
	} {
		require.NoError(t, s.Save(r))
		assert.Equal(t, r, s.Load())
	}
}

func TestSaveWritesPlainArray(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(geometry.RectInt{X: 50, Y: 60, Width: 200, Height: 100}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `[50,60,200,100]`, string(data))
}

func TestLoadInvalidRecords(t *testing.T) {
	cases := map[string]string{
		"malformed":     `[1,2,`,
		"object":        `{"x":1,"y":2,"w":3,"h":4}`,
		"too short":     `[1,2,3]`,
		"too long":      `[1,2,3,4,5]`,
		"negative":      `[1,-2,3,4]`,
		"fractional":    `[1,2,3.5,4]`,
		"string number": `[1,"2",3,4]`,
		"null":          `null`,
		"trailing":      `[1,2,3,4] [5]`,
		"empty":         ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(body), 0o644))
			assert.Equal(t, Default, s.Load())
		})
	}
}

func TestDecodeAcceptsWhitespace(t *testing.T) {
	r, err := Decode([]byte(" [ 5, 6, 7, 8 ]\n"))
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 5, Y: 6, Width: 7, Height: 8}, r)
}

func TestSaveRejectsNegative(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(geometry.RectInt{X: -1, Width: 3, Height: 3})
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestSaveUnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	s := NewStore(filepath.Join(blocker, roiFile), nil)
	err := s.Save(Default)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
}
