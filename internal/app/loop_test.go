package app

import (
	"context"
	"fmt"
	"image"
	"testing"
	"time"

	"readout/internal/capture"
	"readout/internal/roi"
	"readout/internal/scan"
	"readout/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedSource returns errs[i] (or a frame when nil) on the i-th read,
// then calls onExhausted on every further read.
type scriptedSource struct {
	errs        []error
	reads       int
	closed      int
	onExhausted func() error
}

func (s *scriptedSource) Read() (image.Image, error) {
	i := s.reads
	s.reads++
	if i < len(s.errs) {
		if s.errs[i] != nil {
			return nil, s.errs[i]
		}
		return frame640(), nil
	}
	if s.onExhausted != nil {
		if err := s.onExhausted(); err != nil {
			return nil, err
		}
	}
	return frame640(), nil
}

func (s *scriptedSource) Close() error {
	s.closed++
	return nil
}

type recordingSurface struct {
	frames []*image.RGBA
	closed int
}

func (r *recordingSurface) Present(frame image.Image) error {
	r.frames = append(r.frames, frame.(*image.RGBA))
	return nil
}

func (r *recordingSurface) Close() error {
	r.closed++
	return nil
}

func newLoop(t *testing.T, src *scriptedSource, surf *recordingSurface, q *Queue, reader *stubReader, cfg LoopConfig) (*Loop, *Session) {
	t.Helper()
	s := newSession(t, &memStore{initial: roi.Default}, reader, scan.NewPolicy(scan.Manual, 0))
	l := NewLoop(src, surf, s, q, cfg, zaptest.NewLogger(t))
	l.Now = func() time.Time { return t0 }
	return l, s
}

func TestLoopQuitClosesResources(t *testing.T) {
	q := NewQueue()
	src := &scriptedSource{errs: []error{nil, nil}}
	src.onExhausted = func() error {
		q.Push(Cmd(CommandQuit))
		return nil
	}
	surf := &recordingSurface{}
	l, _ := newLoop(t, src, surf, q, &stubReader{}, LoopConfig{})

	require.NoError(t, l.Run(context.Background()))
	assert.Len(t, surf.frames, 2)
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, surf.closed)
}

func TestLoopPresentsOverlay(t *testing.T) {
	q := NewQueue()
	src := &scriptedSource{errs: []error{nil}}
	src.onExhausted = func() error {
		q.Push(Cmd(CommandQuit))
		return nil
	}
	surf := &recordingSurface{}
	l, _ := newLoop(t, src, surf, q, &stubReader{}, LoopConfig{})

	require.NoError(t, l.Run(context.Background()))
	require.Len(t, surf.frames, 1)
	assert.Equal(t, colorutil.Green, surf.frames[0].RGBAAt(roi.Default.X, roi.Default.Y))
}

func TestLoopSkipsTransientReadErrors(t *testing.T) {
	q := NewQueue()
	q.Push(Cmd(CommandScan))
	src := &scriptedSource{errs: []error{capture.ErrRead, capture.ErrRead, nil}}
	src.onExhausted = func() error {
		q.Push(Cmd(CommandQuit))
		return nil
	}
	surf := &recordingSurface{}
	reader := &stubReader{text: "9"}
	l, s := newLoop(t, src, surf, q, reader, LoopConfig{ReadRetryDelay: time.Millisecond})

	dropped := 0
	s.On(EventFrameDropped, func(interface{}) { dropped++ })

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, reader.calls, "queued scan survives dropped frames")
	assert.Equal(t, "9", s.Result().Text)
}

func TestLoopFatalSourceError(t *testing.T) {
	src := &scriptedSource{errs: []error{nil, fmt.Errorf("%w: unplugged", capture.ErrDeviceUnavailable)}}
	surf := &recordingSurface{}
	l, _ := newLoop(t, src, surf, NewQueue(), &stubReader{}, LoopConfig{})

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, capture.ErrDeviceUnavailable)
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, surf.closed)
}

func TestLoopGivesUpAfterMaxReadFailures(t *testing.T) {
	src := &scriptedSource{onExhausted: func() error { return capture.ErrRead }}
	surf := &recordingSurface{}
	l, _ := newLoop(t, src, surf, NewQueue(), &stubReader{}, LoopConfig{MaxReadFailures: 3})

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, capture.ErrRead)
	assert.Equal(t, 3, src.reads)
	assert.Equal(t, 1, surf.closed)
}

func TestLoopQuitDuringReadFailures(t *testing.T) {
	q := NewQueue()
	q.Push(Cmd(CommandQuit))
	src := &scriptedSource{onExhausted: func() error { return capture.ErrRead }}
	l, _ := newLoop(t, src, &recordingSurface{}, q, &stubReader{}, LoopConfig{ReadRetryDelay: time.Hour})

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 1, src.reads)
}

func TestLoopStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedSource{}
	src.onExhausted = func() error {
		if src.reads >= 3 {
			cancel()
		}
		return nil
	}
	surf := &recordingSurface{}
	l, _ := newLoop(t, src, surf, NewQueue(), &stubReader{}, LoopConfig{})

	require.NoError(t, l.Run(ctx))
	assert.Equal(t, 3, src.reads)
	assert.Equal(t, 1, surf.closed)
}

func TestQueue(t *testing.T) {
	q := NewQueue()
	assert.False(t, q.HasQuit())
	q.Push(Cmd(CommandScan))
	q.Push(Cmd(CommandQuit))
	assert.True(t, q.HasQuit())
	assert.Equal(t, 2, q.Len())

	got := q.Drain()
	assert.Equal(t, []Input{Cmd(CommandScan), Cmd(CommandQuit)}, got)
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Drain())
	assert.Equal(t, "quit", CommandQuit.String())
}
