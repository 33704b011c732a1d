package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"readout/internal/capture"
	"readout/internal/overlay"

	"go.uber.org/zap"
)

// Source supplies frames.
type Source interface {
	Read() (image.Image, error)
	Close() error
}

// Surface shows rendered frames.
type Surface interface {
	Present(frame image.Image) error
	Close() error
}

// LoopConfig tunes error handling in the frame loop.
type LoopConfig struct {
	// ReadRetryDelay is slept after a failed frame read.
	ReadRetryDelay time.Duration
	// MaxReadFailures stops the loop after this many consecutive failed reads. Zero means never.
	MaxReadFailures int
}

// Loop pulls frames, feeds the session and presents the result.
type Loop struct {
	source  Source
	surface Surface
	session *Session
	queue   *Queue
	cfg     LoopConfig
	log     *zap.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// NewLoop wires the loop collaborators.
func NewLoop(source Source, surface Surface, session *Session, queue *Queue, cfg LoopConfig, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		source:  source,
		surface: surface,
		session: session,
		queue:   queue,
		cfg:     cfg,
		log:     log,
		Now:     time.Now,
	}
}

// Run ticks until quit, context cancellation or a fatal source error.
// The source and surface are closed on every exit path.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := l.source.Close(); cerr != nil {
			l.log.Warn("closing frame source", zap.Error(cerr))
		}
		if cerr := l.surface.Close(); cerr != nil {
			l.log.Warn("closing display", zap.Error(cerr))
		}
		l.log.Info("frame loop stopped", zap.Error(err))
	}()

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, rerr := l.source.Read()
		if rerr != nil {
			if errors.Is(rerr, capture.ErrDeviceUnavailable) {
				return rerr
			}
			failures++
			l.log.Warn("frame dropped", zap.Int("consecutive", failures), zap.Error(rerr))
			l.session.Emit(EventFrameDropped, rerr)

			if l.cfg.MaxReadFailures > 0 && failures >= l.cfg.MaxReadFailures {
				return fmt.Errorf("%d consecutive read failures: %w", failures, rerr)
			}
			if l.queue.HasQuit() {
				return nil
			}
			if !sleep(ctx, l.cfg.ReadRetryDelay) {
				return nil
			}
			continue
		}
		failures = 0

		scene, quit := l.session.Tick(l.Now(), frame, l.queue.Drain())
		if quit {
			l.log.Info("quit requested")
			return nil
		}

		if perr := l.surface.Present(overlay.Render(frame, scene)); perr != nil {
			l.log.Warn("present failed", zap.Error(perr))
		}
	}
}

// sleep waits for d or until ctx is done. It reports false if ctx ended.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
