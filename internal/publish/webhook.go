// Package publish posts completed readings to a webhook.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"readout/internal/scan"
	"readout/pkg/geometry"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRejected is returned when the webhook answers with a non-2xx status.
var ErrRejected = errors.New("webhook rejected reading")

// Reading is the JSON body posted for each completed scan.
type Reading struct {
	ID         string           `json:"id"`
	Session    string           `json:"session"`
	Text       string           `json:"text"`
	CapturedAt time.Time        `json:"captured_at"`
	ROI        geometry.RectInt `json:"roi"`
	Mode       string           `json:"mode"`
}

// Publisher buffers readings and posts them from a single goroutine.
type Publisher struct {
	url     string
	session string
	client  *resty.Client
	queue   chan Reading
	log     *zap.Logger
}

// New creates a publisher. queueSize bounds the number of pending readings.
func New(url string, timeout time.Duration, queueSize int, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Publisher{
		url:     url,
		session: uuid.NewString(),
		client:  resty.New().SetTimeout(timeout),
		queue:   make(chan Reading, queueSize),
		log:     log,
	}
}

// Session identifies this process run in every posted reading.
func (p *Publisher) Session() string {
	return p.session
}

// Publish enqueues a reading. It drops the reading when the queue is full
// so the frame loop never waits on the network.
func (p *Publisher) Publish(res scan.Result, roi geometry.RectInt, mode scan.Mode) bool {
	r := Reading{
		ID:         uuid.NewString(),
		Session:    p.session,
		Text:       res.Text,
		CapturedAt: res.CapturedAt,
		ROI:        roi,
		Mode:       mode.String(),
	}
	select {
	case p.queue <- r:
		return true
	default:
		p.log.Warn("webhook queue full, dropping reading", zap.String("id", r.ID))
		return false
	}
}

// Run posts queued readings until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.log.Info("webhook publisher stopped")
			return
		case r := <-p.queue:
			if err := p.post(ctx, r); err != nil {
				p.log.Error("webhook post failed", zap.String("id", r.ID), zap.Error(err))
			}
		}
	}
}

func (p *Publisher) post(ctx context.Context, r Reading) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(r).
		Post(p.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s: %s", ErrRejected, resp.Status(), resp.String())
	}
	return nil
}
