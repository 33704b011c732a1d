// Package capture acquires frames from a webcam.
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrDeviceUnavailable means the camera could not be opened or has gone away. It is fatal.
	ErrDeviceUnavailable = errors.New("camera unavailable")
	// ErrRead means a single grab failed. The caller may retry on the next tick.
	ErrRead = errors.New("frame read failed")
)

// Camera is a gocv video capture device.
type Camera struct {
	mu     sync.Mutex
	index  int
	dev    *gocv.VideoCapture
	buf    gocv.Mat
	closed bool
}

// Open opens camera index. Width and height are requested when positive; the driver may ignore them.
func Open(index, width, height int) (*Camera, error) {
	dev, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index %d: %w", ErrDeviceUnavailable, index, err)
	}
	if !dev.IsOpened() {
		dev.Close()
		return nil, fmt.Errorf("%w: index %d did not open", ErrDeviceUnavailable, index)
	}

	if width > 0 {
		dev.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		dev.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	return &Camera{index: index, dev: dev, buf: gocv.NewMat()}, nil
}

// Index returns the device index.
func (c *Camera) Index() int {
	return c.index
}

// Read grabs one frame and converts it to an image the caller owns.
func (c *Camera) Read() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.dev == nil || !c.dev.IsOpened() {
		return nil, fmt.Errorf("%w: index %d is not open", ErrDeviceUnavailable, c.index)
	}
	if ok := c.dev.Read(&c.buf); !ok || c.buf.Empty() {
		return nil, fmt.Errorf("%w: index %d", ErrRead, c.index)
	}

	img, err := c.buf.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert: %w", ErrRead, err)
	}
	return img, nil
}

// Close releases the device. It is safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.buf.Close()
	if c.dev != nil {
		return c.dev.Close()
	}
	return nil
}
