package ocr

import (
	"fmt"
	"image"
	"time"

	"readout/internal/preprocess"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Dumper receives each crop and its binarized form, for debugging.
type Dumper interface {
	Dump(crop, binary image.Image) error
}

// Observer is told how long each recognition took.
type Observer interface {
	ObserveOCR(d time.Duration)
}

// Reader turns an ROI crop into text: binarize, then recognize.
type Reader struct {
	pipeline   preprocess.Pipeline
	recognizer Recognizer
	opts       Options
	log        *zap.Logger

	dumper   Dumper
	observer Observer
}

// NewReader wires a preprocessing pipeline to a recognizer.
func NewReader(p preprocess.Pipeline, rec Recognizer, opts Options, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{pipeline: p, recognizer: rec, opts: opts, log: log}
}

// WithDumper enables debug dumps.
func (r *Reader) WithDumper(d Dumper) *Reader {
	r.dumper = d
	return r
}

// WithObserver reports OCR latency.
func (r *Reader) WithObserver(o Observer) *Reader {
	r.observer = o
	return r
}

// Options returns the OCR options in use.
func (r *Reader) Options() Options {
	return r.opts
}

// Read returns the raw recognized text. An empty crop yields "".
func (r *Reader) Read(crop image.Image) (string, error) {
	if crop == nil || crop.Bounds().Empty() {
		return "", nil
	}

	src, err := gocv.ImageToMatRGB(crop)
	if err != nil {
		return "", fmt.Errorf("%w: convert crop: %w", ErrRecognition, err)
	}
	defer src.Close()

	binary, err := r.pipeline.Binarize(src)
	if err != nil {
		binary.Close()
		return "", fmt.Errorf("%w: preprocess: %w", ErrRecognition, err)
	}
	defer binary.Close()

	if r.dumper != nil {
		r.dump(crop, binary)
	}

	start := time.Now()
	text, err := r.recognizer.Recognize(binary, r.opts)
	if r.observer != nil {
		r.observer.ObserveOCR(time.Since(start))
	}
	if err != nil {
		return "", err
	}
	r.log.Debug("recognized", zap.String("text", text), zap.Stringer("mode", r.pipeline.Mode.Kind))
	return text, nil
}

func (r *Reader) dump(crop image.Image, binary gocv.Mat) {
	img, err := binary.ToImage()
	if err != nil {
		r.log.Warn("debug dump skipped", zap.Error(err))
		return
	}
	if err := r.dumper.Dump(crop, img); err != nil {
		r.log.Warn("debug dump failed", zap.Error(err))
	}
}
