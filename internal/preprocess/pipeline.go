// Package preprocess binarizes ROI crops before OCR.
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Defaults used when a config leaves a field unset.
const (
	DefaultThreshold  = 150
	DefaultKernelSize = 3
	DefaultIterations = 2
)

// Kind distinguishes the preprocessing variants.
type Kind int

const (
	// Generic produces dark text on a light background by plain thresholding.
	Generic Kind = iota
	// SevenSegment inverts the threshold and closes gaps between LCD segments.
	SevenSegment
)

func (k Kind) String() string {
	if k == SevenSegment {
		return "seven-segment"
	}
	return "generic"
}

// Mode is a preprocessing variant. KernelSize and Iterations only apply to SevenSegment.
type Mode struct {
	Kind       Kind
	KernelSize int
	Iterations int
}

// GenericMode returns the plain threshold variant.
func GenericMode() Mode {
	return Mode{Kind: Generic}
}

// SevenSegmentMode returns the closing variant with the given kernel and iteration count.
func SevenSegmentMode(kernelSize, iterations int) Mode {
	return Mode{Kind: SevenSegment, KernelSize: kernelSize, Iterations: iterations}
}

// Pipeline turns a color or grey crop into a single-channel binary image.
type Pipeline struct {
	Mode      Mode
	Threshold float32
}

// New returns a pipeline with the default threshold.
func New(mode Mode) Pipeline {
	return Pipeline{Mode: mode, Threshold: DefaultThreshold}
}

// Validate checks the parameters are usable.
func (p Pipeline) Validate() error {
	if p.Threshold < 0 || p.Threshold > 255 {
		return fmt.Errorf("threshold %v out of range [0,255]", p.Threshold)
	}
	if p.Mode.Kind == SevenSegment {
		if p.Mode.KernelSize < 1 {
			return fmt.Errorf("kernel size %d must be at least 1", p.Mode.KernelSize)
		}
		if p.Mode.Iterations < 0 {
			return fmt.Errorf("iterations %d must not be negative", p.Mode.Iterations)
		}
	}
	return nil
}

// Binarize returns a new 8-bit single-channel Mat the caller must Close.
//
// Generic: pixel > T becomes 255, else 0.
// SevenSegment: pixel > T becomes 0, else 255, then Iterations dilations
// followed by Iterations erosions with a square KernelSize structuring element.
func (p Pipeline) Binarize(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.New("empty image")
	}
	if err := p.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	gray, err := toGray(src)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()

	binary := gocv.NewMat()
	switch p.Mode.Kind {
	case SevenSegment:
		gocv.Threshold(gray, &binary, p.Threshold, 255, gocv.ThresholdBinaryInv)
		closeGaps(&binary, p.Mode.KernelSize, p.Mode.Iterations)
	default:
		gocv.Threshold(gray, &binary, p.Threshold, 255, gocv.ThresholdBinary)
	}
	return binary, nil
}

// closeGaps applies a morphological closing in place.
func closeGaps(m *gocv.Mat, kernelSize, iterations int) {
	if iterations == 0 {
		return
	}
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	for i := 0; i < iterations; i++ {
		gocv.Dilate(*m, m, kernel)
	}
	for i := 0; i < iterations; i++ {
		gocv.Erode(*m, m, kernel)
	}
}

func toGray(src gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	switch src.Channels() {
	case 1:
		src.CopyTo(&gray)
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported channel count %d", src.Channels())
	}
	return gray, nil
}
