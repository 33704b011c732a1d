// Package ocr reads text from binarized ROI crops with Tesseract.
package ocr

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// Digits is the whitelist used for seven-segment readouts.
const Digits = "0123456789"

// ErrRecognition wraps every failure inside the OCR engine.
var ErrRecognition = errors.New("ocr recognition")

// Options select the language data, character whitelist and layout analysis for one call.
type Options struct {
	Language  string
	Whitelist string
	PSM       gosseract.PageSegMode
}

// GenericOptions reads a block of English text.
func GenericOptions() Options {
	return Options{Language: "eng", PSM: gosseract.PSM_SINGLE_BLOCK}
}

// SevenSegmentOptions reads one line of digits with a seven-segment trained dataset.
func SevenSegmentOptions(dataset string) Options {
	if dataset == "" {
		dataset = "ssd"
	}
	return Options{Language: dataset, Whitelist: Digits, PSM: gosseract.PSM_SINGLE_LINE}
}

// Recognizer runs OCR on a preprocessed image.
type Recognizer interface {
	Recognize(img gocv.Mat, opts Options) (string, error)
}

// Engine provides OCR functionality using Tesseract.
// An Engine is not safe for concurrent use.
type Engine struct {
	client   *gosseract.Client
	language string
}

// NewEngine creates a new OCR engine. tessdataDir may be empty to use TESSDATA_PREFIX.
func NewEngine(tessdataDir string) (*Engine, error) {
	client := gosseract.NewClient()

	if tessdataDir != "" {
		if err := client.SetTessdataPrefix(tessdataDir); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: tessdata prefix: %w", ErrRecognition, err)
		}
	}

	// Readouts are not dictionary words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Recognize runs Tesseract on img and returns the raw text.
// Images too small to hold a glyph return "" without error.
func (e *Engine) Recognize(img gocv.Mat, opts Options) (string, error) {
	if img.Empty() || img.Rows() < 2 || img.Cols() < 2 {
		return "", nil
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return "", fmt.Errorf("%w: encode image: %w", ErrRecognition, err)
	}
	defer buf.Close()

	if err := e.configure(opts); err != nil {
		return "", err
	}

	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("%w: set image: %w", ErrRecognition, err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecognition, err)
	}
	return text, nil
}

func (e *Engine) configure(opts Options) error {
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	// SetLanguage forces a re-init of the Tesseract API, so only call it on change.
	if lang != e.language {
		if err := e.client.SetLanguage(lang); err != nil {
			return fmt.Errorf("%w: set language %q: %w", ErrRecognition, lang, err)
		}
		e.language = lang
	}

	// Set as a variable so the mode survives a re-init.
	psm := opts.PSM
	if psm == 0 {
		psm = gosseract.PSM_SINGLE_BLOCK
	}
	if err := e.client.SetVariable("tessedit_pageseg_mode", strconv.Itoa(int(psm))); err != nil {
		return fmt.Errorf("%w: set PSM: %w", ErrRecognition, err)
	}

	if err := e.client.SetWhitelist(opts.Whitelist); err != nil {
		return fmt.Errorf("%w: set whitelist: %w", ErrRecognition, err)
	}
	return nil
}
