// Package config loads readout settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"readout/internal/app"
	"readout/internal/ocr"
	"readout/internal/preprocess"
	"readout/internal/scan"
	"readout/pkg/colorutil"

	"github.com/otiai10/gosseract/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no -config flag is given.
const DefaultPath = "readout.yaml"

// Preprocessing mode names accepted in the file.
const (
	ModeGeneric      = "generic"
	ModeSevenSegment = "seven-segment"
)

// Config holds runtime configuration.
// Fields may be loaded from a YAML file and overridden by command-line flags.
type Config struct {
	Camera     CameraConfig     `yaml:"camera"`
	ROI        ROIConfig        `yaml:"roi"`
	Scan       ScanConfig       `yaml:"scan"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	OCR        OCRConfig        `yaml:"ocr"`
	Keys       KeyConfig        `yaml:"keys"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	Window     WindowConfig     `yaml:"window"`
	Status     StatusConfig     `yaml:"status"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Log        LogConfig        `yaml:"log"`
	Debug      DebugConfig      `yaml:"debug"`
}

// CameraConfig selects the capture device and how read failures are handled.
type CameraConfig struct {
	Index           int           `yaml:"index"`
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
	ReadRetryDelay  time.Duration `yaml:"read_retry_delay"`
	MaxReadFailures int           `yaml:"max_read_failures"`
}

// ROIConfig locates the persisted ROI record.
type ROIConfig struct {
	// Path of the persisted rectangle. Empty means the per-user config dir.
	Path string `yaml:"path"`
}

// ScanConfig sets when scans fire and how long a result stays on screen.
type ScanConfig struct {
	Mode            string        `yaml:"mode"`
	Interval        time.Duration `yaml:"interval"`
	DisplayDuration time.Duration `yaml:"display_duration"`
}

// PreprocessConfig selects the binarization path and its parameters.
type PreprocessConfig struct {
	Mode       string  `yaml:"mode"`
	Threshold  float32 `yaml:"threshold"`
	KernelSize int     `yaml:"kernel_size"`
	Iterations int     `yaml:"iterations"`
}

// OCRConfig holds the Tesseract settings for each preprocessing mode.
type OCRConfig struct {
	TessdataDir           string `yaml:"tessdata_dir"`
	Language              string `yaml:"language"`
	Whitelist             string `yaml:"whitelist"`
	PSM                   int    `yaml:"psm"`
	SevenSegmentDataset   string `yaml:"seven_segment_dataset"`
	SevenSegmentWhitelist string `yaml:"seven_segment_whitelist"`
	SevenSegmentPSM       int    `yaml:"seven_segment_psm"`
}

// KeyConfig maps single characters to the scan, select and quit commands.
type KeyConfig struct {
	Scan   string `yaml:"scan"`
	Select string `yaml:"select"`
	Quit   string `yaml:"quit"`
}

// OverlayConfig styles the ROI outline and text drawn over the frame.
type OverlayConfig struct {
	ROIColor  string `yaml:"roi_color"`
	DragColor string `yaml:"drag_color"`
	TextColor string `yaml:"text_color"`
	HintColor string `yaml:"hint_color"`
	Thickness int    `yaml:"thickness"`
	TextScale int    `yaml:"text_scale"`
}

// WindowConfig configures the camera window.
type WindowConfig struct {
	Title string `yaml:"title"`
}

// StatusConfig enables the HTTP status API.
type StatusConfig struct {
	// Addr is the listen address of the HTTP status API, e.g. ":8090". Empty disables it.
	Addr string `yaml:"addr"`
}

// WebhookConfig enables posting completed readings to a URL.
type WebhookConfig struct {
	// URL receives a POST for every completed reading. Empty disables it.
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	QueueSize int           `yaml:"queue_size"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DebugConfig holds troubleshooting switches.
type DebugConfig struct {
	// DumpDir receives every crop and its binarized image. Empty disables dumps.
	DumpDir string `yaml:"dump_dir"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Camera: CameraConfig{
			Index:          0,
			ReadRetryDelay: 10 * time.Millisecond,
		},
		Scan: ScanConfig{
			Mode:            scan.Manual.String(),
			Interval:        5 * time.Second,
			DisplayDuration: 3 * time.Second,
		},
		Preprocess: PreprocessConfig{
			Mode:       ModeGeneric,
			Threshold:  preprocess.DefaultThreshold,
			KernelSize: preprocess.DefaultKernelSize,
			Iterations: preprocess.DefaultIterations,
		},
		OCR: OCRConfig{
			Language:              "eng",
			PSM:                   int(gosseract.PSM_SINGLE_BLOCK),
			SevenSegmentDataset:   "ssd",
			SevenSegmentWhitelist: ocr.Digits,
			SevenSegmentPSM:       int(gosseract.PSM_SINGLE_LINE),
		},
		Keys: KeyConfig{Scan: " ", Select: "r", Quit: "q"},
		Overlay: OverlayConfig{
			ROIColor:  "#00ff00",
			DragColor: "#0000ff",
			TextColor: "#00ff00",
			HintColor: "#ffff00",
			Thickness: 2,
			TextScale: 2,
		},
		Window: WindowConfig{Title: "Webcam Feed with ROI"},
		Webhook: WebhookConfig{
			Timeout:   5 * time.Second,
			QueueSize: 16,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate resets out-of-range values to their defaults and reports each one it fixed.
func (c *Config) Validate() error {
	def := DefaultConfig()
	var errs []error
	fix := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Camera.Index < 0 {
		fix("camera.index %d is negative", c.Camera.Index)
		c.Camera.Index = def.Camera.Index
	}
	if c.Camera.ReadRetryDelay < 0 {
		fix("camera.read_retry_delay %v is negative", c.Camera.ReadRetryDelay)
		c.Camera.ReadRetryDelay = def.Camera.ReadRetryDelay
	}
	if c.Camera.MaxReadFailures < 0 {
		fix("camera.max_read_failures %d is negative", c.Camera.MaxReadFailures)
		c.Camera.MaxReadFailures = 0
	}

	if _, err := scan.ParseMode(c.Scan.Mode); err != nil {
		fix("scan.mode: %w", err)
		c.Scan.Mode = def.Scan.Mode
	}
	if c.Scan.Interval <= 0 {
		fix("scan.interval %v must be positive", c.Scan.Interval)
		c.Scan.Interval = def.Scan.Interval
	}
	if c.Scan.DisplayDuration <= 0 {
		fix("scan.display_duration %v must be positive", c.Scan.DisplayDuration)
		c.Scan.DisplayDuration = def.Scan.DisplayDuration
	}

	switch c.Preprocess.Mode {
	case ModeGeneric, ModeSevenSegment:
	default:
		fix("preprocess.mode %q is not %q or %q", c.Preprocess.Mode, ModeGeneric, ModeSevenSegment)
		c.Preprocess.Mode = def.Preprocess.Mode
	}
	if c.Preprocess.Threshold < 0 || c.Preprocess.Threshold > 255 {
		fix("preprocess.threshold %v out of range [0,255]", c.Preprocess.Threshold)
		c.Preprocess.Threshold = def.Preprocess.Threshold
	}
	if c.Preprocess.KernelSize < 1 {
		fix("preprocess.kernel_size %d must be at least 1", c.Preprocess.KernelSize)
		c.Preprocess.KernelSize = def.Preprocess.KernelSize
	}
	if c.Preprocess.Iterations < 0 {
		fix("preprocess.iterations %d is negative", c.Preprocess.Iterations)
		c.Preprocess.Iterations = def.Preprocess.Iterations
	}

	// PSM 0 is orientation detection only and never yields text.
	if c.OCR.PSM < 1 || c.OCR.PSM > int(gosseract.PSM_RAW_LINE) {
		fix("ocr.psm %d out of range [1,%d]", c.OCR.PSM, gosseract.PSM_RAW_LINE)
		c.OCR.PSM = def.OCR.PSM
	}
	if c.OCR.SevenSegmentPSM < 1 || c.OCR.SevenSegmentPSM > int(gosseract.PSM_RAW_LINE) {
		fix("ocr.seven_segment_psm %d out of range [1,%d]", c.OCR.SevenSegmentPSM, gosseract.PSM_RAW_LINE)
		c.OCR.SevenSegmentPSM = def.OCR.SevenSegmentPSM
	}
	if c.OCR.Language == "" {
		c.OCR.Language = def.OCR.Language
	}
	if c.OCR.SevenSegmentDataset == "" {
		c.OCR.SevenSegmentDataset = def.OCR.SevenSegmentDataset
	}

	for _, k := range []struct {
		name string
		val  *string
		def  string
	}{
		{"scan", &c.Keys.Scan, def.Keys.Scan},
		{"select", &c.Keys.Select, def.Keys.Select},
		{"quit", &c.Keys.Quit, def.Keys.Quit},
	} {
		if utf8.RuneCountInString(*k.val) != 1 {
			fix("keys.%s %q must be a single character", k.name, *k.val)
			*k.val = k.def
		}
	}

	for _, col := range []struct {
		name string
		val  *string
		def  string
	}{
		{"roi_color", &c.Overlay.ROIColor, def.Overlay.ROIColor},
		{"drag_color", &c.Overlay.DragColor, def.Overlay.DragColor},
		{"text_color", &c.Overlay.TextColor, def.Overlay.TextColor},
		{"hint_color", &c.Overlay.HintColor, def.Overlay.HintColor},
	} {
		rgba, err := colorutil.Parse(*col.val)
		if err != nil {
			fix("overlay.%s: %w", col.name, err)
			*col.val = col.def
			continue
		}
		*col.val = colorutil.Hex(rgba)
	}
	if c.Overlay.Thickness < 1 {
		fix("overlay.thickness %d must be at least 1", c.Overlay.Thickness)
		c.Overlay.Thickness = def.Overlay.Thickness
	}
	if c.Overlay.TextScale < 1 {
		fix("overlay.text_scale %d must be at least 1", c.Overlay.TextScale)
		c.Overlay.TextScale = def.Overlay.TextScale
	}

	if c.Webhook.Timeout <= 0 {
		c.Webhook.Timeout = def.Webhook.Timeout
	}
	if c.Webhook.QueueSize <= 0 {
		c.Webhook.QueueSize = def.Webhook.QueueSize
	}
	if c.Window.Title == "" {
		c.Window.Title = def.Window.Title
	}

	return errors.Join(errs...)
}

// Load reads the YAML file at path on top of the defaults. A missing file yields
// the defaults. A decode error is returned with the defaults.
// Corrected values are reported as a *ValidationError alongside a usable cfg.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, &ValidationError{Err: err}
	}
	return cfg, nil
}

// ValidationError reports values that were replaced by defaults.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "config corrected: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ScanMode returns the parsed scan mode.
func (c *Config) ScanMode() scan.Mode {
	m, _ := scan.ParseMode(c.Scan.Mode)
	return m
}

// SevenSegment reports whether the seven-segment path is selected.
func (c *Config) SevenSegment() bool {
	return c.Preprocess.Mode == ModeSevenSegment
}

// Pipeline builds the preprocessing pipeline.
func (c *Config) Pipeline() preprocess.Pipeline {
	mode := preprocess.GenericMode()
	if c.SevenSegment() {
		mode = preprocess.SevenSegmentMode(c.Preprocess.KernelSize, c.Preprocess.Iterations)
	}
	p := preprocess.New(mode)
	p.Threshold = c.Preprocess.Threshold
	return p
}

// OCROptions returns the recognition options for the selected mode.
func (c *Config) OCROptions() ocr.Options {
	if c.SevenSegment() {
		return ocr.Options{
			Language:  c.OCR.SevenSegmentDataset,
			Whitelist: c.OCR.SevenSegmentWhitelist,
			PSM:       gosseract.PageSegMode(c.OCR.SevenSegmentPSM),
		}
	}
	return ocr.Options{
		Language:  c.OCR.Language,
		Whitelist: c.OCR.Whitelist,
		PSM:       gosseract.PageSegMode(c.OCR.PSM),
	}
}

// Style builds the overlay style. Colors that fail to parse keep their defaults.
func (c *Config) Style() app.Style {
	st := app.DefaultStyle()
	st.ROIColor = colorutil.MustParse(c.Overlay.ROIColor, st.ROIColor)
	st.DragColor = colorutil.MustParse(c.Overlay.DragColor, st.DragColor)
	st.TextColor = colorutil.MustParse(c.Overlay.TextColor, st.TextColor)
	st.HintColor = colorutil.MustParse(c.Overlay.HintColor, st.HintColor)
	st.Thickness = c.Overlay.Thickness
	st.TextScale = c.Overlay.TextScale
	return st
}

// KeyRunes returns the scan, select and quit keys.
func (c *Config) KeyRunes() (scanKey, selectKey, quitKey rune) {
	first := func(s string) rune {
		r, _ := utf8.DecodeRuneInString(s)
		return r
	}
	return first(c.Keys.Scan), first(c.Keys.Select), first(c.Keys.Quit)
}
