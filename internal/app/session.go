// Package app owns the per-run session state and the frame loop that drives it.
package app

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"time"

	"readout/internal/overlay"
	"readout/internal/scan"
	"readout/internal/selection"
	"readout/pkg/colorutil"
	"readout/pkg/geometry"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// RectStore persists the committed ROI.
type RectStore interface {
	Load() geometry.RectInt
	Save(r geometry.RectInt) error
}

// Reader turns an ROI crop into raw text.
type Reader interface {
	Read(crop image.Image) (string, error)
}

// EventType identifies session events.
type EventType int

const (
	EventROIChanged EventType = iota
	EventSelectionStarted
	EventScanCompleted
	EventScanFailed
	EventScanSkipped
	EventFrameDropped
)

// EventListener is called when an event occurs. It runs on the frame loop goroutine.
type EventListener func(data interface{})

// ScanReport is the payload of the scan events.
type ScanReport struct {
	Result scan.Result
	ROI    geometry.RectInt
	Mode   scan.Mode
	Err    error
}

// Style controls how the overlay looks.
type Style struct {
	ROIColor   color.RGBA
	DragColor  color.RGBA
	TextColor  color.RGBA
	HintColor  color.RGBA
	Thickness  int
	TextScale  int
	TextOrigin image.Point
}

// DefaultStyle matches the classic look: green ROI, blue drag box, green text at (10,30).
func DefaultStyle() Style {
	return Style{
		ROIColor:   colorutil.Green,
		DragColor:  colorutil.Blue,
		TextColor:  colorutil.Green,
		HintColor:  colorutil.Yellow,
		Thickness:  2,
		TextScale:  2,
		TextOrigin: image.Pt(10, 30),
	}
}

// Options configure a Session.
type Options struct {
	Policy          *scan.Policy
	DisplayDuration time.Duration
	Style           Style
}

// Session holds all mutable state of a run: the committed ROI, the selection
// machine, the scan policy and the last result. Tick must be called from a single goroutine.
type Session struct {
	store  RectStore
	reader Reader
	policy *scan.Policy
	style  Style
	window time.Duration
	log    *zap.Logger

	roi       geometry.RectInt
	selection selection.Machine
	result    scan.Result
	// lastSkipAt rate-limits skip reports in interval mode, where Due stays
	// true on every tick while the ROI does not fit.
	lastSkipAt time.Time

	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewSession loads the ROI from store and returns an idle session.
func NewSession(store RectStore, reader Reader, opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	policy := opts.Policy
	if policy == nil {
		policy = scan.NewPolicy(scan.Manual, 0)
	}
	window := opts.DisplayDuration
	if window <= 0 {
		window = 3 * time.Second
	}
	style := opts.Style
	if style == (Style{}) {
		style = DefaultStyle()
	}
	s := &Session{
		store:     store,
		reader:    reader,
		policy:    policy,
		style:     style,
		window:    window,
		log:       log,
		listeners: make(map[EventType][]EventListener),
	}
	s.roi = store.Load()
	log.Info("session ready",
		zap.Stringer("roi", s.roi),
		zap.Stringer("mode", policy.Mode),
		zap.Duration("interval", policy.Interval))
	return s
}

// On registers a listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// ROI returns the committed rectangle.
func (s *Session) ROI() geometry.RectInt {
	return s.roi
}

// Result returns the last scan result.
func (s *Session) Result() scan.Result {
	return s.result
}

// Selection returns the current selection phase.
func (s *Session) Selection() selection.State {
	return s.selection.State()
}

// Policy returns the scan policy.
func (s *Session) Policy() *scan.Policy {
	return s.policy
}

// Tick runs one iteration: it builds the scene from the state at the start of
// the tick, folds the pending inputs, and runs at most one scan.
// quit is true when a quit command was received; no scan runs in that case.
func (s *Session) Tick(now time.Time, frame image.Image, inputs []Input) (scene overlay.Scene, quit bool) {
	bounds := frame.Bounds()
	scene = s.Scene(now, bounds.Dx(), bounds.Dy())

	requested := false
	for _, in := range inputs {
		switch in.Kind {
		case InputPointerDown:
			s.selection.PointerDown(in.Point)
		case InputPointerMove:
			s.selection.PointerMove(in.Point)
		case InputPointerUp:
			if r, ok := s.selection.PointerUp(in.Point); ok {
				s.commit(r)
			}
		case InputCommand:
			switch in.Command {
			case CommandScan:
				requested = true
			case CommandSelect:
				if s.selection.State() == selection.Idle {
					s.Emit(EventSelectionStarted, nil)
				}
				s.selection.Enter()
			case CommandQuit:
				return scene, true
			}
		}
	}

	if s.policy.Due(now, requested) {
		s.scan(now, frame)
	}
	return scene, false
}

// Scene builds the draw commands for the current state.
func (s *Session) Scene(now time.Time, frameWidth, frameHeight int) overlay.Scene {
	var scene overlay.Scene
	st := s.style

	if s.roi.Fits(frameWidth, frameHeight) {
		scene.AddRect(s.roi, st.ROIColor, st.Thickness)
	}
	if prov, ok := s.selection.Provisional(); ok {
		scene.AddRect(prov, st.DragColor, st.Thickness)
	}

	lineHeight := overlay.TextSize("M", st.TextScale).Y + 4
	at := st.TextOrigin
	if s.result.Visible(now, s.window) {
		scene.AddText(at, "Detected: "+s.result.Text, st.TextScale, st.TextColor)
		at.Y += lineHeight
	}
	if s.policy.Mode == scan.Interval {
		left := s.policy.Remaining(now)
		secs := int((left + time.Second - 1) / time.Second)
		scene.AddText(at, fmt.Sprintf("Next scan in: %ds", secs), st.TextScale, st.TextColor)
		at.Y += lineHeight
	}
	if s.selection.Active() {
		scene.AddText(at, "Drag to select ROI", st.TextScale, st.HintColor)
	}
	return scene
}

func (s *Session) commit(r geometry.RectInt) {
	s.roi = r
	s.lastSkipAt = time.Time{}
	if err := s.store.Save(r); err != nil {
		s.log.Error("failed to persist roi", zap.Stringer("roi", r), zap.Error(err))
	}
	s.log.Info("roi updated", zap.Stringer("roi", r))
	s.Emit(EventROIChanged, r)
}

func (s *Session) scan(now time.Time, frame image.Image) {
	b := frame.Bounds()
	if !s.roi.Fits(b.Dx(), b.Dy()) {
		s.reportSkip(now, b)
		return
	}

	crop := imaging.Crop(frame, s.roi.Image().Add(b.Min))
	text, err := s.reader.Read(crop)
	s.policy.MarkScanned(now)

	report := ScanReport{ROI: s.roi, Mode: s.policy.Mode}
	if err != nil {
		s.log.Warn("recognition failed", zap.Stringer("roi", s.roi), zap.Error(err))
		report.Result = s.result
		report.Err = err
		s.Emit(EventScanFailed, report)
		return
	}

	s.result = scan.Result{Text: strings.TrimSpace(text), CapturedAt: now}
	s.log.Info("scan complete", zap.String("text", s.result.Text))
	report.Result = s.result
	s.Emit(EventScanCompleted, report)
}

// reportSkip logs and emits one skip per explicit request, or per interval in
// interval mode.
func (s *Session) reportSkip(now time.Time, b image.Rectangle) {
	if s.policy.Mode == scan.Interval && !s.lastSkipAt.IsZero() &&
		now.Sub(s.lastSkipAt) < s.policy.Interval {
		return
	}
	s.lastSkipAt = now
	s.log.Debug("roi outside frame, scan skipped",
		zap.Stringer("roi", s.roi), zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))
	s.Emit(EventScanSkipped, s.roi)
}
