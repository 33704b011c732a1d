// Package selection implements the drag-to-select state machine for the ROI.
package selection

import "readout/pkg/geometry"

// State is the selection phase.
type State int

const (
	Idle State = iota
	AwaitingDrag
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingDrag:
		return "awaiting-drag"
	case Dragging:
		return "dragging"
	}
	return "unknown"
}

// Machine tracks one rubber-band selection. The zero value is Idle.
type Machine struct {
	state   State
	anchor  geometry.PointInt
	current geometry.PointInt
}

// State returns the current phase.
func (m *Machine) State() State {
	return m.state
}

// Active reports whether selection mode is on (awaiting or dragging).
func (m *Machine) Active() bool {
	return m.state != Idle
}

// Enter turns selection mode on. It is ignored mid-drag.
func (m *Machine) Enter() {
	if m.state == Dragging {
		return
	}
	m.state = AwaitingDrag
}

// PointerDown starts a drag at p.
func (m *Machine) PointerDown(p geometry.PointInt) {
	if m.state != AwaitingDrag {
		return
	}
	m.state = Dragging
	m.anchor = p
	m.current = p
}

// PointerMove tracks the drag.
func (m *Machine) PointerMove(p geometry.PointInt) {
	if m.state != Dragging {
		return
	}
	m.current = p
}

// PointerUp ends the drag and returns the candidate rectangle.
// ok is false when the candidate has zero width or height, or when no drag was in progress.
// Selection mode ends either way.
func (m *Machine) PointerUp(p geometry.PointInt) (r geometry.RectInt, ok bool) {
	if m.state != Dragging {
		return geometry.RectInt{}, false
	}
	m.current = p
	m.state = Idle

	r = geometry.FromCorners(m.anchor, m.current)
	if r.Empty() {
		return geometry.RectInt{}, false
	}
	return r, true
}

// Provisional returns the rectangle being dragged, if any.
func (m *Machine) Provisional() (geometry.RectInt, bool) {
	if m.state != Dragging {
		return geometry.RectInt{}, false
	}
	return geometry.FromCorners(m.anchor, m.current), true
}
