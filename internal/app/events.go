package app

import (
	"fmt"
	"sync"

	"readout/pkg/geometry"
)

// InputKind identifies an input event.
type InputKind int

const (
	InputPointerDown InputKind = iota
	InputPointerMove
	InputPointerUp
	InputCommand
)

// Command is one of the logical user commands.
type Command int

const (
	CommandScan Command = iota
	CommandSelect
	CommandQuit
)

func (c Command) String() string {
	switch c {
	case CommandScan:
		return "scan"
	case CommandSelect:
		return "select"
	case CommandQuit:
		return "quit"
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Input is a pointer or command event. Point is in frame coordinates.
type Input struct {
	Kind    InputKind
	Point   geometry.PointInt
	Command Command
}

// PointerDown builds a press event.
func PointerDown(p geometry.PointInt) Input {
	return Input{Kind: InputPointerDown, Point: p}
}

// PointerMove builds a motion event.
func PointerMove(p geometry.PointInt) Input {
	return Input{Kind: InputPointerMove, Point: p}
}

// PointerUp builds a release event.
func PointerUp(p geometry.PointInt) Input {
	return Input{Kind: InputPointerUp, Point: p}
}

// Cmd builds a command event.
func Cmd(c Command) Input {
	return Input{Kind: InputCommand, Command: c}
}

// Queue buffers input between the UI or HTTP goroutines and the frame loop.
type Queue struct {
	mu     sync.Mutex
	inputs []Input
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event. It never blocks on the frame loop.
func (q *Queue) Push(in Input) {
	q.mu.Lock()
	q.inputs = append(q.inputs, in)
	q.mu.Unlock()
}

// Drain removes and returns all pending events in arrival order.
func (q *Queue) Drain() []Input {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.inputs
	q.inputs = nil
	return out
}

// HasQuit reports whether a quit command is pending, without draining.
func (q *Queue) HasQuit() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, in := range q.inputs {
		if in.Kind == InputCommand && in.Command == CommandQuit {
			return true
		}
	}
	return false
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inputs)
}
