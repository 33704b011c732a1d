// Package mainwindow provides the camera window that presents frames and forwards input.
package mainwindow

import (
	"image"
	"sync"

	"readout/internal/app"
	"readout/ui/canvas"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
)

// Keys maps typed runes to commands.
type Keys struct {
	Scan   rune
	Select rune
	Quit   rune
}

// MainWindow is the single camera window. It satisfies app.Surface.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	canvas *canvas.FrameCanvas
	queue  *app.Queue
	keys   Keys

	closeOnce sync.Once
}

// New creates the window on a new fyne application.
func New(title string, queue *app.Queue, keys Keys, width, height int) *MainWindow {
	return NewWithApp(fyneapp.NewWithID("io.readout"), title, queue, keys, width, height)
}

// NewWithApp creates the window on an existing fyne application.
func NewWithApp(fyneApp fyne.App, title string, queue *app.Queue, keys Keys, width, height int) *MainWindow {
	fyneApp.Settings().SetTheme(&readoutTheme{})
	win := fyneApp.NewWindow(title)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		canvas: canvas.NewFrameCanvas(queue, width, height),
		queue:  queue,
		keys:   keys,
	}
	mw.SetContent(mw.canvas)
	mw.SetMaster()
	mw.Canvas().SetOnTypedRune(mw.onRune)
	mw.SetOnClosed(func() {
		queue.Push(app.Cmd(app.CommandQuit))
	})
	return mw
}

func (mw *MainWindow) onRune(r rune) {
	switch r {
	case mw.keys.Scan:
		mw.queue.Push(app.Cmd(app.CommandScan))
	case mw.keys.Select:
		mw.queue.Push(app.Cmd(app.CommandSelect))
	case mw.keys.Quit:
		mw.queue.Push(app.Cmd(app.CommandQuit))
	}
}

// FrameCanvas returns the frame widget.
func (mw *MainWindow) FrameCanvas() *canvas.FrameCanvas {
	return mw.canvas
}

// Present shows a rendered frame.
func (mw *MainWindow) Present(frame image.Image) error {
	mw.canvas.SetFrame(frame)
	return nil
}

// Close stops the fyne application, which ends Run.
func (mw *MainWindow) Close() error {
	mw.closeOnce.Do(mw.app.Quit)
	return nil
}

// Run shows the window and blocks on the fyne event loop. Call it from main.
func (mw *MainWindow) Run() {
	mw.ShowAndRun()
}
