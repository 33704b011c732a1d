// Package main provides the entry point for the readout webcam OCR tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"readout/internal/app"
	"readout/internal/capture"
	"readout/internal/config"
	"readout/internal/dump"
	"readout/internal/logger"
	"readout/internal/metrics"
	"readout/internal/ocr"
	"readout/internal/publish"
	"readout/internal/roi"
	"readout/internal/scan"
	"readout/internal/status"
	"readout/internal/version"
	"readout/pkg/geometry"
	"readout/ui/mainwindow"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config file")
	camera := flag.Int("camera", -1, "Camera index (overrides config)")
	mode := flag.String("mode", "", "Scan mode: manual or interval (overrides config)")
	interval := flag.Duration("interval", 0, "Interval between automatic scans (overrides config)")
	sevenSegment := flag.Bool("seven-segment", false, "Use seven-segment preprocessing and dataset")
	statusAddr := flag.String("status", "", "Listen address for the status API (overrides config)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("readout %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg, cfgErr := config.Load(*configPath)
	if *camera >= 0 {
		cfg.Camera.Index = *camera
	}
	if *mode != "" {
		cfg.Scan.Mode = *mode
	}
	if *interval > 0 {
		cfg.Scan.Interval = *interval
	}
	if *sevenSegment {
		cfg.Preprocess.Mode = config.ModeSevenSegment
	}
	if *statusAddr != "" {
		cfg.Status.Addr = *statusAddr
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log()

	var verr *config.ValidationError
	switch {
	case errors.As(cfgErr, &verr):
		log.Warn("config values replaced by defaults", zap.String("path", *configPath), zap.Error(verr))
	case cfgErr != nil:
		log.Error("config not loaded", zap.String("path", *configPath), zap.Error(cfgErr))
		logger.Sync()
		os.Exit(1)
	}
	if _, err := scan.ParseMode(cfg.Scan.Mode); err != nil {
		log.Error("invalid scan mode", zap.Error(err))
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.Error("readout stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting readout",
		zap.String("version", version.Version),
		zap.Int("camera", cfg.Camera.Index),
		zap.String("scan_mode", cfg.Scan.Mode),
		zap.String("preprocess", cfg.Preprocess.Mode))

	// Open the device before any window exists.
	cam, err := capture.Open(cfg.Camera.Index, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return err
	}

	engine, err := ocr.NewEngine(cfg.OCR.TessdataDir)
	if err != nil {
		cam.Close()
		return err
	}
	defer engine.Close()

	m := metrics.New(logger.Named("metrics"))
	reader := ocr.NewReader(cfg.Pipeline(), engine, cfg.OCROptions(), logger.Named("ocr")).WithObserver(m)
	opts := reader.Options()
	log.Info("ocr configured",
		zap.String("language", opts.Language),
		zap.String("whitelist", opts.Whitelist),
		zap.Int("psm", int(opts.PSM)))
	if cfg.Debug.DumpDir != "" {
		d, err := dump.New(cfg.Debug.DumpDir, logger.Named("dump"))
		if err != nil {
			log.Warn("scan dumps disabled", zap.Error(err))
		} else {
			reader.WithDumper(d)
		}
	}

	roiPath := cfg.ROI.Path
	if roiPath == "" {
		roiPath = roi.DefaultPath()
	}
	store := roi.NewStore(roiPath, logger.Named("roi"))

	session := app.NewSession(store, reader, app.Options{
		Policy:          scan.NewPolicy(cfg.ScanMode(), cfg.Scan.Interval),
		DisplayDuration: cfg.Scan.DisplayDuration,
		Style:           cfg.Style(),
	}, logger.Named("session"))
	queue := app.NewQueue()

	session.On(app.EventROIChanged, func(interface{}) { m.ROICommits.Inc() })
	session.On(app.EventScanCompleted, func(interface{}) { m.ScanOutcome(metrics.OutcomeCompleted) })
	session.On(app.EventScanFailed, func(interface{}) { m.ScanOutcome(metrics.OutcomeFailed) })
	session.On(app.EventScanSkipped, func(interface{}) { m.ScanOutcome(metrics.OutcomeSkipped) })
	session.On(app.EventFrameDropped, func(interface{}) { m.FrameErrors.Inc() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	goRun := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	goRun(func() { m.RunSampler(ctx, 5*time.Second) })

	if cfg.Status.Addr != "" {
		srv := status.New(queue, m.Handler(), logger.Named("status"))
		srv.SetROI(session.ROI())
		srv.SetMode(session.Policy().Mode)
		session.On(app.EventROIChanged, func(data interface{}) {
			if r, ok := data.(geometry.RectInt); ok {
				srv.SetROI(r)
			}
		})
		session.On(app.EventScanCompleted, func(data interface{}) {
			if rep, ok := data.(app.ScanReport); ok {
				srv.SetReading(rep.Result)
			}
		})
		session.On(app.EventScanFailed, func(data interface{}) {
			if rep, ok := data.(app.ScanReport); ok && rep.Err != nil {
				srv.SetError(rep.Err)
			}
		})
		goRun(func() {
			if err := srv.Run(ctx, cfg.Status.Addr); err != nil {
				log.Error("status api failed", zap.Error(err))
			}
		})
	}

	if cfg.Webhook.URL != "" {
		pub := publish.New(cfg.Webhook.URL, cfg.Webhook.Timeout, cfg.Webhook.QueueSize, logger.Named("webhook"))
		session.On(app.EventScanCompleted, func(data interface{}) {
			if rep, ok := data.(app.ScanReport); ok {
				pub.Publish(rep.Result, rep.ROI, rep.Mode)
			}
		})
		goRun(func() { pub.Run(ctx) })
	}

	scanKey, selectKey, quitKey := cfg.KeyRunes()
	win := mainwindow.New(cfg.Window.Title, queue, mainwindow.Keys{
		Scan:   scanKey,
		Select: selectKey,
		Quit:   quitKey,
	}, cfg.Camera.Width, cfg.Camera.Height)

	loop := app.NewLoop(cam, win, session, queue, app.LoopConfig{
		ReadRetryDelay:  cfg.Camera.ReadRetryDelay,
		MaxReadFailures: cfg.Camera.MaxReadFailures,
	}, logger.Named("loop"))

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- loop.Run(ctx)
	}()

	// fyne must own the main goroutine; Run returns once the loop closes the window.
	win.Run()

	// Covers Run returning for reasons other than the window close hook.
	queue.Push(app.Cmd(app.CommandQuit))
	err = <-loopErr
	cancel()
	wg.Wait()
	return err
}
