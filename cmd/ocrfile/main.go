// Command ocrfile runs the ROI OCR pipeline on a still image and prints the text.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"readout/internal/config"
	"readout/internal/dump"
	"readout/internal/ocr"
	"readout/internal/roi"
	"readout/pkg/geometry"

	"github.com/disintegration/imaging"
)

func main() {
	imagePath := flag.String("image", "", "Path to image (PNG, JPEG or TIFF)")
	rect := flag.String("roi", "", "Region as x,y,w,h (default: the saved ROI)")
	sevenSegment := flag.Bool("seven-segment", false, "Use seven-segment preprocessing and dataset")
	threshold := flag.Float64("threshold", 0, "Binarization threshold (default from config)")
	tessdata := flag.String("tessdata", "", "Tesseract data directory")
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config file")
	dumpDir := flag.String("dump", "", "Write crop and binary images to this directory")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: ocrfile -image <path> [-roi x,y,w,h] [-seven-segment] [-threshold 150] [-tessdata dir]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config: %v\n", err)
	}
	if *sevenSegment {
		cfg.Preprocess.Mode = config.ModeSevenSegment
	}
	if *threshold > 0 {
		cfg.Preprocess.Threshold = float32(*threshold)
	}
	if *tessdata != "" {
		cfg.OCR.TessdataDir = *tessdata
	}

	img, err := imaging.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	bounds := img.Bounds()
	fmt.Printf("Loaded image: %dx%d pixels\n", bounds.Dx(), bounds.Dy())

	region, err := parseRect(*rect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -roi: %v\n", err)
		os.Exit(1)
	}
	if *rect == "" {
		region = roi.NewStore(roi.DefaultPath(), nil).Load()
	}
	if !region.Fits(bounds.Dx(), bounds.Dy()) {
		fmt.Fprintf(os.Stderr, "ROI %s does not fit a %dx%d image\n", region, bounds.Dx(), bounds.Dy())
		os.Exit(1)
	}
	fmt.Printf("ROI: %s\n", region)

	pipeline := cfg.Pipeline()
	if err := pipeline.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Preprocessing: %v\n", err)
		os.Exit(1)
	}

	engine, err := ocr.NewEngine(cfg.OCR.TessdataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tesseract: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	reader := ocr.NewReader(pipeline, engine, cfg.OCROptions(), nil)
	if *dumpDir != "" {
		d, err := dump.New(*dumpDir, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Dump: %v\n", err)
			os.Exit(1)
		}
		reader.WithDumper(d)
	}

	crop := imaging.Crop(img, region.Image().Add(bounds.Min))
	text, err := reader.Read(crop)
	if err != nil {
		fmt.Fprintf(os.Stderr, "OCR failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Detected: %s\n", strings.TrimSpace(text))
}

func parseRect(s string) (geometry.RectInt, error) {
	var r geometry.RectInt
	if s == "" {
		return r, nil
	}
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &r.X, &r.Y, &r.Width, &r.Height); err != nil {
		return r, err
	}
	if !r.Valid() || r.Empty() {
		return r, fmt.Errorf("%s must be non-negative with positive size", r)
	}
	return r, nil
}
