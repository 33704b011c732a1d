// Package dump writes the crop and binarized image of each scan to disk.
package dump

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Dir saves scan images into a directory. It satisfies ocr.Dumper.
type Dir struct {
	path string
	now  func() time.Time
	log  *zap.Logger

	mu  sync.Mutex
	seq int
}

// New creates the directory if needed.
func New(path string, log *zap.Logger) (*Dir, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return &Dir{path: path, now: time.Now, log: log}, nil
}

// Path returns the target directory.
func (d *Dir) Path() string {
	return d.path
}

// Dump writes <stamp>-<seq>-crop.png and <stamp>-<seq>-binary.png.
func (d *Dir) Dump(crop, binary image.Image) error {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	base := fmt.Sprintf("%s-%04d", d.now().Format("20060102T150405.000"), seq)
	for _, img := range []struct {
		suffix string
		img    image.Image
	}{{"crop", crop}, {"binary", binary}} {
		if img.img == nil {
			continue
		}
		name := filepath.Join(d.path, base+"-"+img.suffix+".png")
		if err := imaging.Save(img.img, name); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	d.log.Debug("dumped scan images", zap.String("base", base))
	return nil
}
