package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
)

// FileMedia serves still images from disk, one per step, for offline runs.
type FileMedia struct {
	mu    sync.Mutex
	frame image.Image
}

func NewFileMedia() *FileMedia {
	return &FileMedia{}
}

// Load makes the image at path the current frame.
func (m *FileMedia) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening image %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("error decoding image %s: %w", path, err)
	}
	m.mu.Lock()
	m.frame = img
	m.mu.Unlock()
	return nil
}

func (m *FileMedia) EnumerateDevices(ctx context.Context) ([]Device, error) {
	return []Device{{ID: "file", Label: "Still images"}}, nil
}

func (m *FileMedia) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	return fileStream{media: m}, nil
}

type fileStream struct {
	media *FileMedia
}

func (s fileStream) Frame() (image.Image, error) {
	s.media.mu.Lock()
	defer s.media.mu.Unlock()
	if s.media.frame == nil {
		return nil, ErrNotReady
	}
	return s.media.frame, nil
}

func (fileStream) ZoomCapability() (ZoomRange, bool) { return ZoomRange{}, false }

func (fileStream) ApplyZoom(float64) error { return ErrZoomUnsupported }

func (fileStream) Stop() {}
