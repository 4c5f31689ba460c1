// Package capture owns the live camera stream for an assessment session and
// the per-step countdowns that decide when a frame is taken.
package capture

import (
	"context"
	"image"
	"log"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"bodycheck/internal/imaging"
)

// FrameQuality is the JPEG quality of captured frames.
const FrameQuality = 80

// State is the externally visible camera state.
type State struct {
	Facing    Facing     `json:"facing"`
	DeviceID  string     `json:"deviceId,omitempty"`
	Ready     bool       `json:"ready"`
	Mirrored  bool       `json:"mirrored"`
	Zoom      *ZoomRange `json:"zoom,omitempty"`
	ZoomLevel float64    `json:"zoomLevel,omitempty"`
}

// Provider holds at most one stream at a time.
type Provider struct {
	mu            sync.Mutex
	media         MediaDevices
	facing        Facing
	deviceID      string
	stream        Stream
	zoom          ZoomRange
	hasZoom       bool
	zoomLevel     float64
	devices       []Device
	devicesLoaded bool
	noMirror      bool
}

type Option func(*Provider)

// WithoutMirroring disables the user-facing flip, for sources that were
// never shown as a mirrored preview.
func WithoutMirroring() Option {
	return func(p *Provider) { p.noMirror = true }
}

func NewProvider(media MediaDevices, opts ...Option) *Provider {
	p := &Provider{media: media, facing: FacingEnvironment}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mount (re)acquires the camera for a step with the given facing
// preference, dropping any explicit device selection.
func (p *Provider) Mount(ctx context.Context, facing Facing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.facing = facing
	p.deviceID = ""
	return p.acquireLocked(ctx)
}

// ListDevices enumerates video inputs once and caches the result.
func (p *Provider) ListDevices(ctx context.Context) ([]Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.devicesLoaded {
		return p.devices, nil
	}
	devices, err := p.media.EnumerateDevices(ctx)
	if err != nil {
		log.Printf("capture: error enumerating devices: %v", err)
		return nil, err
	}
	p.devices = devices
	p.devicesLoaded = true
	return devices, nil
}

// ToggleFacing flips between the user and environment cameras.
func (p *Provider) ToggleFacing(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.facing == FacingUser {
		p.facing = FacingEnvironment
	} else {
		p.facing = FacingUser
	}
	p.deviceID = ""
	return p.acquireLocked(ctx)
}

// SelectDevice pins the stream to a specific device.
func (p *Provider) SelectDevice(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deviceID = id
	return p.acquireLocked(ctx)
}

// SetZoom applies a zoom level clamped to the device range and returns the
// level applied.
func (p *Provider) SetZoom(level float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return 0, &AcquisitionError{Err: ErrNotReady}
	}
	if !p.zoomLocked() {
		return 0, ErrZoomUnsupported
	}
	level = p.zoom.Clamp(level)
	if err := p.stream.ApplyZoom(level); err != nil {
		log.Printf("capture: error applying zoom: %v", err)
		return p.zoomLevel, err
	}
	p.zoomLevel = level
	return level, nil
}

func (p *Provider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := State{
		Facing:   p.facing,
		DeviceID: p.deviceID,
		Ready:    p.stream != nil,
		Mirrored: p.mirroredLocked(),
	}
	if p.zoomLocked() {
		z := p.zoom
		st.Zoom = &z
		st.ZoomLevel = p.zoomLevel
	}
	return st
}

// CaptureFrame encodes the current frame as a JPEG data URL. The
// user-facing camera preview is mirrored, so its frames are flipped back.
func (p *Provider) CaptureFrame() (string, error) {
	p.mu.Lock()
	stream := p.stream
	mirror := p.mirroredLocked()
	p.mu.Unlock()

	if stream == nil {
		return "", &AcquisitionError{Err: ErrNotReady}
	}
	frame, err := stream.Frame()
	if err != nil {
		return "", &AcquisitionError{Err: err}
	}
	if mirror {
		frame = mirrorHorizontal(frame)
	}
	return imaging.EncodeDataURL(frame, FrameQuality)
}

// Release stops the active stream.
func (p *Provider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Provider) mirroredLocked() bool {
	return !p.noMirror && p.facing == FacingUser && p.deviceID == ""
}

func (p *Provider) stopLocked() {
	if p.stream != nil {
		p.stream.Stop()
		p.stream = nil
	}
	p.hasZoom = false
	p.zoomLevel = 0
}

// acquireLocked stops the previous stream before requesting a new one so
// two camera handles are never held at once.
func (p *Provider) acquireLocked(ctx context.Context) error {
	p.stopLocked()

	c := Constraints{IdealWidth: 720, IdealHeight: 1280}
	if p.deviceID != "" {
		c.DeviceID = p.deviceID
	} else {
		c.Facing = p.facing
	}

	stream, err := p.media.Acquire(ctx, c)
	if err != nil {
		log.Printf("capture: error accessing camera: %v", err)
		return &AcquisitionError{Err: err}
	}
	p.stream = stream
	p.zoomLocked()
	return nil
}

// zoomLocked reports whether the active stream has a zoom range. Some
// sources only learn the range after the stream starts, so it is looked up
// until found and then kept for the life of the stream.
func (p *Provider) zoomLocked() bool {
	if p.hasZoom {
		return true
	}
	if p.stream == nil {
		return false
	}
	z, ok := p.stream.ZoomCapability()
	if !ok {
		return false
	}
	p.zoom = z
	p.hasZoom = true
	p.zoomLevel = z.Min
	return true
}

func mirrorHorizontal(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	s2d := f64.Aff3{
		-1, 0, float64(b.Max.X),
		0, 1, float64(-b.Min.Y),
	}
	draw.NearestNeighbor.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}
