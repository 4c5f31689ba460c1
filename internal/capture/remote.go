package capture

import (
	"context"
	"errors"
	"image"
	"sync"

	"bodycheck/internal/events"
	"bodycheck/internal/imaging"
)

// RemoteMedia is a MediaDevices whose camera lives in the browser. Acquire
// and zoom requests are published as events; the client reports devices,
// zoom capability and frames back.
type RemoteMedia struct {
	mu         sync.Mutex
	out        events.Publisher
	devices    []Device
	zoom       *ZoomRange
	denied     error
	frame      image.Image
	generation int
}

func NewRemoteMedia(out events.Publisher) *RemoteMedia {
	return &RemoteMedia{out: out}
}

func (m *RemoteMedia) SetDevices(devices []Device) {
	m.mu.Lock()
	m.devices = append([]Device(nil), devices...)
	m.mu.Unlock()
}

// SetZoomCapability records the active track's zoom range; nil clears it.
// The client reports it after each camera_acquire.
func (m *RemoteMedia) SetZoomCapability(z *ZoomRange) {
	m.mu.Lock()
	m.zoom = z
	m.mu.Unlock()
}

// SetDenied records a permission or device failure reported by the client.
// A nil error clears it.
func (m *RemoteMedia) SetDenied(err error) {
	m.mu.Lock()
	m.denied = err
	if err != nil {
		m.frame = nil
	}
	m.mu.Unlock()
}

// PushFrame replaces the latest frame with a data URL sent by the client.
func (m *RemoteMedia) PushFrame(dataURL string) error {
	img, err := imaging.DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.frame = img
	m.mu.Unlock()
	return nil
}

func (m *RemoteMedia) EnumerateDevices(ctx context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Device(nil), m.devices...), nil
}

func (m *RemoteMedia) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	m.mu.Lock()
	if m.denied != nil {
		err := m.denied
		m.mu.Unlock()
		return nil, err
	}
	m.generation++
	m.frame = nil
	m.zoom = nil
	gen := m.generation
	m.mu.Unlock()

	m.out.Publish(events.Event{Type: "camera_acquire", Data: c})
	return &remoteStream{media: m, generation: gen}, nil
}

type remoteStream struct {
	media      *RemoteMedia
	generation int
}

func (s *remoteStream) current() bool {
	return s.media.generation == s.generation
}

func (s *remoteStream) Frame() (image.Image, error) {
	s.media.mu.Lock()
	defer s.media.mu.Unlock()
	if !s.current() {
		return nil, errors.New("stream stopped")
	}
	if s.media.frame == nil {
		return nil, ErrNotReady
	}
	return s.media.frame, nil
}

func (s *remoteStream) ZoomCapability() (ZoomRange, bool) {
	s.media.mu.Lock()
	defer s.media.mu.Unlock()
	if s.media.zoom == nil {
		return ZoomRange{}, false
	}
	return *s.media.zoom, true
}

func (s *remoteStream) ApplyZoom(level float64) error {
	s.media.out.Publish(events.Event{Type: "camera_zoom", Data: map[string]float64{"zoom": level}})
	return nil
}

func (s *remoteStream) Stop() {
	s.media.mu.Lock()
	live := s.current()
	if live {
		s.media.generation++
		s.media.frame = nil
	}
	s.media.mu.Unlock()
	if live {
		s.media.out.Publish(events.Event{Type: "camera_release"})
	}
}
