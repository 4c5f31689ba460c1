package voice

import (
	"sync/atomic"

	"bodycheck/internal/events"
)

// RemoteRecognizer drives recognition running in the browser. The browser
// reports support once connected and streams results back.
type RemoteRecognizer struct {
	supported atomic.Bool
	out       events.Publisher
}

func NewRemoteRecognizer(out events.Publisher) *RemoteRecognizer {
	return &RemoteRecognizer{out: out}
}

func (r *RemoteRecognizer) SetSupported(ok bool) { r.supported.Store(ok) }

func (r *RemoteRecognizer) Supported() bool { return r.supported.Load() }

func (r *RemoteRecognizer) Start(lang string) error {
	r.out.Publish(events.Event{Type: "recognition_start", Data: map[string]any{
		"lang":           lang,
		"continuous":     true,
		"interimResults": false,
	}})
	return nil
}

func (r *RemoteRecognizer) Stop() {
	r.out.Publish(events.Event{Type: "recognition_stop"})
}
