package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
)

type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Device is one video input.
type Device struct {
	ID    string `json:"deviceId"`
	Label string `json:"label"`
}

// Constraints select the stream to acquire. DeviceID, when set, takes
// precedence over Facing.
type Constraints struct {
	DeviceID    string `json:"deviceId,omitempty"`
	Facing      Facing `json:"facingMode,omitempty"`
	IdealWidth  int    `json:"idealWidth"`
	IdealHeight int    `json:"idealHeight"`
}

// ZoomRange is the zoom capability a device reports.
type ZoomRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Clamp limits level to the range and snaps it to the nearest step.
func (z ZoomRange) Clamp(level float64) float64 {
	if level < z.Min {
		level = z.Min
	}
	if level > z.Max {
		level = z.Max
	}
	if z.Step > 0 {
		steps := math.Round((level - z.Min) / z.Step)
		level = z.Min + steps*z.Step
		if level > z.Max {
			level = z.Max
		}
	}
	return level
}

// Stream is a live video source. Stop releases every track.
type Stream interface {
	Frame() (image.Image, error)
	// ZoomCapability reports the zoom range, if the device has one.
	ZoomCapability() (ZoomRange, bool)
	ApplyZoom(level float64) error
	Stop()
}

// MediaDevices is the platform capture capability.
type MediaDevices interface {
	EnumerateDevices(ctx context.Context) ([]Device, error)
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

var (
	ErrNotReady        = errors.New("camera not ready")
	ErrZoomUnsupported = errors.New("zoom not supported by the active device")
)

// AcquisitionError reports a device or permission failure.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("camera: %v", e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }
