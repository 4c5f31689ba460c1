package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"bodycheck/internal/events"
	"bodycheck/internal/timer"
	"bodycheck/internal/voice"
)

// Mode selects how a camera step decides to take its frame.
type Mode int

const (
	// ModeManual waits for an explicit capture.
	ModeManual Mode = iota
	// ModeAuto counts down once armed and then captures.
	ModeAuto
	// ModeTimed runs a fixed-duration test and captures when it ends.
	ModeTimed
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeTimed:
		return "timed"
	default:
		return "manual"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "manual":
		*m = ModeManual
	case "auto":
		*m = ModeAuto
	case "timed":
		*m = ModeTimed
	default:
		return fmt.Errorf("unknown capture mode %q", text)
	}
	return nil
}

const (
	AutoCountdown = 7 * time.Second
	TrailingDelay = 500 * time.Millisecond
)

// Sound cues played by the client.
const (
	CueStart   = "start"
	CueTick    = "tick"
	CueEnd     = "end"
	CueCapture = "capture"
)

var ErrWrongMode = errors.New("action not available in this capture mode")

// Camera is the part of Provider a Shot needs.
type Camera interface {
	Ready() bool
	CaptureFrame() (string, error)
}

type ShotConfig struct {
	Mode Mode
	// Duration is the length of a timed test.
	Duration time.Duration
}

type shotPhase int

const (
	phaseIdle shotPhase = iota
	phaseCountdown
	phaseTesting
	phaseTrailing
	phaseDone
)

// Shot runs the timers of a single camera step. At most one timer is active
// and a shot delivers at most one frame.
type Shot struct {
	mu        sync.Mutex
	cfg       ShotConfig
	camera    Camera
	sched     timer.Scheduler
	out       events.Publisher
	onCapture func(dataURL string)

	phase     shotPhase
	remaining int
	pending   timer.Handle
	lastSeq   uint64
}

func NewShot(cfg ShotConfig, camera Camera, sched timer.Scheduler, out events.Publisher, onCapture func(string)) *Shot {
	if out == nil {
		out = events.Discard
	}
	return &Shot{cfg: cfg, camera: camera, sched: sched, out: out, onCapture: onCapture}
}

// Arm starts the auto-capture countdown. Arming an already running shot is
// a no-op.
func (s *Shot) Arm() error {
	if s.cfg.Mode != ModeAuto {
		return ErrWrongMode
	}
	if !s.camera.Ready() {
		return &AcquisitionError{Err: ErrNotReady}
	}
	s.mu.Lock()
	if s.phase != phaseIdle {
		s.mu.Unlock()
		return nil
	}
	s.phase = phaseCountdown
	s.remaining = int(AutoCountdown / time.Second)
	remaining := s.remaining
	s.pending = s.sched.AfterFunc(time.Second, s.tick)
	s.mu.Unlock()

	s.out.Publish(events.Event{Type: "countdown", Data: map[string]int{"remaining": remaining}})
	return nil
}

// StartTest begins a fixed-duration test. The frame is taken shortly after
// the timer ends so the end of the motion is in view.
func (s *Shot) StartTest() error {
	if s.cfg.Mode != ModeTimed {
		return ErrWrongMode
	}
	if !s.camera.Ready() {
		return &AcquisitionError{Err: ErrNotReady}
	}
	s.mu.Lock()
	if s.phase != phaseIdle {
		s.mu.Unlock()
		return nil
	}
	s.phase = phaseTesting
	s.remaining = int(s.cfg.Duration / time.Second)
	remaining := s.remaining
	s.pending = s.sched.AfterFunc(time.Second, s.tick)
	s.mu.Unlock()

	s.out.Publish(events.Event{Type: "cue", Data: map[string]string{"sound": CueStart}})
	s.out.Publish(events.Event{Type: "test_timer", Data: map[string]int{"remaining": remaining}})
	return nil
}

// CaptureNow cancels any running timer and captures immediately.
func (s *Shot) CaptureNow() error {
	s.mu.Lock()
	if s.phase == phaseDone {
		s.mu.Unlock()
		return nil
	}
	s.stopLocked()
	s.mu.Unlock()
	return s.fire()
}

// Trigger applies a forwarded voice command. Signals are deduplicated by
// sequence number.
func (s *Shot) Trigger(sig voice.Signal) error {
	s.mu.Lock()
	if sig.Seq != 0 && sig.Seq <= s.lastSeq {
		s.mu.Unlock()
		return nil
	}
	s.lastSeq = sig.Seq
	s.mu.Unlock()

	switch sig.Command {
	case voice.CommandStart:
		switch s.cfg.Mode {
		case ModeAuto:
			return s.Arm()
		case ModeTimed:
			return s.StartTest()
		}
	case voice.CommandCapture:
		return s.CaptureNow()
	}
	return nil
}

// Close cancels any running timer. A closed shot never captures.
func (s *Shot) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.phase = phaseDone
	s.mu.Unlock()
}

// Remaining reports the seconds left on the running countdown.
func (s *Shot) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == phaseCountdown || s.phase == phaseTesting {
		return s.remaining
	}
	return 0
}

func (s *Shot) stopLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if s.phase != phaseDone {
		s.phase = phaseIdle
	}
}

func (s *Shot) tick() {
	s.mu.Lock()
	if s.phase != phaseCountdown && s.phase != phaseTesting {
		s.mu.Unlock()
		return
	}
	s.remaining--
	remaining := s.remaining
	phase := s.phase
	switch {
	case remaining > 0:
		s.pending = s.sched.AfterFunc(time.Second, s.tick)
	case phase == phaseTesting:
		s.phase = phaseTrailing
		s.pending = s.sched.AfterFunc(TrailingDelay, s.trail)
	default:
		s.pending = nil
	}
	s.mu.Unlock()

	if phase == phaseCountdown {
		s.out.Publish(events.Event{Type: "countdown", Data: map[string]int{"remaining": remaining}})
		if remaining > 0 {
			s.out.Publish(events.Event{Type: "cue", Data: map[string]string{"sound": CueTick}})
			return
		}
		if err := s.fire(); err != nil {
			log.Printf("capture: auto capture failed: %v", err)
		}
		return
	}
	s.out.Publish(events.Event{Type: "test_timer", Data: map[string]int{"remaining": remaining}})
	if remaining == 0 {
		s.out.Publish(events.Event{Type: "cue", Data: map[string]string{"sound": CueEnd}})
	}
}

func (s *Shot) trail() {
	s.mu.Lock()
	if s.phase != phaseTrailing {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()
	if err := s.fire(); err != nil {
		log.Printf("capture: timed capture failed: %v", err)
	}
}

// fire takes the frame outside the lock since onCapture may close the
// shot. A failed capture leaves the shot idle so it can be retried.
func (s *Shot) fire() error {
	dataURL, err := s.camera.CaptureFrame()
	if err != nil {
		s.mu.Lock()
		if s.phase != phaseDone {
			s.phase = phaseIdle
		}
		s.mu.Unlock()
		s.out.Publish(events.Event{Type: "error", Data: map[string]string{"message": err.Error()}})
		return err
	}

	s.mu.Lock()
	if s.phase == phaseDone {
		s.mu.Unlock()
		return nil
	}
	s.phase = phaseDone
	s.mu.Unlock()

	s.out.Publish(events.Event{Type: "cue", Data: map[string]string{"sound": CueCapture}})
	if s.onCapture != nil {
		s.onCapture(dataURL)
	}
	return nil
}
