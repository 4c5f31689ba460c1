package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"bodycheck/internal/events"
	"bodycheck/internal/imaging"
	"bodycheck/internal/timer"
	"bodycheck/internal/voice"
)

type stubStream struct {
	media   *stubMedia
	id      int
	stopped bool
	applied []float64
}

func (s *stubStream) Frame() (image.Image, error) { return s.media.frame, nil }

func (s *stubStream) ZoomCapability() (ZoomRange, bool) {
	if s.media.zoom == nil {
		return ZoomRange{}, false
	}
	return *s.media.zoom, true
}

func (s *stubStream) ApplyZoom(level float64) error {
	s.applied = append(s.applied, level)
	return nil
}

func (s *stubStream) Stop() {
	s.stopped = true
	s.media.log = append(s.media.log, "stop")
}

type stubMedia struct {
	frame       image.Image
	zoom        *ZoomRange
	enumerated  int
	acquireErr  error
	constraints []Constraints
	streams     []*stubStream
	log         []string
}

func (m *stubMedia) EnumerateDevices(context.Context) ([]Device, error) {
	m.enumerated++
	return []Device{{ID: "cam-1", Label: "Back"}, {ID: "cam-2", Label: "Front"}}, nil
}

func (m *stubMedia) Acquire(_ context.Context, c Constraints) (Stream, error) {
	m.log = append(m.log, "acquire")
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.constraints = append(m.constraints, c)
	s := &stubStream{media: m, id: len(m.streams)}
	m.streams = append(m.streams, s)
	return s, nil
}

// splitFrame is white on the left half and black on the right.
func splitFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			if x < w/2 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func brightness(t *testing.T, dataURL string, x, y int) uint32 {
	t.Helper()
	img, err := imaging.DecodeDataURL(dataURL)
	if err != nil {
		t.Fatalf("captured frame does not decode: %v", err)
	}
	r, _, _, _ := img.At(x, y).RGBA()
	return r >> 8
}

func TestProviderReleasesBeforeReacquiring(t *testing.T) {
	media := &stubMedia{frame: splitFrame(8, 8)}
	p := NewProvider(media)
	ctx := context.Background()

	if err := p.Mount(ctx, FacingEnvironment); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := p.ToggleFacing(ctx); err != nil {
		t.Fatalf("ToggleFacing: %v", err)
	}
	if err := p.SelectDevice(ctx, "cam-2"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}

	want := []string{"acquire", "stop", "acquire", "stop", "acquire"}
	if len(media.log) != len(want) {
		t.Fatalf("expected %v, got %v", want, media.log)
	}
	for i := range want {
		if media.log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, media.log)
		}
	}
	if media.constraints[1].Facing != FacingUser || media.constraints[1].DeviceID != "" {
		t.Fatalf("toggle should request the user camera, got %+v", media.constraints[1])
	}
	if media.constraints[2].DeviceID != "cam-2" {
		t.Fatalf("select should pin the device, got %+v", media.constraints[2])
	}

	p.Release()
	if !media.streams[2].stopped || p.Ready() {
		t.Fatal("Release should stop the active stream")
	}
}

func TestProviderToggleClearsDeviceSelection(t *testing.T) {
	media := &stubMedia{frame: splitFrame(8, 8)}
	p := NewProvider(media)
	ctx := context.Background()

	_ = p.Mount(ctx, FacingUser)
	_ = p.SelectDevice(ctx, "cam-1")
	_ = p.ToggleFacing(ctx)

	st := p.State()
	if st.DeviceID != "" || st.Facing != FacingEnvironment {
		t.Fatalf("unexpected state after toggle: %+v", st)
	}
}

func TestProviderListDevicesIsCached(t *testing.T) {
	media := &stubMedia{}
	p := NewProvider(media)

	for i := 0; i < 3; i++ {
		devices, err := p.ListDevices(context.Background())
		if err != nil || len(devices) != 2 {
			t.Fatalf("ListDevices = %v, %v", devices, err)
		}
	}
	if media.enumerated != 1 {
		t.Fatalf("expected one enumeration, got %d", media.enumerated)
	}
}

func TestProviderSetZoom(t *testing.T) {
	media := &stubMedia{frame: splitFrame(8, 8), zoom: &ZoomRange{Min: 1, Max: 5, Step: 0.5}}
	p := NewProvider(media)
	if err := p.Mount(context.Background(), FacingEnvironment); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	tests := []struct {
		in, want float64
	}{
		{7, 5},
		{0.2, 1},
		{2.3, 2.5},
		{3, 3},
	}
	for _, tt := range tests {
		got, err := p.SetZoom(tt.in)
		if err != nil {
			t.Fatalf("SetZoom(%v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("SetZoom(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if n := len(media.streams[0].applied); n != len(tests) {
		t.Fatalf("expected %d zoom applications, got %d", len(tests), n)
	}
}

func TestProviderSetZoomWithoutCapability(t *testing.T) {
	media := &stubMedia{frame: splitFrame(8, 8)}
	p := NewProvider(media)

	if _, err := p.SetZoom(2); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady before mount, got %v", err)
	}
	_ = p.Mount(context.Background(), FacingEnvironment)
	if _, err := p.SetZoom(2); !errors.Is(err, ErrZoomUnsupported) {
		t.Fatalf("expected ErrZoomUnsupported, got %v", err)
	}
}

func TestCaptureFrameMirrorsUserFacing(t *testing.T) {
	media := &stubMedia{frame: splitFrame(64, 32)}
	p := NewProvider(media)
	ctx := context.Background()

	_ = p.Mount(ctx, FacingUser)
	mirrored, err := p.CaptureFrame()
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if b := brightness(t, mirrored, 4, 16); b > 64 {
		t.Fatalf("expected left edge dark after mirroring, got %d", b)
	}
	if b := brightness(t, mirrored, 60, 16); b < 192 {
		t.Fatalf("expected right edge bright after mirroring, got %d", b)
	}

	_ = p.SelectDevice(ctx, "cam-2")
	plain, err := p.CaptureFrame()
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if b := brightness(t, plain, 4, 16); b < 192 {
		t.Fatalf("explicit device should not be mirrored, got %d", b)
	}
}

func TestCaptureFrameEnvironmentIsNotMirrored(t *testing.T) {
	media := &stubMedia{frame: splitFrame(64, 32)}
	p := NewProvider(media)
	_ = p.Mount(context.Background(), FacingEnvironment)

	out, err := p.CaptureFrame()
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if b := brightness(t, out, 4, 16); b < 192 {
		t.Fatalf("expected left edge bright, got %d", b)
	}
}

func TestAcquisitionFailureLeavesProviderNotReady(t *testing.T) {
	media := &stubMedia{acquireErr: errors.New("permission denied")}
	p := NewProvider(media)

	err := p.Mount(context.Background(), FacingEnvironment)
	var acqErr *AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected AcquisitionError, got %v", err)
	}
	if p.Ready() {
		t.Fatal("provider should not be ready")
	}
	if _, err := p.CaptureFrame(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

type stubCamera struct {
	ready    bool
	fail     error
	captures int
}

func (c *stubCamera) Ready() bool { return c.ready }

func (c *stubCamera) CaptureFrame() (string, error) {
	if c.fail != nil {
		return "", c.fail
	}
	c.captures++
	return "data:image/jpeg;base64,AAAA", nil
}

type shotHarness struct {
	cam    *stubCamera
	clock  *timer.Fake
	rec    *events.Recorder
	shot   *Shot
	frames []string
}

func newShotHarness(cfg ShotConfig) *shotHarness {
	h := &shotHarness{cam: &stubCamera{ready: true}, clock: timer.NewFake(), rec: &events.Recorder{}}
	h.shot = NewShot(cfg, h.cam, h.clock, h.rec, func(d string) { h.frames = append(h.frames, d) })
	return h
}

func TestAutoCountdownCapturesOnce(t *testing.T) {
	h := newShotHarness(ShotConfig{Mode: ModeAuto})

	if err := h.shot.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	h.clock.Advance(6 * time.Second)
	if len(h.frames) != 0 {
		t.Fatal("captured before the countdown ended")
	}
	if got := h.shot.Remaining(); got != 1 {
		t.Fatalf("expected 1s remaining, got %d", got)
	}
	h.clock.Advance(time.Second)
	if len(h.frames) != 1 {
		t.Fatalf("expected one capture at zero, got %d", len(h.frames))
	}

	if err := h.shot.Arm(); err != nil {
		t.Fatalf("re-arm: %v", err)
	}
	h.clock.Advance(time.Minute)
	if len(h.frames) != 1 {
		t.Fatalf("shot captured twice: %d", len(h.frames))
	}
	if got := h.rec.Count("countdown"); got != 8 {
		t.Fatalf("expected countdown events 7..0, got %d", got)
	}
	if got := h.clock.Pending(); got != 0 {
		t.Fatalf("expected no pending timers, got %d", got)
	}
}

func TestTimedTestCapturesAfterTrailingDelay(t *testing.T) {
	h := newShotHarness(ShotConfig{Mode: ModeTimed, Duration: 30 * time.Second})

	if err := h.shot.StartTest(); err != nil {
		t.Fatalf("StartTest: %v", err)
	}
	h.clock.Advance(30 * time.Second)
	if len(h.frames) != 0 {
		t.Fatal("captured before the trailing delay")
	}
	h.clock.Advance(TrailingDelay - time.Millisecond)
	if len(h.frames) != 0 {
		t.Fatal("captured before the trailing delay elapsed")
	}
	h.clock.Advance(time.Millisecond)
	if len(h.frames) != 1 {
		t.Fatalf("expected one capture, got %d", len(h.frames))
	}

	var cues []string
	for _, e := range h.rec.Events() {
		if e.Type == "cue" {
			cues = append(cues, e.Data.(map[string]string)["sound"])
		}
	}
	want := []string{CueStart, CueEnd, CueCapture}
	if len(cues) != len(want) {
		t.Fatalf("expected cues %v, got %v", want, cues)
	}
	for i := range want {
		if cues[i] != want[i] {
			t.Fatalf("expected cues %v, got %v", want, cues)
		}
	}
}

func TestCaptureNowCancelsCountdown(t *testing.T) {
	h := newShotHarness(ShotConfig{Mode: ModeAuto})

	_ = h.shot.Arm()
	h.clock.Advance(3 * time.Second)
	if err := h.shot.CaptureNow(); err != nil {
		t.Fatalf("CaptureNow: %v", err)
	}
	h.clock.Advance(10 * time.Second)
	if len(h.frames) != 1 {
		t.Fatalf("expected exactly one capture, got %d", len(h.frames))
	}
}

func TestCloseCancelsTimers(t *testing.T) {
	h := newShotHarness(ShotConfig{Mode: ModeTimed, Duration: 30 * time.Second})

	_ = h.shot.StartTest()
	h.clock.Advance(10 * time.Second)
	h.shot.Close()
	h.clock.Advance(time.Minute)
	if len(h.frames) != 0 {
		t.Fatalf("closed shot captured %d frames", len(h.frames))
	}
	if err := h.shot.CaptureNow(); err != nil || len(h.frames) != 0 {
		t.Fatal("closed shot should ignore capture requests")
	}
}

func TestTriggerDeduplicatesBySeq(t *testing.T) {
	h := newShotHarness(ShotConfig{Mode: ModeAuto})

	_ = h.shot.Trigger(voice.Signal{Command: voice.CommandStart, Seq: 1})
	h.clock.Advance(2 * time.Second)
	_ = h.shot.Trigger(voice.Signal{Command: voice.CommandStart, Seq: 1})
	if got := h.shot.Remaining(); got != 5 {
		t.Fatalf("duplicate signal restarted the countdown: %d remaining", got)
	}
	_ = h.shot.Trigger(voice.Signal{Command: voice.CommandCapture, Seq: 2})
	if len(h.frames) != 1 {
		t.Fatalf("expected voice capture, got %d frames", len(h.frames))
	}
}

func TestTriggerStartIgnoredInManualMode(t *testing.T) {
	h := newShotHarness(ShotConfig{Mode: ModeManual})

	if err := h.shot.Trigger(voice.Signal{Command: voice.CommandStart, Seq: 1}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if h.clock.Pending() != 0 {
		t.Fatal("manual shot should not start a timer")
	}
	if err := h.shot.Arm(); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode, got %v", err)
	}
}

func TestArmRequiresReadyCamera(t *testing.T) {
	h := newShotHarness(ShotConfig{Mode: ModeAuto})
	h.cam.ready = false

	if err := h.shot.Arm(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestFailedCaptureCanBeRetried(t *testing.T) {
	h := newShotHarness(ShotConfig{Mode: ModeManual})
	h.cam.fail = &AcquisitionError{Err: ErrNotReady}

	if err := h.shot.CaptureNow(); err == nil {
		t.Fatal("expected capture error")
	}
	if h.rec.Count("error") != 1 {
		t.Fatal("expected an error event")
	}
	h.cam.fail = nil
	if err := h.shot.CaptureNow(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(h.frames) != 1 {
		t.Fatalf("expected one frame after retry, got %d", len(h.frames))
	}
}

func TestRemoteMediaFrames(t *testing.T) {
	rec := &events.Recorder{}
	media := NewRemoteMedia(rec)
	p := NewProvider(media)

	if err := p.Mount(context.Background(), FacingEnvironment); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	media.SetZoomCapability(&ZoomRange{Min: 1, Max: 3, Step: 1})
	if _, err := p.CaptureFrame(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady before any frame, got %v", err)
	}

	frame, err := imaging.EncodeDataURL(splitFrame(16, 16), 90)
	if err != nil {
		t.Fatal(err)
	}
	if err := media.PushFrame(frame); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	if _, err := p.CaptureFrame(); err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if _, err := p.SetZoom(9); err != nil {
		t.Fatalf("SetZoom: %v", err)
	}

	_ = p.ToggleFacing(context.Background())
	if _, err := p.CaptureFrame(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("frames from the previous stream must not leak, got %v", err)
	}

	want := []string{"camera_acquire", "camera_zoom", "camera_release", "camera_acquire"}
	got := rec.Types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRemoteMediaZoomReportedAfterAcquire(t *testing.T) {
	media := NewRemoteMedia(events.Discard)
	p := NewProvider(media)
	ctx := context.Background()

	if err := p.Mount(ctx, FacingUser); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if st := p.State(); st.Zoom != nil {
		t.Fatalf("expected no zoom before the client reports it, got %+v", st.Zoom)
	}
	media.SetZoomCapability(&ZoomRange{Min: 1, Max: 5, Step: 0.5})

	got, err := p.SetZoom(2)
	if err != nil {
		t.Fatalf("SetZoom: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected zoom 2, got %v", got)
	}
	if st := p.State(); st.Zoom == nil || st.Zoom.Max != 5 || st.ZoomLevel != 2 {
		t.Fatalf("unexpected state %+v", st)
	}

	if err := p.SelectDevice(ctx, "front"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if st := p.State(); st.Zoom != nil {
		t.Fatalf("previous device zoom range leaked: %+v", st.Zoom)
	}
	if _, err := p.SetZoom(2); !errors.Is(err, ErrZoomUnsupported) {
		t.Fatalf("expected ErrZoomUnsupported on the new device, got %v", err)
	}
}

func TestRemoteMediaDenied(t *testing.T) {
	media := NewRemoteMedia(events.Discard)
	media.SetDenied(errors.New("NotAllowedError"))
	p := NewProvider(media)

	var acqErr *AcquisitionError
	if err := p.Mount(context.Background(), FacingUser); !errors.As(err, &acqErr) {
		t.Fatalf("expected AcquisitionError, got %v", err)
	}
}
