// Package assessment drives one guided self-assessment session: user
// details, eight camera steps, the analysis call and the finished report.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"bodycheck/internal/analysis"
	"bodycheck/internal/capture"
	"bodycheck/internal/events"
	"bodycheck/internal/imaging"
	"bodycheck/internal/models"
	"bodycheck/internal/report"
	"bodycheck/internal/timer"
	"bodycheck/internal/voice"
)

var (
	// ErrNoReport is returned when a report is requested outside REPORT.
	ErrNoReport = errors.New("no report available")
	// ErrCameraIdle is returned for camera controls outside a mounted
	// camera step.
	ErrCameraIdle = errors.New("camera is not active on this step")
)

// TransitionError is returned when an action is not valid in the current
// step.
type TransitionError struct {
	Step   models.Step
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s during %s", e.Action, e.Step)
}

// History is the part of the history store a session uses.
type History interface {
	Save(ctx context.Context, r models.BodyReport, images []models.CapturedImage) error
	Get(ctx context.Context, id string) (models.MemberRecord, error)
}

// Camera is the capture provider owned by a session.
type Camera interface {
	capture.Camera
	Mount(ctx context.Context, facing capture.Facing) error
	ListDevices(ctx context.Context) ([]capture.Device, error)
	ToggleFacing(ctx context.Context) error
	SelectDevice(ctx context.Context, id string) error
	SetZoom(level float64) (float64, error)
	State() capture.State
	Release()
}

// Voice is the recognition control a session may own.
type Voice interface {
	Supported() bool
	Listening() bool
	LastKeyword() string
	Start()
	Stop()
	Toggle()
}

// Deps are the collaborators of a Sequencer. Voice and Events may be nil;
// Dispatch defaults to running work on a new goroutine.
type Deps struct {
	Analyzer      analysis.Analyzer
	History       History
	Camera        Camera
	Voice         Voice
	Scheduler     timer.Scheduler
	Events        events.Publisher
	Dispatch      func(func())
	AnalysisWidth int
}

// Sequencer is the assessment state machine. It is safe for concurrent use;
// collaborators are never called with the lock held.
type Sequencer struct {
	mu   sync.Mutex
	deps Deps

	step            models.Step
	user            *models.UserInfo
	images          []models.CapturedImage
	report          *models.BodyReport
	analyzing       bool
	showInstruction bool
	shot            *capture.Shot
	lastError       string
	// attempt invalidates analysis results that arrive after a restart.
	attempt uint64
}

// New returns a Sequencer on the intro screen, filling defaults for the
// optional collaborators.
func New(deps Deps) *Sequencer {
	if deps.Events == nil {
		deps.Events = events.Discard
	}
	if deps.Scheduler == nil {
		deps.Scheduler = timer.Real{}
	}
	if deps.Dispatch == nil {
		deps.Dispatch = func(f func()) { go f() }
	}
	if deps.AnalysisWidth <= 0 {
		deps.AnalysisWidth = imaging.AnalysisWidth
	}
	return &Sequencer{deps: deps, step: models.StepIntro, showInstruction: true}
}

// Begin starts a new assessment from the intro screen.
func (s *Sequencer) Begin() error {
	return s.move(models.StepIntro, models.StepUserInfo, "begin assessment")
}

// OpenHistory shows the record list.
func (s *Sequencer) OpenHistory() error {
	return s.move(models.StepIntro, models.StepHistory, "open history")
}

// CloseHistory returns from the record list to the intro screen.
func (s *Sequencer) CloseHistory() error {
	return s.move(models.StepHistory, models.StepIntro, "close history")
}

func (s *Sequencer) move(from, to models.Step, action string) error {
	s.mu.Lock()
	if s.step != from {
		err := &TransitionError{Step: s.step, Action: action}
		s.mu.Unlock()
		return err
	}
	s.step = to
	s.lastError = ""
	ev := s.stepEventLocked()
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// SubmitUserInfo validates the details and moves to the first camera step.
func (s *Sequencer) SubmitUserInfo(info models.UserInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.step != models.StepUserInfo {
		err := &TransitionError{Step: s.step, Action: "submit user info"}
		s.mu.Unlock()
		return err
	}
	s.user = &info
	s.images = nil
	s.step = models.StepPostureFront
	s.showInstruction = true
	ev := s.stepEventLocked()
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// DismissInstruction leaves the instruction screen of the current camera
// step and activates the camera.
func (s *Sequencer) DismissInstruction(ctx context.Context) error {
	s.mu.Lock()
	step := s.step
	info, ok := Info(step)
	if !ok {
		s.mu.Unlock()
		return &TransitionError{Step: step, Action: "dismiss instruction"}
	}
	if !s.showInstruction {
		s.mu.Unlock()
		return nil
	}
	s.showInstruction = false
	var shot *capture.Shot
	shot = capture.NewShot(info.shotConfig(), s.deps.Camera, s.deps.Scheduler, s.deps.Events, func(dataURL string) {
		if err := s.captured(shot, dataURL); err != nil {
			log.Printf("assessment: capture on %s dropped: %v", step, err)
		}
	})
	s.shot = shot
	ev := s.stepEventLocked()
	s.mu.Unlock()

	s.emit(ev)
	err := s.deps.Camera.Mount(ctx, info.Facing)
	s.emitCamera()
	if err != nil {
		s.emit(errorEvent(err.Error()))
		return err
	}
	return nil
}

// StartTest starts the countdown or timed test of the current step.
func (s *Sequencer) StartTest() error {
	shot, info, err := s.activeShot("start test")
	if err != nil {
		return err
	}
	switch info.Mode {
	case capture.ModeAuto:
		return shot.Arm()
	case capture.ModeTimed:
		return shot.StartTest()
	default:
		return capture.ErrWrongMode
	}
}

// Capture takes the frame of the current step immediately.
func (s *Sequencer) Capture() error {
	shot, _, err := s.activeShot("capture")
	if err != nil {
		return err
	}
	return shot.CaptureNow()
}

// HandleCapture attaches a frame captured by the client to the current
// step. The camera must be ready and the frame must decode as an image.
func (s *Sequencer) HandleCapture(dataURL string) error {
	shot, _, err := s.activeShot("capture")
	if err != nil {
		return err
	}
	if !s.deps.Camera.Ready() {
		return &capture.AcquisitionError{Err: capture.ErrNotReady}
	}
	if _, err := imaging.DecodeDataURL(dataURL); err != nil {
		return &models.ValidationError{Field: "dataUrl", Message: err.Error()}
	}
	return s.captured(shot, dataURL)
}

func (s *Sequencer) activeShot(action string) (*capture.Shot, StepInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := Info(s.step)
	if !ok || s.showInstruction || s.shot == nil {
		return nil, StepInfo{}, &TransitionError{Step: s.step, Action: action}
	}
	return s.shot, info, nil
}

// captured records the frame of shot and advances. Frames from a shot that
// is no longer current are dropped.
func (s *Sequencer) captured(shot *capture.Shot, dataURL string) error {
	s.mu.Lock()
	if shot == nil || s.shot != shot {
		step := s.step
		s.mu.Unlock()
		return &TransitionError{Step: step, Action: "capture"}
	}
	s.shot = nil
	step := s.step
	s.images = append(s.images, models.CapturedImage{Step: step, DataURL: dataURL})
	next := step.AfterCapture()

	var run func()
	if next == models.StepAnalyzing {
		s.step = models.StepAnalyzing
		s.analyzing = true
		s.attempt++
		attempt := s.attempt
		user := *s.user
		images := append([]models.CapturedImage(nil), s.images...)
		run = func() { s.runAnalysis(attempt, user, images) }
	} else {
		s.step = next
		s.showInstruction = true
	}
	ev := s.stepEventLocked()
	s.mu.Unlock()

	shot.Close()
	s.deps.Camera.Release()
	s.emit(ev)
	if run != nil {
		if s.deps.Voice != nil && s.deps.Voice.Listening() {
			s.deps.Voice.Stop()
		}
		s.deps.Dispatch(run)
	}
	return nil
}

// runAnalysis sends analysis-sized copies of the images; the originals stay
// with the session for display and storage.
func (s *Sequencer) runAnalysis(attempt uint64, user models.UserInfo, images []models.CapturedImage) {
	sized := make([]models.CapturedImage, len(images))
	for i, img := range images {
		sized[i] = img
		sized[i].DataURL = imaging.Resize(img.DataURL, s.deps.AnalysisWidth)
	}

	result, err := s.deps.Analyzer.Analyze(context.Background(), user, sized)

	s.mu.Lock()
	if s.attempt != attempt || s.step != models.StepAnalyzing {
		s.mu.Unlock()
		log.Printf("assessment: discarding stale analysis result")
		return
	}
	s.analyzing = false
	if err != nil {
		log.Printf("assessment: analysis failed: %v", err)
		s.resetLocked()
		s.lastError = analysis.UserMessage
		ev := s.stepEventLocked()
		s.mu.Unlock()
		s.emit(errorEvent(analysis.UserMessage), ev)
		return
	}
	s.report = &result
	s.step = models.StepReport
	ev := s.stepEventLocked()
	saved := append([]models.CapturedImage(nil), s.images...)
	s.mu.Unlock()

	s.emit(events.Event{Type: "report", Data: result}, ev)
	s.deps.Dispatch(func() {
		// History.Save logs and reports its own failures.
		_ = s.deps.History.Save(context.Background(), result, saved)
	})
}

// HandleVoice applies a recognized command to the current step.
func (s *Sequencer) HandleVoice(sig voice.Signal) {
	s.emit(events.Event{Type: "voice", Data: sig})

	s.mu.Lock()
	_, camera := Info(s.step)
	instruction := s.showInstruction
	shot := s.shot
	s.mu.Unlock()

	if !camera {
		return
	}
	if instruction {
		if sig.Command == voice.CommandNext || sig.Command == voice.CommandStart {
			if err := s.DismissInstruction(context.Background()); err != nil {
				log.Printf("assessment: voice dismiss failed: %v", err)
			}
		}
		return
	}
	if shot == nil {
		return
	}
	if err := shot.Trigger(sig); err != nil {
		log.Printf("assessment: voice %s failed: %v", sig.Command, err)
	}
}

// ViewRecord opens a saved record from the history screen. The images shown
// are the stored copies.
func (s *Sequencer) ViewRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.step != models.StepHistory {
		err := &TransitionError{Step: s.step, Action: "view record"}
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	rec, err := s.deps.History.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.step != models.StepHistory {
		err := &TransitionError{Step: s.step, Action: "view record"}
		s.mu.Unlock()
		return err
	}
	r := rec.Report
	s.report = &r
	s.images = rec.Images
	s.step = models.StepReport
	ev := s.stepEventLocked()
	s.mu.Unlock()

	s.emit(events.Event{Type: "report", Data: r}, ev)
	return nil
}

// Restart returns to the intro screen and clears the session. An analysis
// still in flight is discarded when it completes.
func (s *Sequencer) Restart() {
	s.mu.Lock()
	shot := s.shot
	s.resetLocked()
	s.attempt++
	ev := s.stepEventLocked()
	s.mu.Unlock()

	if shot != nil {
		shot.Close()
	}
	s.deps.Camera.Release()
	if s.deps.Voice != nil && s.deps.Voice.Listening() {
		s.deps.Voice.Stop()
	}
	s.emit(ev)
}

func (s *Sequencer) resetLocked() {
	s.step = models.StepIntro
	s.user = nil
	s.images = nil
	s.report = nil
	s.analyzing = false
	s.showInstruction = true
	s.shot = nil
	s.lastError = ""
}

// ToggleVoice turns voice commands on or off.
func (s *Sequencer) ToggleVoice() error {
	if s.deps.Voice == nil || !s.deps.Voice.Supported() {
		return voice.ErrUnsupported
	}
	s.deps.Voice.Toggle()
	return nil
}

func (s *Sequencer) cameraActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shot != nil
}

// ListDevices returns the cached video inputs.
func (s *Sequencer) ListDevices(ctx context.Context) ([]capture.Device, error) {
	return s.deps.Camera.ListDevices(ctx)
}

// ToggleFacing switches between the front and rear camera of the current
// step.
func (s *Sequencer) ToggleFacing(ctx context.Context) error {
	if !s.cameraActive() {
		return ErrCameraIdle
	}
	err := s.deps.Camera.ToggleFacing(ctx)
	s.emitCamera()
	return err
}

// SelectDevice pins the current step's stream to one device.
func (s *Sequencer) SelectDevice(ctx context.Context, id string) error {
	if !s.cameraActive() {
		return ErrCameraIdle
	}
	err := s.deps.Camera.SelectDevice(ctx, id)
	s.emitCamera()
	return err
}

// SetZoom clamps and applies a zoom level, returning the level applied.
func (s *Sequencer) SetZoom(level float64) (float64, error) {
	if !s.cameraActive() {
		return 0, ErrCameraIdle
	}
	applied, err := s.deps.Camera.SetZoom(level)
	s.emitCamera()
	return applied, err
}

// CameraChanged republishes the camera state after the client reports a
// change to the active track, such as its zoom range.
func (s *Sequencer) CameraChanged() {
	if s.cameraActive() {
		s.emitCamera()
	}
}

// ReportView is the current report with the session's images.
func (s *Sequencer) ReportView() (report.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return report.View{}, ErrNoReport
	}
	return report.View{
		Report: *s.report,
		Images: append([]models.CapturedImage(nil), s.images...),
	}, nil
}

// VoiceState is the externally visible voice control state.
type VoiceState struct {
	Supported   bool   `json:"supported"`
	Listening   bool   `json:"listening"`
	LastKeyword string `json:"lastKeyword,omitempty"`
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Step            models.Step        `json:"step"`
	UserInfo        *models.UserInfo   `json:"userInfo,omitempty"`
	CapturedSteps   []models.Step      `json:"capturedSteps"`
	Report          *models.BodyReport `json:"report,omitempty"`
	Analyzing       bool               `json:"isAnalyzing"`
	ShowInstruction bool               `json:"showInstruction"`
	Instruction     *StepInfo          `json:"instruction,omitempty"`
	Countdown       int                `json:"countdown,omitempty"`
	Camera          *capture.State     `json:"camera,omitempty"`
	Voice           VoiceState         `json:"voice"`
	LastError       string             `json:"lastError,omitempty"`
}

// Snapshot returns a copy of the session state for clients.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Step:            s.step,
		CapturedSteps:   make([]models.Step, 0, len(s.images)),
		Analyzing:       s.analyzing,
		ShowInstruction: s.showInstruction,
		LastError:       s.lastError,
	}
	if s.user != nil {
		u := *s.user
		snap.UserInfo = &u
	}
	for _, img := range s.images {
		snap.CapturedSteps = append(snap.CapturedSteps, img.Step)
	}
	if s.report != nil {
		r := *s.report
		snap.Report = &r
	}
	if info, ok := Info(s.step); ok {
		snap.Instruction = &info
	}
	shot := s.shot
	s.mu.Unlock()

	if shot != nil {
		snap.Countdown = shot.Remaining()
		st := s.deps.Camera.State()
		snap.Camera = &st
	}
	if v := s.deps.Voice; v != nil {
		snap.Voice = VoiceState{Supported: v.Supported(), Listening: v.Listening(), LastKeyword: v.LastKeyword()}
	}
	return snap
}

func (s *Sequencer) stepEventLocked() events.Event {
	data := map[string]any{
		"step":            s.step,
		"showInstruction": s.showInstruction,
		"isAnalyzing":     s.analyzing,
	}
	if info, ok := Info(s.step); ok {
		data["instruction"] = info
	}
	if s.lastError != "" {
		data["lastError"] = s.lastError
	}
	return events.Event{Type: "step", Data: data}
}

func (s *Sequencer) emitCamera() {
	s.emit(events.Event{Type: "camera", Data: s.deps.Camera.State()})
}

func (s *Sequencer) emit(evs ...events.Event) {
	for _, e := range evs {
		s.deps.Events.Publish(e)
	}
}

func errorEvent(message string) events.Event {
	return events.Event{Type: "error", Data: map[string]string{"message": message}}
}
