package models

import "fmt"

// Step is one stage of the assessment. The declaration order is the
// assessment order.
type Step int

const (
	StepIntro Step = iota
	StepUserInfo
	StepPostureFront
	StepPostureSide
	StepBalanceTest
	StepArmRaiseTest
	StepFlexibilityTest
	StepStrengthSquat
	StepStrengthPushup
	StepFaceAnalysis
	StepAnalyzing
	StepReport
	// StepHistory is reachable from the intro screen only and is not part
	// of the capture sequence.
	StepHistory
)

var stepNames = map[Step]string{
	StepIntro:           "INTRO",
	StepUserInfo:        "USER_INFO",
	StepPostureFront:    "POSTURE_FRONT",
	StepPostureSide:     "POSTURE_SIDE",
	StepBalanceTest:     "BALANCE_TEST",
	StepArmRaiseTest:    "ARM_RAISE_TEST",
	StepFlexibilityTest: "FLEXIBILITY_TEST",
	StepStrengthSquat:   "STRENGTH_SQUAT",
	StepStrengthPushup:  "STRENGTH_PUSHUP",
	StepFaceAnalysis:    "FACE_ANALYSIS",
	StepAnalyzing:       "ANALYZING",
	StepReport:          "REPORT",
	StepHistory:         "HISTORY",
}

var stepTitles = map[Step]string{
	StepPostureFront:    "정면 신체 균형 측정",
	StepPostureSide:     "측면 신체 균형 측정",
	StepBalanceTest:     "눈 감고 한발 서기",
	StepArmRaiseTest:    "팔 들어 올리기",
	StepFlexibilityTest: "유연성 테스트 (전굴)",
	StepStrengthSquat:   "30초 스쿼트",
	StepStrengthPushup:  "30초 푸시업",
	StepFaceAnalysis:    "안면 노화도 측정",
}

// Title is the Korean display title of a camera step, or the step name for
// other steps.
func (s Step) Title() string {
	if t, ok := stepTitles[s]; ok {
		return t
	}
	return s.String()
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) {
	name, ok := stepNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown step %d", int(s))
	}
	return []byte(name), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	parsed, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStep resolves a step from its upper-case name.
func ParseStep(name string) (Step, error) {
	for step, n := range stepNames {
		if n == name {
			return step, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// IsCamera reports whether the step captures a frame.
func (s Step) IsCamera() bool {
	switch s {
	case StepPostureFront, StepPostureSide, StepBalanceTest, StepArmRaiseTest,
		StepFlexibilityTest, StepStrengthSquat, StepStrengthPushup, StepFaceAnalysis:
		return true
	}
	return false
}

// AfterCapture is the step that follows a successful capture on s. It is
// total: non-camera steps map to themselves.
func (s Step) AfterCapture() Step {
	switch s {
	case StepPostureFront:
		return StepPostureSide
	case StepPostureSide:
		return StepBalanceTest
	case StepBalanceTest:
		return StepArmRaiseTest
	case StepArmRaiseTest:
		return StepFlexibilityTest
	case StepFlexibilityTest:
		return StepStrengthSquat
	case StepStrengthSquat:
		return StepStrengthPushup
	case StepStrengthPushup:
		return StepFaceAnalysis
	case StepFaceAnalysis:
		return StepAnalyzing
	default:
		return s
	}
}

// CameraSteps returns the camera steps in assessment order.
func CameraSteps() []Step {
	return []Step{
		StepPostureFront,
		StepPostureSide,
		StepBalanceTest,
		StepArmRaiseTest,
		StepFlexibilityTest,
		StepStrengthSquat,
		StepStrengthPushup,
		StepFaceAnalysis,
	}
}
