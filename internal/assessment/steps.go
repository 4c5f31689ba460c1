package assessment

import (
	"time"

	"bodycheck/internal/capture"
	"bodycheck/internal/models"
)

// TestDuration is the length of every timed physical test.
const TestDuration = 30 * time.Second

// StepInfo is the instruction screen and capture setup of a camera step.
type StepInfo struct {
	Step        models.Step    `json:"step"`
	Label       string         `json:"label"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Tips        []string       `json:"tips"`
	Guide       string         `json:"guide"`
	Facing      capture.Facing `json:"facing"`
	Mode        capture.Mode   `json:"mode"`
	Duration    time.Duration  `json:"-"`
	Seconds     int            `json:"seconds,omitempty"`
}

func (i StepInfo) shotConfig() capture.ShotConfig {
	return capture.ShotConfig{Mode: i.Mode, Duration: i.Duration}
}

var catalogue = map[models.Step]StepInfo{
	models.StepPostureFront: {
		Label:       "진단 1단계",
		Description: "카메라 앞에 자연스럽게 정면으로 서주세요. 전신이 카메라에 잡히도록 적당한 거리에서 촬영합니다.",
		Tips: []string{
			"양발을 어깨 너비로 벌리고 서세요",
			"자연스럽게 팔을 옆에 내려놓으세요",
			"카메라와 약 2m 거리를 유지하세요",
			"7초 후 자동으로 촬영됩니다",
		},
		Guide:  "가이드라인에 맞춰 정면 전체 몸이 나오도록 서주세요.",
		Facing: capture.FacingEnvironment,
		Mode:   capture.ModeAuto,
	},
	models.StepPostureSide: {
		Label:       "진단 2단계",
		Description: "카메라를 향해 옆으로 서주세요. 어깨, 골반, 무릎, 발목이 일직선이 되는지 확인합니다.",
		Tips: []string{
			"몸의 왼쪽 또는 오른쪽 측면이 카메라를 향하게 서세요",
			"자연스럽게 서있는 자세를 유지하세요",
			"다리가 겹치지 않도록 주의하세요",
			"7초 후 자동으로 촬영됩니다",
		},
		Guide:  "수직선에 몸의 중심을 맞추고 옆으로 서주세요.",
		Facing: capture.FacingEnvironment,
		Mode:   capture.ModeAuto,
	},
	models.StepBalanceTest: {
		Label:       "노화 테스트 01",
		Description: "눈을 감고 한 발로 서서 균형을 유지하세요. 균형 유지 시간으로 신체 노화도를 측정합니다.",
		Tips: []string{
			"양팔을 자연스럽게 벌려 균형을 잡아도 됩니다",
			"눈을 감고 한 발을 들어올리세요",
			"30초 타이머가 자동으로 작동합니다",
			"넘어질 위험이 없는 안전한 장소에서 진행하세요",
		},
		Guide:    "눈을 감고 한 발로 서서 균형을 유지하세요.",
		Facing:   capture.FacingEnvironment,
		Mode:     capture.ModeTimed,
		Duration: TestDuration,
	},
	models.StepArmRaiseTest: {
		Label:       "노화 테스트 02",
		Description: "양팔을 머리 위로 최대한 높이 들어올려 주세요. 팔의 가동 범위와 유연성을 측정합니다.",
		Tips: []string{
			"양팔을 동시에 위로 올리세요",
			"최대한 높이 올려 귀 옆으로 붙여보세요",
			"통증이 있으면 무리하지 마세요",
			"촬영 버튼을 눌러 촬영합니다",
		},
		Guide:  "동작을 크게 취하고 촬영 버튼을 누르세요.",
		Facing: capture.FacingEnvironment,
		Mode:   capture.ModeManual,
	},
	models.StepFlexibilityTest: {
		Label:       "노화 테스트 03",
		Description: "서서 상체를 앞으로 숙여 발끝에 손이 닿는지 확인합니다. 하체 유연성을 측정합니다.",
		Tips: []string{
			"무릎을 펴고 서 있는 상태에서 시작하세요",
			"상체를 천천히 앞으로 숙이세요",
			"손가락이 발끝에 닿을 수 있도록 노력하세요",
			"촬영 버튼을 눌러 촬영합니다",
		},
		Guide:  "동작을 크게 취하고 촬영 버튼을 누르세요.",
		Facing: capture.FacingEnvironment,
		Mode:   capture.ModeManual,
	},
	models.StepStrengthSquat: {
		Label:       "근력 테스트 01",
		Description: "30초 동안 올바른 자세로 스쿼트를 최대한 많이 반복하세요. 하체 근력을 측정합니다.",
		Tips: []string{
			"발을 어깨 너비로 벌리고 시작하세요",
			"허벅지가 바닥과 수평이 될 때까지 앉으세요",
			"무릎이 발끝 앞으로 나가지 않도록 주의하세요",
			"시작 버튼을 누르면 30초 타이머가 작동합니다",
		},
		Guide:    "30초 동안 스쿼트를 반복하세요.",
		Facing:   capture.FacingEnvironment,
		Mode:     capture.ModeTimed,
		Duration: TestDuration,
	},
	models.StepStrengthPushup: {
		Label:       "근력 테스트 02",
		Description: "30초 동안 올바른 자세로 푸시업을 최대한 많이 반복하세요. 상체 근력을 측정합니다.",
		Tips: []string{
			"손을 어깨 너비보다 약간 넓게 짚으세요",
			"몸이 일직선이 되도록 유지하세요",
			"무릎 대고 하는 변형도 괜찮습니다",
			"시작 버튼을 누르면 30초 타이머가 작동합니다",
		},
		Guide:    "30초 동안 푸시업을 반복하세요.",
		Facing:   capture.FacingEnvironment,
		Mode:     capture.ModeTimed,
		Duration: TestDuration,
	},
	models.StepFaceAnalysis: {
		Label:       "바이오 스캔",
		Description: "전면 카메라로 얼굴을 촬영합니다. 피부 탄력, 주름 상태를 AI가 분석하여 안면 노화도를 측정합니다.",
		Tips: []string{
			"전면 카메라가 자동으로 활성화됩니다",
			"얼굴을 화면 가이드 원 안에 맞추세요",
			"정면을 바라보고 자연스러운 표정을 유지하세요",
			"충분한 조명이 있는 곳에서 촬영하세요",
		},
		Guide:  "얼굴을 원 안에 맞추고 정면을 응시하세요.",
		Facing: capture.FacingUser,
		Mode:   capture.ModeManual,
	},
}

// Info returns the instruction and capture setup for a camera step.
func Info(step models.Step) (StepInfo, bool) {
	info, ok := catalogue[step]
	if !ok {
		return StepInfo{}, false
	}
	info.Step = step
	info.Title = step.Title()
	info.Seconds = int(info.Duration / time.Second)
	return info, true
}
