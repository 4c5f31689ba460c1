// Package analysis sends a finished capture sequence to a multimodal model
// and turns its structured answer into a BodyReport.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"bodycheck/internal/imaging"
	"bodycheck/internal/models"
)

// UserMessage is shown to the user whenever an analysis attempt fails.
const UserMessage = "분석 중 오류가 발생했습니다. 카메라 조명이 충분한지 확인하시고 다시 시도해 주세요."

// Error is returned for any failed analysis attempt: transport errors,
// timeouts and payloads that do not match the report shape.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analysis %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Image is one labelled image payload sent to a provider.
type Image struct {
	Label string
	MIME  string
	Data  []byte
}

// Generator is a multimodal model that answers with JSON text.
type Generator interface {
	Generate(ctx context.Context, prompt string, images []Image) (string, error)
}

// Analyzer produces a report from the user's details and captured images.
type Analyzer interface {
	Analyze(ctx context.Context, user models.UserInfo, images []models.CapturedImage) (models.BodyReport, error)
}

// Gateway implements Analyzer on top of a Generator.
type Gateway struct {
	gen     Generator
	timeout time.Duration
	now     func() time.Time
}

func NewGateway(gen Generator, timeout time.Duration) *Gateway {
	return &Gateway{gen: gen, timeout: timeout, now: time.Now}
}

func (g *Gateway) Analyze(ctx context.Context, user models.UserInfo, images []models.CapturedImage) (models.BodyReport, error) {
	payloads, err := toImages(images)
	if err != nil {
		return models.BodyReport{}, &Error{Op: "encode", Err: err}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := g.now()
	text, err := g.gen.Generate(ctx, BuildPrompt(user), payloads)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.BodyReport{}, &Error{Op: "timeout", Err: ctx.Err()}
		}
		return models.BodyReport{}, &Error{Op: "request", Err: err}
	}
	log.Printf("analysis: model answered in %s (%d bytes)", g.now().Sub(start).Round(time.Millisecond), len(text))

	parsed, err := Parse(text)
	if err != nil {
		return models.BodyReport{}, &Error{Op: "parse", Err: err}
	}

	return models.BodyReport{
		ID:       uuid.NewString(),
		Date:     g.now().UTC().Format(time.RFC3339),
		UserInfo: user,
		Analysis: parsed,
	}, nil
}

// Parse decodes model output into the report shape. Markdown code fences
// are tolerated.
func Parse(text string) (models.Analysis, error) {
	var a models.Analysis
	clean := StripFences(text)
	if clean == "" {
		return a, errors.New("empty response")
	}
	// Unmarshal also rejects trailing data after the object.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return a, fmt.Errorf("decode report: %w", err)
	}
	if fields == nil {
		return a, errors.New("decode report: not an object")
	}
	for _, name := range ReportSchema().Required {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return a, fmt.Errorf("decode report: missing %q", name)
		}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return models.Analysis{}, fmt.Errorf("decode report: %w", err)
	}
	if err := a.Check(); err != nil {
		return models.Analysis{}, err
	}
	return a, nil
}

// StripFences removes a surrounding ```json block.
func StripFences(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

func toImages(images []models.CapturedImage) ([]Image, error) {
	out := make([]Image, 0, len(images))
	for _, img := range images {
		data, err := imaging.Payload(img.DataURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", img.Step, err)
		}
		out = append(out, Image{Label: img.Step.Title(), MIME: mimeOf(img.DataURL), Data: data})
	}
	return out, nil
}

func mimeOf(dataURL string) string {
	header, _, _ := strings.Cut(dataURL, ",")
	mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if mime == "" {
		return "image/jpeg"
	}
	return mime
}

// BuildPrompt renders the Korean instruction for one subject.
func BuildPrompt(user models.UserInfo) string {
	return fmt.Sprintf(`대상자 정보: 이름 %s, 성별 %s, 실제 나이 %d세.
이 사진들은 브레인 트레이닝 센터에서 실시한 신체 건강 평가 데이터입니다.
전문적인 시각에서 사진을 분석하고, 모든 진단 결과와 권장 사항을 반드시 **한국어**로 작성해 주세요.

분석 항목:
1. 자세 및 균형 (정면, 측면 사진 기반): 거북목, 어깨 불균형, 골반 틀어짐 등.
2. 노화 징후 (한발 서기, 팔 들기, 유연성 사진 기반): 신체 기능적 나이 추정.
3. 근력 상태 (스쿼트, 푸시업 자세 기반): 근육의 협응력 및 수행 능력 평가.
4. 안면 분석: 피부 탄력 및 주름 상태를 통한 생물학적 노화도 추정.

브레인 트레이닝 추천 항목 (한국어로):
- 명상 (Meditation): 신체적 긴장이나 자세 불균형을 완화할 수 있는 명상법.
- 체조 (Gymnastics): 약화된 부위를 강화하거나 틀어진 자세를 바로잡는 신체 활동.
- 뇌훈련 (Brain Training): 신체 제어 능력 향상을 돕는 인지적 훈련 과제.

응답은 반드시 지정된 구조의 JSON 형식이어야 하며, 모든 문자열 설명은 한국어여야 합니다.
각 사진 앞에는 촬영 단계 이름이 [대괄호]로 표시되어 있습니다.`, user.Name, user.Gender.Korean(), user.Age)
}
