package analysis

import "github.com/google/generative-ai-go/genai"

// ReportSchema is the structured-output contract for the report. Field
// names and the posture status enum must stay in sync with models.Analysis.
func ReportSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	num := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc}
	}
	object := func(props map[string]*genai.Schema, required ...string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
	}
	array := func(item *genai.Schema) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: item}
	}

	return object(map[string]*genai.Schema{
		"physicalAge":            num("추정 신체 나이"),
		"faceAgeEstimate":        num("추정 안면 노화 나이"),
		"overallScore":           num("100점 만점 기준 종합 점수"),
		"summary":                str("전체적인 건강 상태 요약 (한국어)"),
		"brainHealthImplication": str("신체 상태가 뇌 건강에 주는 의미 (한국어)"),
		"postureMetrics": array(object(map[string]*genai.Schema{
			"name":        str("부위명 (예: 목, 어깨, 골반 등)"),
			"status":      {Type: genai.TypeString, Enum: []string{"Good", "Fair", "Poor"}},
			"description": str("상세 분석 내용 (한국어)"),
			"score":       num(""),
		}, "name", "status", "description", "score")),
		"strengthMetrics": array(object(map[string]*genai.Schema{
			"exercise":       str("운동 명칭 (한국어)"),
			"reps":           num(""),
			"performance":    str("수행 능력 평가 (한국어)"),
			"formScore":      num(""),
			"recommendation": str("개선 권장 사항 (한국어)"),
		}, "exercise", "reps", "performance", "formScore", "recommendation")),
		"agingMetrics": array(object(map[string]*genai.Schema{
			"testName": str("테스트 명칭 (한국어)"),
			"result":   str("테스트 결과 설명 (한국어)"),
			"score":    num(""),
		}, "testName", "result", "score")),
		"faceAnalysis": object(map[string]*genai.Schema{
			"wrinkles":   str("주름 분석 (한국어)"),
			"elasticity": str("탄력 분석 (한국어)"),
			"summary":    str("안면 종합 평가 (한국어)"),
		}, "wrinkles", "elasticity", "summary"),
		"recommendations": object(map[string]*genai.Schema{
			"meditation":    str("명상 가이드 (한국어)"),
			"gymnastics":    str("체조/운동 가이드 (한국어)"),
			"brainTraining": str("인지/뇌훈련 가이드 (한국어)"),
		}, "meditation", "gymnastics", "brainTraining"),
	},
		"physicalAge", "faceAgeEstimate", "overallScore", "summary", "brainHealthImplication",
		"postureMetrics", "strengthMetrics", "agingMetrics", "faceAnalysis", "recommendations",
	)
}

// JSONSchema renders a genai schema as a plain JSON Schema document, for
// providers that take the schema as prompt text.
func JSONSchema(s *genai.Schema) map[string]any {
	out := map[string]any{}
	switch s.Type {
	case genai.TypeObject:
		out["type"] = "object"
	case genai.TypeArray:
		out["type"] = "array"
	case genai.TypeString:
		out["type"] = "string"
	case genai.TypeNumber:
		out["type"] = "number"
	case genai.TypeInteger:
		out["type"] = "integer"
	case genai.TypeBoolean:
		out["type"] = "boolean"
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = JSONSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = JSONSchema(p)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
