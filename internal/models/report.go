package models

import (
	"errors"
	"fmt"
	"strings"
)

// CapturedImage is one frame taken on a camera step. DataURL holds a
// base64 JPEG payload ("data:image/jpeg;base64,...").
type CapturedImage struct {
	Step     Step   `json:"step"`
	DataURL  string `json:"dataUrl"`
	Reps     *int   `json:"reps,omitempty"`
	Duration *int   `json:"duration,omitempty"`
}

type PostureStatus string

const (
	PostureGood PostureStatus = "Good"
	PostureFair PostureStatus = "Fair"
	PosturePoor PostureStatus = "Poor"
)

func (s PostureStatus) Valid() bool {
	switch s {
	case PostureGood, PostureFair, PosturePoor:
		return true
	}
	return false
}

type PostureMetric struct {
	Name        string        `json:"name"`
	Status      PostureStatus `json:"status"`
	Description string        `json:"description"`
	Score       float64       `json:"score"`
}

type StrengthMetric struct {
	Exercise       string  `json:"exercise"`
	Reps           float64 `json:"reps"`
	Performance    string  `json:"performance"`
	FormScore      float64 `json:"formScore"`
	Recommendation string  `json:"recommendation"`
}

type AgingMetric struct {
	TestName string  `json:"testName"`
	Result   string  `json:"result"`
	Score    float64 `json:"score"`
}

type FaceAnalysis struct {
	Wrinkles   string `json:"wrinkles"`
	Elasticity string `json:"elasticity"`
	Summary    string `json:"summary"`
}

type Recommendations struct {
	Meditation    string `json:"meditation"`
	Gymnastics    string `json:"gymnastics"`
	BrainTraining string `json:"brainTraining"`
}

// Analysis is the part of a report produced by the model.
type Analysis struct {
	PhysicalAge            float64          `json:"physicalAge"`
	FaceAgeEstimate        float64          `json:"faceAgeEstimate"`
	OverallScore           float64          `json:"overallScore"`
	PostureMetrics         []PostureMetric  `json:"postureMetrics"`
	StrengthMetrics        []StrengthMetric `json:"strengthMetrics"`
	AgingMetrics           []AgingMetric    `json:"agingMetrics"`
	FaceAnalysis           FaceAnalysis     `json:"faceAnalysis"`
	Summary                string           `json:"summary"`
	BrainHealthImplication string           `json:"brainHealthImplication"`
	Recommendations        Recommendations  `json:"recommendations"`
}

// Check rejects analyses that are missing report content or whose
// posture statuses fall outside the enum.
func (a *Analysis) Check() error {
	if len(a.PostureMetrics) == 0 {
		return errors.New("postureMetrics: empty")
	}
	for i, m := range a.PostureMetrics {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("postureMetrics[%d]: missing name", i)
		}
		if !m.Status.Valid() {
			return fmt.Errorf("postureMetrics[%d]: invalid status %q", i, m.Status)
		}
	}
	if len(a.StrengthMetrics) == 0 {
		return errors.New("strengthMetrics: empty")
	}
	for i, m := range a.StrengthMetrics {
		if strings.TrimSpace(m.Exercise) == "" {
			return fmt.Errorf("strengthMetrics[%d]: missing exercise", i)
		}
	}
	if len(a.AgingMetrics) == 0 {
		return errors.New("agingMetrics: empty")
	}
	for i, m := range a.AgingMetrics {
		if strings.TrimSpace(m.TestName) == "" {
			return fmt.Errorf("agingMetrics[%d]: missing testName", i)
		}
	}
	texts := []struct {
		field, value string
	}{
		{"summary", a.Summary},
		{"brainHealthImplication", a.BrainHealthImplication},
		{"faceAnalysis.wrinkles", a.FaceAnalysis.Wrinkles},
		{"faceAnalysis.elasticity", a.FaceAnalysis.Elasticity},
		{"faceAnalysis.summary", a.FaceAnalysis.Summary},
		{"recommendations.meditation", a.Recommendations.Meditation},
		{"recommendations.gymnastics", a.Recommendations.Gymnastics},
		{"recommendations.brainTraining", a.Recommendations.BrainTraining},
	}
	for _, t := range texts {
		if strings.TrimSpace(t.value) == "" {
			return fmt.Errorf("%s: empty", t.field)
		}
	}
	return nil
}

// BodyReport is a finished assessment. It always carries the UserInfo that
// produced it.
type BodyReport struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"`
	UserInfo UserInfo `json:"userInfo"`
	Analysis
}

// MemberRecord is the durable unit of the history list. Images are the
// storage-sized copies.
type MemberRecord struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	LastTestDate string          `json:"lastTestDate"`
	Report       BodyReport      `json:"report"`
	Images       []CapturedImage `json:"images"`
}
