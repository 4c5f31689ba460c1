package models

import (
	"fmt"
	"strings"
)

const (
	MinAge = 5
	MaxAge = 100
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Korean returns the label used in prompts and printed reports.
func (g Gender) Korean() string {
	switch g {
	case GenderMale:
		return "남성"
	case GenderFemale:
		return "여성"
	default:
		return "기타"
	}
}

// UserInfo is collected once per session before the first capture.
type UserInfo struct {
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
	Age    int    `json:"age"`
}

// ValidationError reports a user-info field that blocks submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate normalises the name and checks every field.
func (u *UserInfo) Validate() error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return &ValidationError{Field: "name", Message: "이름을 입력해 주세요."}
	}
	if !u.Gender.Valid() {
		return &ValidationError{Field: "gender", Message: fmt.Sprintf("unsupported gender %q", u.Gender)}
	}
	if u.Age < MinAge || u.Age > MaxAge {
		return &ValidationError{Field: "age", Message: fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge)}
	}
	return nil
}
