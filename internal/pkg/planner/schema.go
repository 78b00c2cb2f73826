package planner

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// LessonBlock is one chronological section of a lesson.
type LessonBlock struct {
	Title     string   `json:"title" validate:"required"`
	Duration  int      `json:"duration" validate:"gte=0"`
	Content   string   `json:"content" validate:"required"`
	Materials []string `json:"materials"`
}

// Differentiation carries per-audience teaching strategies.
type Differentiation struct {
	StrugglingStudents string `json:"strugglingStudents"`
	AdvancedStudents   string `json:"advancedStudents"`
}

// LessonContent is the structured lesson document. It is the schema the
// generation collaborator must conform to and the shape stored in
// LessonPlan.Content. Manual edits are not re-validated against it; the
// generation path is.
type LessonContent struct {
	Topic              string          `json:"topic" validate:"required"`
	GradeLevel         string          `json:"gradeLevel"`
	StandardsOrigin    string          `json:"standardsOrigin"`
	Standards          []string        `json:"standards"`
	LearningObjectives []string        `json:"learningObjectives"`
	Blocks             []LessonBlock   `json:"blocks" validate:"required,min=1,dive"`
	Differentiation    Differentiation `json:"differentiation"`
	Assessment         string          `json:"assessment"`
}

// ViralHook is one attention-grab opener suggestion.
type ViralHook struct {
	Type        string `json:"type" validate:"required"`
	Content     string `json:"content" validate:"required"`
	Explanation string `json:"explanation"`
}

// ViralHooks is the synchronous ideation response: always exactly three
// variants.
type ViralHooks struct {
	Hooks []ViralHook `json:"hooks" validate:"required,len=3,dive"`
}

var validate = validator.New()

// ParseLessonContent decodes and schema-validates a generated document.
func ParseLessonContent(raw []byte) (*LessonContent, error) {
	var content LessonContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("generated document is not valid JSON: %w", err)
	}
	if err := validate.Struct(&content); err != nil {
		return nil, fmt.Errorf("generated document failed schema validation: %w", err)
	}
	return &content, nil
}

// ParseViralHooks decodes and validates a hook ideation response.
func ParseViralHooks(raw []byte) (*ViralHooks, error) {
	var hooks ViralHooks
	if err := json.Unmarshal(raw, &hooks); err != nil {
		return nil, fmt.Errorf("hook response is not valid JSON: %w", err)
	}
	if err := validate.Struct(&hooks); err != nil {
		return nil, fmt.Errorf("hook response failed validation: %w", err)
	}
	return &hooks, nil
}
