package planner

import (
	"fmt"
	"strings"
)

const defaultStandardsFramework = "Common Core State Standards"

// StandardsFramework maps a user's stored US state to the standards body the
// generated lesson should cite. An empty state falls back to Common Core.
func StandardsFramework(state string) string {
	state = strings.TrimSpace(state)
	if state == "" {
		return defaultStandardsFramework
	}
	return fmt.Sprintf("%s State Standards", state)
}

func lessonSystemPrompt(framework string) string {
	return fmt.Sprintf(`You are an experienced curriculum designer. Create a complete, classroom-ready lesson plan from the teacher's request.

Align all standards to the %s and set "standardsOrigin" to that framework name.

Respond with a single JSON object and nothing else, using exactly this shape:
{
  "topic": string,
  "gradeLevel": string,
  "standardsOrigin": string,
  "standards": [string],
  "learningObjectives": [string],
  "blocks": [{"title": string, "duration": number, "content": string, "materials": [string]}],
  "differentiation": {"strugglingStudents": string, "advancedStudents": string},
  "assessment": string
}

Durations are minutes. Include at least three blocks covering opening, main activity and closure.`, framework)
}

func hooksSystemPrompt() string {
	return `You are a creative teaching coach. Suggest attention-grabbing lesson openers in the style of short-form viral video hooks.

Respond with a single JSON object and nothing else, using exactly this shape:
{
  "hooks": [{"type": string, "content": string, "explanation": string}]
}

Return exactly three hooks with distinct types (for example: question, challenge, story).`
}

func hooksUserPrompt(topic, grade string) string {
	if strings.TrimSpace(grade) == "" {
		return fmt.Sprintf("Topic: %s", topic)
	}
	return fmt.Sprintf("Topic: %s\nGrade level: %s", topic, grade)
}
