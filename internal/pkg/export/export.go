package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/planflowhq/planflow/internal/pkg/planner"
)

// Format identifies a supported download format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/pdf"
	}
}

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatDOCX:
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Document is the renderer input: the lesson metadata plus its structured
// content.
type Document struct {
	Title     string
	Grade     string
	Duration  string
	DateLabel string
	Content   *planner.LessonContent
}

// Render produces the document bytes for the requested format.
func Render(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatDOCX:
		return renderDOCX(doc)
	default:
		return renderPDF(doc)
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Filename builds a safe attachment name from the lesson title.
func Filename(title string, format Format) string {
	base := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(title), "-")
	base = strings.Trim(base, "-.")
	if base == "" {
		base = "lesson-plan"
	}
	return fmt.Sprintf("%s.%s", base, format)
}

func durationLabel(minutes int) string {
	return fmt.Sprintf("%d min", minutes)
}
