package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

func renderPDF(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(doc.Title), "", "L", false)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	meta := metaLine(doc)
	if meta != "" {
		pdf.MultiCell(0, 5, tr(meta), "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	c := doc.Content
	if c == nil {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, "This lesson has no generated content yet.", "", "L", false)
		return pdfOutput(pdf)
	}

	if len(c.Standards) > 0 {
		sectionHeading(pdf, tr, standardsHeading(c.StandardsOrigin))
		bulletList(pdf, tr, c.Standards)
	}
	if len(c.LearningObjectives) > 0 {
		sectionHeading(pdf, tr, "Learning Objectives")
		bulletList(pdf, tr, c.LearningObjectives)
	}

	for _, block := range c.Blocks {
		sectionHeading(pdf, tr, fmt.Sprintf("%s (%s)", block.Title, durationLabel(block.Duration)))
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, tr(block.Content), "", "L", false)
		if len(block.Materials) > 0 {
			pdf.Ln(1)
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, tr("Materials: "+strings.Join(block.Materials, ", ")), "", "L", false)
		}
	}

	if c.Differentiation.StrugglingStudents != "" || c.Differentiation.AdvancedStudents != "" {
		sectionHeading(pdf, tr, "Differentiation")
		pdf.SetFont("Helvetica", "", 11)
		if c.Differentiation.StrugglingStudents != "" {
			pdf.MultiCell(0, 5.5, tr("Struggling students: "+c.Differentiation.StrugglingStudents), "", "L", false)
		}
		if c.Differentiation.AdvancedStudents != "" {
			pdf.MultiCell(0, 5.5, tr("Advanced students: "+c.Differentiation.AdvancedStudents), "", "L", false)
		}
	}

	if c.Assessment != "" {
		sectionHeading(pdf, tr, "Assessment")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, tr(c.Assessment), "", "L", false)
	}

	return pdfOutput(pdf)
}

func sectionHeading(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.MultiCell(0, 7, tr(text), "", "L", false)
}

func bulletList(pdf *fpdf.Fpdf, tr func(string) string, items []string) {
	pdf.SetFont("Helvetica", "", 11)
	for _, item := range items {
		pdf.MultiCell(0, 5.5, tr("- "+item), "", "L", false)
	}
}

func metaLine(doc Document) string {
	var parts []string
	if doc.Grade != "" {
		parts = append(parts, doc.Grade)
	}
	if doc.Duration != "" {
		parts = append(parts, doc.Duration)
	}
	if doc.DateLabel != "" {
		parts = append(parts, doc.DateLabel)
	}
	return strings.Join(parts, "  |  ")
}

func standardsHeading(origin string) string {
	if origin == "" {
		return "Standards"
	}
	return "Standards (" + origin + ")"
}

func pdfOutput(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
