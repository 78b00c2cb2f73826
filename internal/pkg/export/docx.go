package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Minimal WordprocessingML package: content types, package rels and a single
// document part. Word and LibreOffice both accept this shape.

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxPackageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

func renderDOCX(doc Document) ([]byte, error) {
	var body strings.Builder
	writeDocxParagraph(&body, doc.Title, docxStyleTitle)
	if meta := metaLine(doc); meta != "" {
		writeDocxParagraph(&body, meta, docxStyleMeta)
	}

	c := doc.Content
	if c == nil {
		writeDocxParagraph(&body, "This lesson has no generated content yet.", docxStyleBody)
	} else {
		if len(c.Standards) > 0 {
			writeDocxParagraph(&body, standardsHeading(c.StandardsOrigin), docxStyleHeading)
			for _, s := range c.Standards {
				writeDocxParagraph(&body, "- "+s, docxStyleBody)
			}
		}
		if len(c.LearningObjectives) > 0 {
			writeDocxParagraph(&body, "Learning Objectives", docxStyleHeading)
			for _, o := range c.LearningObjectives {
				writeDocxParagraph(&body, "- "+o, docxStyleBody)
			}
		}
		for _, block := range c.Blocks {
			writeDocxParagraph(&body, fmt.Sprintf("%s (%s)", block.Title, durationLabel(block.Duration)), docxStyleHeading)
			writeDocxParagraph(&body, block.Content, docxStyleBody)
			if len(block.Materials) > 0 {
				writeDocxParagraph(&body, "Materials: "+strings.Join(block.Materials, ", "), docxStyleMeta)
			}
		}
		if c.Differentiation.StrugglingStudents != "" || c.Differentiation.AdvancedStudents != "" {
			writeDocxParagraph(&body, "Differentiation", docxStyleHeading)
			if c.Differentiation.StrugglingStudents != "" {
				writeDocxParagraph(&body, "Struggling students: "+c.Differentiation.StrugglingStudents, docxStyleBody)
			}
			if c.Differentiation.AdvancedStudents != "" {
				writeDocxParagraph(&body, "Advanced students: "+c.Differentiation.AdvancedStudents, docxStyleBody)
			}
		}
		if c.Assessment != "" {
			writeDocxParagraph(&body, "Assessment", docxStyleHeading)
			writeDocxParagraph(&body, c.Assessment, docxStyleBody)
		}
	}

	document := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>%s<w:sectPr/></w:body>
</w:document>`, body.String())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxPackageRels},
		{"word/document.xml", document},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("render docx: %w", err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("render docx: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	return buf.Bytes(), nil
}

type docxStyle int

const (
	docxStyleBody docxStyle = iota
	docxStyleTitle
	docxStyleHeading
	docxStyleMeta
)

func writeDocxParagraph(b *strings.Builder, text string, style docxStyle) {
	b.WriteString("<w:p>")
	var props string
	switch style {
	case docxStyleTitle:
		props = `<w:rPr><w:b/><w:sz w:val="48"/></w:rPr>`
	case docxStyleHeading:
		props = `<w:rPr><w:b/><w:sz w:val="28"/></w:rPr>`
	case docxStyleMeta:
		props = `<w:rPr><w:i/><w:color w:val="5A5A5A"/></w:rPr>`
	}
	// Split on newlines so multi-line block content survives as soft breaks.
	lines := strings.Split(text, "\n")
	b.WriteString("<w:r>")
	b.WriteString(props)
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		xml.EscapeText(b, []byte(line))
		b.WriteString("</w:t>")
	}
	b.WriteString("</w:r></w:p>")
}
