package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/internal/pkg/docstore"
	"github.com/planflowhq/planflow/internal/pkg/export"
	"github.com/planflowhq/planflow/internal/pkg/planner"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

const exportLinkTTL = 15 * time.Minute

// HandleExportLesson renders a lesson as PDF or DOCX and serves it as a
// download. With `delivery=link` and a configured archive store the
// document is uploaded and a short-lived download URL returned instead;
// otherwise the bytes are streamed inline and a copy is archived
// best-effort in the background.
func HandleExportLesson(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	format, err := export.ParseFormat(c.Query("format", "pdf"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	lesson, editable, err := getEditableLesson(c.Params("uuid"), userCtx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "lesson not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load lesson")
	}
	if !editable {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "you have no access to this lesson")
	}

	doc := export.Document{
		Title:     lesson.Title,
		Grade:     lesson.Grade,
		Duration:  fmt.Sprintf("%d min", lesson.Duration),
		DateLabel: lesson.Date.Format("Mon, 02 Jan 2006"),
	}
	if lesson.HasContent() {
		content, err := planner.ParseLessonContent([]byte(lesson.Content))
		if err != nil {
			// Manual edits are not schema-validated, so render what we can
			log.Warnf("lesson %s content failed schema parse on export: %v", lesson.UUID, err)
		} else {
			doc.Content = content
		}
	}

	data, err := export.Render(doc, format)
	if err != nil {
		log.Errorf("lesson export render failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not render document")
	}

	filename := export.Filename(lesson.Title, format)

	if c.Query("delivery") == "link" {
		if url, ok := presignedExport(lesson.UUID, filename, format, data); ok {
			return c.JSON(fiber.Map{
				"url":        url,
				"filename":   filename,
				"expires_in": int(exportLinkTTL.Seconds()),
			})
		}
		// Archive store disabled or unreachable; fall back to inline delivery
	}

	archiveExport(lesson.UUID, filename, format, data)

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

// presignedExport uploads the rendered document and returns a
// time-limited download URL for it.
func presignedExport(lessonUUID, filename string, format export.Format, data []byte) (string, bool) {
	cfg, err := docstore.LoadConfig()
	if err != nil || !cfg.IsEnabled() {
		return "", false
	}

	store, err := docstore.NewStore(cfg)
	if err != nil {
		log.Warnf("export link store unavailable: %v", err)
		return "", false
	}
	ctx, cancel := contextWithTimeout()
	defer cancel()
	key := cfg.ObjectKey(lessonUUID, filename, time.Now())
	if err := store.Put(ctx, key, data, format.ContentType()); err != nil {
		log.Warnf("export link upload failed: %v", err)
		return "", false
	}
	url, err := store.PresignDownload(ctx, key, filename, exportLinkTTL)
	if err != nil {
		log.Warnf("export link presign failed: %v", err)
		return "", false
	}
	return url, true
}

// archiveExport uploads a copy of the rendered document when the archive
// store is enabled. Failures only log; the download itself already
// succeeded.
func archiveExport(lessonUUID, filename string, format export.Format, data []byte) {
	cfg, err := docstore.LoadConfig()
	if err != nil || !cfg.IsEnabled() {
		return
	}

	go func() {
		store, err := docstore.NewStore(cfg)
		if err != nil {
			log.Warnf("export archive unavailable: %v", err)
			return
		}
		ctx, cancel := contextWithTimeout()
		defer cancel()
		key := cfg.ObjectKey(lessonUUID, filename, time.Now())
		if err := store.Put(ctx, key, data, format.ContentType()); err != nil {
			log.Warnf("export archive upload failed: %v", err)
		}
	}()
}
