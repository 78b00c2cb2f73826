package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/repository"
	"github.com/planflowhq/planflow/internal/pkg/cache"
	"github.com/planflowhq/planflow/internal/pkg/planner"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

var (
	generatorMu sync.Mutex
	generator   planner.Generator
)

// SetGenerator overrides the lesson generator. Used by tests.
func SetGenerator(g planner.Generator) {
	generatorMu.Lock()
	defer generatorMu.Unlock()
	generator = g
}

func getGenerator() (planner.Generator, error) {
	generatorMu.Lock()
	defer generatorMu.Unlock()
	if generator == nil {
		g, err := planner.NewGenerator()
		if err != nil {
			return nil, err
		}
		generator = g
	}
	return generator, nil
}

type generateLessonRequest struct {
	Prompt     string `json:"prompt"`
	LessonUUID string `json:"lesson_uuid"`
	State      string `json:"state"`
}

// HandleGenerateLesson streams an AI-generated lesson document to the
// caller as server-sent events. When a target lesson is supplied, the
// finished document is persisted into it after the stream completes
// cleanly; a persistence failure never retroactively fails the stream.
func HandleGenerateLesson(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req generateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "prompt is required")
	}

	// Resolve the target lesson up front so access failures surface as
	// normal errors instead of a broken stream.
	var lessonID uint
	var ownerID uint
	var shareLink string
	if req.LessonUUID != "" {
		lesson, editable, err := getEditableLesson(req.LessonUUID, userCtx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return jsonError(c, fiber.StatusNotFound, "not_found", "lesson not found")
			}
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load lesson")
		}
		if !editable {
			return jsonError(c, fiber.StatusForbidden, "forbidden", "you have no edit access to this lesson")
		}
		lessonID = lesson.ID
		ownerID = lesson.UserID
		shareLink = lesson.ShareLink
	}

	state := req.State
	if state == "" {
		if user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID); err == nil {
			state = user.State
		}
	}

	gen, err := getGenerator()
	if err != nil {
		log.Errorf("generator unavailable: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "upstream_error", "generation is not available")
	}

	// Deliberately not the request context: a client disconnect stops
	// delivery but must not cancel the in-flight generation, so the
	// write-back can still happen if it finishes.
	stream, err := gen.StreamLesson(context.Background(), req.Prompt, state)
	if err != nil {
		log.Errorf("generation start failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "upstream_error", "generation failed to start")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer stream.Close()

		content, raw, err := planner.Collect(stream, func(delta string) error {
			if err := writeSSE(w, "delta", fiber.Map{"delta": delta}); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			log.Errorf("lesson generation stream failed: %v", err)
			_ = writeSSE(w, "error", fiber.Map{"message": "generation failed"})
			_ = w.Flush()
			return
		}

		if lessonID != 0 {
			persistGeneratedContent(lessonID, ownerID, shareLink, raw)
		}

		_ = writeSSE(w, "done", fiber.Map{"content": json.RawMessage(raw), "topic": content.Topic})
		_ = w.Flush()
	}))

	return nil
}

// persistGeneratedContent is the best-effort write-back after a clean
// stream completion.
func persistGeneratedContent(lessonID, ownerID uint, shareLink string, raw []byte) {
	repo := repository.GetGlobalFactory().GetLessonRepository()
	if err := repo.UpdateFields(lessonID, map[string]interface{}{"content": string(raw)}); err != nil {
		log.Errorf("generated content write-back for lesson %d failed: %v", lessonID, err)
		return
	}
	cache.InvalidateLessonViews(ownerID, shareLink)
}

func writeSSE(w *bufio.Writer, event string, payload fiber.Map) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

type viralHooksRequest struct {
	Topic string `json:"topic"`
	Grade string `json:"grade"`
}

// HandleViralHooks returns three attention-grab opener suggestions. No
// authentication and no persistence; a pure pass-through to the generator.
func HandleViralHooks(c *fiber.Ctx) error {
	var req viralHooksRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if strings.TrimSpace(req.Topic) == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "topic is required")
	}

	gen, err := getGenerator()
	if err != nil {
		log.Errorf("generator unavailable: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "upstream_error", "generation is not available")
	}

	hooks, err := gen.GenerateHooks(c.Context(), req.Topic, req.Grade)
	if err != nil {
		log.Errorf("viral hook generation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "upstream_error", "generation failed")
	}

	return c.JSON(hooks)
}
