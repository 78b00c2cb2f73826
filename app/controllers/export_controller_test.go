package controllers

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/internal/pkg/middleware"
)

func newExportApp(user *models.User) *fiber.App {
	app := fiber.New()
	app.Use(asUser(user))
	app.Get("/api/lessons/:uuid/export", middleware.RequireAPISessionAuth, HandleExportLesson)
	return app
}

func TestExportLessonPDF(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	lesson := seedLesson(t, env, owner, "Intro to Fractions", time.Now())

	resp, err := newExportApp(owner).Test(jsonRequest(t, http.MethodGet, "/api/lessons/"+lesson.UUID+"/export?format=pdf", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "%PDF"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	lesson := seedLesson(t, env, owner, "Intro to Fractions", time.Now())

	resp, err := newExportApp(owner).Test(jsonRequest(t, http.MethodGet, "/api/lessons/"+lesson.UUID+"/export?format=odt", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestExportNeedsAccess(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	stranger := env.users.add(&models.User{Email: "b@example.com"})
	lesson := seedLesson(t, env, owner, "Intro to Fractions", time.Now())

	resp, err := newExportApp(stranger).Test(jsonRequest(t, http.MethodGet, "/api/lessons/"+lesson.UUID+"/export", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

// Link delivery degrades to the inline attachment whenever the archive
// store is not configured.
func TestExportLinkFallsBackInlineWithoutArchive(t *testing.T) {
	env := installFakeRepos(t)
	t.Setenv("S3_EXPORT_ARCHIVE_ENABLED", "false")
	owner := env.users.add(&models.User{Email: "a@example.com"})
	lesson := seedLesson(t, env, owner, "Intro to Fractions", time.Now())

	resp, err := newExportApp(owner).Test(jsonRequest(t, http.MethodGet, "/api/lessons/"+lesson.UUID+"/export?format=pdf&delivery=link", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")
}
