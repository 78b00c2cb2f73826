package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/internal/pkg/cache"
	"github.com/planflowhq/planflow/internal/pkg/middleware"
)

func newLessonApp(user *models.User) *fiber.App {
	app := fiber.New()
	app.Use(asUser(user))
	app.Get("/api/lessons", HandleListLessons)
	app.Post("/api/lessons", middleware.RequireAPISessionAuth, HandleCreateLesson)
	app.Patch("/api/lessons/:uuid", middleware.RequireAPISessionAuth, HandleUpdateLessonDetails)
	app.Patch("/api/lessons/:uuid/date", middleware.RequireAPISessionAuth, HandleUpdateLessonDate)
	app.Delete("/api/lessons/:uuid", middleware.RequireAPISessionAuth, HandleDeleteLesson)
	app.Get("/p/:sharelink", HandlePublicLessonView)
	return app
}

func seedLesson(t *testing.T, env *testEnv, owner *models.User, title string, date time.Time) *models.LessonPlan {
	t.Helper()
	lesson := &models.LessonPlan{
		UserID:   owner.ID,
		Title:    title,
		Grade:    "4th",
		Duration: 45,
		Date:     models.PinToMidday(date),
	}
	require.NoError(t, env.lessons.Create(lesson))
	return lesson
}

func TestCreateLessonRequiresAuth(t *testing.T) {
	installFakeRepos(t)
	app := newLessonApp(nil)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/lessons", fiber.Map{"title": "x", "date": "2025-03-10"}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateLessonPinsDateToMidday(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com", Name: "A"})
	app := newLessonApp(owner)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/lessons", fiber.Map{
		"title": "Intro to Fractions",
		"grade": "4th",
		"date":  "2025-03-10",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "2025-03-10", body["date"])
	assert.EqualValues(t, 45, body["duration"])

	var stored *models.LessonPlan
	for _, l := range env.lessons.lessons {
		stored = l
	}
	require.NotNil(t, stored)
	assert.Equal(t, 12, stored.Date.Hour())
	assert.Equal(t, 10, stored.Date.Day())
}

func TestListLessonsAnonymousIsEmpty(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	seedLesson(t, env, owner, "Hidden", time.Now())

	app := newLessonApp(nil)
	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/lessons", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Empty(t, body["lessons"])
}

func TestListLessonsIncludesSharedAndOrdersByDate(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	grantee := env.users.add(&models.User{Email: "b@example.com"})

	later := seedLesson(t, env, owner, "Later", time.Date(2025, 3, 20, 0, 0, 0, 0, time.Local))
	earlier := seedLesson(t, env, owner, "Earlier", time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local))
	require.NoError(t, env.shares.Create(&models.LessonShare{LessonPlanID: later.ID, InviteeEmail: grantee.Email}))
	_ = earlier

	app := newLessonApp(grantee)
	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/lessons", nil), -1)
	require.NoError(t, err)
	body := decodeBody(t, resp)

	lessons := body["lessons"].([]interface{})
	require.Len(t, lessons, 1)
	assert.Equal(t, "Later", lessons[0].(map[string]interface{})["title"])

	// The owner sees both, date ascending
	resp, err = newLessonApp(owner).Test(jsonRequest(t, http.MethodGet, "/api/lessons", nil), -1)
	require.NoError(t, err)
	body = decodeBody(t, resp)
	lessons = body["lessons"].([]interface{})
	require.Len(t, lessons, 2)
	assert.Equal(t, "Earlier", lessons[0].(map[string]interface{})["title"])
	assert.Equal(t, "Later", lessons[1].(map[string]interface{})["title"])
}

func TestUpdateDetailsAuthorization(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	stranger := env.users.add(&models.User{Email: "b@example.com"})
	lesson := seedLesson(t, env, owner, "Intro to Fractions", time.Now())

	update := fiber.Map{"title": "Updated Title"}

	// Not shared: Forbidden
	resp, err := newLessonApp(stranger).Test(jsonRequest(t, http.MethodPatch, "/api/lessons/"+lesson.UUID, update), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Intro to Fractions", lesson.Title)

	// Owner can edit
	resp, err = newLessonApp(owner).Test(jsonRequest(t, http.MethodPatch, "/api/lessons/"+lesson.UUID, update), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Updated Title", lesson.Title)

	// After sharing, the grantee can edit too
	require.NoError(t, env.shares.Create(&models.LessonShare{LessonPlanID: lesson.ID, InviteeEmail: stranger.Email}))
	resp, err = newLessonApp(stranger).Test(jsonRequest(t, http.MethodPatch, "/api/lessons/"+lesson.UUID, fiber.Map{"title": "Grantee Title"}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Grantee Title", lesson.Title)
}

func TestUpdateDateIsOwnerOnly(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	grantee := env.users.add(&models.User{Email: "b@example.com"})
	lesson := seedLesson(t, env, owner, "Scheduled", time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local))
	require.NoError(t, env.shares.Create(&models.LessonShare{LessonPlanID: lesson.ID, InviteeEmail: grantee.Email}))

	body := fiber.Map{"date": "2025-03-17"}

	// An EDIT grant does not allow rescheduling
	resp, err := newLessonApp(grantee).Test(jsonRequest(t, http.MethodPatch, "/api/lessons/"+lesson.UUID+"/date", body), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 10, lesson.Date.Day())

	resp, err = newLessonApp(owner).Test(jsonRequest(t, http.MethodPatch, "/api/lessons/"+lesson.UUID+"/date", body), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 17, lesson.Date.Day())
	assert.Equal(t, 12, lesson.Date.Hour())
}

func TestDeleteIsOwnerOnlyAndCascades(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	grantee := env.users.add(&models.User{Email: "b@example.com"})
	lesson := seedLesson(t, env, owner, "Doomed", time.Now())
	require.NoError(t, env.shares.Create(&models.LessonShare{LessonPlanID: lesson.ID, InviteeEmail: grantee.Email}))

	// Even an EDIT grant holder cannot delete
	resp, err := newLessonApp(grantee).Test(jsonRequest(t, http.MethodDelete, "/api/lessons/"+lesson.UUID, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = newLessonApp(owner).Test(jsonRequest(t, http.MethodDelete, "/api/lessons/"+lesson.UUID, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Empty(t, env.lessons.lessons)
	shares, err := env.shares.ListByLesson(lesson.ID)
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestPublicLessonView(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	lesson := seedLesson(t, env, owner, "Open Lesson", time.Now())

	app := newLessonApp(nil)
	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/p/"+lesson.ShareLink, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Open Lesson", body["title"])

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/p/unknownlink", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// withTestCache points the cache package at an in-process redis for the
// duration of the test.
func withTestCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Cleanup(cache.SetupCache)
	t.Setenv("CACHE_HOST", mr.Host())
	t.Setenv("CACHE_PORT", mr.Port())
	cache.SetupCache()
	return mr
}

func TestDashboardListCachedAndInvalidated(t *testing.T) {
	env := installFakeRepos(t)
	mr := withTestCache(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	lesson := seedLesson(t, env, owner, "Before", time.Now())

	app := newLessonApp(owner)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/lessons", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, mr.Exists(cache.DashboardKey(owner.ID)))

	// A repo write without invalidation stays invisible: the list is
	// served from the cached payload.
	lesson.Title = "Sneaky"
	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/lessons", nil), -1)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	lessons := body["lessons"].([]interface{})
	require.Len(t, lessons, 1)
	assert.Equal(t, "Before", lessons[0].(map[string]interface{})["title"])

	// A real update invalidates the key and the next list is fresh.
	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/api/lessons/"+lesson.UUID, fiber.Map{"title": "After"}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, mr.Exists(cache.DashboardKey(owner.ID)))

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/lessons", nil), -1)
	require.NoError(t, err)
	body = decodeBody(t, resp)
	lessons = body["lessons"].([]interface{})
	require.Len(t, lessons, 1)
	assert.Equal(t, "After", lessons[0].(map[string]interface{})["title"])
}
