package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/internal/pkg/middleware"
	"github.com/planflowhq/planflow/internal/pkg/planner"
)

const generatedLessonJSON = `{
	"topic": "Photosynthesis",
	"gradeLevel": "5th Grade",
	"standardsOrigin": "Common Core State Standards",
	"standards": ["5-LS1-1"],
	"learningObjectives": ["Explain how plants make food"],
	"blocks": [
		{"title": "Warm Up", "duration": 10, "content": "Quick questions about plants.", "materials": ["whiteboard"]},
		{"title": "Main Activity", "duration": 30, "content": "Leaf starch experiment.", "materials": ["leaves", "iodine"]}
	],
	"differentiation": {"strugglingStudents": "Pair work", "advancedStudents": "Design a variant"},
	"assessment": "Exit ticket"
}`

type fakeStream struct {
	chunks []string
	idx    int
	err    error
	closed bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.idx >= len(s.chunks) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	chunk := s.chunks[s.idx]
	s.idx++
	return chunk, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeGenerator struct {
	stream    *fakeStream
	streamErr error
	hooks     *planner.ViralHooks
	hooksErr  error
}

func (g *fakeGenerator) StreamLesson(ctx context.Context, prompt, state string) (planner.TokenStream, error) {
	if g.streamErr != nil {
		return nil, g.streamErr
	}
	return g.stream, nil
}

func (g *fakeGenerator) GenerateHooks(ctx context.Context, topic, grade string) (*planner.ViralHooks, error) {
	if g.hooksErr != nil {
		return nil, g.hooksErr
	}
	return g.hooks, nil
}

func installFakeGenerator(t *testing.T, g planner.Generator) {
	t.Helper()
	SetGenerator(g)
	t.Cleanup(func() { SetGenerator(nil) })
}

func chunked(s string, size int) []string {
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	return append(out, s)
}

func newGenerateApp(user *models.User) *fiber.App {
	app := fiber.New()
	app.Use(asUser(user))
	app.Post("/api/generate", middleware.RequireAPISessionAuth, HandleGenerateLesson)
	app.Post("/api/viral-hooks", HandleViralHooks)
	return app
}

func TestGenerateRequiresPrompt(t *testing.T) {
	env := installFakeRepos(t)
	user := env.users.add(&models.User{Email: "a@example.com"})
	installFakeGenerator(t, &fakeGenerator{stream: &fakeStream{}})

	resp, err := newGenerateApp(user).Test(jsonRequest(t, http.MethodPost, "/api/generate", fiber.Map{"prompt": "  "}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGenerateStreamsAndPersists(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	lesson := seedLesson(t, env, owner, "Target", time.Now())

	stream := &fakeStream{chunks: chunked(generatedLessonJSON, 24)}
	installFakeGenerator(t, &fakeGenerator{stream: stream})

	req := jsonRequest(t, http.MethodPost, "/api/generate", fiber.Map{
		"prompt":      "photosynthesis for 5th grade",
		"lesson_uuid": lesson.UUID,
	})
	resp, err := newGenerateApp(owner).Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/event-stream")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: delta")
	assert.Contains(t, string(body), "event: done")
	assert.NotContains(t, string(body), "event: error")
	assert.True(t, stream.closed)

	stored, err := env.lessons.GetByID(lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, generatedLessonJSON, stored.Content)
}

func TestGenerateFailedStreamLeavesContentUnchanged(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	lesson := seedLesson(t, env, owner, "Target", time.Now())
	require.NoError(t, env.lessons.UpdateFields(lesson.ID, map[string]interface{}{"content": `{"topic":"old"}`}))

	stream := &fakeStream{chunks: []string{`{"topic": "Half`}, err: errors.New("upstream reset")}
	installFakeGenerator(t, &fakeGenerator{stream: stream})

	req := jsonRequest(t, http.MethodPost, "/api/generate", fiber.Map{
		"prompt":      "photosynthesis",
		"lesson_uuid": lesson.UUID,
	})
	resp, err := newGenerateApp(owner).Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: error")
	assert.NotContains(t, string(body), "event: done")

	stored, err := env.lessons.GetByID(lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"old"}`, stored.Content)
}

func TestGenerateIntoLessonNeedsEditAccess(t *testing.T) {
	env := installFakeRepos(t)
	owner := env.users.add(&models.User{Email: "a@example.com"})
	stranger := env.users.add(&models.User{Email: "b@example.com"})
	lesson := seedLesson(t, env, owner, "Target", time.Now())
	installFakeGenerator(t, &fakeGenerator{stream: &fakeStream{}})

	req := jsonRequest(t, http.MethodPost, "/api/generate", fiber.Map{
		"prompt":      "photosynthesis",
		"lesson_uuid": lesson.UUID,
	})
	resp, err := newGenerateApp(stranger).Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// A grant flips the same request to streaming.
	require.NoError(t, env.shares.Create(&models.LessonShare{LessonPlanID: lesson.ID, InviteeEmail: stranger.Email}))
	installFakeGenerator(t, &fakeGenerator{stream: &fakeStream{chunks: chunked(generatedLessonJSON, 64)}})

	req = jsonRequest(t, http.MethodPost, "/api/generate", fiber.Map{
		"prompt":      "photosynthesis",
		"lesson_uuid": lesson.UUID,
	})
	resp, err = newGenerateApp(stranger).Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestViralHooksOpenEndpoint(t *testing.T) {
	installFakeRepos(t)
	installFakeGenerator(t, &fakeGenerator{hooks: &planner.ViralHooks{Hooks: []planner.ViralHook{
		{Type: "question", Content: "What if your breakfast grew itself?"},
		{Type: "fact", Content: "Plants eat sunlight. Literally."},
		{Type: "story", Content: "The quietest factory on Earth is green."},
	}}})

	app := newGenerateApp(nil)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/viral-hooks", fiber.Map{"topic": "photosynthesis", "grade": "5"}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Len(t, body["hooks"], 3)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/viral-hooks", fiber.Map{"grade": "5"}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestViralHooksUpstreamFailure(t *testing.T) {
	installFakeRepos(t)
	installFakeGenerator(t, &fakeGenerator{hooksErr: errors.New("rate limited")})

	resp, err := newGenerateApp(nil).Test(jsonRequest(t, http.MethodPost, "/api/viral-hooks", fiber.Map{"topic": "photosynthesis"}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "upstream_error", body["error"])
}
