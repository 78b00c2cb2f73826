package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/app/repository"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

// In-memory repository fakes so handlers can be exercised without MySQL.

type memUserRepo struct {
	users   map[uint]*models.User
	updates map[uint]map[string]interface{}
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uint]*models.User{}, updates: map[uint]map[string]interface{}{}}
}

// IDs stay unique across tests so per-user cache keys never collide.
var fakeUserIDSeq atomic.Uint64

func (r *memUserRepo) add(u *models.User) *models.User {
	if u.ID == 0 {
		u.ID = uint(fakeUserIDSeq.Add(1))
	}
	r.users[u.ID] = u
	return u
}

func (r *memUserRepo) Create(user *models.User) error {
	r.add(user)
	return nil
}

func (r *memUserRepo) GetByID(id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByResetToken(token string) (*models.User, error) {
	for _, u := range r.users {
		if u.ResetToken == token && token != "" {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetOrCreateByEmail(user *models.User) (*models.User, bool, error) {
	if existing, err := r.GetByEmail(user.Email); err == nil {
		return existing, false, nil
	}
	r.add(user)
	return user, true, nil
}

func (r *memUserRepo) Update(user *models.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) UpdateFields(id uint, fields map[string]interface{}) error {
	r.updates[id] = fields
	return nil
}

func (r *memUserRepo) Count() (int64, error) { return int64(len(r.users)), nil }

type memLessonRepo struct {
	lessons map[uint]*models.LessonPlan
	shares  *memShareRepo
	nextID  uint
}

func newMemLessonRepo(shares *memShareRepo) *memLessonRepo {
	return &memLessonRepo{lessons: map[uint]*models.LessonPlan{}, shares: shares, nextID: 1}
}

func (r *memLessonRepo) Create(lesson *models.LessonPlan) error {
	lesson.ID = r.nextID
	r.nextID++
	if lesson.UUID == "" {
		lesson.UUID = uuid.New().String()
	}
	if lesson.ShareLink == "" {
		lesson.ShareLink = uuid.New().String()[:10]
	}
	lesson.CreatedAt = time.Now()
	r.lessons[lesson.ID] = lesson
	return nil
}

func (r *memLessonRepo) GetByID(id uint) (*models.LessonPlan, error) {
	if l, ok := r.lessons[id]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memLessonRepo) GetByUUID(u string) (*models.LessonPlan, error) {
	for _, l := range r.lessons {
		if l.UUID == u {
			return l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memLessonRepo) GetByShareLink(shareLink string) (*models.LessonPlan, error) {
	for _, l := range r.lessons {
		if l.ShareLink == shareLink {
			return l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memLessonRepo) GetOwned(u string, ownerID uint) (*models.LessonPlan, error) {
	lesson, err := r.GetByUUID(u)
	if err != nil || lesson.UserID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return lesson, nil
}

func (r *memLessonRepo) ListAccessible(userID uint, email string) ([]models.LessonPlan, error) {
	var out []models.LessonPlan
	for _, l := range r.lessons {
		if l.UserID == userID {
			out = append(out, *l)
			continue
		}
		if share, err := r.shares.GetByLessonAndEmail(l.ID, email); err == nil && share.AllowsEdit() {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memLessonRepo) applyFields(id uint, fields map[string]interface{}) error {
	l, ok := r.lessons[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "title":
			l.Title = v.(string)
		case "grade":
			l.Grade = v.(string)
		case "duration":
			l.Duration = v.(int)
		case "start_time":
			l.StartTime = v.(string)
		case "content":
			l.Content = v.(string)
		case "date":
			l.Date = v.(time.Time)
		}
	}
	return nil
}

func (r *memLessonRepo) UpdateDate(id uint, fields map[string]interface{}) error {
	return r.applyFields(id, fields)
}

func (r *memLessonRepo) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.applyFields(id, fields)
}

func (r *memLessonRepo) Delete(id uint) error {
	if _, ok := r.lessons[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.lessons, id)
	return r.shares.DeleteByLesson(id)
}

func (r *memLessonRepo) CountByUserID(userID uint) (int64, error) {
	var n int64
	for _, l := range r.lessons {
		if l.UserID == userID {
			n++
		}
	}
	return n, nil
}

type memShareRepo struct {
	shares []*models.LessonShare
	nextID uint
}

func newMemShareRepo() *memShareRepo { return &memShareRepo{nextID: 1} }

func (r *memShareRepo) Create(share *models.LessonShare) error {
	email := strings.ToLower(share.InviteeEmail)
	for _, s := range r.shares {
		if s.LessonPlanID == share.LessonPlanID && s.InviteeEmail == email {
			return nil
		}
	}
	share.ID = r.nextID
	r.nextID++
	share.InviteeEmail = email
	if share.Permission == "" {
		share.Permission = models.SharePermissionEdit
	}
	r.shares = append(r.shares, share)
	return nil
}

func (r *memShareRepo) GetByLessonAndEmail(lessonID uint, email string) (*models.LessonShare, error) {
	for _, s := range r.shares {
		if s.LessonPlanID == lessonID && s.InviteeEmail == strings.ToLower(email) {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memShareRepo) ListByLesson(lessonID uint) ([]models.LessonShare, error) {
	var out []models.LessonShare
	for _, s := range r.shares {
		if s.LessonPlanID == lessonID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memShareRepo) DeleteByLesson(lessonID uint) error {
	kept := r.shares[:0]
	for _, s := range r.shares {
		if s.LessonPlanID != lessonID {
			kept = append(kept, s)
		}
	}
	r.shares = kept
	return nil
}

type memNewsletterRepo struct {
	emails map[string]bool
}

func newMemNewsletterRepo() *memNewsletterRepo { return &memNewsletterRepo{emails: map[string]bool{}} }

func (r *memNewsletterRepo) CreateIfNotExists(sub *models.NewsletterSubscriber) (bool, error) {
	if r.emails[sub.Email] {
		return false, nil
	}
	r.emails[sub.Email] = true
	return true, nil
}

func (r *memNewsletterRepo) Count() (int64, error) { return int64(len(r.emails)), nil }

type testEnv struct {
	users      *memUserRepo
	lessons    *memLessonRepo
	shares     *memShareRepo
	newsletter *memNewsletterRepo
}

func installFakeRepos(t *testing.T) *testEnv {
	t.Helper()
	shares := newMemShareRepo()
	env := &testEnv{
		users:      newMemUserRepo(),
		lessons:    newMemLessonRepo(shares),
		shares:     shares,
		newsletter: newMemNewsletterRepo(),
	}
	repository.SetGlobalRepositories(&repository.Repositories{
		User:       env.users,
		Lesson:     env.lessons,
		Share:      shares,
		Newsletter: env.newsletter,
	})
	return env
}

// asUser simulates the resolved session identity for a request.
func asUser(user *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("USER_CONTEXT", usercontext.UserContext{
				UserID:     user.ID,
				Email:      user.Email,
				Username:   user.Name,
				Tier:       user.Tier,
				IsLoggedIn: true,
			})
			c.Locals(usercontext.KeyFromProtected, true)
		} else {
			c.Locals(usercontext.KeyFromProtected, false)
		}
		return c.Next()
	}
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
