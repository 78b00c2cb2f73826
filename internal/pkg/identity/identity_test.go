package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	updates map[uint]map[string]interface{}
	creates int
	nextID  uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: map[string]*models.User{},
		updates: map[uint]map[string]interface{}{},
		nextID:  1,
	}
}

func (r *fakeUserRepo) Create(user *models.User) error {
	user.ID = r.nextID
	r.nextID++
	r.byEmail[user.Email] = user
	r.creates++
	return nil
}

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByResetToken(token string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetOrCreateByEmail(user *models.User) (*models.User, bool, error) {
	if existing, ok := r.byEmail[user.Email]; ok {
		return existing, false, nil
	}
	if err := r.Create(user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) UpdateFields(id uint, fields map[string]interface{}) error {
	r.updates[id] = fields
	return nil
}

func (r *fakeUserRepo) Count() (int64, error) {
	return int64(len(r.byEmail)), nil
}

func TestEnsureUserCreatesOnFirstObservation(t *testing.T) {
	repo := newFakeUserRepo()

	user, err := EnsureUser(repo, ExternalIdentity{ID: "ext-1", Email: "New.Teacher@Example.COM", Name: "New Teacher"})
	require.NoError(t, err)

	assert.Equal(t, "new.teacher@example.com", user.Email)
	assert.Equal(t, models.TIER_FREE, user.Tier)
	assert.Equal(t, StartingCredits(), user.Credits)
	assert.Equal(t, models.THEME_SYSTEM, user.Theme)
	assert.Equal(t, 1, repo.creates)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	repo := newFakeUserRepo()

	first, err := EnsureUser(repo, ExternalIdentity{ID: "ext-1", Email: "teacher@example.com"})
	require.NoError(t, err)
	second, err := EnsureUser(repo, ExternalIdentity{ID: "ext-1", Email: "teacher@example.com"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.creates)
}

func TestEnsureUserBackfillsExternalID(t *testing.T) {
	repo := newFakeUserRepo()
	repo.byEmail["teacher@example.com"] = &models.User{ID: 9, Email: "teacher@example.com"}

	user, err := EnsureUser(repo, ExternalIdentity{ID: "ext-9", Email: "teacher@example.com"})
	require.NoError(t, err)

	assert.Equal(t, uint(9), user.ID)
	assert.Equal(t, "ext-9", repo.updates[9]["external_id"])
	assert.Equal(t, 0, repo.creates)
}

func TestEnsureUserRequiresEmail(t *testing.T) {
	_, err := EnsureUser(newFakeUserRepo(), ExternalIdentity{ID: "ext-1"})
	assert.ErrorIs(t, err, ErrNoIdentity)
}
