package identity

import (
	"errors"
	"strings"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/app/repository"
	"github.com/planflowhq/planflow/internal/pkg/entitlements"
	"github.com/planflowhq/planflow/internal/pkg/env"
)

var ErrNoIdentity = errors.New("no authenticated identity")

// ExternalIdentity is what an authentication provider hands us: a stable
// unique id and a verified email.
type ExternalIdentity struct {
	ID    string
	Email string
	Name  string
}

// EnsureUser reconciles an external identity with the local user table,
// creating the row on first observation with default tier FREE and the
// starting credit allotment. Idempotent under concurrent first-time
// requests for the same email (see UserRepository.GetOrCreateByEmail).
func EnsureUser(repo repository.UserRepository, ext ExternalIdentity) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(ext.Email))
	if email == "" {
		return nil, ErrNoIdentity
	}

	user := &models.User{
		ExternalID: ext.ID,
		Email:      email,
		Name:       ext.Name,
		Tier:       models.TIER_FREE,
		Credits:    StartingCredits(),
		Theme:      models.THEME_SYSTEM,
	}

	resolved, created, err := repo.GetOrCreateByEmail(user)
	if err != nil {
		return nil, err
	}

	// Backfill the external id link on rows that predate it.
	if !created && resolved.ExternalID == "" && ext.ID != "" {
		resolved.ExternalID = ext.ID
		_ = repo.UpdateFields(resolved.ID, map[string]interface{}{"external_id": ext.ID})
	}

	return resolved, nil
}

// StartingCredits returns the credit allotment granted to new FREE users.
func StartingCredits() int {
	return env.GetEnvInt("STARTING_CREDITS", entitlements.StartingCredits(entitlements.TierFree))
}
