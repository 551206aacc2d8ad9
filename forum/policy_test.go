package forum

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hackerthink/models"
)

func TestIsEffectivelyBanned(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, IsEffectivelyBanned(&models.User{IsBanned: false}, now))
	assert.True(t, IsEffectivelyBanned(&models.User{IsBanned: true}, now), "nil expiry means permanent")
	assert.True(t, IsEffectivelyBanned(&models.User{IsBanned: true, BanExpiresAt: &future}, now))
	assert.False(t, IsEffectivelyBanned(&models.User{IsBanned: true, BanExpiresAt: &past}, now))
}

func TestCategoryAllows(t *testing.T) {
	category := &models.Category{
		ViewRole:  models.PermAll,
		PostRole:  models.PermRegistered,
		ReplyRole: models.PermModerator,
	}

	user := Actor{ID: 1, Role: models.RoleUser}
	mod := Actor{ID: 2, Role: models.RoleModerator}
	admin := Actor{ID: 3, Role: models.RoleAdmin}

	assert.True(t, CategoryAllows(Guest, category, ActionView))
	assert.False(t, CategoryAllows(Guest, category, ActionPost))

	assert.True(t, CategoryAllows(user, category, ActionPost))
	assert.False(t, CategoryAllows(user, category, ActionReply))

	assert.True(t, CategoryAllows(mod, category, ActionReply))
	// Higher ranks always satisfy lower requirements.
	assert.True(t, CategoryAllows(admin, category, ActionReply))
}

func TestActorRanks(t *testing.T) {
	assert.False(t, Guest.IsRegistered())
	assert.True(t, Actor{ID: 1, Role: models.RoleUser}.IsRegistered())
	assert.False(t, Actor{ID: 1, Role: models.RoleUser}.IsModerator())
	assert.True(t, Actor{ID: 1, Role: models.RoleModerator}.IsModerator())
	assert.False(t, Actor{ID: 1, Role: models.RoleModerator}.IsAdmin())
	assert.True(t, Actor{ID: 1, Role: models.RoleAdmin}.IsModerator())
	assert.True(t, Actor{ID: 1, Role: models.RoleAdmin}.IsAdmin())
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(ErrNotFound))
	assert.Equal(t, http.StatusForbidden, StatusCode(ErrForbidden))
	assert.Equal(t, http.StatusForbidden, StatusCode(ErrLocked))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(ErrUnauthorized))
	assert.Equal(t, http.StatusBadRequest, StatusCode(ErrInvalidReference))
	assert.Equal(t, http.StatusConflict, StatusCode(ErrAlreadyResolved))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(assert.AnError))
}
