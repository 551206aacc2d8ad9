package forum

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"hackerthink/models"
)

// Engine owns the forum domain logic: thread/post lifecycle,
// moderation state transitions, and notification fan-out. Persistence
// is delegated to the injected gorm gateway; every multi-step
// operation runs inside a single transaction.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// actingUser loads the full user row behind an actor. Guests get
// ErrUnauthorized. The row is needed wherever ban state matters,
// since the actor descriptor only carries id and role.
func (e *Engine) actingUser(tx *gorm.DB, actor Actor) (*models.User, error) {
	if actor.ID == 0 {
		return nil, ErrUnauthorized
	}
	var user models.User
	if err := tx.First(&user, actor.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return &user, nil
}

func generateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if slug == "" {
		slug = "thread"
	}
	return slug
}

// uniqueSlug resolves slug collisions by appending a numeric suffix:
// my-title, my-title-2, my-title-3, ...
func uniqueSlug(tx *gorm.DB, model interface{}, title string) (string, error) {
	base := generateSlug(title)
	slug := base
	for i := 2; ; i++ {
		var count int64
		if err := tx.Model(model).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
