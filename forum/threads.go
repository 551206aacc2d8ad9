package forum

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"hackerthink/models"
)

// CreateCategory creates a forum category. Admin only.
func (e *Engine) CreateCategory(actor Actor, name, description string, parentID *int, viewRole, postRole, replyRole string) (*models.Category, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var category models.Category
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if parentID != nil {
			var parent models.Category
			if err := tx.First(&parent, *parentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
		}

		slug, err := uniqueSlug(tx, &models.Category{}, name)
		if err != nil {
			return err
		}

		category = models.Category{
			Name:        name,
			Slug:        slug,
			Description: description,
			ParentID:    parentID,
			ViewRole:    defaultPerm(viewRole, models.PermAll),
			PostRole:    defaultPerm(postRole, models.PermRegistered),
			ReplyRole:   defaultPerm(replyRole, models.PermRegistered),
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func defaultPerm(perm, fallback string) string {
	switch perm {
	case models.PermAll, models.PermRegistered, models.PermModerator:
		return perm
	}
	return fallback
}

// UpdateCategory edits name, description and permission levels. Admin only.
func (e *Engine) UpdateCategory(actor Actor, categoryID int, name, description, viewRole, postRole, replyRole string) (*models.Category, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var category models.Category
	if err := e.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if name != "" {
		category.Name = name
	}
	if description != "" {
		category.Description = description
	}
	category.ViewRole = defaultPerm(viewRole, category.ViewRole)
	category.PostRole = defaultPerm(postRole, category.PostRole)
	category.ReplyRole = defaultPerm(replyRole, category.ReplyRole)

	if err := e.db.Save(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ReorderCategory sets display_order. No renumbering of siblings is
// performed; listing breaks ties by id. Admin only.
func (e *Engine) ReorderCategory(actor Actor, categoryID, newOrder int) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	result := e.db.Model(&models.Category{}).Where("id = ?", categoryID).
		Update("display_order", newOrder)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategories returns categories the actor may view, ordered by
// display_order with id as the stable tie-break.
func (e *Engine) ListCategories(actor Actor) ([]models.Category, error) {
	var categories []models.Category
	if err := e.db.Order("display_order ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}

	visible := make([]models.Category, 0, len(categories))
	for _, cat := range categories {
		if CategoryAllows(actor, &cat, ActionView) {
			visible = append(visible, cat)
		}
	}
	return visible, nil
}

// CreateThread opens a thread and its first post atomically. The
// category's post permission gates it; banned users are rejected.
func (e *Engine) CreateThread(actor Actor, categoryID int, title, body string) (*models.Thread, error) {
	var thread models.Thread
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// Guests denied by category permission get Forbidden, not
		// Unauthorized: the actor resolved fine, the category said no.
		if !CategoryAllows(actor, &category, ActionPost) {
			return ErrForbidden
		}

		user, err := e.actingUser(tx, actor)
		if err != nil {
			return err
		}
		if IsEffectivelyBanned(user, time.Now()) {
			return ErrForbidden
		}

		slug, err := uniqueSlug(tx, &models.Thread{}, title)
		if err != nil {
			return err
		}

		created := time.Now()
		thread = models.Thread{
			CategoryID: categoryID,
			UserID:     actor.ID,
			Title:      title,
			Slug:       slug,
			CreatedAt:  created,
			LastPostAt: created,
			PostCount:  1,
		}
		if err := tx.Create(&thread).Error; err != nil {
			return err
		}

		first := models.Post{
			ThreadID:  thread.ID,
			UserID:    actor.ID,
			Content:   body,
			CreatedAt: created,
		}
		if err := tx.Create(&first).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).Where("id = ?", actor.ID).
			Update("forum_post_count", gorm.Expr("forum_post_count + 1")).Error; err != nil {
			return err
		}

		// The opening post still fans out to @mentioned users; there
		// are no subscribers yet.
		return e.fanOut(tx, &thread, &first, user)
	})
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreatePost appends a post to a thread. Insert, counter updates and
// notification fan-out commit as one unit so post_count never drifts
// from the true row count.
func (e *Engine) CreatePost(actor Actor, threadID uint, content string) (*models.Post, error) {
	var post models.Post
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var thread models.Thread
		if err := tx.First(&thread, threadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var category models.Category
		if err := tx.First(&category, thread.CategoryID).Error; err != nil {
			return err
		}

		if !CategoryAllows(actor, &category, ActionReply) {
			return ErrForbidden
		}

		if thread.IsLocked && !actor.IsModerator() {
			return ErrLocked
		}

		user, err := e.actingUser(tx, actor)
		if err != nil {
			return err
		}
		if IsEffectivelyBanned(user, time.Now()) {
			return ErrForbidden
		}

		created := time.Now()
		post = models.Post{
			ThreadID:  thread.ID,
			UserID:    actor.ID,
			Content:   content,
			CreatedAt: created,
		}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Thread{}).Where("id = ?", thread.ID).
			Updates(map[string]interface{}{
				"post_count":   gorm.Expr("post_count + 1"),
				"last_post_at": created,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).Where("id = ?", actor.ID).
			Update("forum_post_count", gorm.Expr("forum_post_count + 1")).Error; err != nil {
			return err
		}

		return e.fanOut(tx, &thread, &post, user)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// EditPost is permitted to the post's author or a moderator. Edits are
// silent: no fan-out is re-triggered.
func (e *Engine) EditPost(actor Actor, postID uint, newContent string) (*models.Post, error) {
	if actor.ID == 0 {
		return nil, ErrUnauthorized
	}

	var post models.Post
	if err := e.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if post.UserID != actor.ID && !actor.IsModerator() {
		return nil, ErrForbidden
	}

	edited := time.Now()
	post.Content = newContent
	post.IsEdited = true
	post.EditedAt = &edited

	if err := e.db.Save(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// SetLock flips the locked flag. Moderator only; no cascading effects.
func (e *Engine) SetLock(actor Actor, threadID uint, locked bool) error {
	return e.setThreadFlag(actor, threadID, "is_locked", locked)
}

// SetSticky flips the sticky flag. Moderator only; affects listing
// order only.
func (e *Engine) SetSticky(actor Actor, threadID uint, sticky bool) error {
	return e.setThreadFlag(actor, threadID, "is_sticky", sticky)
}

func (e *Engine) setThreadFlag(actor Actor, threadID uint, column string, value bool) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}
	if !actor.IsModerator() {
		return ErrForbidden
	}

	result := e.db.Model(&models.Thread{}).Where("id = ?", threadID).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSolved marks or unmarks a thread as solved. Only the thread's
// original creator may do this; moderator role does not substitute.
// When solving, solvedPostID must reference a post of this thread.
func (e *Engine) SetSolved(actor Actor, threadID uint, solved bool, solvedPostID *uint) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		var thread models.Thread
		if err := tx.First(&thread, threadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if thread.UserID != actor.ID {
			return ErrForbidden
		}

		if !solved {
			// Unsolving always clears the reference, whatever was passed.
			return tx.Model(&thread).Updates(map[string]interface{}{
				"is_solved":      false,
				"solved_post_id": nil,
			}).Error
		}

		updates := map[string]interface{}{"is_solved": true}
		if solvedPostID != nil {
			var post models.Post
			if err := tx.First(&post, *solvedPostID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvalidReference
				}
				return err
			}
			if post.ThreadID != thread.ID {
				return ErrInvalidReference
			}
			updates["solved_post_id"] = *solvedPostID
		}
		return tx.Model(&thread).Updates(updates).Error
	})
}

// ListThreads returns a category's threads, sticky first, then most
// recently active, id as the stable tie-break.
func (e *Engine) ListThreads(actor Actor, categoryID int) ([]models.Thread, error) {
	var category models.Category
	if err := e.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !CategoryAllows(actor, &category, ActionView) {
		return nil, ErrForbidden
	}

	var threads []models.Thread
	if err := e.db.Where("category_id = ?", categoryID).
		Order("is_sticky DESC, last_post_at DESC, id ASC").
		Find(&threads).Error; err != nil {
		return nil, err
	}
	return threads, nil
}

// GetThread loads a thread and bumps its view counter.
func (e *Engine) GetThread(actor Actor, threadID uint) (*models.Thread, error) {
	var thread models.Thread
	if err := e.db.First(&thread, threadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var category models.Category
	if err := e.db.First(&category, thread.CategoryID).Error; err != nil {
		return nil, err
	}
	if !CategoryAllows(actor, &category, ActionView) {
		return nil, ErrForbidden
	}

	if err := e.db.Model(&thread).Update("views", gorm.Expr("views + 1")).Error; err != nil {
		return nil, err
	}
	thread.Views++
	return &thread, nil
}

// ListPosts returns a thread's posts in creation order.
func (e *Engine) ListPosts(actor Actor, threadID uint) ([]models.Post, error) {
	var thread models.Thread
	if err := e.db.First(&thread, threadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var category models.Category
	if err := e.db.First(&category, thread.CategoryID).Error; err != nil {
		return nil, err
	}
	if !CategoryAllows(actor, &category, ActionView) {
		return nil, ErrForbidden
	}

	var posts []models.Post
	if err := e.db.Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
