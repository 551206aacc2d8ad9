package forum

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"

	"hackerthink/models"
)

var (
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
	quotePattern   = regexp.MustCompile(`>>(\d+)`)
)

// fanOut computes the recipient set for a freshly created post and
// inserts one notification row per recipient, inside the caller's
// transaction. Precedence when a user qualifies more than once:
// mention > quote > reply — each recipient gets exactly one row per
// post. The author never notifies themselves.
func (e *Engine) fanOut(tx *gorm.DB, thread *models.Thread, post *models.Post, author *models.User) error {
	notified := map[int]bool{post.UserID: true}

	// Mentioned users first, in order of appearance in the content.
	for _, username := range mentionedUsernames(post.Content) {
		var user models.User
		if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // mention of a nonexistent user is just text
			}
			return err
		}
		if notified[user.ID] {
			continue
		}
		notified[user.ID] = true

		if err := tx.Create(&models.Mention{PostID: post.ID, UserID: user.ID}).Error; err != nil {
			return err
		}
		n := newNotification(user.ID, MentionPayload{PostID: post.ID},
			fmt.Sprintf("%s mentioned you in \"%s\"", author.Username, thread.Title))
		n.CreatedAt = time.Now()
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
	}

	// Authors of quoted posts (>>id references within the same thread).
	for _, quotedID := range quotedPostIDs(post.Content) {
		var quoted models.Post
		if err := tx.First(&quoted, quotedID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		if quoted.ThreadID != thread.ID || notified[quoted.UserID] {
			continue
		}
		notified[quoted.UserID] = true

		n := newNotification(quoted.UserID, QuotePayload{PostID: post.ID},
			fmt.Sprintf("%s quoted your post in \"%s\"", author.Username, thread.Title))
		n.CreatedAt = time.Now()
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
	}

	// Thread subscribers get a plain reply notification.
	var subscriptions []models.Subscription
	if err := tx.Where("thread_id = ?", thread.ID).Order("id ASC").
		Find(&subscriptions).Error; err != nil {
		return err
	}
	for _, sub := range subscriptions {
		if notified[sub.UserID] {
			continue
		}
		notified[sub.UserID] = true

		n := newNotification(sub.UserID, ReplyPayload{PostID: post.ID},
			fmt.Sprintf("%s replied in \"%s\"", author.Username, thread.Title))
		n.CreatedAt = time.Now()
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
	}

	return nil
}

func mentionedUsernames(content string) []string {
	var names []string
	seen := map[string]bool{}
	for _, match := range mentionPattern.FindAllStringSubmatch(content, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}

func quotedPostIDs(content string) []uint {
	var ids []uint
	seen := map[uint]bool{}
	for _, match := range quotePattern.FindAllStringSubmatch(content, -1) {
		id, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil {
			continue
		}
		if !seen[uint(id)] {
			seen[uint(id)] = true
			ids = append(ids, uint(id))
		}
	}
	return ids
}

// Subscribe registers the actor for new-post notifications on a
// thread. Subscribing twice is a no-op.
func (e *Engine) Subscribe(actor Actor, threadID uint) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}

	var thread models.Thread
	if err := e.db.First(&thread, threadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var existing models.Subscription
	err := e.db.Where("user_id = ? AND thread_id = ?", actor.ID, threadID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return e.db.Create(&models.Subscription{UserID: actor.ID, ThreadID: threadID}).Error
}

func (e *Engine) Unsubscribe(actor Actor, threadID uint) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}
	return e.db.Where("user_id = ? AND thread_id = ?", actor.ID, threadID).
		Delete(&models.Subscription{}).Error
}

// AddBookmark saves a thread to the actor's bookmark list. Bookmarks
// are private and never generate notifications.
func (e *Engine) AddBookmark(actor Actor, threadID uint) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}

	var thread models.Thread
	if err := e.db.First(&thread, threadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var existing models.Bookmark
	err := e.db.Where("user_id = ? AND thread_id = ?", actor.ID, threadID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return e.db.Create(&models.Bookmark{UserID: actor.ID, ThreadID: threadID}).Error
}

func (e *Engine) RemoveBookmark(actor Actor, threadID uint) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}
	return e.db.Where("user_id = ? AND thread_id = ?", actor.ID, threadID).
		Delete(&models.Bookmark{}).Error
}

// ListBookmarks returns the actor's bookmarked threads, most recently
// active first.
func (e *Engine) ListBookmarks(actor Actor) ([]models.Thread, error) {
	if actor.ID == 0 {
		return nil, ErrUnauthorized
	}

	var threads []models.Thread
	err := e.db.Table("threads").
		Joins("INNER JOIN bookmarks ON bookmarks.thread_id = threads.id").
		Where("bookmarks.user_id = ?", actor.ID).
		Order("threads.last_post_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

// LikePost records a like and notifies the post's author. Liking
// one's own post records the like but produces no notification.
// Each like bumps the author's reputation by one.
func (e *Engine) LikePost(actor Actor, postID uint) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing models.Like
		err := tx.Where("post_id = ? AND user_id = ?", postID, actor.ID).First(&existing).Error
		if err == nil {
			return nil // already liked; existence is the state
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		like := models.Like{PostID: postID, UserID: actor.ID, CreatedAt: time.Now()}
		if err := tx.Create(&like).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).Where("id = ?", post.UserID).
			Update("forum_reputation", gorm.Expr("forum_reputation + 1")).Error; err != nil {
			return err
		}

		if post.UserID == actor.ID {
			return nil // self-notification is suppressed for all types
		}

		var liker models.User
		if err := tx.First(&liker, actor.ID).Error; err != nil {
			return err
		}
		var thread models.Thread
		if err := tx.First(&thread, post.ThreadID).Error; err != nil {
			return err
		}

		n := newNotification(post.UserID, LikePayload{PostID: postID},
			fmt.Sprintf("%s liked your post in \"%s\"", liker.Username, thread.Title))
		n.CreatedAt = time.Now()
		return tx.Create(&n).Error
	})
}

// UnlikePost removes the like relation and takes the reputation point
// back. Removing a like that does not exist is a no-op.
func (e *Engine) UnlikePost(actor Actor, postID uint) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		result := tx.Where("post_id = ? AND user_id = ?", postID, actor.ID).
			Delete(&models.Like{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		return tx.Model(&models.User{}).Where("id = ?", post.UserID).
			Update("forum_reputation", gorm.Expr("forum_reputation - 1")).Error
	})
}

// ListNotifications returns the actor's notifications, newest first.
func (e *Engine) ListNotifications(actor Actor) ([]models.Notification, error) {
	if actor.ID == 0 {
		return nil, ErrUnauthorized
	}

	var notifications []models.Notification
	if err := e.db.Where("user_id = ?", actor.ID).
		Order("created_at DESC, id DESC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (e *Engine) UnreadCount(actor Actor) (int64, error) {
	if actor.ID == 0 {
		return 0, ErrUnauthorized
	}

	var count int64
	if err := e.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.ID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips is_read on a notification owned by the actor.
func (e *Engine) MarkRead(actor Actor, notificationID uint) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}

	var notification models.Notification
	if err := e.db.First(&notification, notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if notification.UserID != actor.ID {
		return ErrForbidden
	}

	return e.db.Model(&notification).Update("is_read", true).Error
}
