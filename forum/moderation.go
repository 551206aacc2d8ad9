package forum

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hackerthink/models"
)

// BanUser bans a user, optionally until expiresAt (nil means
// permanent). Admins can never be banned, whoever asks. The target
// gets a moderation notification carrying the reason.
func (e *Engine) BanUser(actor Actor, targetUserID int, expiresAt *time.Time, reason string) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}
	if !actor.IsModerator() {
		return ErrForbidden
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, targetUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if target.Role == models.RoleAdmin {
			return ErrForbidden
		}

		if err := tx.Model(&target).Updates(map[string]interface{}{
			"is_banned":      true,
			"ban_expires_at": expiresAt,
		}).Error; err != nil {
			return err
		}

		note := "You have been banned from the forum"
		if expiresAt != nil {
			note = fmt.Sprintf("You have been banned from the forum until %s", expiresAt.Format(time.RFC3339))
		}
		if reason != "" {
			note += ": " + reason
		}
		n := newNotification(target.ID, ModerationPayload{Note: note}, note)
		n.CreatedAt = time.Now()
		return tx.Create(&n).Error
	})
}

// UnbanUser lifts a ban explicitly. Expired bans do not need this:
// the policy treats them as no ban on the user's next action.
func (e *Engine) UnbanUser(actor Actor, targetUserID int) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}
	if !actor.IsModerator() {
		return ErrForbidden
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, targetUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Model(&target).Updates(map[string]interface{}{
			"is_banned":      false,
			"ban_expires_at": nil,
		}).Error; err != nil {
			return err
		}

		note := "Your forum ban has been lifted"
		n := newNotification(target.ID, ModerationPayload{Note: note}, note)
		n.CreatedAt = time.Now()
		return tx.Create(&n).Error
	})
}

// FileReport files a pending report against a post.
func (e *Engine) FileReport(actor Actor, postID uint, reason string) (*models.Report, error) {
	if actor.ID == 0 {
		return nil, ErrUnauthorized
	}
	if reason == "" {
		return nil, ErrInvalidReference
	}

	var post models.Post
	if err := e.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	report := models.Report{
		PostID:    postID,
		UserID:    actor.ID,
		Reason:    reason,
		Status:    models.ReportPending,
		CreatedAt: time.Now(),
	}
	if err := e.db.Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// ResolveReport transitions a pending report to resolved or dismissed.
// Both outcomes are terminal: re-resolving fails. The reporter is told
// what happened via a moderation notification.
func (e *Engine) ResolveReport(actor Actor, reportID uint, outcome string) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}
	if !actor.IsModerator() {
		return ErrForbidden
	}
	if outcome != models.ReportResolved && outcome != models.ReportDismissed {
		return ErrInvalidReference
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		var report models.Report
		if err := tx.First(&report, reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if report.Status != models.ReportPending {
			return ErrAlreadyResolved
		}

		resolved := time.Now()
		if err := tx.Model(&report).Updates(map[string]interface{}{
			"status":      outcome,
			"resolved_at": resolved,
			"resolved_by": actor.ID,
		}).Error; err != nil {
			return err
		}

		if report.UserID == actor.ID {
			return nil // moderator resolving their own report
		}
		note := fmt.Sprintf("Your report #%d was %s", report.ID, outcome)
		n := newNotification(report.UserID, ModerationPayload{Note: note}, note)
		n.CreatedAt = time.Now()
		return tx.Create(&n).Error
	})
}

// ListReports returns reports for the moderation queue, pending first,
// newest first within each status.
func (e *Engine) ListReports(actor Actor) ([]models.Report, error) {
	if actor.ID == 0 {
		return nil, ErrUnauthorized
	}
	if !actor.IsModerator() {
		return nil, ErrForbidden
	}

	var reports []models.Report
	if err := e.db.Order("CASE status WHEN 'pending' THEN 0 ELSE 1 END, created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
