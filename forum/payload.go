package forum

import "hackerthink/models"

// NotificationPayload is the typed view of a notification row.
// Consumers switch over the concrete types instead of trusting the
// raw type string plus an untyped reference id.
type NotificationPayload interface {
	notifType() string
}

type ReplyPayload struct {
	PostID uint `json:"post_id"`
}

type MentionPayload struct {
	PostID uint `json:"post_id"`
}

type LikePayload struct {
	PostID uint `json:"post_id"`
}

type QuotePayload struct {
	PostID uint `json:"post_id"`
}

type ModerationPayload struct {
	Note string `json:"note"`
}

func (ReplyPayload) notifType() string      { return models.NotifyReply }
func (MentionPayload) notifType() string    { return models.NotifyMention }
func (LikePayload) notifType() string       { return models.NotifyLike }
func (QuotePayload) notifType() string      { return models.NotifyQuote }
func (ModerationPayload) notifType() string { return models.NotifyModeration }

// Payload reconstructs the typed payload of a stored notification.
// Rows with a type this code does not know yield nil; callers treat
// that as moderation-note-only content.
func Payload(n *models.Notification) NotificationPayload {
	switch n.Type {
	case models.NotifyReply:
		if n.PostID != nil {
			return ReplyPayload{PostID: *n.PostID}
		}
	case models.NotifyMention:
		if n.PostID != nil {
			return MentionPayload{PostID: *n.PostID}
		}
	case models.NotifyLike:
		if n.PostID != nil {
			return LikePayload{PostID: *n.PostID}
		}
	case models.NotifyQuote:
		if n.PostID != nil {
			return QuotePayload{PostID: *n.PostID}
		}
	case models.NotifyModeration:
		return ModerationPayload{Note: n.Message}
	}
	return nil
}

// newNotification builds the storable row for a payload.
func newNotification(recipient int, payload NotificationPayload, message string) models.Notification {
	n := models.Notification{
		UserID:  recipient,
		Type:    payload.notifType(),
		Message: message,
	}
	switch p := payload.(type) {
	case ReplyPayload:
		n.PostID = &p.PostID
	case MentionPayload:
		n.PostID = &p.PostID
	case LikePayload:
		n.PostID = &p.PostID
	case QuotePayload:
		n.PostID = &p.PostID
	}
	return n
}
