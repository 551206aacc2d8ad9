package models

import "time"

// Role values stored on users. Guests are the absence of a session,
// so they never appear in this column.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Category permission levels. Each category carries the minimum level
// required to view it, open threads in it, and reply in it.
const (
	PermAll        = "all"
	PermRegistered = "registered"
	PermModerator  = "moderator"
)

type User struct {
	ID                     int        `gorm:"primary_key;autoIncrement" json:"id"`
	Username               string     `gorm:"unique;not null;index" json:"username"`
	Email                  string     `gorm:"unique;not null" json:"email"`
	PasswordHash           string     `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	Role                   string     `gorm:"not null;default:'user';index" json:"role"`
	EmailVerified          bool       `gorm:"default:false" json:"email_verified"`
	EmailVerificationToken string     `json:"-"`
	IsBanned               bool       `gorm:"default:false" json:"is_banned"`
	BanExpiresAt           *time.Time `json:"ban_expires_at,omitempty"` // nil with IsBanned=true means permanent
	ForumReputation        int        `gorm:"default:0" json:"forum_reputation"`
	ForumPostCount         int        `gorm:"default:0" json:"forum_post_count"`
	CreatedAt              time.Time  `json:"created_at"`
}

type Category struct {
	ID           int    `gorm:"primary_key;autoIncrement" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Slug         string `gorm:"unique;not null;index" json:"slug"`
	Description  string `gorm:"type:text" json:"description"`
	ParentID     *int   `gorm:"index" json:"parent_id,omitempty"` // nullable self-reference for nesting
	DisplayOrder int    `gorm:"default:0;index" json:"display_order"`
	ViewRole     string `gorm:"not null;default:'all'" json:"view_role"`
	PostRole     string `gorm:"not null;default:'registered'" json:"post_role"`
	ReplyRole    string `gorm:"not null;default:'registered'" json:"reply_role"`
}

type Thread struct {
	ID           uint       `gorm:"primary_key" json:"id"`
	CategoryID   int        `gorm:"not null;index" json:"category_id"`
	UserID       int        `gorm:"not null;index" json:"user_id"` // creator, immutable
	Title        string     `gorm:"not null" json:"title"`
	Slug         string     `gorm:"unique;not null;index" json:"slug"`
	CreatedAt    time.Time  `json:"created_at"`
	LastPostAt   time.Time  `gorm:"index" json:"last_post_at"`
	Views        int        `gorm:"default:0" json:"views"`
	PostCount    int        `gorm:"default:0" json:"post_count"` // must equal count of posts in the thread
	IsLocked     bool       `gorm:"default:false" json:"is_locked"`
	IsSticky     bool       `gorm:"default:false;index" json:"is_sticky"`
	IsSolved     bool       `gorm:"default:false" json:"is_solved"`
	SolvedPostID *uint      `json:"solved_post_id,omitempty"` // non-nil implies IsSolved
}

type Post struct {
	ID        uint       `gorm:"primary_key" json:"id"`
	ThreadID  uint       `gorm:"not null;index" json:"thread_id"` // immutable after creation
	UserID    int        `gorm:"not null;index" json:"user_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	IsEdited  bool       `gorm:"default:false" json:"is_edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// Subscription means the user receives a notification for every new
// post in the thread.
type Subscription struct {
	ID       uint `gorm:"primary_key" json:"id"`
	UserID   int  `gorm:"not null;uniqueIndex:idx_sub_user_thread" json:"user_id"`
	ThreadID uint `gorm:"not null;uniqueIndex:idx_sub_user_thread;index" json:"thread_id"`
}

// Bookmark is a private saved-thread marker; unlike Subscription it
// generates no notifications.
type Bookmark struct {
	ID       uint `gorm:"primary_key" json:"id"`
	UserID   int  `gorm:"not null;uniqueIndex:idx_bm_user_thread" json:"user_id"`
	ThreadID uint `gorm:"not null;uniqueIndex:idx_bm_user_thread" json:"thread_id"`
}

// Notification type values.
const (
	NotifyReply      = "reply"
	NotifyMention    = "mention"
	NotifyLike       = "like"
	NotifyQuote      = "quote"
	NotifyModeration = "moderation"
)

type Notification struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"` // recipient
	Type      string    `gorm:"not null" json:"type"`
	PostID    *uint     `gorm:"index" json:"post_id,omitempty"` // set for reply/mention/like/quote
	Message   string    `gorm:"type:text" json:"message"`
	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Mention records which users a post @-mentioned, written together
// with the mention notifications at fan-out time.
type Mention struct {
	ID     uint `gorm:"primary_key" json:"id"`
	PostID uint `gorm:"not null;uniqueIndex:idx_mention_post_user" json:"post_id"`
	UserID int  `gorm:"not null;uniqueIndex:idx_mention_post_user;index" json:"user_id"`
}

// Like is a relation, not an owned entity: the pair either exists or
// it does not.
type Like struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    int       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Report status values. A report is terminal once resolved or dismissed.
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

type Report struct {
	ID         uint       `gorm:"primary_key" json:"id"`
	PostID     uint       `gorm:"not null;index" json:"post_id"`
	UserID     int        `gorm:"not null;index" json:"user_id"` // reporter
	Reason     string     `gorm:"type:text;not null" json:"reason"`
	Status     string     `gorm:"not null;default:'pending';index" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *int       `json:"resolved_by,omitempty"`
}

type Article struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	Slug      string    `gorm:"unique;not null;index" json:"slug"`
	Summary   string    `gorm:"type:text" json:"summary"`
	Content   string    `gorm:"type:text" json:"content"`
	Draft     bool      `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
