package forum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hackerthink/models"
)

func TestBanUser_RequiresModerator(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	alice := createTestUser(db, "alice", models.RoleUser)
	bob := createTestUser(db, "bob", models.RoleUser)

	assert.ErrorIs(t, engine.BanUser(asActor(alice), bob.ID, nil, "spam"), ErrForbidden)
	assert.ErrorIs(t, engine.BanUser(Guest, bob.ID, nil, "spam"), ErrUnauthorized)
}

func TestBanUser_AdminCannotBeBanned(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	mod := createTestUser(db, "mod", models.RoleModerator)
	admin := createTestUser(db, "admin", models.RoleAdmin)
	otherAdmin := createTestUser(db, "root", models.RoleAdmin)

	assert.ErrorIs(t, engine.BanUser(asActor(mod), admin.ID, nil, "power grab"), ErrForbidden)
	// Not even another admin.
	assert.ErrorIs(t, engine.BanUser(asActor(otherAdmin), admin.ID, nil, ""), ErrForbidden)

	var reloaded models.User
	db.First(&reloaded, admin.ID)
	assert.False(t, reloaded.IsBanned)
}

func TestBanUser_NotifiesTarget(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	mod := createTestUser(db, "mod", models.RoleModerator)
	bob := createTestUser(db, "bob", models.RoleUser)

	until := time.Now().Add(48 * time.Hour)
	assert.NoError(t, engine.BanUser(asActor(mod), bob.ID, &until, "repeated spam"))

	var reloaded models.User
	db.First(&reloaded, bob.ID)
	assert.True(t, reloaded.IsBanned)
	assert.NotNil(t, reloaded.BanExpiresAt)

	notifications := notificationsFor(db, bob.ID)
	assert.Equal(t, 1, len(notifications))
	assert.Equal(t, models.NotifyModeration, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, "repeated spam")
}

func TestUnbanUser_ClearsBanAndNotifies(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	mod := createTestUser(db, "mod", models.RoleModerator)
	bob := createTestUser(db, "bob", models.RoleUser)

	assert.NoError(t, engine.BanUser(asActor(mod), bob.ID, nil, ""))
	assert.NoError(t, engine.UnbanUser(asActor(mod), bob.ID))

	var reloaded models.User
	db.First(&reloaded, bob.ID)
	assert.False(t, reloaded.IsBanned)
	assert.Nil(t, reloaded.BanExpiresAt)

	assert.Equal(t, 2, len(notificationsFor(db, bob.ID)))
}

func TestFileReport_RequiresReason(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	alice := createTestUser(db, "alice", models.RoleUser)
	bob := createTestUser(db, "bob", models.RoleUser)
	category := createTestCategory(db, models.PermAll, models.PermRegistered, models.PermRegistered)

	thread, _ := engine.CreateThread(asActor(alice), category.ID, "Thread", "body")
	var post models.Post
	db.Where("thread_id = ?", thread.ID).First(&post)

	_, err := engine.FileReport(asActor(bob), post.ID, "")
	assert.ErrorIs(t, err, ErrInvalidReference)

	report, err := engine.FileReport(asActor(bob), post.ID, "off topic")
	assert.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status)
}

func TestFileReport_PostMustExist(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	bob := createTestUser(db, "bob", models.RoleUser)

	_, err := engine.FileReport(asActor(bob), 999, "ghost post")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveReport_TerminalState(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	alice := createTestUser(db, "alice", models.RoleUser)
	bob := createTestUser(db, "bob", models.RoleUser)
	mod := createTestUser(db, "mod", models.RoleModerator)
	category := createTestCategory(db, models.PermAll, models.PermRegistered, models.PermRegistered)

	thread, _ := engine.CreateThread(asActor(alice), category.ID, "Thread", "body")
	var post models.Post
	db.Where("thread_id = ?", thread.ID).First(&post)

	report, _ := engine.FileReport(asActor(bob), post.ID, "spam")

	assert.NoError(t, engine.ResolveReport(asActor(mod), report.ID, models.ReportResolved))

	var reloaded models.Report
	db.First(&reloaded, report.ID)
	assert.Equal(t, models.ReportResolved, reloaded.Status)
	assert.NotNil(t, reloaded.ResolvedAt)
	assert.Equal(t, mod.ID, *reloaded.ResolvedBy)

	// Resolved and dismissed are both terminal.
	assert.ErrorIs(t, engine.ResolveReport(asActor(mod), report.ID, models.ReportDismissed), ErrAlreadyResolved)
	assert.ErrorIs(t, engine.ResolveReport(asActor(mod), report.ID, models.ReportResolved), ErrAlreadyResolved)
}

func TestResolveReport_InvalidOutcome(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	mod := createTestUser(db, "mod", models.RoleModerator)

	assert.ErrorIs(t, engine.ResolveReport(asActor(mod), 1, "escalated"), ErrInvalidReference)
}

func TestResolveReport_NotifiesReporter(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	alice := createTestUser(db, "alice", models.RoleUser)
	bob := createTestUser(db, "bob", models.RoleUser)
	mod := createTestUser(db, "mod", models.RoleModerator)
	category := createTestCategory(db, models.PermAll, models.PermRegistered, models.PermRegistered)

	thread, _ := engine.CreateThread(asActor(alice), category.ID, "Thread", "body")
	var post models.Post
	db.Where("thread_id = ?", thread.ID).First(&post)

	report, _ := engine.FileReport(asActor(bob), post.ID, "spam")
	assert.NoError(t, engine.ResolveReport(asActor(mod), report.ID, models.ReportDismissed))

	notifications := notificationsFor(db, bob.ID)
	assert.Equal(t, 1, len(notifications))
	assert.Equal(t, models.NotifyModeration, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, "dismissed")
}

func TestResolveReport_SelfResolveIsSilent(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	alice := createTestUser(db, "alice", models.RoleUser)
	mod := createTestUser(db, "mod", models.RoleModerator)
	category := createTestCategory(db, models.PermAll, models.PermRegistered, models.PermRegistered)

	thread, _ := engine.CreateThread(asActor(alice), category.ID, "Thread", "body")
	var post models.Post
	db.Where("thread_id = ?", thread.ID).First(&post)

	report, _ := engine.FileReport(asActor(mod), post.ID, "checking")
	assert.NoError(t, engine.ResolveReport(asActor(mod), report.ID, models.ReportResolved))

	assert.Equal(t, 0, len(notificationsFor(db, mod.ID)))
}

func TestListReports_PendingFirst(t *testing.T) {
	db := setupTestDB()
	engine := NewEngine(db)

	alice := createTestUser(db, "alice", models.RoleUser)
	bob := createTestUser(db, "bob", models.RoleUser)
	mod := createTestUser(db, "mod", models.RoleModerator)
	category := createTestCategory(db, models.PermAll, models.PermRegistered, models.PermRegistered)

	thread, _ := engine.CreateThread(asActor(alice), category.ID, "Thread", "body")
	var post models.Post
	db.Where("thread_id = ?", thread.ID).First(&post)

	resolved, _ := engine.FileReport(asActor(bob), post.ID, "first")
	pending, _ := engine.FileReport(asActor(bob), post.ID, "second")
	assert.NoError(t, engine.ResolveReport(asActor(mod), resolved.ID, models.ReportResolved))

	reports, err := engine.ListReports(asActor(mod))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(reports))
	assert.Equal(t, pending.ID, reports[0].ID)
	assert.Equal(t, resolved.ID, reports[1].ID)

	_, err = engine.ListReports(asActor(bob))
	assert.ErrorIs(t, err, ErrForbidden)
}
