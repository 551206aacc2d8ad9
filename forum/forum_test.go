package forum

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hackerthink/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Thread{},
		&models.Post{},
		&models.Subscription{},
		&models.Bookmark{},
		&models.Notification{},
		&models.Mention{},
		&models.Like{},
		&models.Report{},
	)
	return db
}

func createTestUser(db *gorm.DB, username, role string) *models.User {
	user := &models.User{
		Username:      username,
		Email:         fmt.Sprintf("%s@example.com", username),
		PasswordHash:  "hashedpassword",
		Role:          role,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}
	db.Create(user)
	return user
}

func createTestCategory(db *gorm.DB, viewRole, postRole, replyRole string) *models.Category {
	category := &models.Category{
		Name:      "General",
		Slug:      fmt.Sprintf("general-%d", time.Now().UnixNano()),
		ViewRole:  viewRole,
		PostRole:  postRole,
		ReplyRole: replyRole,
	}
	db.Create(category)
	return category
}

func asActor(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func notificationsFor(db *gorm.DB, userID int) []models.Notification {
	var notifications []models.Notification
	db.Where("user_id = ?", userID).Order("id ASC").Find(&notifications)
	return notifications
}
