package database

import (
	"log"

	"hackerthink/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
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
		&models.Article{},
	)

	if err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}
