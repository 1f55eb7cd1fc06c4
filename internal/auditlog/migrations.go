package auditlog

import "gorm.io/gorm"

func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(&AccessLogEntry{})
}
