package models

import (
	"database/sql"

	"gorm.io/gorm"
)

// User records who has signed in. Subscriptions themselves live in the backend.
type User struct {
	gorm.Model
	Email       string `gorm:"unique"`
	Name        string
	LastLoginAt sql.NullTime
}
