package models

import (
	"database/sql"
	"time"
)

// User represents a registered author
type User struct {
	ID        int64          `gorm:"primaryKey;autoIncrement;column:id"`
	Name      string         `gorm:"type:varchar(255);not null;uniqueIndex:users_name_ux;column:name"`
	Email     string         `gorm:"type:varchar(255);not null;uniqueIndex:users_email_ux;column:email"`
	Password  string         `gorm:"type:varchar(255);not null;column:password"`
	Image     sql.NullString `gorm:"type:varchar(1024);column:image"`
	Bio       sql.NullString `gorm:"type:text;column:bio"`
	CreatedAt time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt time.Time      `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
