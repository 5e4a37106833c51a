package models

import (
	"database/sql"
	"time"
)

// Article represents a published article
type Article struct {
	ID        int64          `gorm:"primaryKey;autoIncrement;column:id"`
	Slug      string         `gorm:"type:varchar(255);not null;uniqueIndex:articles_slug_ux;column:slug"`
	Title     string         `gorm:"type:varchar(100);not null;column:title"`
	Excerpt   sql.NullString `gorm:"type:varchar(100);column:excerpt"`
	Content   string         `gorm:"type:text;not null;column:content"`
	CreatedAt time.Time      `gorm:"not null;index:articles_created_at_ix;column:created_at"`
	UserID    int64          `gorm:"not null;index:articles_user_id_ix;column:user_id"`

	// Relationships
	Author *User `gorm:"foreignKey:UserID;references:ID"`
	Tags   []Tag `gorm:"many2many:article_tags;joinForeignKey:ArticleID;joinReferences:TagID"`
}

// TableName specifies the table name for Article
func (Article) TableName() string {
	return "articles"
}

// Tag represents a unique topic label
type Tag struct {
	ID   int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name string `gorm:"type:varchar(64);not null;uniqueIndex:tags_name_ux;column:name"`
}

// TableName specifies the table name for Tag
func (Tag) TableName() string {
	return "tags"
}

// Comment represents a reply on an article
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Content   string    `gorm:"type:text;not null;column:content"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UserID    int64     `gorm:"not null;column:user_id"`
	ArticleID int64     `gorm:"not null;index:comments_article_id_ix;column:article_id"`

	// Relationships
	Author  *User    `gorm:"foreignKey:UserID;references:ID"`
	Article *Article `gorm:"foreignKey:ArticleID;references:ID"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
