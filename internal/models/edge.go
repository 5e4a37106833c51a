package models

import (
	"time"
)

// EdgeKind identifies a many-to-many relation managed by the toggle engine
type EdgeKind int16

// Edge kinds
const (
	EdgeFollow   EdgeKind = 1 // user -> user
	EdgeFavorite EdgeKind = 2 // user -> article
)

// String returns the relation name used in logs and metrics
func (k EdgeKind) String() string {
	switch k {
	case EdgeFollow:
		return "follow"
	case EdgeFavorite:
		return "favorite"
	default:
		return "unknown"
	}
}

// Follow represents a directed follower -> followee edge
type Follow struct {
	FollowerID  int64     `gorm:"primaryKey;autoIncrement:false;column:follower_id"`
	FollowingID int64     `gorm:"primaryKey;autoIncrement:false;index:follows_following_ix;column:following_id"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Follower  *User `gorm:"foreignKey:FollowerID;references:ID"`
	Following *User `gorm:"foreignKey:FollowingID;references:ID"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "follows"
}

// Favorite represents a user -> article edge
type Favorite struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false;column:user_id"`
	ArticleID int64     `gorm:"primaryKey;autoIncrement:false;index:favorites_article_ix;column:article_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	User    *User    `gorm:"foreignKey:UserID;references:ID"`
	Article *Article `gorm:"foreignKey:ArticleID;references:ID"`
}

// TableName specifies the table name for Favorite
func (Favorite) TableName() string {
	return "favorites"
}
