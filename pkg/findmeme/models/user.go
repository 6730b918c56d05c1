package models

import "time"

// User represents a registered user
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`

	// Relationships
	Memes     []Meme     `gorm:"foreignKey:UserID" json:"memes,omitempty"`
	Favorites []Favorite `gorm:"foreignKey:UserID" json:"favorites,omitempty"`
}
