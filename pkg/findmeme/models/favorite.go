package models

import "time"

// Favorite represents a user's bookmark of a meme, unique per pair
type Favorite struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	MemeID    uint      `gorm:"primaryKey" json:"meme_id"`
	CreatedAt time.Time `json:"created_at"`
}
