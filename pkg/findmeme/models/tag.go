package models

import (
	"strings"
	"time"
)

// Tag represents a label that can be applied to memes.
// Names are stored lowercase so the same logical tag is never duplicated.
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`

	// Relationships
	Memes []Meme `gorm:"many2many:meme_tags;" json:"memes,omitempty"`
}

// NormalizeTagName lowercases and trims a raw tag name
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
