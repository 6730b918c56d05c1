package models

import "time"

// MediaType represents the kind of media a meme holds
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeGif   MediaType = "gif"
	MediaTypeVideo MediaType = "video"
)

// ValidMediaType reports whether t is one of the supported media types
func ValidMediaType(t MediaType) bool {
	switch t {
	case MediaTypeImage, MediaTypeGif, MediaTypeVideo:
		return true
	}
	return false
}

// MemeStatus represents a meme's moderation status
type MemeStatus string

const (
	StatusPending  MemeStatus = "pending"
	StatusApproved MemeStatus = "approved"
	StatusRejected MemeStatus = "rejected"
)

// Meme represents a titled media item subject to moderation.
// User submissions start as pending; direct inserts default to approved.
type Meme struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Title     string     `gorm:"not null" json:"title"`
	MediaURL  string     `gorm:"not null" json:"media_url"`
	MediaType MediaType  `gorm:"type:varchar(50);not null" json:"media_type"`
	Status    MemeStatus `gorm:"type:varchar(20);default:'approved';index" json:"status"`
	UserID    *uint      `json:"user_id"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Tags []Tag `gorm:"many2many:meme_tags;" json:"tags,omitempty"`
}
