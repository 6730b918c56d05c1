package memes

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/findmeme/findmeme/pkg/findmeme/media"
	"github.com/findmeme/findmeme/pkg/findmeme/models"
)

// Handler handles meme-related requests
type Handler struct {
	db       *gorm.DB
	uploader media.Uploader
}

// NewHandler creates a new memes handler
func NewHandler(db *gorm.DB, uploader media.Uploader) *Handler {
	return &Handler{db: db, uploader: uploader}
}

// MemeResponse represents a meme with its aggregated tag names
type MemeResponse struct {
	ID        uint     `json:"id"`
	Title     string   `json:"title"`
	MediaURL  string   `json:"media_url"`
	MediaType string   `json:"media_type"`
	Status    string   `json:"status"`
	UserID    *uint    `json:"user_id"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// MemeToResponse builds the typed projection of a meme plus its tag names.
// Tag names are deduplicated; a meme with no tags reports an empty list.
func MemeToResponse(meme models.Meme) MemeResponse {
	tags := make([]string, 0, len(meme.Tags))
	seen := make(map[string]bool, len(meme.Tags))
	for _, t := range meme.Tags {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		tags = append(tags, t.Name)
	}

	return MemeResponse{
		ID:        meme.ID,
		Title:     meme.Title,
		MediaURL:  meme.MediaURL,
		MediaType: string(meme.MediaType),
		Status:    string(meme.Status),
		UserID:    meme.UserID,
		Tags:      tags,
		CreatedAt: meme.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: meme.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// List returns approved memes, optionally filtered by a search term and media
// type. The search term matches case-insensitively against the title or any
// linked tag name. Newest first.
func (h *Handler) List(c *gin.Context) {
	query := h.db.Model(&models.Meme{}).Preload("Tags").
		Where("status = ?", models.StatusApproved)

	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		// Tag names are stored lowercase, so the lowercased pattern matches
		// them directly.
		query = query.Where(
			"LOWER(title) LIKE ? OR EXISTS (SELECT 1 FROM meme_tags mt JOIN tags t ON t.id = mt.tag_id WHERE mt.meme_id = memes.id AND t.name LIKE ?)",
			pattern, pattern)
	}

	if mediaType := c.Query("type"); mediaType != "" {
		query = query.Where("media_type = ?", mediaType)
	}

	var memes []models.Meme
	if err := query.Order("created_at DESC").Find(&memes).Error; err != nil {
		logrus.WithError(err).Error("failed to fetch memes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch memes"})
		return
	}

	responses := make([]MemeResponse, len(memes))
	for i, m := range memes {
		responses[i] = MemeToResponse(m)
	}

	c.JSON(http.StatusOK, responses)
}

// Get returns a single meme with its tags, regardless of status
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meme ID"})
		return
	}

	var meme models.Meme
	if err := h.db.Preload("Tags").First(&meme, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Meme not found"})
		return
	}

	c.JSON(http.StatusOK, MemeToResponse(meme))
}

// parseTagNames collects tag names from repeated form fields and
// comma-separated values, normalized to lowercase and deduplicated
func parseTagNames(values []string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, value := range values {
		for _, raw := range strings.Split(value, ",") {
			name := models.NormalizeTagName(raw)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// upsertTag inserts a tag by name, resolving a conflict on the unique name
// index to the existing row instead of creating a duplicate
func upsertTag(tx *gorm.DB, name string) (models.Tag, error) {
	tag := models.Tag{Name: name}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&tag).Error
	if err != nil {
		return tag, err
	}
	if tag.ID == 0 {
		// Conflict path: another row already holds the name
		err = tx.Where("name = ?", name).First(&tag).Error
	}
	return tag, err
}

// Create handles a user submission. The meme always starts as pending.
// Any attached file is uploaded to the media host before the store
// transaction opens; tag upsert and linking happen inside the transaction.
func (h *Handler) Create(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	mediaType := models.MediaType(c.PostForm("media_type"))

	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if !models.ValidMediaType(mediaType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Media type must be image, gif, or video"})
		return
	}

	var userID *uint
	if raw := c.PostForm("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		id := uint(parsed)
		userID = &id
	}

	mediaURL := media.PlaceholderURL
	if fileHeader, err := c.FormFile("file"); err == nil {
		if h.uploader == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Media uploads are not available"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}

		url, err := h.uploader.Upload(c.Request.Context(), fileHeader.Filename,
			fileHeader.Header.Get("Content-Type"), data)
		if err != nil {
			logrus.WithError(err).Error("media upload failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload media"})
			return
		}
		mediaURL = url
	}

	tagNames := parseTagNames(c.PostFormArray("tags"))

	meme := models.Meme{
		Title:     title,
		MediaURL:  mediaURL,
		MediaType: mediaType,
		Status:    models.StatusPending,
		UserID:    userID,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&meme).Error; err != nil {
			return err
		}

		for _, name := range tagNames {
			tag, err := upsertTag(tx, name)
			if err != nil {
				return err
			}
			if err := tx.Model(&meme).Association("Tags").Append(&tag); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		logrus.WithError(err).Error("failed to create meme")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create meme"})
		return
	}

	var created models.Meme
	if err := h.db.Preload("Tags").First(&created, meme.ID).Error; err != nil {
		logrus.WithError(err).Error("failed to reload created meme")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create meme"})
		return
	}

	c.JSON(http.StatusCreated, MemeToResponse(created))
}

// DeleteMeme permanently removes a meme along with its tag link and favorite
// rows. Tag rows themselves survive. Returns gorm.ErrRecordNotFound when no
// meme has the given ID.
func DeleteMeme(db *gorm.DB, id uint) error {
	var meme models.Meme
	if err := db.First(&meme, id).Error; err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&meme).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("meme_id = ?", meme.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&meme).Error
	})
}

// Delete hard-deletes a meme (admin only)
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meme ID"})
		return
	}

	if err := DeleteMeme(h.db, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Meme not found"})
			return
		}
		logrus.WithError(err).Error("failed to delete meme")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete meme"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Meme deleted successfully"})
}

// RegisterRoutes registers public meme routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/memes", h.List)
	rg.GET("/memes/:id", h.Get)
	rg.POST("/memes", h.Create)
}

// RegisterAdminRoutes registers meme routes requiring the admin capability.
// Deletion is deliberately admin-gated; the group must carry auth middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/memes/:id", h.Delete)
}
