package favorites

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/findmeme/findmeme/pkg/findmeme/auth"
	"github.com/findmeme/findmeme/pkg/findmeme/memes"
	"github.com/findmeme/findmeme/pkg/findmeme/models"
)

// Handler handles favorite-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new favorites handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CheckResponse reports whether the caller has favorited a meme
type CheckResponse struct {
	IsFavorited bool `json:"isFavorited"`
}

func parseMemeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("memeId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meme ID"})
		return 0, false
	}
	return uint(id), true
}

// List returns the caller's favorited memes with their tags, most recently
// favorited first. No status filter is applied: a favorite outlives a later
// rejection of the meme.
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var results []models.Meme
	err := h.db.Model(&models.Meme{}).Preload("Tags").
		Joins("INNER JOIN favorites ON favorites.meme_id = memes.id AND favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").
		Find(&results).Error
	if err != nil {
		logrus.WithError(err).Error("failed to fetch favorites")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch favorites"})
		return
	}

	responses := make([]memes.MemeResponse, len(results))
	for i, m := range results {
		responses[i] = memes.MemeToResponse(m)
	}

	c.JSON(http.StatusOK, responses)
}

// Check reports whether the caller has favorited the meme
func (h *Handler) Check(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	memeID, ok := parseMemeID(c)
	if !ok {
		return
	}

	var count int64
	if err := h.db.Model(&models.Favorite{}).
		Where("user_id = ? AND meme_id = ?", userID, memeID).
		Count(&count).Error; err != nil {
		logrus.WithError(err).Error("failed to check favorite")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check favorite"})
		return
	}

	c.JSON(http.StatusOK, CheckResponse{IsFavorited: count > 0})
}

// Add records a favorite. Adding the same pair twice is a no-op, so the
// operation stays safe under concurrent toggles.
func (h *Handler) Add(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	memeID, ok := parseMemeID(c)
	if !ok {
		return
	}

	var meme models.Meme
	if err := h.db.First(&meme, memeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Meme not found"})
		return
	}

	favorite := models.Favorite{UserID: userID, MemeID: memeID}
	if err := h.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&favorite).Error; err != nil {
		logrus.WithError(err).Error("failed to add favorite")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add favorite"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Added to favorites"})
}

// Remove deletes a favorite. Removing an absent pair is a no-op.
func (h *Handler) Remove(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	memeID, ok := parseMemeID(c)
	if !ok {
		return
	}

	if err := h.db.Where("user_id = ? AND meme_id = ?", userID, memeID).
		Delete(&models.Favorite{}).Error; err != nil {
		logrus.WithError(err).Error("failed to remove favorite")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove favorite"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from favorites"})
}

// RegisterRoutes registers favorite routes; the group must carry auth middleware
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/favorites", h.List)
	rg.GET("/favorites/check/:memeId", h.Check)
	rg.POST("/favorites/:memeId", h.Add)
	rg.DELETE("/favorites/:memeId", h.Remove)
}
