package admin

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/findmeme/findmeme/pkg/findmeme/auth"
	"github.com/findmeme/findmeme/pkg/findmeme/memes"
	"github.com/findmeme/findmeme/pkg/findmeme/models"
)

// Handler handles admin moderation requests
type Handler struct {
	db              *gorm.DB
	bootstrapSecret string
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, bootstrapSecret string) *Handler {
	return &Handler{db: db, bootstrapSecret: bootstrapSecret}
}

// PendingMemeResponse represents a meme in the moderation queue
type PendingMemeResponse struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	MediaURL    string   `json:"media_url"`
	MediaType   string   `json:"media_type"`
	Status      string   `json:"status"`
	SubmittedBy string   `json:"submitted_by"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
}

// StatsResponse represents moderation statistics
type StatsResponse struct {
	PendingCount  int64 `json:"pending_count"`
	ApprovedCount int64 `json:"approved_count"`
	RejectedCount int64 `json:"rejected_count"`
	TotalUsers    int64 `json:"total_users"`
}

// ListPending returns memes awaiting moderation, oldest first so the queue
// is processed in submission order
func (h *Handler) ListPending(c *gin.Context) {
	var pending []models.Meme
	err := h.db.Model(&models.Meme{}).Preload("Tags").Preload("User").
		Where("status = ?", models.StatusPending).
		Order("created_at ASC").
		Find(&pending).Error
	if err != nil {
		logrus.WithError(err).Error("failed to fetch pending memes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending memes"})
		return
	}

	responses := make([]PendingMemeResponse, len(pending))
	for i, meme := range pending {
		submittedBy := ""
		if meme.User != nil {
			submittedBy = meme.User.Username
		}

		tags := make([]string, 0, len(meme.Tags))
		for _, t := range meme.Tags {
			tags = append(tags, t.Name)
		}

		responses[i] = PendingMemeResponse{
			ID:          meme.ID,
			Title:       meme.Title,
			MediaURL:    meme.MediaURL,
			MediaType:   string(meme.MediaType),
			Status:      string(meme.Status),
			SubmittedBy: submittedBy,
			Tags:        tags,
			CreatedAt:   meme.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	c.JSON(http.StatusOK, responses)
}

// setStatus transitions a meme to the given status, refreshing its update
// timestamp. Transitions are idempotent.
func (h *Handler) setStatus(c *gin.Context, status models.MemeStatus, message string) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meme ID"})
		return
	}

	var meme models.Meme
	if err := h.db.First(&meme, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Meme not found"})
		return
	}

	if err := h.db.Model(&meme).Update("status", status).Error; err != nil {
		logrus.WithError(err).Error("failed to update meme status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update meme"})
		return
	}

	h.db.Preload("Tags").First(&meme, meme.ID)

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"meme":    memes.MemeToResponse(meme),
	})
}

// Approve marks a pending meme as approved
func (h *Handler) Approve(c *gin.Context) {
	h.setStatus(c, models.StatusApproved, "Meme approved")
}

// Reject marks a pending meme as rejected
func (h *Handler) Reject(c *gin.Context) {
	h.setStatus(c, models.StatusRejected, "Meme rejected")
}

// Delete permanently removes a meme and its tag link and favorite rows
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meme ID"})
		return
	}

	if err := memes.DeleteMeme(h.db, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Meme not found"})
			return
		}
		logrus.WithError(err).Error("failed to delete meme")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete meme"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Meme deleted permanently"})
}

// GetStats returns moderation statistics
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.Meme{}).Where("status = ?", models.StatusPending).Count(&stats.PendingCount)
	h.db.Model(&models.Meme{}).Where("status = ?", models.StatusApproved).Count(&stats.ApprovedCount)
	h.db.Model(&models.Meme{}).Where("status = ?", models.StatusRejected).Count(&stats.RejectedCount)
	h.db.Model(&models.Meme{}).Where("user_id IS NOT NULL").Distinct("user_id").Count(&stats.TotalUsers)

	c.JSON(http.StatusOK, stats)
}

// BootstrapRequest represents the admin bootstrap request body
type BootstrapRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Secret      string `json:"secret" binding:"required"`
	NewPassword string `json:"new_password"`
}

// Bootstrap promotes an existing user to admin given the shared bootstrap
// secret. This is a one-time operational escape hatch for standing up the
// first admin; it is never routed through the normal authorization chain
// and is disabled entirely when no secret is configured.
func (h *Handler) Bootstrap(c *gin.Context) {
	var req BootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.bootstrapSecret == "" ||
		subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.bootstrapSecret)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid secret"})
		return
	}

	if req.Username == "" && req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Must provide username or email"})
		return
	}

	query := h.db
	if req.Email != "" {
		query = query.Where("email = ?", req.Email)
	} else {
		query = query.Where("username = ?", req.Username)
	}

	var user models.User
	if err := query.First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	updates := map[string]interface{}{"is_admin": true}
	message := "User promoted to admin"
	if req.NewPassword != "" {
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			logrus.WithError(err).Error("failed to hash password")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
			return
		}
		updates["password_hash"] = hash
		message = "User promoted to admin and password reset"
	}

	if err := h.db.Model(&user).Updates(updates).Error; err != nil {
		logrus.WithError(err).Error("failed to promote user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to promote user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"is_admin": true,
		},
	})
}

// RegisterRoutes registers admin moderation routes; the group must carry
// auth and admin middleware
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/pending-memes", h.ListPending)
	rg.POST("/approve-meme/:id", h.Approve)
	rg.POST("/reject-meme/:id", h.Reject)
	rg.DELETE("/delete-meme/:id", h.Delete)
	rg.GET("/stats", h.GetStats)
}

// RegisterBootstrapRoutes registers the shared-secret bootstrap endpoint on
// an unauthenticated group
func (h *Handler) RegisterBootstrapRoutes(rg *gin.RouterGroup) {
	rg.POST("/bootstrap-admin", h.Bootstrap)
}
