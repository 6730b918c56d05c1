package memes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/findmeme/findmeme/pkg/findmeme/auth"
	"github.com/findmeme/findmeme/pkg/findmeme/media"
	"github.com/findmeme/findmeme/pkg/findmeme/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

// fakeUploader records uploads and returns a fixed URL
type fakeUploader struct {
	url     string
	err     error
	uploads int
}

func (f *fakeUploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	f.uploads++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func setupTestRouter(db *gorm.DB, uploader media.Uploader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, uploader)

	api := r.Group("/api")
	handler.RegisterRoutes(api)
	handler.RegisterAdminRoutes(api.Group("", auth.AuthMiddleware(), auth.RequireAdmin(db)))

	return r
}

func createTestUser(t *testing.T, db *gorm.DB, username string, isAdmin bool) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestMeme(t *testing.T, db *gorm.DB, title string, status models.MemeStatus, createdAt time.Time, tagNames ...string) models.Meme {
	meme := models.Meme{
		Title:     title,
		MediaURL:  "https://media.example.com/" + title,
		MediaType: models.MediaTypeImage,
		Status:    status,
		CreatedAt: createdAt,
	}
	if err := db.Create(&meme).Error; err != nil {
		t.Fatalf("Failed to create test meme: %v", err)
	}
	for _, name := range tagNames {
		tag, err := upsertTag(db, name)
		if err != nil {
			t.Fatalf("Failed to upsert tag: %v", err)
		}
		if err := db.Model(&meme).Association("Tags").Append(&tag); err != nil {
			t.Fatalf("Failed to link tag: %v", err)
		}
	}
	return meme
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Username)
	return "Bearer " + token
}

func newSubmitRequest(t *testing.T, fields map[string]string, fileContents []byte) *http.Request {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	if fileContents != nil {
		part, err := writer.CreateFormFile("file", "meme.png")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(fileContents)
	}
	writer.Close()

	req, _ := http.NewRequest("POST", "/api/memes", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestListApprovedOnly(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	now := time.Now()
	createTestMeme(t, db, "approved-meme", models.StatusApproved, now)
	createTestMeme(t, db, "pending-meme", models.StatusPending, now)
	createTestMeme(t, db, "rejected-meme", models.StatusRejected, now)

	req, _ := http.NewRequest("GET", "/api/memes", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var memes []MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &memes)

	if len(memes) != 1 {
		t.Fatalf("Expected 1 meme, got %d", len(memes))
	}
	if memes[0].Title != "approved-meme" {
		t.Errorf("Expected approved-meme, got %s", memes[0].Title)
	}
}

func TestListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	now := time.Now()
	createTestMeme(t, db, "older", models.StatusApproved, now.Add(-time.Hour))
	createTestMeme(t, db, "newer", models.StatusApproved, now)

	req, _ := http.NewRequest("GET", "/api/memes", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var memes []MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &memes)

	if len(memes) != 2 {
		t.Fatalf("Expected 2 memes, got %d", len(memes))
	}
	if memes[0].Title != "newer" || memes[1].Title != "older" {
		t.Errorf("Expected newest first, got %s then %s", memes[0].Title, memes[1].Title)
	}
}

func TestListSearchByTitle(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	now := time.Now()
	createTestMeme(t, db, "Cat Meme", models.StatusApproved, now)
	createTestMeme(t, db, "Dog Meme", models.StatusApproved, now)
	// A pending meme matching the search term must not leak
	createTestMeme(t, db, "cat meme pending", models.StatusPending, now)

	req, _ := http.NewRequest("GET", "/api/memes?search=cat", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var memes []MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &memes)

	if len(memes) != 1 {
		t.Fatalf("Expected 1 meme, got %d", len(memes))
	}
	if memes[0].Title != "Cat Meme" {
		t.Errorf("Expected Cat Meme, got %s", memes[0].Title)
	}
}

func TestListSearchByTag(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	now := time.Now()
	createTestMeme(t, db, "Untitled", models.StatusApproved, now, "funny")
	createTestMeme(t, db, "Other", models.StatusApproved, now, "serious")

	req, _ := http.NewRequest("GET", "/api/memes?search=FUN", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var memes []MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &memes)

	if len(memes) != 1 {
		t.Fatalf("Expected 1 meme, got %d", len(memes))
	}
	if memes[0].Title != "Untitled" {
		t.Errorf("Expected tag match on Untitled, got %s", memes[0].Title)
	}
}

func TestListTypeFilter(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	now := time.Now()
	createTestMeme(t, db, "an-image", models.StatusApproved, now)
	gifMeme := models.Meme{
		Title:     "a-gif",
		MediaURL:  "https://media.example.com/a-gif",
		MediaType: models.MediaTypeGif,
		Status:    models.StatusApproved,
	}
	db.Create(&gifMeme)

	req, _ := http.NewRequest("GET", "/api/memes?type=gif", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var memes []MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &memes)

	if len(memes) != 1 {
		t.Fatalf("Expected 1 meme, got %d", len(memes))
	}
	if memes[0].MediaType != "gif" {
		t.Errorf("Expected gif, got %s", memes[0].MediaType)
	}
}

func TestGetByID(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	meme := createTestMeme(t, db, "pending-but-visible", models.StatusPending, time.Now(), "funny")

	req, _ := http.NewRequest("GET", "/api/memes/1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.ID != meme.ID {
		t.Errorf("Expected meme ID %d, got %d", meme.ID, response.ID)
	}
	if len(response.Tags) != 1 || response.Tags[0] != "funny" {
		t.Errorf("Expected tags [funny], got %v", response.Tags)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	req, _ := http.NewRequest("GET", "/api/memes/999", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestCreateStartsPending(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	req := newSubmitRequest(t, map[string]string{
		"title":      "Cat1",
		"media_type": "image",
		"tags":       "Funny,cat,FUNNY",
	}, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Status != "pending" {
		t.Errorf("Expected status pending, got %s", response.Status)
	}
	if len(response.Tags) != 2 {
		t.Errorf("Expected 2 deduplicated tags, got %v", response.Tags)
	}

	var tagCount int64
	db.Model(&models.Tag{}).Count(&tagCount)
	if tagCount != 2 {
		t.Errorf("Expected 2 tag rows, got %d", tagCount)
	}
}

func TestCreateTagUpsertAcrossSubmissions(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	for _, tag := range []string{"Funny", "funny", "FUNNY"} {
		req := newSubmitRequest(t, map[string]string{
			"title":      "meme-" + tag,
			"media_type": "image",
			"tags":       tag,
		}, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
		}
	}

	var tagCount int64
	db.Model(&models.Tag{}).Count(&tagCount)
	if tagCount != 1 {
		t.Errorf("Expected 1 tag row for case variants, got %d", tagCount)
	}
}

func TestCreateMissingTitle(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	req := newSubmitRequest(t, map[string]string{
		"media_type": "image",
	}, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestCreateInvalidMediaType(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	req := newSubmitRequest(t, map[string]string{
		"title":      "Bad Type",
		"media_type": "audio",
	}, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestCreateWithFileUpload(t *testing.T) {
	db := setupTestDB(t)
	uploader := &fakeUploader{url: "https://media.example.com/hosted.png"}
	router := setupTestRouter(db, uploader)

	req := newSubmitRequest(t, map[string]string{
		"title":      "With File",
		"media_type": "image",
	}, []byte("fake image bytes"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.MediaURL != uploader.url {
		t.Errorf("Expected hosted media URL, got %s", response.MediaURL)
	}
	if uploader.uploads != 1 {
		t.Errorf("Expected 1 upload, got %d", uploader.uploads)
	}
}

func TestCreateWithoutFileUsesPlaceholder(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)

	req := newSubmitRequest(t, map[string]string{
		"title":      "No File",
		"media_type": "image",
	}, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var response MemeResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.MediaURL == "" || response.MediaURL[:8] != "https://" {
		t.Errorf("Expected placeholder URL, got %s", response.MediaURL)
	}
}

func TestCreateUploadFailure(t *testing.T) {
	db := setupTestDB(t)
	uploader := &fakeUploader{err: errors.New("sink unavailable")}
	router := setupTestRouter(db, uploader)

	req := newSubmitRequest(t, map[string]string{
		"title":      "Doomed",
		"media_type": "image",
	}, []byte("fake image bytes"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", resp.Code)
	}

	// No meme row should exist after a failed upload
	var count int64
	db.Model(&models.Meme{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected 0 memes after failed upload, got %d", count)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)
	user := createTestUser(t, db, "pleb", false)
	createTestMeme(t, db, "target", models.StatusApproved, time.Now())

	// No token
	req, _ := http.NewRequest("DELETE", "/api/memes/1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}

	// Non-admin token
	req, _ = http.NewRequest("DELETE", "/api/memes/1", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)
	adminUser := createTestUser(t, db, "boss", true)
	user := createTestUser(t, db, "fan", false)
	meme := createTestMeme(t, db, "doomed", models.StatusApproved, time.Now(), "funny")
	db.Create(&models.Favorite{UserID: user.ID, MemeID: meme.ID})

	req, _ := http.NewRequest("DELETE", "/api/memes/1", nil)
	req.Header.Set("Authorization", getAuthHeader(adminUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var memeCount, favoriteCount, linkCount, tagCount int64
	db.Model(&models.Meme{}).Count(&memeCount)
	db.Model(&models.Favorite{}).Count(&favoriteCount)
	db.Table("meme_tags").Count(&linkCount)
	db.Model(&models.Tag{}).Count(&tagCount)

	if memeCount != 0 {
		t.Errorf("Expected 0 memes, got %d", memeCount)
	}
	if favoriteCount != 0 {
		t.Errorf("Expected 0 favorites, got %d", favoriteCount)
	}
	if linkCount != 0 {
		t.Errorf("Expected 0 tag links, got %d", linkCount)
	}
	if tagCount != 1 {
		t.Errorf("Expected tag row to survive, got %d", tagCount)
	}
}

func TestDeleteNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)
	adminUser := createTestUser(t, db, "boss", true)

	req, _ := http.NewRequest("DELETE", "/api/memes/999", nil)
	req.Header.Set("Authorization", getAuthHeader(adminUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}
