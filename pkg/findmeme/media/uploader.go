package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/google/uuid"
)

// PlaceholderURL is used for submissions that carry no media payload
const PlaceholderURL = "https://via.placeholder.com/400"

// ErrUploadFailed is returned when the media sink rejects or fails an upload
var ErrUploadFailed = errors.New("media upload failed")

// Uploader accepts a media payload and returns a durable retrievable URL
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// HTTPUploader uploads media to an external hosting service over HTTP
type HTTPUploader struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPUploader creates an uploader pointed at the given endpoint
func NewHTTPUploader(endpoint, apiKey string) *HTTPUploader {
	return &HTTPUploader{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload posts the payload as multipart form data and returns the hosted URL.
// Each upload gets a fresh public ID so repeated submissions of the same
// filename never collide.
func (u *HTTPUploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.WriteField("public_id", "findmeme/"+uuid.NewString()); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrUploadFailed, resp.StatusCode, body)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("%w: empty url in response", ErrUploadFailed)
	}

	return result.URL, nil
}
