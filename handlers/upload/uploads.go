package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/supportdesk/topup-api/services/storage"
	"github.com/supportdesk/topup-api/utils/response"
)

// maxUploadSize caps attachment size at 10 MB.
const maxUploadSize = 10 << 20

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadHandler stores message image attachments and hands back the
// public URL the client then posts as image_url.
type UploadHandler struct {
	uploader storage.Uploader
}

// NewUploadHandler creates a new upload handler. uploader may be nil
// when object storage is not configured.
func NewUploadHandler(uploader storage.Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// Upload handles POST /api/v1/uploads (multipart, field "file")
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	if h.uploader == nil {
		return response.ServiceUnavailable(c, "File storage not configured")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "file required")
	}
	if fileHeader.Size > maxUploadSize {
		return response.BadRequest(c, "File too large (max 10 MB)")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		return response.BadRequest(c, "Only image uploads are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read upload")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("chat-images/%s%s", uuid.NewString(), ext)
	url, err := h.uploader.Upload(c.Context(), key, file, contentType)
	if err != nil {
		return response.InternalServerError(c, "Failed to store upload")
	}

	return response.Created(c, fiber.Map{"url": url})
}
