package media

import "github.com/google/uuid"

// VideoForm is the multipart form of an upload or metadata update.
type VideoForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Status      string `form:"status"`
	Category    string `form:"category"`
}

func (f *VideoForm) metadata() Metadata {
	return Metadata{
		Title:       f.Title,
		Description: f.Description,
		Status:      f.Status,
		Category:    f.Category,
	}
}

// StatusRequest changes a video's status.
type StatusRequest struct {
	Status string `json:"status" form:"status" binding:"required"`
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Message string    `json:"message"`
	VideoID uuid.UUID `json:"videoId"`
	Video   *Video    `json:"video"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}
