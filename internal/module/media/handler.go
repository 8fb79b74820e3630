package media

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sflix/server/internal/shared/response"
)

// Handler handles HTTP requests for the video catalogue.
type Handler struct {
	service        *Service
	maxUploadBytes int64
}

// NewHandler creates a new media handler. A non-positive maxUploadBytes
// leaves request bodies unbounded.
func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// RegisterViewerRoutes registers routes for signed-in, entitled viewers.
func (h *Handler) RegisterViewerRoutes(r *gin.RouterGroup) {
	r.GET("/videos", h.ListVideos)
}

// RegisterAdminRoutes registers catalogue management routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/upload", h.Upload)
	r.PUT("/video/update/:id", h.UpdateVideo)
	r.PUT("/video/status/:id", h.UpdateStatus)
	r.DELETE("/video/delete/:id", h.DeleteVideo)
}

// Upload stores a video, its thumbnail and an optional trailer.
//
//	@Summary		Upload video
//	@Tags			Video
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file		formData	file	true	"Video file"
//	@Param			thumbnail	formData	file	true	"Thumbnail image"
//	@Param			trailerFile	formData	file	false	"Trailer video"
//	@Param			title		formData	string	true	"Title"
//	@Param			description	formData	string	true	"Description"
//	@Param			status		formData	string	true	"Status"
//	@Param			category	formData	string	true	"Category"
//	@Success		201			{object}	UploadResponse
//	@Failure		400			{object}	response.ErrorResponse
//	@Failure		500			{object}	response.ErrorResponse
//	@Router			/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	h.limitBody(c)

	var form VideoForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	in := &UploadInput{Metadata: form.metadata()}
	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()

	for field, dst := range map[string]**FileInput{
		"file":        &in.File,
		"thumbnail":   &in.Thumbnail,
		"trailerFile": &in.Trailer,
	} {
		f, closer, err := formFile(c, field)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		*dst = f
	}

	v, err := h.service.Upload(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		Message: "Video uploaded successfully",
		VideoID: v.ID,
		Video:   v,
	})
}

// ListVideos returns the catalogue, newest first.
//
//	@Summary		List videos
//	@Tags			Video
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		Video
//	@Failure		402	{object}	response.ErrorResponse
//	@Router			/videos [get]
func (h *Handler) ListVideos(c *gin.Context) {
	videos, err := h.service.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

// UpdateVideo replaces a video's metadata and optionally its thumbnail.
//
//	@Summary		Update video metadata
//	@Tags			Video
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"Video ID"
//	@Param			thumbnail	formData	file	false	"New thumbnail"
//	@Success		200			{object}	MessageResponse
//	@Failure		400			{object}	response.ErrorResponse
//	@Failure		404			{object}	response.ErrorResponse
//	@Router			/video/update/{id} [put]
func (h *Handler) UpdateVideo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h.limitBody(c)

	var form VideoForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	thumb, closer, err := formFile(c, "thumbnail")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	if err := h.service.Update(c.Request.Context(), id, &UpdateInput{Metadata: form.metadata(), Thumbnail: thumb}); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Video metadata updated successfully!"})
}

// UpdateStatus changes a video's status.
//
//	@Summary		Update video status
//	@Tags			Video
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Video ID"
//	@Param			request	body		StatusRequest	true	"New status"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		404		{object}	response.ErrorResponse
//	@Router			/video/status/{id} [put]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "status is required")
		return
	}

	if err := h.service.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Video status updated successfully!"})
}

// DeleteVideo removes a video record; stored files are kept.
//
//	@Summary		Delete video
//	@Tags			Video
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Video ID"
//	@Success		200	{object}	MessageResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/video/delete/{id} [delete]
func (h *Handler) DeleteVideo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Video metadata deleted successfully"})
}

// --- Helpers ---

func (h *Handler) limitBody(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
}

// formFile opens an optional multipart file. A missing field, or a body
// that is not multipart at all, yields nil.
func formFile(c *gin.Context, field string) (*FileInput, io.Closer, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return openFile(header)
}

func openFile(header *multipart.FileHeader) (*FileInput, io.Closer, error) {
	f, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &FileInput{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}, f, nil
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorWithCode(c, http.StatusNotFound, "VIDEO_NOT_FOUND", "video not found")
		return uuid.Nil, false
	}
	return id, true
}

var errorMappings = []response.ErrorMapping{
	{Err: ErrVideoNotFound, Status: http.StatusNotFound, Code: "VIDEO_NOT_FOUND", Message: "video not found"},
	{Err: ErrInvalidVideo, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Err: ErrUpload, Status: http.StatusInternalServerError, Code: "UPLOAD_FAILED", Message: "error uploading video"},
}

func handleError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, errorMappings)
}
