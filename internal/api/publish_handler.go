package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// multipartSlack covers form fields and part headers around the file itself
const multipartSlack = 1 << 20

// PublishHandler handles the preview/confirm/cancel pipeline and deletion
type PublishHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewPublishHandler creates a new PublishHandler
func NewPublishHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *PublishHandler {
	return &PublishHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "publish").Logger(),
	}
}

// UploadPreview handles POST /upload-preview
// Stages the multipart field "article" and returns its HTML rendering
func (h *PublishHandler) UploadPreview(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Storage.MaxDocumentSize+multipartSlack)

	header, err := c.FormFile("article")
	if err != nil {
		if isMissingFile(err) {
			badRequest(c, service.CodeUploadMissing, "no file was uploaded", nil)
			return
		}
		badRequest(c, service.CodeUploadInvalid, uploadErrorMessage(err), err)
		return
	}

	upload, file, err := openUpload(header)
	if err != nil {
		h.log.Error().Err(err).Str("file", header.Filename).Msg("Failed to open uploaded file")
		badRequest(c, service.CodeUploadInvalid, "could not read the uploaded file", err)
		return
	}
	defer file.Close()

	result, err := h.services.Publish.Preview(c.Request.Context(), upload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Document processed successfully",
		"tempPath":    result.TempPath,
		"htmlContent": result.HTMLContent,
		"fileName":    result.FileName,
	})
}

// ConfirmUpload handles POST /confirm-upload
// Accepts multipart (with optional "image" file) or JSON
func (h *PublishHandler) ConfirmUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Storage.MaxImageSize+multipartSlack)

	var req models.ConfirmRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, service.CodeConfirmInvalid, "invalid confirm request", err)
		return
	}

	var image *models.Upload
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		header, err := c.FormFile("image")
		switch {
		case err == nil:
			upload, file, openErr := openUpload(header)
			if openErr != nil {
				badRequest(c, service.CodeUploadInvalid, "could not read the uploaded image", openErr)
				return
			}
			defer file.Close()
			image = upload
		case !isMissingFile(err):
			badRequest(c, service.CodeUploadInvalid, uploadErrorMessage(err), err)
			return
		}
	}

	id, err := h.services.Publish.Confirm(c.Request.Context(), &req, image)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Int64("article_id", id).Bool("image", image != nil).Msg("Article published")

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Article published successfully",
		"articleId": id,
	})
}

// CancelUpload handles POST /cancel-upload
func (h *PublishHandler) CancelUpload(c *gin.Context) {
	var req models.CancelRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, service.CodeCancelInvalid, "invalid cancel request", err)
		return
	}

	if err := h.services.Publish.Cancel(c.Request.Context(), &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Upload cancelled",
	})
}

// DeleteArticle handles POST /admin/delete-article/:id and DELETE /admin/articles/:id
func (h *PublishHandler) DeleteArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	if err := h.services.Publish.DeleteArticle(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Article deleted successfully",
	})
}

func openUpload(header *multipart.FileHeader) (*models.Upload, multipart.File, error) {
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &models.Upload{
		Reader:    file,
		Size:      header.Size,
		MediaType: header.Header.Get("Content-Type"),
		FileName:  header.Filename,
	}, file, nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)
}

func uploadErrorMessage(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "file too large"
	}
	return "invalid multipart upload"
}
