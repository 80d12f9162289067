package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/service"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
	"github.com/primeapparel/marketplace-backend/internal/storage"
)

type UploadController struct {
	mediaService service.MediaService
}

func NewUploadController(mediaService service.MediaService) *UploadController {
	return &UploadController{mediaService: mediaService}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
}

// GeneratePresignedURL hands the browser a direct S3 upload URL for a
// product image
// POST /api/v1/uploads/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid presigned URL request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	response, err := ctrl.mediaService.Presign(c.Request.Context(), storage.FolderProducts, req.Filename, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPresignNotSupported):
			apperrors.BadRequest(c, apperrors.StorageNotConfigured, "Direct uploads are not available on this server.")
		case errors.Is(err, service.ErrUnsupportedFile):
			apperrors.RespondWithValidationError(c, map[string]string{
				"content_type": "Only image files are allowed (JPEG, PNG, GIF, WEBP).",
			})
		default:
			log.Error("Failed to generate presigned URL", err, map[string]interface{}{
				"filename":     req.Filename,
				"content_type": req.ContentType,
			})
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalStorage, "Failed to generate presigned URL.")
		}
		return
	}

	log.Info("Presigned URL generated", map[string]interface{}{
		"key": response.Key,
	})
	c.JSON(http.StatusOK, response)
}
