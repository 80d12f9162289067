package controller

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/service"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
)

// parseID reads a positive numeric path parameter, writing a 400 when it
// is malformed.
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid ID.")
		return 0, false
	}
	return uint(id), true
}

// currentActor is the authenticated caller; routes using it sit behind
// Authenticate so a miss is reported as 401.
func currentActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return service.Actor{}, false
	}
	role, _ := middleware.GetUserRole(c)
	return service.Actor{ID: userID, Role: role}, true
}

// optionalActor is the caller on public routes, or nil when anonymous.
func optionalActor(c *gin.Context) *service.Actor {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return nil
	}
	role, _ := middleware.GetUserRole(c)
	return &service.Actor{ID: userID, Role: role}
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func queryBool(c *gin.Context, key string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func toUploads(files []*multipart.FileHeader) []service.Upload {
	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		fh := fh
		uploads = append(uploads, service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}

// absoluteURL resolves host-relative storage URLs against baseURL, or the
// request's own scheme and host when no public base URL is configured.
func absoluteURL(c *gin.Context, baseURL, u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if baseURL == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		baseURL = scheme + "://" + c.Request.Host
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(u, "/")
}
