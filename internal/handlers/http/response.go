package http

import (
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

func (cc CookieConfig) set(c *gin.Context, token string, expires time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cc.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// clear overwrites the session cookie with one that has already expired.
func (cc CookieConfig) clear(c *gin.Context) {
	cc.set(c, "", time.Now())
}

func ok(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
	})
}

func currentUserID(c *gin.Context) domain.UserID {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return ""
}

// formUpload opens the multipart file in field. A missing file yields a nil
// upload; the returned close func is always safe to call.
func formUpload(c *gin.Context, field string) (*domain.Upload, func()) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, func() {}
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}
	}
	return toUpload(header, file), func() { file.Close() }
}

func toUpload(header *multipart.FileHeader, file multipart.File) *domain.Upload {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &domain.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}
}

// bindForm binds JSON, urlencoded or multipart bodies into req. A body that
// fails to bind leaves fields empty and the service reports them missing.
func bindForm(c *gin.Context, req interface{}) {
	_ = c.ShouldBind(req)
}

func trim(values ...*string) {
	for _, v := range values {
		*v = strings.TrimSpace(*v)
	}
}
