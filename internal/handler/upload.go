package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 32 << 20

type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// readUpload reads a multipart file field into memory.
func readUpload(c *gin.Context, field string) (upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return upload{}, fmt.Errorf("file %q is required: %w", field, err)
	}
	if fh.Size > maxUploadSize {
		return upload{}, fmt.Errorf("file %s exceeds %d MB", fh.Filename, maxUploadSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return upload{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		return upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return upload{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

// attach writes a downloadable file.
func attach(c *gin.Context, name, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, body)
}
