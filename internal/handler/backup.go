package handler

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type upload struct {
	Target string `json:"target"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) downloadBackup(c *gin.Context) {
	data, name, err := h.gateway.Export(h.svc.Courses(), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition(name))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// restoreBackup accepts the document as a multipart "file" field or as the raw body.
func (h *Handler) restoreBackup(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere el campo file."})
			return
		}
		defer file.Close()
		body = file
	}
	data, err := io.ReadAll(io.LimitReader(body, h.maxUpload+1))
	if err != nil {
		h.fail(c, err)
		return
	}
	if int64(len(data)) > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "El archivo es demasiado grande."})
		return
	}

	courses, err := h.gateway.Import(data)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.ReplaceAll(c.Request.Context(), courses); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Datos restaurados.", "courses": len(courses)})
}

// offsiteBackup pushes today's backup to every configured target.
func (h *Handler) offsiteBackup(c *gin.Context) {
	if len(h.uploaders) == 0 {
		h.fail(c, errNoUploaders)
		return
	}
	data, name, err := h.gateway.Export(h.svc.Courses(), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}

	results := make([]upload, 0, len(h.uploaders))
	failed := 0
	for _, u := range h.uploaders {
		url, err := u.UploadBackup(c.Request.Context(), name, data)
		h.metrics.BackupUpload(u.Name(), err)
		if err != nil {
			failed++
			h.log.Warn("off-site backup failed", zap.String("target", u.Name()), zap.Error(err))
			results = append(results, upload{Target: u.Name(), Error: err.Error()})
			continue
		}
		results = append(results, upload{Target: u.Name(), URL: url})
	}

	status := http.StatusOK
	if failed == len(h.uploaders) {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"filename": name, "uploads": results})
}

func contentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
