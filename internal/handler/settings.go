package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"asistencia/internal/syncclient"
)

type settingsRequest struct {
	TeacherName *string `json:"teacherName" binding:"omitempty,notblank,max=120"`
	SyncURL     *string `json:"syncUrl" binding:"omitempty,max=2048"`
}

func (h *Handler) getSettings(c *gin.Context) {
	s := h.svc.Settings()
	c.JSON(http.StatusOK, gin.H{
		"teacherName": s.TeacherName,
		"syncUrl":     s.SyncURL,
		"syncEnabled": syncclient.Enabled(s.SyncURL),
	})
}

// updateSettings persists only the keys present in the body.
func (h *Handler) updateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if req.TeacherName != nil {
		if err := h.svc.SetTeacherName(ctx, *req.TeacherName); err != nil {
			h.fail(c, err)
			return
		}
	}
	if req.SyncURL != nil {
		if err := h.svc.SetSyncURL(ctx, *req.SyncURL); err != nil {
			h.fail(c, err)
			return
		}
	}
	h.getSettings(c)
}

func (h *Handler) syncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  h.sync.Status(),
		"enabled": syncclient.Enabled(h.svc.Settings().SyncURL),
	})
}

func (h *Handler) syncTest(c *gin.Context) {
	s := h.svc.Settings()
	if err := h.sync.Test(c.Request.Context(), s.TeacherName, s.SyncURL); err != nil {
		if errors.Is(err, syncclient.ErrDisabled) {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"status": h.sync.Status(), "error": "No se pudo contactar la URL de sincronización."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": h.sync.Status()})
}
