package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	DeviceID    string `json:"deviceId" binding:"notblank,max=128"`
	PairingCode string `json:"pairingCode" binding:"required"`
}

func (h *Handler) registerDevice(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	tokens, err := h.issuer.Pair(req.DeviceID, req.PairingCode)
	if err != nil {
		h.log.Warn("device pairing rejected", zap.String("device_id", req.DeviceID), zap.String("ip", c.ClientIP()))
		h.fail(c, err)
		return
	}
	h.log.Info("device paired", zap.String("device_id", req.DeviceID))
	c.JSON(http.StatusCreated, tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *Handler) refreshDevice(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	tokens, err := h.issuer.Refresh(req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}
