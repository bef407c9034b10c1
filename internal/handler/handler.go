// Package handler exposes the attendance service over a JSON HTTP API.
package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"go.uber.org/zap"

	"asistencia/internal/attendance"
	"asistencia/internal/auth"
	"asistencia/internal/logging"
	"asistencia/internal/metrics"
	"asistencia/internal/persistence"
	"asistencia/internal/syncclient"
)

// BackupUploader copies a backup document off-site.
type BackupUploader interface {
	Name() string
	UploadBackup(ctx context.Context, filename string, data []byte) (string, error)
}

// Deps are the collaborators a Handler needs. Issuer nil disables device auth.
type Deps struct {
	Service   *attendance.Service
	Gateway   *persistence.Gateway
	Sync      *syncclient.Adapter
	Issuer    *auth.Issuer
	Uploaders []BackupUploader
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
	// MaxUploadBytes caps roster documents and backup restores.
	MaxUploadBytes int64
}

// Handler serves the /v1 API.
type Handler struct {
	svc       *attendance.Service
	gateway   *persistence.Gateway
	sync      *syncclient.Adapter
	issuer    *auth.Issuer
	uploaders []BackupUploader
	log       *zap.Logger
	metrics   *metrics.Metrics
	trans     ut.Translator
	now       func() time.Time
	maxUpload int64
}

// New builds a handler and installs request validation on gin's binding engine.
func New(d Deps) (*Handler, error) {
	trans, err := initValidator()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		svc:       d.Service,
		gateway:   d.Gateway,
		sync:      d.Sync,
		issuer:    d.Issuer,
		uploaders: d.Uploaders,
		log:       logging.OrNop(d.Logger),
		metrics:   d.Metrics,
		trans:     trans,
		now:       d.Now,
		maxUpload: d.MaxUploadBytes,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 10 << 20
	}
	return h, nil
}

// Register mounts every route under /v1. mw runs before the protected routes.
func (h *Handler) Register(r gin.IRouter, mw ...gin.HandlerFunc) {
	v1 := r.Group("/v1")
	if h.issuer != nil {
		v1.POST("/devices/register", h.registerDevice)
		v1.POST("/devices/refresh", h.refreshDevice)
	}

	api := v1.Group("")
	if h.issuer != nil {
		api.Use(auth.DeviceAuth(h.issuer))
	}
	api.Use(mw...)

	api.GET("/courses", h.listCourses)
	api.POST("/courses", h.createCourse)
	api.GET("/courses/active", h.activeCourse)
	api.GET("/courses/:id", h.getCourse)
	api.DELETE("/courses/:id", h.deleteCourse)
	api.POST("/courses/:id/select", h.selectCourse)
	api.POST("/courses/:id/students", h.addStudent)
	api.POST("/courses/:id/attendance/toggle", h.toggleAttendance)
	api.GET("/courses/:id/stats", h.courseStats)
	api.GET("/courses/:id/report.xlsx", h.courseReport)
	api.POST("/courses/:id/roster-import", h.importRoster)

	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.updateSettings)
	api.GET("/sync/status", h.syncStatus)
	api.POST("/sync/test", h.syncTest)

	api.GET("/backup", h.downloadBackup)
	api.POST("/backup", h.restoreBackup)
	api.POST("/backup/offsite", h.offsiteBackup)
}
