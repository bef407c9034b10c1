package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"asistencia/internal/model"
	"asistencia/internal/report"
	"asistencia/internal/stats"
)

type courseView struct {
	model.Course
	CurrentWeek int `json:"currentWeek"`
}

func (h *Handler) view(c model.Course) courseView {
	return courseView{Course: c, CurrentWeek: model.CurrentWeek(c.StartDate, c.Weeks, h.now())}
}

func (h *Handler) listCourses(c *gin.Context) {
	courses := h.svc.Courses()
	out := make([]courseView, len(courses))
	for i, course := range courses {
		out[i] = h.view(course)
	}
	activeID := ""
	if active, ok := h.svc.ActiveCourse(); ok {
		activeID = active.ID
	}
	c.JSON(http.StatusOK, gin.H{"courses": out, "activeCourseId": activeID})
}

type createCourseRequest struct {
	Name      string `json:"name" binding:"notblank"`
	Weeks     int    `json:"weeks" binding:"gte=0,lte=60"`
	StartDate string `json:"startDate" binding:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) createCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	course, err := h.svc.AddCourse(c.Request.Context(), req.Name, req.Weeks, req.StartDate)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(course))
}

func (h *Handler) activeCourse(c *gin.Context) {
	course, ok := h.svc.ActiveCourse()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No hay un grupo seleccionado."})
		return
	}
	c.JSON(http.StatusOK, h.view(course))
}

func (h *Handler) getCourse(c *gin.Context) {
	course, err := h.svc.Course(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(course))
}

func (h *Handler) deleteCourse(c *gin.Context) {
	if err := h.svc.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) selectCourse(c *gin.Context) {
	if err := h.svc.SelectCourse(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addStudentRequest struct {
	Name string `json:"name" binding:"notblank,max=200"`
}

func (h *Handler) addStudent(c *gin.Context) {
	var req addStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	student, err := h.svc.AddStudent(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

type toggleRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Date      string `json:"date" binding:"required,datetime=2006-01-02"`
}

func (h *Handler) toggleAttendance(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	present, err := h.svc.ToggleAttendance(c.Request.Context(), c.Param("id"), req.StudentID, req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"studentId": req.StudentID, "date": req.Date, "present": present})
}

func (h *Handler) courseStats(c *gin.Context) {
	course, err := h.svc.Course(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	sum := stats.Compute(course)
	c.JSON(http.StatusOK, gin.H{
		"threshold":   stats.AtRiskThreshold,
		"atRiskCount": sum.AtRiskCount(),
		"summary":     sum,
	})
}

func (h *Handler) courseReport(c *gin.Context) {
	course, err := h.svc.Course(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	date := c.DefaultQuery("date", model.FormatDate(h.now()))
	if !model.ValidDate(date) {
		h.fail(c, model.ErrInvalidDate)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, report.Rows(course, stats.Compute(course))); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition(report.Filename(course.Name, date)))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) importRoster(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere el campo file."})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.fail(c, err)
		return
	}
	if int64(len(data)) > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "El archivo es demasiado grande."})
		return
	}
	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(data)
	}

	imported, err := h.svc.ImportRoster(c.Request.Context(), c.Param("id"), data, mediaType)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": imported})
}
