package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asistencia/internal/attendance"
	"asistencia/internal/auth"
	"asistencia/internal/persistence"
	"asistencia/internal/syncclient"
)

var errNoUploaders = errors.New("no off-site backup target configured")

type httpError struct {
	code    int
	message string
}

// knownErrors maps domain errors to status codes and the message shown to the teacher.
var knownErrors = []struct {
	err error
	httpError
}{
	{attendance.ErrBlankName, httpError{http.StatusBadRequest, "El nombre no puede estar vacío."}},
	{attendance.ErrInvalidDate, httpError{http.StatusBadRequest, "La fecha debe tener el formato AAAA-MM-DD."}},
	{attendance.ErrCourseNotFound, httpError{http.StatusNotFound, "Grupo no encontrado."}},
	{attendance.ErrStudentNotFound, httpError{http.StatusNotFound, "Estudiante no encontrado."}},
	{attendance.ErrNoActiveCourse, httpError{http.StatusConflict, "No hay un grupo seleccionado."}},
	{attendance.ErrNoStudentsFound, httpError{http.StatusUnprocessableEntity, "El documento no contiene estudiantes."}},
	{attendance.ErrRosterParse, httpError{http.StatusBadGateway, "No se pudo analizar el documento."}},
	{attendance.ErrRosterUnavailable, httpError{http.StatusServiceUnavailable, "La importación con IA no está configurada."}},
	{persistence.ErrNotCollection, httpError{http.StatusBadRequest, "El archivo no contiene una lista de grupos."}},
	{persistence.ErrMalformedBackup, httpError{http.StatusBadRequest, "Error al parsear el archivo."}},
	{syncclient.ErrDisabled, httpError{http.StatusConflict, "La URL de sincronización no está configurada."}},
	{auth.ErrBadPairingCode, httpError{http.StatusForbidden, "Código de vinculación incorrecto."}},
	{auth.ErrMissingDeviceID, httpError{http.StatusBadRequest, "Falta el identificador del dispositivo."}},
	{auth.ErrInvalidToken, httpError{http.StatusUnauthorized, "Token inválido."}},
	{auth.ErrWrongTokenKind, httpError{http.StatusUnauthorized, "Token inválido."}},
	{errNoUploaders, httpError{http.StatusServiceUnavailable, "No hay destino de copia externa configurado."}},
}

// fail writes the response for err and aborts the request.
func (h *Handler) fail(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos.", "fields": translateValidation(verrs, h.trans)})
		return
	}
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			c.AbortWithStatusJSON(k.code, gin.H{"error": k.message})
			return
		}
	}
	h.log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
}

// badRequest is used for bodies that could not be decoded at all.
func (h *Handler) badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		h.fail(c, err)
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cuerpo de la solicitud inválido."})
}
