package syncclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled(t *testing.T) {
	assert.True(t, Enabled("https://script.google.com/macros/s/abc/exec"))
	assert.False(t, Enabled(""))
	assert.False(t, Enabled("https://script.google.com/macros/s/abc/dev"))
}

func TestPush(t *testing.T) {
	var (
		gotBody        Payload
		gotContentType string
		gotMethod      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusFound)
		_, _ = w.Write([]byte("<html>moved</html>"))
	}))
	defer srv.Close()

	err := New(time.Second).Push(context.Background(), srv.URL+"/exec", Payload{
		Docente: "Docente Julia", Curso: "Math 10", Estudiante: "Ana", Fecha: "2024-03-04", Asistio: Mark(true),
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "text/plain", gotContentType)
	assert.Equal(t, Payload{Docente: "Docente Julia", Curso: "Math 10", Estudiante: "Ana", Fecha: "2024-03-04", Asistio: "SÍ"}, gotBody)
}

func TestPushTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL + "/exec"
	srv.Close()

	err := New(time.Second).Push(context.Background(), url, Payload{Asistio: Mark(false)})
	assert.Error(t, err)
}
