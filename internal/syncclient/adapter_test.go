package syncclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asistencia/internal/attendance"
)

type recordingPusher struct {
	mu       sync.Mutex
	payloads []Payload
	urls     []string
	err      error
	release  chan struct{}
}

func (r *recordingPusher) Push(_ context.Context, url string, p Payload) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	r.payloads = append(r.payloads, p)
	return r.err
}

const hook = "https://script.google.com/macros/s/abc/exec"

func TestDispatchDisabledIsNoop(t *testing.T) {
	p := &recordingPusher{}
	a := NewAdapter(p, time.Millisecond, nil, nil)

	a.Dispatch(attendance.Event{SyncURL: "", Student: "Ana"})
	a.Dispatch(attendance.Event{SyncURL: "https://example.com/hook", Student: "Ana"})
	a.Wait()

	assert.Empty(t, p.payloads)
	assert.Equal(t, StatusIdle, a.Status())
}

func TestDispatchSuccessRevertsToIdle(t *testing.T) {
	p := &recordingPusher{release: make(chan struct{})}
	a := NewAdapter(p, 20*time.Millisecond, nil, nil)

	a.Dispatch(attendance.Event{SyncURL: hook, Teacher: "Docente Julia", Course: "Math 10", Student: "Beto", Date: "2024-01-10", Present: false})
	assert.Equal(t, StatusSyncing, a.Status())

	close(p.release)
	a.Wait()
	assert.Equal(t, StatusSuccess, a.Status())
	require.Len(t, p.payloads, 1)
	assert.Equal(t, Payload{Docente: "Docente Julia", Curso: "Math 10", Estudiante: "Beto", Fecha: "2024-01-10", Asistio: "NO"}, p.payloads[0])

	assert.Eventually(t, func() bool { return a.Status() == StatusIdle }, time.Second, 5*time.Millisecond)
}

func TestDispatchFailureSetsError(t *testing.T) {
	p := &recordingPusher{err: errors.New("offline")}
	a := NewAdapter(p, time.Millisecond, nil, nil)

	a.Dispatch(attendance.Event{SyncURL: hook, Student: "Ana", Date: "2024-01-10"})
	a.Wait()

	assert.Equal(t, StatusError, a.Status())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, StatusError, a.Status())
}

func TestConnectionTest(t *testing.T) {
	p := &recordingPusher{}
	a := NewAdapter(p, time.Hour, nil, nil)

	assert.ErrorIs(t, a.Test(context.Background(), "Docente Julia", ""), ErrDisabled)

	require.NoError(t, a.Test(context.Background(), "Docente Julia", hook))
	require.Len(t, p.payloads, 1)
	assert.Equal(t, Payload{Docente: "Docente Julia", Curso: "SISTEMA", Estudiante: "VERIFICACIÓN", Fecha: "2024-01-01", Asistio: "SÍ"}, p.payloads[0])
	assert.Equal(t, []string{hook}, p.urls)
	assert.Equal(t, StatusSuccess, a.Status())
}
