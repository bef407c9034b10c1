package syncclient

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asistencia/internal/attendance"
	"asistencia/internal/logging"
	"asistencia/internal/metrics"
)

// Status is the sync indicator shown to the teacher.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrDisabled is returned by Test when no usable webhook URL is configured.
var ErrDisabled = errors.New("sync url is not configured")

// Pusher delivers one payload.
type Pusher interface {
	Push(ctx context.Context, url string, p Payload) error
}

// Adapter turns committed toggles into best-effort webhook pushes.
// It never retries, queues or orders pushes.
type Adapter struct {
	pusher    Pusher
	idleDelay time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics

	mu     sync.Mutex
	status Status
	gen    uint64
	wg     sync.WaitGroup
}

// NewAdapter creates an adapter; success reverts to idle after idleDelay.
func NewAdapter(p Pusher, idleDelay time.Duration, log *zap.Logger, m *metrics.Metrics) *Adapter {
	return &Adapter{
		pusher:    p,
		idleDelay: idleDelay,
		log:       logging.OrNop(log),
		metrics:   m,
		status:    StatusIdle,
	}
}

// Dispatch starts a push in the background and returns immediately.
func (a *Adapter) Dispatch(evt attendance.Event) {
	if !Enabled(evt.SyncURL) {
		return
	}
	gen := a.setStatus(StatusSyncing)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.push(context.Background(), gen, evt)
	}()
}

// Test pushes a verification event synchronously.
func (a *Adapter) Test(ctx context.Context, teacher, url string) error {
	if !Enabled(url) {
		return ErrDisabled
	}
	gen := a.setStatus(StatusSyncing)
	return a.push(ctx, gen, attendance.Event{
		SyncURL: url,
		Teacher: teacher,
		Course:  "SISTEMA",
		Student: "VERIFICACIÓN",
		Date:    "2024-01-01",
		Present: true,
	})
}

// Status returns the current indicator.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Wait blocks until in-flight pushes finish.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

func (a *Adapter) push(ctx context.Context, gen uint64, evt attendance.Event) error {
	err := a.pusher.Push(ctx, evt.SyncURL, Payload{
		Docente:    evt.Teacher,
		Curso:      evt.Course,
		Estudiante: evt.Student,
		Fecha:      evt.Date,
		Asistio:    Mark(evt.Present),
	})
	a.metrics.SyncPush(err)
	if err != nil {
		a.log.Warn("sync push failed", zap.String("student", evt.Student), zap.String("date", evt.Date), zap.Error(err))
		a.finish(gen, StatusError)
		return err
	}
	a.finish(gen, StatusSuccess)
	return nil
}

// finish records the outcome of push gen unless a newer push has started.
func (a *Adapter) finish(gen uint64, st Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return
	}
	a.status = st
	if st != StatusSuccess {
		return
	}
	time.AfterFunc(a.idleDelay, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.gen == gen && a.status == StatusSuccess {
			a.status = StatusIdle
		}
	})
}

func (a *Adapter) setStatus(st Status) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.status = st
	return a.gen
}
