// Package persistence loads and saves the attendance document and its two
// settings over a key-value medium, and produces/consumes backup files.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asistencia/internal/logging"
	"asistencia/internal/metrics"
	"asistencia/internal/model"
	"asistencia/internal/store"
)

// Storage keys.
const (
	KeyCourses     = "julia_restrepo_v5_final"
	KeyTeacherName = "julia_teacher_name"
	KeySyncURL     = "julia_sync_url"
)

// DefaultTeacherName is shown until the teacher sets their own.
const DefaultTeacherName = "Docente Julia"

// DefaultIdentifier names backup files when none is configured.
const DefaultIdentifier = "JULIA"

var (
	ErrNotCollection   = errors.New("backup is not a course collection")
	ErrMalformedBackup = errors.New("backup could not be parsed")
)

// Snapshot is everything the gateway loads at start.
type Snapshot struct {
	Courses     []model.Course
	TeacherName string
	SyncURL     string
}

// Gateway reads and writes whole values over a store.Medium.
type Gateway struct {
	medium     store.Medium
	identifier string
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// New creates a gateway. identifier is used in backup file names.
func New(medium store.Medium, identifier string, log *zap.Logger, m *metrics.Metrics) *Gateway {
	if identifier == "" {
		identifier = DefaultIdentifier
	}
	return &Gateway{medium: medium, identifier: identifier, log: logging.OrNop(log), metrics: m}
}

// Load reads the document and settings. Absent or corrupt course data yields an
// empty collection; only medium failures are returned as errors.
func (g *Gateway) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Courses: []model.Course{}, TeacherName: DefaultTeacherName}

	raw, found, err := g.medium.Get(ctx, KeyCourses)
	if err != nil {
		return snap, errors.Wrap(err, "persistence.load(courses)")
	}
	if found && raw != "" {
		var courses []model.Course
		if err := json.Unmarshal([]byte(raw), &courses); err != nil {
			g.log.Warn("stored courses are corrupt, starting empty", zap.Error(err))
		} else if courses != nil {
			for i := range courses {
				courses[i].Normalize()
			}
			snap.Courses = courses
		}
	}

	name, found, err := g.medium.Get(ctx, KeyTeacherName)
	if err != nil {
		return snap, errors.Wrap(err, "persistence.load(teacher)")
	}
	if found && name != "" {
		snap.TeacherName = name
	}

	url, _, err := g.medium.Get(ctx, KeySyncURL)
	if err != nil {
		return snap, errors.Wrap(err, "persistence.load(sync url)")
	}
	snap.SyncURL = url

	g.log.Info("attendance document loaded", zap.Int("courses", len(snap.Courses)))
	return snap, nil
}

// SaveCourses writes the full course collection.
func (g *Gateway) SaveCourses(ctx context.Context, courses []model.Course) error {
	if courses == nil {
		courses = []model.Course{}
	}
	raw, err := json.Marshal(courses)
	if err != nil {
		return errors.Wrap(err, "persistence.marshal(courses)")
	}
	return g.set(ctx, KeyCourses, string(raw))
}

func (g *Gateway) SaveTeacherName(ctx context.Context, name string) error {
	return g.set(ctx, KeyTeacherName, name)
}

func (g *Gateway) SaveSyncURL(ctx context.Context, url string) error {
	return g.set(ctx, KeySyncURL, url)
}

func (g *Gateway) set(ctx context.Context, key, value string) error {
	err := g.medium.Set(ctx, key, value)
	g.metrics.Persist(key, err)
	if err != nil {
		g.log.Error("persist failed", zap.String("key", key), zap.Error(err))
		return errors.Wrapf(err, "persistence.save(%s)", key)
	}
	return nil
}

// Export renders the backup document and its file name for the day of now.
func (g *Gateway) Export(courses []model.Course, now time.Time) ([]byte, string, error) {
	if courses == nil {
		courses = []model.Course{}
	}
	data, err := json.Marshal(courses)
	if err != nil {
		return nil, "", errors.Wrap(err, "persistence.export")
	}
	return data, g.BackupFilename(now), nil
}

// BackupFilename is BACKUP_<identifier>_<YYYY-MM-DD>.json.
func (g *Gateway) BackupFilename(now time.Time) string {
	return fmt.Sprintf("BACKUP_%s_%s.json", g.identifier, now.Format(model.DateLayout))
}

// Import parses a backup document. Anything other than a JSON array of courses is rejected.
func (g *Gateway) Import(data []byte) ([]model.Course, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, ErrMalformedBackup
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotCollection
	}
	var courses []model.Course
	if err := json.Unmarshal(trimmed, &courses); err != nil {
		return nil, errors.Wrap(ErrMalformedBackup, err.Error())
	}
	for i := range courses {
		courses[i].Normalize()
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}
