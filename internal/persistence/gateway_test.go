package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asistencia/internal/model"
	"asistencia/internal/store"
)

type failingMedium struct{ err error }

func (f failingMedium) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingMedium) Set(context.Context, string, string) error         { return f.err }

func sampleCourses() []model.Course {
	return []model.Course{{
		ID: "c1", Name: "Math 10", Description: "", Weeks: 13, StartDate: "2024-01-08",
		Students: []model.Student{
			{ID: "s1", Name: "Ana", Attendance: map[string]bool{"2024-01-11": false}, Grades: map[string]float64{}},
			{ID: "s2", Name: "Beto", ExternalID: "1002", Attendance: map[string]bool{"2024-01-10": false}, Grades: map[string]float64{"algebra": 4.5}},
		},
		Subjects: []string{},
	}}
}

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	g := New(store.NewMemory(), "", nil, nil)
	snap, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Courses)
	assert.NotNil(t, snap.Courses)
	assert.Equal(t, DefaultTeacherName, snap.TeacherName)
	assert.Empty(t, snap.SyncURL)
}

func TestLoadCorruptFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Set(ctx, KeyCourses, "{not json"))
	require.NoError(t, m.Set(ctx, KeyTeacherName, "Profe Luz"))
	require.NoError(t, m.Set(ctx, KeySyncURL, "https://script.google.com/macros/s/abc/exec"))

	snap, err := New(m, "", nil, nil).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Courses)
	assert.Equal(t, "Profe Luz", snap.TeacherName)
	assert.Equal(t, "https://script.google.com/macros/s/abc/exec", snap.SyncURL)
}

func TestLoadMediumFailure(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := New(failingMedium{err: boom}, "", nil, nil).Load(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	g := New(m, "", nil, nil)

	require.NoError(t, g.SaveCourses(ctx, sampleCourses()))
	require.NoError(t, g.SaveTeacherName(ctx, "Profe Luz"))

	snap, err := g.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCourses(), snap.Courses)
	assert.Equal(t, "Profe Luz", snap.TeacherName)

	raw, _, _ := m.Get(ctx, KeyCourses)
	assert.Contains(t, raw, `"startDate":"2024-01-08"`)
	assert.Contains(t, raw, `"externalId":"1002"`)
}

func TestSaveFailureIsReturned(t *testing.T) {
	boom := errors.New("read-only")
	err := New(failingMedium{err: boom}, "", nil, nil).SaveSyncURL(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestExportImportRoundTrip(t *testing.T) {
	g := New(store.NewMemory(), "", nil, nil)
	now := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)

	data, name, err := g.Export(sampleCourses(), now)
	require.NoError(t, err)
	assert.Equal(t, "BACKUP_JULIA_2024-03-05.json", name)

	back, err := g.Import(data)
	require.NoError(t, err)
	assert.Equal(t, sampleCourses(), back)
}

func TestExportIdentifier(t *testing.T) {
	g := New(store.NewMemory(), "IEJR", nil, nil)
	assert.Equal(t, "BACKUP_IEJR_2025-01-31.json", g.BackupFilename(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))
}

func TestImportRejections(t *testing.T) {
	g := New(store.NewMemory(), "", nil, nil)

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"garbage", "hello", ErrMalformedBackup},
		{"truncated", `[{"id":"c1"`, ErrMalformedBackup},
		{"object", `{"courses":[]}`, ErrNotCollection},
		{"string", `"[]"`, ErrNotCollection},
		{"array of numbers", `[1,2]`, ErrMalformedBackup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Import([]byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestImportEmptyArray(t *testing.T) {
	courses, err := New(store.NewMemory(), "", nil, nil).Import([]byte(" [] "))
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
}

func TestImportNormalizesMissingMaps(t *testing.T) {
	courses, err := New(store.NewMemory(), "", nil, nil).Import([]byte(`[{"id":"c1","name":"7A","students":[{"id":"s1","name":"Ana"}]}]`))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.NotNil(t, courses[0].Subjects)
	assert.NotNil(t, courses[0].Students[0].Attendance)
	assert.NotNil(t, courses[0].Students[0].Grades)
}
