package attendance

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asistencia/internal/model"
)

var (
	ErrRosterParse       = errors.New("roster document could not be parsed")
	ErrNoStudentsFound   = errors.New("no students found in roster document")
	ErrRosterUnavailable = errors.New("roster import is not configured")
)

// RosterEntry is one person extracted from an uploaded roster document.
type RosterEntry struct {
	Name       string `json:"name"`
	ExternalID string `json:"externalId"`
}

// RosterParser extracts roster entries from a raw document (image, PDF, spreadsheet).
type RosterParser interface {
	ParseRoster(ctx context.Context, data []byte, mediaType string) ([]RosterEntry, error)
}

// ImportedStudent pairs a created student with the external id the parser reported.
// The external id is not stored on the student.
type ImportedStudent struct {
	Student    model.Student `json:"student"`
	ExternalID string        `json:"externalId"`
}

// ImportRoster parses data and appends one student per entry to courseID (or the
// active course). A parser failure yields ErrRosterParse and an empty result
// ErrNoStudentsFound; in both cases the roster is left unchanged.
func (s *Service) ImportRoster(ctx context.Context, courseID string, data []byte, mediaType string) ([]ImportedStudent, error) {
	if s.parser == nil {
		return nil, ErrRosterUnavailable
	}

	s.mu.Lock()
	_, err := s.resolveCourse(courseID)
	if courseID == "" {
		courseID = s.activeID
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entries, err := s.parser.ParseRoster(ctx, data, mediaType)
	if err != nil {
		s.metrics.RosterImport("error")
		s.log.Warn("roster parse failed", zap.String("media_type", mediaType), zap.Error(err))
		return nil, errors.Wrap(ErrRosterParse, err.Error())
	}
	if len(entries) == 0 {
		s.metrics.RosterImport("empty")
		return nil, ErrNoStudentsFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ci := s.indexOf(courseID)
	if ci < 0 {
		return nil, ErrCourseNotFound
	}
	next := s.cloneCourses()
	out := make([]ImportedStudent, 0, len(entries))
	for _, e := range entries {
		st := s.newStudent(e.Name)
		next[ci].Students = append(next[ci].Students, st)
		out = append(out, ImportedStudent{Student: st.Clone(), ExternalID: e.ExternalID})
	}
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.metrics.RosterImport("ok")
	s.log.Info("roster imported", zap.String("course_id", courseID), zap.Int("students", len(out)))
	return out, nil
}
