package attendance

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asistencia/internal/logging"
	"asistencia/internal/metrics"
	"asistencia/internal/model"
)

var (
	ErrBlankName       = errors.New("name must not be blank")
	ErrNoActiveCourse  = errors.New("no active course")
	ErrCourseNotFound  = errors.New("course not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrInvalidDate     = model.ErrInvalidDate
)

// Persister receives the full new value of every key a mutation changed.
type Persister interface {
	SaveCourses(ctx context.Context, courses []model.Course) error
	SaveTeacherName(ctx context.Context, name string) error
	SaveSyncURL(ctx context.Context, url string) error
}

// Event describes one committed attendance toggle.
type Event struct {
	SyncURL string
	Teacher string
	Course  string
	Student string
	Date    string
	Present bool
}

// Dispatcher forwards toggle events to the outside world. Dispatch must not block.
type Dispatcher interface {
	Dispatch(evt Event)
}

// Settings are the two scalar preferences kept next to the course collection.
type Settings struct {
	TeacherName string `json:"teacherName"`
	SyncURL     string `json:"syncUrl"`
}

// State seeds a Service, usually from persistence.Gateway.Load.
type State struct {
	Courses  []model.Course
	Settings Settings
}

// Service owns the course collection and is the only path that changes it.
// Every mutation is persisted before it becomes visible.
type Service struct {
	mu       sync.Mutex
	courses  []model.Course
	activeID string
	settings Settings

	persist  Persister
	dispatch Dispatcher
	parser   RosterParser
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

func WithDispatcher(d Dispatcher) Option     { return func(s *Service) { s.dispatch = d } }
func WithRosterParser(p RosterParser) Option { return func(s *Service) { s.parser = p } }
func WithLogger(l *zap.Logger) Option        { return func(s *Service) { s.log = logging.OrNop(l) } }
func WithMetrics(m *metrics.Metrics) Option  { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// NewService creates a service over the given initial state.
func NewService(state State, p Persister, opts ...Option) *Service {
	courses := model.CloneAll(state.Courses)
	for i := range courses {
		courses[i].Normalize()
	}
	s := &Service{
		courses:  courses,
		settings: state.Settings,
		persist:  p,
		log:      zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ToggleAttendance inverts the effective presence of a student on date and
// returns the new value. An empty courseID means the active course.
// With no prior mark the student counts as present, so the first toggle records an absence.
func (s *Service) ToggleAttendance(ctx context.Context, courseID, studentID, date string) (bool, error) {
	if !model.ValidDate(date) {
		return false, errors.Wrapf(ErrInvalidDate, "%q", date)
	}

	s.mu.Lock()
	ci, err := s.resolveCourse(courseID)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	si := s.courses[ci].FindStudent(studentID)
	if si < 0 {
		s.mu.Unlock()
		return false, ErrStudentNotFound
	}

	next := s.cloneCourses()
	student := &next[ci].Students[si]
	current, ok := student.Attendance[date]
	present := ok && !current
	student.Attendance[date] = present

	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return false, err
	}
	evt := Event{
		SyncURL: s.settings.SyncURL,
		Teacher: s.settings.TeacherName,
		Course:  next[ci].Name,
		Student: student.Name,
		Date:    date,
		Present: present,
	}
	s.mu.Unlock()

	s.metrics.Toggle()
	if s.dispatch != nil {
		s.dispatch.Dispatch(evt)
	}
	return present, nil
}

// AddCourse appends a new course and makes it active. weeks <= 0 falls back to
// model.DefaultWeeks and an empty startDate to today.
func (s *Service) AddCourse(ctx context.Context, name string, weeks int, startDate string) (model.Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Course{}, ErrBlankName
	}
	if weeks <= 0 {
		weeks = model.DefaultWeeks
	}
	if startDate == "" {
		startDate = model.FormatDate(s.now())
	} else if !model.ValidDate(startDate) {
		return model.Course{}, errors.Wrapf(ErrInvalidDate, "%q", startDate)
	}

	course := model.Course{
		ID:          s.newID(),
		Name:        name,
		Description: "",
		Weeks:       weeks,
		StartDate:   startDate,
		Students:    []model.Student{},
		Subjects:    []string{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(s.cloneCourses(), course)
	if err := s.commit(ctx, next); err != nil {
		return model.Course{}, err
	}
	s.activeID = course.ID
	s.log.Info("course added", zap.String("course_id", course.ID), zap.String("name", name))
	return course.Clone(), nil
}

// AddStudent appends a student to courseID, or to the active course when courseID is empty.
func (s *Service) AddStudent(ctx context.Context, courseID, name string) (model.Student, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Student{}, ErrBlankName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ci, err := s.resolveCourse(courseID)
	if err != nil {
		return model.Student{}, err
	}
	student := s.newStudent(name)
	next := s.cloneCourses()
	next[ci].Students = append(next[ci].Students, student)
	if err := s.commit(ctx, next); err != nil {
		return model.Student{}, err
	}
	return student.Clone(), nil
}

// DeleteCourse removes a course with its roster and clears the selection if it was active.
func (s *Service) DeleteCourse(ctx context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci := s.indexOf(courseID)
	if ci < 0 {
		return ErrCourseNotFound
	}
	next := make([]model.Course, 0, len(s.courses)-1)
	for i, c := range s.courses {
		if i != ci {
			next = append(next, c.Clone())
		}
	}
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	if s.activeID == courseID {
		s.activeID = ""
	}
	s.log.Info("course deleted", zap.String("course_id", courseID))
	return nil
}

// SelectCourse makes courseID the active course.
func (s *Service) SelectCourse(courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(courseID) < 0 {
		return ErrCourseNotFound
	}
	s.activeID = courseID
	return nil
}

// ActiveCourse returns a copy of the active course, if any.
func (s *Service) ActiveCourse() (model.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci := s.indexOf(s.activeID)
	if ci < 0 {
		return model.Course{}, false
	}
	return s.courses[ci].Clone(), true
}

// Courses returns a deep copy of the collection.
func (s *Service) Courses() []model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneCourses()
}

// Course returns a copy of one course.
func (s *Service) Course(courseID string) (model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci := s.indexOf(courseID)
	if ci < 0 {
		return model.Course{}, ErrCourseNotFound
	}
	return s.courses[ci].Clone(), nil
}

// ReplaceAll overwrites the whole collection, as a backup restore does.
func (s *Service) ReplaceAll(ctx context.Context, courses []model.Course) error {
	next := model.CloneAll(courses)
	for i := range next {
		next[i].Normalize()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	if s.indexOf(s.activeID) < 0 {
		s.activeID = ""
	}
	s.log.Info("course collection replaced", zap.Int("courses", len(next)))
	return nil
}

// Settings returns the current preferences.
func (s *Service) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetTeacherName changes the name sent with sync events.
func (s *Service) SetTeacherName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBlankName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist.SaveTeacherName(ctx, name); err != nil {
		return err
	}
	s.settings.TeacherName = name
	return nil
}

// SetSyncURL changes the webhook URL. An empty URL disables sync.
func (s *Service) SetSyncURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist.SaveSyncURL(ctx, url); err != nil {
		return err
	}
	s.settings.SyncURL = url
	return nil
}

// commit persists next and installs it. Callers hold s.mu.
func (s *Service) commit(ctx context.Context, next []model.Course) error {
	if err := s.persist.SaveCourses(ctx, next); err != nil {
		return errors.Wrap(err, "attendance.commit")
	}
	s.courses = next
	return nil
}

func (s *Service) resolveCourse(courseID string) (int, error) {
	if courseID == "" {
		courseID = s.activeID
		if courseID == "" {
			return -1, ErrNoActiveCourse
		}
	}
	ci := s.indexOf(courseID)
	if ci < 0 {
		if courseID == s.activeID {
			return -1, ErrNoActiveCourse
		}
		return -1, ErrCourseNotFound
	}
	return ci, nil
}

func (s *Service) newStudent(name string) model.Student {
	return model.Student{
		ID:         s.newID(),
		Name:       name,
		Attendance: map[string]bool{},
		Grades:     map[string]float64{},
	}
}

func (s *Service) indexOf(courseID string) int {
	if courseID == "" {
		return -1
	}
	for i := range s.courses {
		if s.courses[i].ID == courseID {
			return i
		}
	}
	return -1
}

func (s *Service) cloneCourses() []model.Course {
	return model.CloneAll(s.courses)
}
