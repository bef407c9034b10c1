package model

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the calendar-date key format used in attendance maps.
const DateLayout = "2006-01-02"

// DefaultWeeks is the academic period length used when a course is created without one.
const DefaultWeeks = 13

// ErrInvalidDate is returned for date strings that are not YYYY-MM-DD calendar dates.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Student is one roster entry. A date absent from Attendance means no record (shown as present).
type Student struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	ExternalID string             `json:"externalId,omitempty"`
	Attendance map[string]bool    `json:"attendance"`
	Grades     map[string]float64 `json:"grades"`
}

// Course is a class group with its roster in insertion order.
type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Weeks       int       `json:"weeks"`
	StartDate   string    `json:"startDate"`
	Students    []Student `json:"students"`
	Subjects    []string  `json:"subjects"`
}

// Normalize replaces nil maps and slices with empty ones so the persisted
// document carries {} and [] instead of null.
func (c *Course) Normalize() {
	if c.Students == nil {
		c.Students = []Student{}
	}
	if c.Subjects == nil {
		c.Subjects = []string{}
	}
	for i := range c.Students {
		c.Students[i].Normalize()
	}
}

// Normalize fills nil maps.
func (s *Student) Normalize() {
	if s.Attendance == nil {
		s.Attendance = map[string]bool{}
	}
	if s.Grades == nil {
		s.Grades = map[string]float64{}
	}
}

// Clone returns a deep copy of the student.
func (s Student) Clone() Student {
	out := s
	out.Attendance = make(map[string]bool, len(s.Attendance))
	for k, v := range s.Attendance {
		out.Attendance[k] = v
	}
	out.Grades = make(map[string]float64, len(s.Grades))
	for k, v := range s.Grades {
		out.Grades[k] = v
	}
	return out
}

// Clone returns a deep copy of the course.
func (c Course) Clone() Course {
	out := c
	out.Students = make([]Student, len(c.Students))
	for i, s := range c.Students {
		out.Students[i] = s.Clone()
	}
	out.Subjects = append([]string{}, c.Subjects...)
	return out
}

// FindStudent returns the index of the student with id, or -1.
func (c Course) FindStudent(id string) int {
	for i := range c.Students {
		if c.Students[i].ID == id {
			return i
		}
	}
	return -1
}

// CloneAll deep-copies a course collection.
func CloneAll(courses []Course) []Course {
	out := make([]Course, len(courses))
	for i, c := range courses {
		out[i] = c.Clone()
	}
	return out
}

// ParseDate parses a YYYY-MM-DD key in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidDate, "%q", s)
	}
	return t, nil
}

// ValidDate reports whether s is a well-formed calendar date key.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// FormatDate renders t as a date key in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CurrentWeek returns the 1-based week of the academic period that contains now.
// It is 0 before the period starts and never exceeds weeks.
func CurrentWeek(startDate string, weeks int, now time.Time) int {
	start, err := ParseDate(startDate)
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := today.Sub(start).Hours() / 24
	if days < 0 {
		return 0
	}
	week := int(math.Ceil(math.Ceil(days) / 7))
	if week < 1 {
		week = 1
	}
	if weeks > 0 && week > weeks {
		week = weeks
	}
	return week
}
