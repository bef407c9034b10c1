// Package stats derives per-student absence statistics from a course roster.
package stats

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"asistencia/internal/model"
)

// AtRiskThreshold is the absence percentage at or above which a student is flagged.
const AtRiskThreshold = 20.0

// StudentStats is the derived absence picture of one student.
type StudentStats struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	AbsenceCount int      `json:"absenceCount"`
	AbsenceDates []string `json:"absenceDates"`
	AbsenceRate  float64  `json:"absenceRate"`
	AtRisk       bool     `json:"atRisk"`
}

// Summary is the course-wide view: every recorded date plus per-student stats sorted by name.
type Summary struct {
	RecordedDates []string       `json:"recordedDates"`
	Students      []StudentStats `json:"students"`
}

// Compute derives the summary for a course. It returns nil when the roster is empty.
func Compute(course model.Course) *Summary {
	if len(course.Students) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	for _, s := range course.Students {
		for date := range s.Attendance {
			seen[date] = struct{}{}
		}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]StudentStats, 0, len(course.Students))
	for _, s := range course.Students {
		absences := make([]string, 0)
		for date, present := range s.Attendance {
			if !present {
				absences = append(absences, date)
			}
		}
		sort.Strings(absences)

		var rate float64
		if len(dates) > 0 {
			rate = float64(len(absences)) / float64(len(dates)) * 100
		}
		out = append(out, StudentStats{
			ID:           s.ID,
			Name:         s.Name,
			AbsenceCount: len(absences),
			AbsenceDates: absences,
			AbsenceRate:  rate,
			AtRisk:       rate >= AtRiskThreshold,
		})
	}

	col := collate.New(language.Spanish)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})

	return &Summary{RecordedDates: dates, Students: out}
}

// AtRiskCount returns how many students are flagged at risk.
func (s *Summary) AtRiskCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, st := range s.Students {
		if st.AtRisk {
			n++
		}
	}
	return n
}

// ByID indexes the per-student stats.
func (s *Summary) ByID() map[string]StudentStats {
	out := make(map[string]StudentStats)
	if s == nil {
		return out
	}
	for _, st := range s.Students {
		out[st.ID] = st
	}
	return out
}

// IsPresent reports the effective presence on date; no record counts as present.
func IsPresent(s model.Student, date string) bool {
	present, ok := s.Attendance[date]
	return !ok || present
}

// HasRecord reports whether an explicit mark exists for date.
func HasRecord(s model.Student, date string) bool {
	_, ok := s.Attendance[date]
	return ok
}
