package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"asistencia/internal/model"
	"asistencia/internal/stats"
)

func scenarioCourse() model.Course {
	return model.Course{
		ID: "c1", Name: "Math 10",
		Students: []model.Student{
			{ID: "beto", Name: "Beto", Attendance: map[string]bool{"2024-01-10": false}},
			{ID: "ana", Name: "Ana", Attendance: map[string]bool{"2024-01-11": false}},
			{ID: "caro", Name: "Caro", Attendance: map[string]bool{"2024-01-10": true}},
		},
	}
}

func TestShortDate(t *testing.T) {
	assert.Equal(t, "Ene 10", ShortDate("2024-01-10"))
	assert.Equal(t, "Sept 3", ShortDate("2024-09-03"))
	assert.Equal(t, "Dic 31", ShortDate("2024-12-31"))
	assert.Equal(t, "garbage", ShortDate("garbage"))
}

func TestRows(t *testing.T) {
	course := scenarioCourse()
	rows := Rows(course, stats.Compute(course))
	require.Len(t, rows, 3)

	assert.Equal(t, Row{
		Number: 1, Student: "Beto", Sessions: 2, Absences: 1,
		AbsenceRate: "50.0%", Status: StatusAtRisk, AbsenceDates: "Ene 10",
	}, rows[0])
	assert.Equal(t, "Ana", rows[1].Student)
	assert.Equal(t, Row{
		Number: 3, Student: "Caro", Sessions: 2, Absences: 0,
		AbsenceRate: "0.0%", Status: StatusOK, AbsenceDates: "Sin faltas",
	}, rows[2])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Asistencia_Math 10_2024-01-11.xlsx", Filename("Math 10", "2024-01-11"))
	assert.Equal(t, "Asistencia_7-A_2024-01-11.xlsx", Filename("7/A", "2024-01-11"))
}

func TestWriteXLSX(t *testing.T) {
	course := scenarioCourse()
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Rows(course, stats.Compute(course))))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"1", "Beto", "2", "1", "50.0%", "RIESGO DE REPROBACIÓN", "Ene 10"}, rows[1])
	assert.Equal(t, []string{"3", "Caro", "2", "0", "0.0%", "AL DÍA", "Sin faltas"}, rows[3])
}
