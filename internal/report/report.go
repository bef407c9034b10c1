// Package report builds the spreadsheet handed to school administration.
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/locales/es"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"asistencia/internal/model"
	"asistencia/internal/stats"
)

// SheetName is the single worksheet of the export.
const SheetName = "Matriz_Final"

const (
	StatusOK     = "AL DÍA"
	StatusAtRisk = "RIESGO DE REPROBACIÓN"
	noAbsences   = "Sin faltas"
)

// Header is the column row of the sheet.
var Header = []string{
	"Nº", "ESTUDIANTE", "CLASES REGISTRADAS", "TOTAL FALTAS", "% INASISTENCIA", "ESTADO", "FECHAS DE FALTAS",
}

var spanish = es.New()

// Row is one student line, already formatted for display.
type Row struct {
	Number       int
	Student      string
	Sessions     int
	Absences     int
	AbsenceRate  string
	Status       string
	AbsenceDates string
}

// Rows lists the roster in insertion order with each student's stats.
func Rows(course model.Course, sum *stats.Summary) []Row {
	byID := sum.ByID()
	sessions := 0
	if sum != nil {
		sessions = len(sum.RecordedDates)
	}

	rows := make([]Row, 0, len(course.Students))
	for i, s := range course.Students {
		st := byID[s.ID]
		status := StatusOK
		if st.AtRisk {
			status = StatusAtRisk
		}
		dates := noAbsences
		if len(st.AbsenceDates) > 0 {
			short := make([]string, len(st.AbsenceDates))
			for j, d := range st.AbsenceDates {
				short[j] = ShortDate(d)
			}
			dates = strings.Join(short, ", ")
		}
		rows = append(rows, Row{
			Number:       i + 1,
			Student:      s.Name,
			Sessions:     sessions,
			Absences:     st.AbsenceCount,
			AbsenceRate:  fmt.Sprintf("%.1f%%", st.AbsenceRate),
			Status:       status,
			AbsenceDates: dates,
		})
	}
	return rows
}

// ShortDate renders a YYYY-MM-DD key as "Ene 10".
func ShortDate(date string) string {
	t, err := model.ParseDate(date)
	if err != nil {
		return date
	}
	month := strings.TrimSuffix(spanish.MonthAbbreviated(t.Month()), ".")
	r, size := utf8.DecodeRuneInString(month)
	return fmt.Sprintf("%c%s %d", unicode.ToUpper(r), month[size:], t.Day())
}

// Filename is Asistencia_<course>_<date>.xlsx with path separators removed from the course name.
func Filename(courseName, date string) string {
	name := strings.NewReplacer("/", "-", "\\", "-").Replace(courseName)
	return fmt.Sprintf("Asistencia_%s_%s.xlsx", name, date)
}

// WriteXLSX writes rows as a workbook to w.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "report.sheet")
	}
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "report.header")
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.Number, r.Student, r.Sessions, r.Absences, r.AbsenceRate, r.Status, r.AbsenceDates}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return errors.Wrapf(err, "report.row(%d)", i+1)
		}
	}
	_ = f.SetColWidth(SheetName, "B", "B", 36)
	_ = f.SetColWidth(SheetName, "F", "G", 28)

	_, err := f.WriteTo(w)
	return errors.Wrap(err, "report.write")
}
