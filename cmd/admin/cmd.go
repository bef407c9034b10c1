package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"asistencia/internal/attendance"
	"asistencia/internal/model"
	"asistencia/internal/persistence"
	"asistencia/internal/report"
	"asistencia/internal/stats"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	svc *attendance.Service
	gw  *persistence.Gateway
	out io.Writer
	now func() time.Time // mockable
}

func newCommandLine(svc *attendance.Service, gw *persistence.Gateway, out io.Writer) *commandLine {
	return &commandLine{svc: svc, gw: gw, out: out, now: time.Now}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  courses                                      - list courses")
	fmt.Fprintln(cli.out, "  export [-out PATH]                           - write a JSON backup of every course")
	fmt.Fprintln(cli.out, "  import -in PATH                              - replace every course with a JSON backup")
	fmt.Fprintln(cli.out, "  stats -course ID                             - print absence statistics of a course")
	fmt.Fprintln(cli.out, "  report -course ID [-out PATH] [-date DATE]   - write the attendance spreadsheet of a course")
	fmt.Fprintln(cli.out, "  settings [-teacher NAME] [-sync-url URL]     - show or change the preferences")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	exportCmd := cli.flagSet("export")
	exportOut := exportCmd.String("out", "", "Destination file. Defaults to the backup filename in the working directory.")

	importCmd := cli.flagSet("import")
	importIn := importCmd.String("in", "", "JSON backup to restore.")

	statsCmd := cli.flagSet("stats")
	statsCourse := statsCmd.String("course", "", "Course ID.")

	reportCmd := cli.flagSet("report")
	reportCourse := reportCmd.String("course", "", "Course ID.")
	reportOut := reportCmd.String("out", "", "Destination file. Defaults to the report filename in the working directory.")
	reportDate := reportCmd.String("date", "", "Date used in the filename (YYYY-MM-DD). Defaults to today.")

	settingsCmd := cli.flagSet("settings")
	settingsTeacher := settingsCmd.String("teacher", "", "New teacher name.")
	settingsSyncURL := settingsCmd.String("sync-url", "", "New webhook URL. Use \"-\" to disable sync.")

	ctx := context.Background()

	switch args[1] {
	case "courses":
		return cli.listCourses()
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.export(*exportOut)
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importIn == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.restore(ctx, *importIn)
	case "stats":
		if err := statsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *statsCourse == "" {
			statsCmd.Usage()
			return errHelp
		}
		return cli.printStats(*statsCourse)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *reportCourse == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.writeReport(*reportCourse, *reportOut, *reportDate)
	case "settings":
		if err := settingsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.settings(ctx, *settingsTeacher, *settingsSyncURL)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) listCourses() error {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTUDENTS\tWEEK")
	for _, c := range cli.svc.Courses() {
		week := model.CurrentWeek(c.StartDate, c.Weeks, cli.now())
		fmt.Fprintf(w, "%s\t%s\t%d\t%d/%d\n", c.ID, c.Name, len(c.Students), week, c.Weeks)
	}
	return w.Flush()
}

func (cli *commandLine) export(path string) error {
	data, filename, err := cli.gw.Export(cli.svc.Courses(), cli.now())
	if err != nil {
		return err
	}
	if path == "" {
		path = filename
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	fmt.Fprintf(cli.out, "backup written to %s\n", path)
	return nil
}

func (cli *commandLine) restore(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	courses, err := cli.gw.Import(data)
	if err != nil {
		return err
	}
	if err := cli.svc.ReplaceAll(ctx, courses); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "restored %d courses\n", len(courses))
	return nil
}

func (cli *commandLine) printStats(courseID string) error {
	course, err := cli.svc.Course(courseID)
	if err != nil {
		return err
	}
	sum := stats.Compute(course)
	if sum == nil {
		fmt.Fprintf(cli.out, "%s has no students\n", course.Name)
		return nil
	}
	fmt.Fprintf(cli.out, "%s: %d recorded sessions, %d at risk\n", course.Name, len(sum.RecordedDates), sum.AtRiskCount())
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tABSENCES\tRATE\tAT RISK")
	for _, st := range sum.Students {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%t\n", st.Name, st.AbsenceCount, st.AbsenceRate, st.AtRisk)
	}
	return w.Flush()
}

func (cli *commandLine) writeReport(courseID, path, date string) error {
	course, err := cli.svc.Course(courseID)
	if err != nil {
		return err
	}
	if date == "" {
		date = model.FormatDate(cli.now())
	} else if !model.ValidDate(date) {
		return errors.Wrapf(model.ErrInvalidDate, "%q", date)
	}
	if path == "" {
		path = report.Filename(course.Name, date)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	if err := report.WriteXLSX(f, report.Rows(course, stats.Compute(course))); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "report written to %s\n", path)
	return nil
}

func (cli *commandLine) settings(ctx context.Context, teacher, syncURL string) error {
	if teacher != "" {
		if err := cli.svc.SetTeacherName(ctx, teacher); err != nil {
			return err
		}
	}
	switch syncURL {
	case "":
	case "-":
		if err := cli.svc.SetSyncURL(ctx, ""); err != nil {
			return err
		}
	default:
		if err := cli.svc.SetSyncURL(ctx, syncURL); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(cli.svc.Settings())
}
