package records

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/rekodi/core"
)

var csvHeader = []string{"Type", "ID", "Name", "Email"}

func studentRow(s Student) Row {
	return Row{Type: "Student", ID: s.ID, Name: s.Name, Email: s.Email}
}

func instructorRow(ins Instructor) Row {
	return Row{Type: "Instructor", ID: ins.ID, Name: ins.Name, Email: ins.Email}
}

func courseRow(c Course) Row {
	return Row{Type: "Course", ID: c.ID, Name: c.Name, Email: "-"}
}

// matches does a case-insensitive match of q on the row id, name or email.
func (r Row) matches(q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.ID), q) ||
		strings.Contains(strings.ToLower(r.Name), q) ||
		(r.Type != "Course" && strings.Contains(strings.ToLower(r.Email), q))
}

// Search lists the records of st in scope matching query: students, then instructors, then courses.
func Search(st State, query string, scope Scope) []Row {
	q := core.CleanString(query, true /* lower */)
	if scope == "" {
		scope = ScopeAll
	}
	rows := make([]Row, 0)
	if scope == ScopeAll || scope == ScopeStudents {
		for _, s := range st.Students {
			if r := studentRow(s); r.matches(q) {
				rows = append(rows, r)
			}
		}
	}
	if scope == ScopeAll || scope == ScopeInstructors {
		for _, ins := range st.Instructors {
			if r := instructorRow(ins); r.matches(q) {
				rows = append(rows, r)
			}
		}
	}
	if scope == ScopeAll || scope == ScopeCourses {
		for _, c := range st.Courses {
			if r := courseRow(c); r.matches(q) {
				rows = append(rows, r)
			}
		}
	}
	return rows
}

// WriteCSV writes rows with a Type,ID,Name,Email header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Type, r.ID, r.Name, r.Email}); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "writing csv")
}
