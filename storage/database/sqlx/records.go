package sqlxrepos

import (
	"context"
	"database/sql"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
)

type (
	personRow struct {
		ID    string `db:"id"`
		Name  string `db:"name"`
		Age   int    `db:"age"`
		Email string `db:"email"`
	}

	courseRow struct {
		ID           string      `db:"id"`
		Name         string      `db:"name"`
		InstructorID null.String `db:"instructor_id"`
	}

	registrationRow struct {
		StudentID string `db:"student_id"`
		CourseID  string `db:"course_id"`
	}

	assignmentRow struct {
		InstructorID string `db:"instructor_id"`
		CourseID     string `db:"course_id"`
	}
)

var byID = core.DBOrdering{Field: "id", Ascending: true}

type recordsRepository struct {
	db core.DB
}

var (
	_ records.Repository = (*recordsRepository)(nil) // interface compliance check
	_ records.Backuper   = (*recordsRepository)(nil)
)

// NewRecordsRepository expects a migrated database (see database.Migrate).
func NewRecordsRepository(db core.DB) *recordsRepository {
	return &recordsRepository{db: db}
}

func personFromRow(r personRow) records.Person {
	return records.Person{ID: r.ID, Name: r.Name, Age: r.Age, Email: r.Email}
}

func rowFromPerson(p records.Person) personRow {
	return personRow{ID: p.ID, Name: p.Name, Age: p.Age, Email: p.Email}
}

func rowFromCourse(c records.Course) courseRow {
	return courseRow{ID: c.ID, Name: c.Name, InstructorID: null.NewString(c.InstructorID, c.InstructorID != "")}
}

// trapNoRowsErr maps sql "no rows" err to a records not found error
func trapNoRowsErr(err error, kind, id string) error {
	if err == sql.ErrNoRows {
		return records.NotFound(kind, id)
	}
	return errors.Wrapf(err, "getting %s", kind)
}

// inTx runs fn in a transaction. Validation and not found errors are returned as is,
// anything else is reported as a persistence failure of op.
func (repo *recordsRepository) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewPersistenceError(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if core.IsValidation(err) || core.IsNotFound(err) {
			return err
		}
		return core.NewPersistenceError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return core.NewPersistenceError(op, err)
	}
	return nil
}

func exists(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (bool, error) {
	var count int
	if err := sqlx.GetContext(ctx, exec, &count, exec.Rebind(query), args...); err != nil {
		return false, errors.Wrap(err, "checking existence")
	}
	return count > 0, nil
}

func (repo *recordsRepository) LoadAll(ctx context.Context) (records.State, error) {
	st, err := load(ctx, repo.db)
	if err != nil {
		return records.State{}, core.NewPersistenceError("loading records", err)
	}
	return st, nil
}

func load(ctx context.Context, exec core.DBExecutor) (records.State, error) {
	st := records.NewState()

	var people []personRow
	if err := exec.SelectContext(ctx, &people, "SELECT id, name, age, email FROM students"+core.OrderBy(byID)); err != nil {
		return st, errors.Wrap(err, "selecting students")
	}
	for _, r := range people {
		st.Students = append(st.Students, records.Student{Person: personFromRow(r)})
	}

	people = nil
	if err := exec.SelectContext(ctx, &people, "SELECT id, name, age, email FROM instructors"+core.OrderBy(byID)); err != nil {
		return st, errors.Wrap(err, "selecting instructors")
	}
	for _, r := range people {
		st.Instructors = append(st.Instructors, records.Instructor{Person: personFromRow(r)})
	}

	var courses []courseRow
	if err := exec.SelectContext(ctx, &courses, "SELECT id, name, instructor_id FROM courses"+core.OrderBy(byID)); err != nil {
		return st, errors.Wrap(err, "selecting courses")
	}
	for _, r := range courses {
		st.Courses = append(st.Courses, records.Course{ID: r.ID, Name: r.Name, InstructorID: r.InstructorID.String})
	}

	var regs []registrationRow
	if err := exec.SelectContext(ctx, &regs, "SELECT student_id, course_id FROM registrations"); err != nil {
		return st, errors.Wrap(err, "selecting registrations")
	}
	for _, r := range regs {
		st.Registrations = append(st.Registrations, records.Registration{StudentID: r.StudentID, CourseID: r.CourseID})
	}

	var asgs []assignmentRow
	if err := exec.SelectContext(ctx, &asgs, "SELECT instructor_id, course_id FROM assignments"); err != nil {
		return st, errors.Wrap(err, "selecting assignments")
	}
	for _, a := range asgs {
		st.Assignments = append(st.Assignments, records.Assignment{InstructorID: a.InstructorID, CourseID: a.CourseID})
	}

	st.Normalize()
	return st, nil
}

func (repo *recordsRepository) SaveAll(ctx context.Context, st records.State) error {
	if err := st.Check(); err != nil {
		return err
	}
	return repo.inTx(ctx, "saving records", func(tx *sqlx.Tx) error {
		for _, table := range []string{"assignments", "registrations", "courses", "instructors", "students"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return errors.Wrapf(err, "clearing %s", table)
			}
		}
		for _, s := range st.Students {
			if err := insertPerson(ctx, tx, "students", s.Person); err != nil {
				return err
			}
		}
		for _, ins := range st.Instructors {
			if err := insertPerson(ctx, tx, "instructors", ins.Person); err != nil {
				return err
			}
		}
		for _, c := range st.Courses {
			if err := insertCourse(ctx, tx, c); err != nil {
				return err
			}
		}
		for _, r := range st.Registrations {
			if err := insertRegistration(ctx, tx, r); err != nil {
				return err
			}
		}
		for _, a := range st.Assignments {
			if err := insertAssignment(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertPerson(ctx context.Context, tx *sqlx.Tx, table string, p records.Person) error {
	_, err := tx.NamedExecContext(ctx,
		"INSERT INTO "+table+" (id, name, age, email) VALUES (:id, :name, :age, :email)",
		rowFromPerson(p),
	)
	return errors.Wrapf(err, "inserting into %s", table)
}

func insertCourse(ctx context.Context, tx *sqlx.Tx, c records.Course) error {
	_, err := tx.NamedExecContext(ctx,
		"INSERT INTO courses (id, name, instructor_id) VALUES (:id, :name, :instructor_id)",
		rowFromCourse(c),
	)
	return errors.Wrap(err, "inserting course")
}

func insertRegistration(ctx context.Context, tx *sqlx.Tx, r records.Registration) error {
	_, err := tx.NamedExecContext(ctx,
		"INSERT INTO registrations (student_id, course_id) VALUES (:student_id, :course_id)",
		registrationRow{StudentID: r.StudentID, CourseID: r.CourseID},
	)
	return errors.Wrap(err, "inserting registration")
}

func insertAssignment(ctx context.Context, tx *sqlx.Tx, a records.Assignment) error {
	_, err := tx.NamedExecContext(ctx,
		"INSERT INTO assignments (instructor_id, course_id) VALUES (:instructor_id, :course_id)",
		assignmentRow{InstructorID: a.InstructorID, CourseID: a.CourseID},
	)
	return errors.Wrap(err, "inserting assignment")
}

// people

func addPerson(ctx context.Context, tx *sqlx.Tx, table, kind string, p records.Person) error {
	if err := records.CheckKey("id", p.ID); err != nil {
		return err
	}
	if found, err := exists(ctx, tx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", p.ID); err != nil {
		return err
	} else if found {
		return records.IDExistsError(kind, p.ID)
	}
	if found, err := exists(ctx, tx, "SELECT COUNT(*) FROM "+table+" WHERE email = ?", p.Email); err != nil {
		return err
	} else if found {
		return records.EmailExistsError(kind, p.Email)
	}
	return insertPerson(ctx, tx, table, p)
}

func updatePerson(ctx context.Context, tx *sqlx.Tx, table, kind string, p records.Person) error {
	var id string
	if err := tx.GetContext(ctx, &id, tx.Rebind("SELECT id FROM "+table+" WHERE id = ?"), p.ID); err != nil {
		return trapNoRowsErr(err, kind, p.ID)
	}
	if found, err := exists(ctx, tx, "SELECT COUNT(*) FROM "+table+" WHERE email = ? AND id <> ?", p.Email, p.ID); err != nil {
		return err
	} else if found {
		return records.EmailExistsError(kind, p.Email)
	}
	_, err := tx.NamedExecContext(ctx,
		"UPDATE "+table+" SET name = :name, age = :age, email = :email WHERE id = :id",
		rowFromPerson(p),
	)
	return errors.Wrapf(err, "updating %s", kind)
}

// deleteByID deletes the rows of table matching id, failing with not found when there is none.
func deleteByID(ctx context.Context, tx *sqlx.Tx, table, kind, id string) error {
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", kind)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "deleting %s", kind)
	}
	if n == 0 {
		return records.NotFound(kind, id)
	}
	return nil
}

func (repo *recordsRepository) AddStudent(ctx context.Context, s records.Student) error {
	return repo.inTx(ctx, "adding student", func(tx *sqlx.Tx) error {
		return addPerson(ctx, tx, "students", records.KindStudent, s.Person)
	})
}

func (repo *recordsRepository) UpdateStudent(ctx context.Context, s records.Student) error {
	return repo.inTx(ctx, "updating student", func(tx *sqlx.Tx) error {
		return updatePerson(ctx, tx, "students", records.KindStudent, s.Person)
	})
}

func (repo *recordsRepository) DeleteStudent(ctx context.Context, id string) error {
	return repo.inTx(ctx, "deleting student", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM registrations WHERE student_id = ?"), id); err != nil {
			return errors.Wrap(err, "deleting student registrations")
		}
		return deleteByID(ctx, tx, "students", records.KindStudent, id)
	})
}

func (repo *recordsRepository) AddInstructor(ctx context.Context, ins records.Instructor) error {
	return repo.inTx(ctx, "adding instructor", func(tx *sqlx.Tx) error {
		return addPerson(ctx, tx, "instructors", records.KindInstructor, ins.Person)
	})
}

func (repo *recordsRepository) UpdateInstructor(ctx context.Context, ins records.Instructor) error {
	return repo.inTx(ctx, "updating instructor", func(tx *sqlx.Tx) error {
		return updatePerson(ctx, tx, "instructors", records.KindInstructor, ins.Person)
	})
}

func (repo *recordsRepository) DeleteInstructor(ctx context.Context, id string) error {
	return repo.inTx(ctx, "deleting instructor", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM assignments WHERE instructor_id = ?"), id); err != nil {
			return errors.Wrap(err, "deleting instructor assignments")
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE courses SET instructor_id = NULL WHERE instructor_id = ?"), id); err != nil {
			return errors.Wrap(err, "clearing course instructors")
		}
		return deleteByID(ctx, tx, "instructors", records.KindInstructor, id)
	})
}

// courses

func checkCourseInstructor(ctx context.Context, tx *sqlx.Tx, c records.Course) error {
	if c.InstructorID == "" {
		return nil
	}
	found, err := exists(ctx, tx, "SELECT COUNT(*) FROM instructors WHERE id = ?", c.InstructorID)
	if err != nil {
		return err
	}
	if !found {
		return records.UnknownRefError("instructor_id", records.KindInstructor, c.InstructorID)
	}
	return nil
}

func (repo *recordsRepository) AddCourse(ctx context.Context, c records.Course) error {
	return repo.inTx(ctx, "adding course", func(tx *sqlx.Tx) error {
		if err := records.CheckKey("id", c.ID); err != nil {
			return err
		}
		if found, err := exists(ctx, tx, "SELECT COUNT(*) FROM courses WHERE id = ?", c.ID); err != nil {
			return err
		} else if found {
			return records.IDExistsError(records.KindCourse, c.ID)
		}
		if err := checkCourseInstructor(ctx, tx, c); err != nil {
			return err
		}
		return insertCourse(ctx, tx, c)
	})
}

func (repo *recordsRepository) UpdateCourse(ctx context.Context, c records.Course) error {
	return repo.inTx(ctx, "updating course", func(tx *sqlx.Tx) error {
		var id string
		if err := tx.GetContext(ctx, &id, tx.Rebind("SELECT id FROM courses WHERE id = ?"), c.ID); err != nil {
			return trapNoRowsErr(err, records.KindCourse, c.ID)
		}
		if err := checkCourseInstructor(ctx, tx, c); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx,
			"UPDATE courses SET name = :name, instructor_id = :instructor_id WHERE id = :id",
			rowFromCourse(c),
		)
		return errors.Wrap(err, "updating course")
	})
}

func (repo *recordsRepository) DeleteCourse(ctx context.Context, id string) error {
	return repo.inTx(ctx, "deleting course", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM registrations WHERE course_id = ?"), id); err != nil {
			return errors.Wrap(err, "deleting course registrations")
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM assignments WHERE course_id = ?"), id); err != nil {
			return errors.Wrap(err, "deleting course assignments")
		}
		return deleteByID(ctx, tx, "courses", records.KindCourse, id)
	})
}

// links

// addLink inserts a registration or assignment once both ends exist and the pair is new.
func addLink(
	ctx context.Context, tx *sqlx.Tx,
	table, kind, leftCol, leftTable, leftKind, left, right string,
	insert func() error,
) error {
	if found, err := exists(ctx, tx, "SELECT COUNT(*) FROM "+leftTable+" WHERE id = ?", left); err != nil {
		return err
	} else if !found {
		return records.UnknownRefError(leftCol, leftKind, left)
	}
	if found, err := exists(ctx, tx, "SELECT COUNT(*) FROM courses WHERE id = ?", right); err != nil {
		return err
	} else if !found {
		return records.UnknownRefError("course_id", records.KindCourse, right)
	}
	if found, err := exists(ctx, tx, "SELECT COUNT(*) FROM "+table+" WHERE "+leftCol+" = ? AND course_id = ?", left, right); err != nil {
		return err
	} else if found {
		return records.LinkExistsError(kind, left, right)
	}
	return insert()
}

func deleteLink(ctx context.Context, tx *sqlx.Tx, table, kind, leftCol, left, right string) error {
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE "+leftCol+" = ? AND course_id = ?"), left, right)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", kind)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "deleting %s", kind)
	}
	if n == 0 {
		return records.LinkNotFound(kind, left, right)
	}
	return nil
}

func (repo *recordsRepository) AddRegistration(ctx context.Context, r records.Registration) error {
	return repo.inTx(ctx, "adding registration", func(tx *sqlx.Tx) error {
		return addLink(ctx, tx, "registrations", records.KindRegistration,
			"student_id", "students", records.KindStudent, r.StudentID, r.CourseID,
			func() error { return insertRegistration(ctx, tx, r) },
		)
	})
}

func (repo *recordsRepository) DeleteRegistration(ctx context.Context, r records.Registration) error {
	return repo.inTx(ctx, "deleting registration", func(tx *sqlx.Tx) error {
		return deleteLink(ctx, tx, "registrations", records.KindRegistration, "student_id", r.StudentID, r.CourseID)
	})
}

func (repo *recordsRepository) AddAssignment(ctx context.Context, a records.Assignment) error {
	return repo.inTx(ctx, "adding assignment", func(tx *sqlx.Tx) error {
		return addLink(ctx, tx, "assignments", records.KindAssignment,
			"instructor_id", "instructors", records.KindInstructor, a.InstructorID, a.CourseID,
			func() error { return insertAssignment(ctx, tx, a) },
		)
	})
}

func (repo *recordsRepository) DeleteAssignment(ctx context.Context, a records.Assignment) error {
	return repo.inTx(ctx, "deleting assignment", func(tx *sqlx.Tx) error {
		return deleteLink(ctx, tx, "assignments", records.KindAssignment, "instructor_id", a.InstructorID, a.CourseID)
	})
}

func (repo *recordsRepository) BackupExt() string { return ".db" }

// Backup writes a consistent snapshot of a sqlite store to dst. Other engines have their own tooling.
func (repo *recordsRepository) Backup(ctx context.Context, dst string) error {
	if repo.db.DriverName() != core.EngineSQLite {
		return core.NewValidationError(records.ErrNoBackup, core.FieldError{
			Field: "backend",
			Error: repo.db.DriverName() + " databases must be backed up with the engine's own tools",
		})
	}
	// VACUUM INTO refuses to overwrite
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return core.NewPersistenceError("backing up database", err)
	}
	if _, err := repo.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return core.NewPersistenceError("backing up database", err)
	}
	return nil
}

func (repo *recordsRepository) Close() error {
	return repo.db.Close()
}
