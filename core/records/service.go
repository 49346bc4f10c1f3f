package records

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/rekodi/core"
)

var (
	nowFunc   = time.Now // mockable
	newIDFunc = func() string { return strings.ReplaceAll(uuid.New().String(), "-", "")[:8] }
)

type Service struct {
	repo Repository
	log  core.Logger
}

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (svc *Service) Repository() Repository { return svc.repo }

// done logs the outcome of a mutation and passes err through.
func (svc *Service) done(err error, msg string, args ...interface{}) error {
	if err != nil {
		if core.IsValidation(err) || core.IsNotFound(err) {
			svc.log.Warn(msg+" rejected", append(args, "error", err)...)
		} else {
			svc.log.Error(msg+" failed", append(args, "error", err)...)
		}
		return err
	}
	svc.log.Info(msg, args...)
	return nil
}

func (svc *Service) Load(ctx context.Context) (State, error) {
	return svc.repo.LoadAll(ctx)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	st, err := svc.repo.LoadAll(ctx)
	if err != nil {
		return Student{}, err
	}
	s, ok := st.Student(core.CleanString(id))
	if !ok {
		return Student{}, NotFound(KindStudent, id)
	}
	return s, nil
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	if ns.ID == "" {
		ns.ID = newIDFunc()
	}
	s := Student{
		Person:    Person{ID: ns.ID, Name: ns.Name, Age: ns.Age, Email: ns.Email},
		CourseIDs: []string{},
	}
	if err := svc.done(svc.repo.AddStudent(ctx, s), "student created", "id", s.ID); err != nil {
		return Student{}, err
	}
	return s, nil
}

func (svc *Service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err := us.Validate(orig); err != nil {
		return Student{}, err
	}
	s := us.apply(orig)
	if err := svc.done(svc.repo.UpdateStudent(ctx, s), "student updated", "id", s.ID); err != nil {
		return Student{}, err
	}
	return s, nil
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	id = core.CleanString(id)
	return svc.done(svc.repo.DeleteStudent(ctx, id), "student deleted", "id", id)
}

func (svc *Service) GetInstructor(ctx context.Context, id string) (Instructor, error) {
	st, err := svc.repo.LoadAll(ctx)
	if err != nil {
		return Instructor{}, err
	}
	ins, ok := st.Instructor(core.CleanString(id))
	if !ok {
		return Instructor{}, NotFound(KindInstructor, id)
	}
	return ins, nil
}

func (svc *Service) CreateInstructor(ctx context.Context, ni NewInstructor) (Instructor, error) {
	if err := ni.Validate(); err != nil {
		return Instructor{}, err
	}
	if ni.ID == "" {
		ni.ID = newIDFunc()
	}
	ins := Instructor{
		Person:    Person{ID: ni.ID, Name: ni.Name, Age: ni.Age, Email: ni.Email},
		CourseIDs: []string{},
	}
	if err := svc.done(svc.repo.AddInstructor(ctx, ins), "instructor created", "id", ins.ID); err != nil {
		return Instructor{}, err
	}
	return ins, nil
}

func (svc *Service) UpdateInstructor(ctx context.Context, id string, ui UpdateInstructor) (Instructor, error) {
	orig, err := svc.GetInstructor(ctx, id)
	if err != nil {
		return Instructor{}, err
	}
	if err := ui.Validate(orig); err != nil {
		return Instructor{}, err
	}
	ins := ui.apply(orig)
	if err := svc.done(svc.repo.UpdateInstructor(ctx, ins), "instructor updated", "id", ins.ID); err != nil {
		return Instructor{}, err
	}
	return ins, nil
}

func (svc *Service) DeleteInstructor(ctx context.Context, id string) error {
	id = core.CleanString(id)
	return svc.done(svc.repo.DeleteInstructor(ctx, id), "instructor deleted", "id", id)
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	st, err := svc.repo.LoadAll(ctx)
	if err != nil {
		return Course{}, err
	}
	c, ok := st.Course(core.CleanString(id))
	if !ok {
		return Course{}, NotFound(KindCourse, id)
	}
	return c, nil
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}
	if nc.ID == "" {
		nc.ID = newIDFunc()
	}
	c := Course{ID: nc.ID, Name: nc.Name, InstructorID: nc.InstructorID}
	if err := svc.done(svc.repo.AddCourse(ctx, c), "course created", "id", c.ID); err != nil {
		return Course{}, err
	}
	return c, nil
}

func (svc *Service) UpdateCourse(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err := uc.Validate(orig); err != nil {
		return Course{}, err
	}
	c := uc.apply(orig)
	if err := svc.done(svc.repo.UpdateCourse(ctx, c), "course updated", "id", c.ID); err != nil {
		return Course{}, err
	}
	return c, nil
}

func (svc *Service) DeleteCourse(ctx context.Context, id string) error {
	id = core.CleanString(id)
	return svc.done(svc.repo.DeleteCourse(ctx, id), "course deleted", "id", id)
}

func linkKeys(leftField, left, right string) (string, string, error) {
	left, right = core.CleanString(left), core.CleanString(right)
	if err := CheckKey(leftField, left); err != nil {
		return "", "", err
	}
	if err := CheckKey("course_id", right); err != nil {
		return "", "", err
	}
	return left, right, nil
}

func (svc *Service) Register(ctx context.Context, studentID, courseID string) error {
	studentID, courseID, err := linkKeys("student_id", studentID, courseID)
	if err != nil {
		return err
	}
	r := Registration{StudentID: studentID, CourseID: courseID}
	return svc.done(svc.repo.AddRegistration(ctx, r), "student registered", "student", studentID, "course", courseID)
}

func (svc *Service) Unregister(ctx context.Context, studentID, courseID string) error {
	studentID, courseID, err := linkKeys("student_id", studentID, courseID)
	if err != nil {
		return err
	}
	r := Registration{StudentID: studentID, CourseID: courseID}
	return svc.done(svc.repo.DeleteRegistration(ctx, r), "student unregistered", "student", studentID, "course", courseID)
}

func (svc *Service) Assign(ctx context.Context, instructorID, courseID string) error {
	instructorID, courseID, err := linkKeys("instructor_id", instructorID, courseID)
	if err != nil {
		return err
	}
	a := Assignment{InstructorID: instructorID, CourseID: courseID}
	return svc.done(svc.repo.AddAssignment(ctx, a), "instructor assigned", "instructor", instructorID, "course", courseID)
}

func (svc *Service) Unassign(ctx context.Context, instructorID, courseID string) error {
	instructorID, courseID, err := linkKeys("instructor_id", instructorID, courseID)
	if err != nil {
		return err
	}
	a := Assignment{InstructorID: instructorID, CourseID: courseID}
	return svc.done(svc.repo.DeleteAssignment(ctx, a), "instructor unassigned", "instructor", instructorID, "course", courseID)
}

func (svc *Service) Search(ctx context.Context, query string, scope Scope) ([]Row, error) {
	st, err := svc.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return Search(st, query, scope), nil
}

func (svc *Service) Export(ctx context.Context, w io.Writer, query string, scope Scope) (int, error) {
	rows, err := svc.Search(ctx, query, scope)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Backup copies the active store to dst.
// An empty dst names the copy backup_YYYYMMDD_HHMMSS<ext> in the current directory.
func (svc *Service) Backup(ctx context.Context, dst string) (string, error) {
	bk, ok := svc.repo.(Backuper)
	if !ok {
		return "", core.NewValidationError(ErrNoBackup, core.FieldError{Field: "backend", Error: ErrNoBackup.Error()})
	}
	if dst == "" {
		dst = fmt.Sprintf("backup_%s%s", nowFunc().Format("20060102_150405"), bk.BackupExt())
	}
	dst = filepath.Clean(dst)
	return dst, svc.done(bk.Backup(ctx, dst), "store backed up", "path", dst)
}
