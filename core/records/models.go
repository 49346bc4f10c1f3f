package records

import (
	"sort"
	"strings"

	"github.com/trezcool/rekodi/core"
)

// Entity kinds
const (
	KindStudent      = "student"
	KindInstructor   = "instructor"
	KindCourse       = "course"
	KindRegistration = "registration"
	KindAssignment   = "assignment"
)

type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age,omitempty"` // 0: not given
	Email string `json:"email"`
}

type Student struct {
	Person
	CourseIDs []string `json:"enrolled_course_ids"` // derived from registrations
}

type Instructor struct {
	Person
	CourseIDs []string `json:"taught_course_ids"` // derived from assignments
}

type Course struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	InstructorID string `json:"instructor_id,omitempty"`
}

type Registration struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

type Assignment struct {
	InstructorID string `json:"instructor_id"`
	CourseID     string `json:"course_id"`
}

// State is the whole record set held by a backend.
type State struct {
	Students      []Student      `json:"students"`
	Instructors   []Instructor   `json:"instructors"`
	Courses       []Course       `json:"courses"`
	Registrations []Registration `json:"registrations"`
	Assignments   []Assignment   `json:"assignments"`
}

func NewState() State {
	return State{
		Students:      []Student{},
		Instructors:   []Instructor{},
		Courses:       []Course{},
		Registrations: []Registration{},
		Assignments:   []Assignment{},
	}
}

// Normalize sorts st, makes every slice non-nil and rebuilds the derived course ids.
// Two equivalent states are deeply equal once normalized.
func (st *State) Normalize() {
	if st.Students == nil {
		st.Students = []Student{}
	}
	if st.Instructors == nil {
		st.Instructors = []Instructor{}
	}
	if st.Courses == nil {
		st.Courses = []Course{}
	}
	if st.Registrations == nil {
		st.Registrations = []Registration{}
	}
	if st.Assignments == nil {
		st.Assignments = []Assignment{}
	}

	sort.Slice(st.Students, func(i, j int) bool { return st.Students[i].ID < st.Students[j].ID })
	sort.Slice(st.Instructors, func(i, j int) bool { return st.Instructors[i].ID < st.Instructors[j].ID })
	sort.Slice(st.Courses, func(i, j int) bool { return st.Courses[i].ID < st.Courses[j].ID })
	sort.Slice(st.Registrations, func(i, j int) bool {
		a, b := st.Registrations[i], st.Registrations[j]
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.CourseID < b.CourseID
	})
	sort.Slice(st.Assignments, func(i, j int) bool {
		a, b := st.Assignments[i], st.Assignments[j]
		if a.InstructorID != b.InstructorID {
			return a.InstructorID < b.InstructorID
		}
		return a.CourseID < b.CourseID
	})

	enrolled := make(map[string][]string)
	for _, r := range st.Registrations {
		enrolled[r.StudentID] = append(enrolled[r.StudentID], r.CourseID)
	}
	for i := range st.Students {
		st.Students[i].CourseIDs = nonNil(enrolled[st.Students[i].ID])
	}
	taught := make(map[string][]string)
	for _, a := range st.Assignments {
		taught[a.InstructorID] = append(taught[a.InstructorID], a.CourseID)
	}
	for i := range st.Instructors {
		st.Instructors[i].CourseIDs = nonNil(taught[st.Instructors[i].ID])
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (st State) Student(id string) (Student, bool) {
	for _, s := range st.Students {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}

func (st State) Instructor(id string) (Instructor, bool) {
	for _, i := range st.Instructors {
		if i.ID == id {
			return i, true
		}
	}
	return Instructor{}, false
}

func (st State) Course(id string) (Course, bool) {
	for _, c := range st.Courses {
		if c.ID == id {
			return c, true
		}
	}
	return Course{}, false
}

// NewStudent contains information needed to create a new Student.
// An empty ID is replaced by a generated one.
type NewStudent struct {
	ID    string `json:"id" validate:"omitempty,recordid"`
	Name  string `json:"name" validate:"required,notblank,personname"`
	Age   int    `json:"age" validate:"omitempty,min=1,max=120"`
	Email string `json:"email" validate:"required,emailaddr"`
}

func (ns *NewStudent) Validate() error {
	ns.ID = core.CleanString(ns.ID)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return core.ValidateStruct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields keep their current value.
type UpdateStudent struct {
	Name  string `json:"name" validate:"omitempty,personname"`
	Age   *int   `json:"age" validate:"omitempty,min=0,max=120"`
	Email string `json:"email" validate:"omitempty,emailaddr"`
}

func (us *UpdateStudent) Validate(orig Student) error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
	if err := core.ValidateStruct(us); err != nil {
		return err
	}
	us.Name, us.Email = keepPersonFields(us.Name, us.Email, orig.Person)
	return nil
}

func (us UpdateStudent) apply(s Student) Student {
	s.Person = applyPersonUpdate(s.Person, us.Name, us.Age, us.Email)
	return s
}

type NewInstructor struct {
	ID    string `json:"id" validate:"omitempty,recordid"`
	Name  string `json:"name" validate:"required,notblank,personname"`
	Age   int    `json:"age" validate:"omitempty,min=1,max=120"`
	Email string `json:"email" validate:"required,emailaddr"`
}

func (ni *NewInstructor) Validate() error {
	ni.ID = core.CleanString(ni.ID)
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	return core.ValidateStruct(ni)
}

type UpdateInstructor struct {
	Name  string `json:"name" validate:"omitempty,personname"`
	Age   *int   `json:"age" validate:"omitempty,min=0,max=120"`
	Email string `json:"email" validate:"omitempty,emailaddr"`
}

func (ui *UpdateInstructor) Validate(orig Instructor) error {
	ui.Name = core.CleanString(ui.Name)
	ui.Email = core.CleanString(ui.Email, true /* lower */)
	if err := core.ValidateStruct(ui); err != nil {
		return err
	}
	ui.Name, ui.Email = keepPersonFields(ui.Name, ui.Email, orig.Person)
	return nil
}

func (ui UpdateInstructor) apply(i Instructor) Instructor {
	i.Person = applyPersonUpdate(i.Person, ui.Name, ui.Age, ui.Email)
	return i
}

type NewCourse struct {
	ID           string `json:"id" validate:"omitempty,recordid"`
	Name         string `json:"name" validate:"required,notblank"`
	InstructorID string `json:"instructor_id" validate:"omitempty,recordid"`
}

func (nc *NewCourse) Validate() error {
	nc.ID = core.CleanString(nc.ID)
	nc.Name = core.CleanString(nc.Name)
	nc.InstructorID = core.CleanString(nc.InstructorID)
	return core.ValidateStruct(nc)
}

// UpdateCourse modifies an existing Course.
// A nil InstructorID keeps the current instructor, an empty one clears it.
type UpdateCourse struct {
	Name         string  `json:"name" validate:"required,notblank"`
	InstructorID *string `json:"instructor_id" validate:"omitempty"`
}

func (uc *UpdateCourse) Validate(orig Course) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if uc.InstructorID != nil {
		id := core.CleanString(*uc.InstructorID)
		uc.InstructorID = &id
		if id != "" && !core.IsValidID(id) {
			return core.ValidateStruct(struct {
				InstructorID string `json:"instructor_id" validate:"recordid"`
			}{id})
		}
	}
	return core.ValidateStruct(uc)
}

func (uc UpdateCourse) apply(c Course) Course {
	c.Name = uc.Name
	if uc.InstructorID != nil {
		c.InstructorID = *uc.InstructorID
	}
	return c
}

// keepPersonFields fills the fields left out of an update with the stored values.
// Stored values are not validated again.
func keepPersonFields(name, email string, orig Person) (string, string) {
	if name == "" {
		name = orig.Name
	}
	if email == "" {
		email = orig.Email
	}
	return name, email
}

func applyPersonUpdate(p Person, name string, age *int, email string) Person {
	p.Name = name
	p.Email = email
	if age != nil {
		p.Age = *age
	}
	return p
}

// Scope restricts searches to one kind of record.
type Scope string

const (
	ScopeAll         Scope = "all"
	ScopeStudents    Scope = "students"
	ScopeInstructors Scope = "instructors"
	ScopeCourses     Scope = "courses"
)

var Scopes = []Scope{ScopeAll, ScopeStudents, ScopeInstructors, ScopeCourses}

func ParseScope(s string) (Scope, error) {
	s = core.CleanString(s, true /* lower */)
	if s == "" {
		return ScopeAll, nil
	}
	for _, scope := range Scopes {
		if string(scope) == s {
			return scope, nil
		}
	}
	names := make([]string, 0, len(Scopes))
	for _, scope := range Scopes {
		names = append(names, string(scope))
	}
	return "", core.NewValidationError(nil, core.FieldError{
		Field: "scope",
		Error: "must be one of " + strings.Join(names, ", "),
	})
}

// Row is one line of a records listing.
type Row struct {
	Type  string
	ID    string
	Name  string
	Email string
}
