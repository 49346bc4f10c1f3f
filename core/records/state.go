package records

import (
	"github.com/trezcool/rekodi/core"
)

// The mutations below enforce the same integrity rules every backend follows:
// ids and emails are unique per kind, links and course instructors must reference
// existing records, and deletes cascade to the links of the deleted record.

// CheckKey rejects blank or malformed ids before they reach a store.
func CheckKey(field, id string) error {
	if !core.IsNonEmpty(id) {
		return core.NewValidationError(ErrInvalidRecord, core.FieldError{Field: field, Error: "this field is required"})
	}
	if !core.IsValidID(id) {
		return core.NewValidationError(ErrInvalidRecord, core.FieldError{
			Field: field,
			Error: "only letters, digits, hyphens and underscores are allowed",
		})
	}
	return nil
}

func (st *State) studentIDs() []string {
	ids := make([]string, len(st.Students))
	for i, s := range st.Students {
		ids[i] = s.ID
	}
	return ids
}

func (st *State) instructorIDs() []string {
	ids := make([]string, len(st.Instructors))
	for i, ins := range st.Instructors {
		ids[i] = ins.ID
	}
	return ids
}

func (st *State) courseIDs() []string {
	ids := make([]string, len(st.Courses))
	for i, c := range st.Courses {
		ids[i] = c.ID
	}
	return ids
}

func (st *State) studentIndex(id string) int {
	for i, s := range st.Students {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (st *State) instructorIndex(id string) int {
	for i, ins := range st.Instructors {
		if ins.ID == id {
			return i
		}
	}
	return -1
}

func (st *State) courseIndex(id string) int {
	for i, c := range st.Courses {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (st *State) AddStudent(s Student) error {
	if err := CheckKey("id", s.ID); err != nil {
		return err
	}
	if !core.IsUniqueID(s.ID, st.studentIDs()) {
		return IDExistsError(KindStudent, s.ID)
	}
	for _, other := range st.Students {
		if other.Email == s.Email {
			return EmailExistsError(KindStudent, s.Email)
		}
	}
	s.CourseIDs = nil
	st.Students = append(st.Students, s)
	return nil
}

func (st *State) UpdateStudent(s Student) error {
	idx := st.studentIndex(s.ID)
	if idx < 0 {
		return NotFound(KindStudent, s.ID)
	}
	for _, other := range st.Students {
		if other.ID != s.ID && other.Email == s.Email {
			return EmailExistsError(KindStudent, s.Email)
		}
	}
	st.Students[idx].Person = s.Person
	return nil
}

func (st *State) DeleteStudent(id string) error {
	idx := st.studentIndex(id)
	if idx < 0 {
		return NotFound(KindStudent, id)
	}
	st.Students = append(st.Students[:idx], st.Students[idx+1:]...)

	regs := st.Registrations[:0]
	for _, r := range st.Registrations {
		if r.StudentID != id {
			regs = append(regs, r)
		}
	}
	st.Registrations = regs
	return nil
}

func (st *State) AddInstructor(ins Instructor) error {
	if err := CheckKey("id", ins.ID); err != nil {
		return err
	}
	if !core.IsUniqueID(ins.ID, st.instructorIDs()) {
		return IDExistsError(KindInstructor, ins.ID)
	}
	for _, other := range st.Instructors {
		if other.Email == ins.Email {
			return EmailExistsError(KindInstructor, ins.Email)
		}
	}
	ins.CourseIDs = nil
	st.Instructors = append(st.Instructors, ins)
	return nil
}

func (st *State) UpdateInstructor(ins Instructor) error {
	idx := st.instructorIndex(ins.ID)
	if idx < 0 {
		return NotFound(KindInstructor, ins.ID)
	}
	for _, other := range st.Instructors {
		if other.ID != ins.ID && other.Email == ins.Email {
			return EmailExistsError(KindInstructor, ins.Email)
		}
	}
	st.Instructors[idx].Person = ins.Person
	return nil
}

func (st *State) DeleteInstructor(id string) error {
	idx := st.instructorIndex(id)
	if idx < 0 {
		return NotFound(KindInstructor, id)
	}
	st.Instructors = append(st.Instructors[:idx], st.Instructors[idx+1:]...)

	asgs := st.Assignments[:0]
	for _, a := range st.Assignments {
		if a.InstructorID != id {
			asgs = append(asgs, a)
		}
	}
	st.Assignments = asgs
	for i := range st.Courses {
		if st.Courses[i].InstructorID == id {
			st.Courses[i].InstructorID = ""
		}
	}
	return nil
}

func (st *State) checkCourseInstructor(c Course) error {
	if c.InstructorID != "" && st.instructorIndex(c.InstructorID) < 0 {
		return UnknownRefError("instructor_id", KindInstructor, c.InstructorID)
	}
	return nil
}

func (st *State) AddCourse(c Course) error {
	if err := CheckKey("id", c.ID); err != nil {
		return err
	}
	if !core.IsUniqueID(c.ID, st.courseIDs()) {
		return IDExistsError(KindCourse, c.ID)
	}
	if err := st.checkCourseInstructor(c); err != nil {
		return err
	}
	st.Courses = append(st.Courses, c)
	return nil
}

func (st *State) UpdateCourse(c Course) error {
	idx := st.courseIndex(c.ID)
	if idx < 0 {
		return NotFound(KindCourse, c.ID)
	}
	if err := st.checkCourseInstructor(c); err != nil {
		return err
	}
	st.Courses[idx] = c
	return nil
}

func (st *State) DeleteCourse(id string) error {
	idx := st.courseIndex(id)
	if idx < 0 {
		return NotFound(KindCourse, id)
	}
	st.Courses = append(st.Courses[:idx], st.Courses[idx+1:]...)

	regs := st.Registrations[:0]
	for _, r := range st.Registrations {
		if r.CourseID != id {
			regs = append(regs, r)
		}
	}
	st.Registrations = regs

	asgs := st.Assignments[:0]
	for _, a := range st.Assignments {
		if a.CourseID != id {
			asgs = append(asgs, a)
		}
	}
	st.Assignments = asgs
	return nil
}

func (st *State) AddRegistration(r Registration) error {
	if st.studentIndex(r.StudentID) < 0 {
		return UnknownRefError("student_id", KindStudent, r.StudentID)
	}
	if st.courseIndex(r.CourseID) < 0 {
		return UnknownRefError("course_id", KindCourse, r.CourseID)
	}
	for _, other := range st.Registrations {
		if other == r {
			return LinkExistsError(KindRegistration, r.StudentID, r.CourseID)
		}
	}
	st.Registrations = append(st.Registrations, r)
	return nil
}

func (st *State) DeleteRegistration(r Registration) error {
	for i, other := range st.Registrations {
		if other == r {
			st.Registrations = append(st.Registrations[:i], st.Registrations[i+1:]...)
			return nil
		}
	}
	return LinkNotFound(KindRegistration, r.StudentID, r.CourseID)
}

func (st *State) AddAssignment(a Assignment) error {
	if st.instructorIndex(a.InstructorID) < 0 {
		return UnknownRefError("instructor_id", KindInstructor, a.InstructorID)
	}
	if st.courseIndex(a.CourseID) < 0 {
		return UnknownRefError("course_id", KindCourse, a.CourseID)
	}
	for _, other := range st.Assignments {
		if other == a {
			return LinkExistsError(KindAssignment, a.InstructorID, a.CourseID)
		}
	}
	st.Assignments = append(st.Assignments, a)
	return nil
}

func (st *State) DeleteAssignment(a Assignment) error {
	for i, other := range st.Assignments {
		if other == a {
			st.Assignments = append(st.Assignments[:i], st.Assignments[i+1:]...)
			return nil
		}
	}
	return LinkNotFound(KindAssignment, a.InstructorID, a.CourseID)
}

// Check replays st into an empty state, returning the first integrity violation.
// Courses are added after instructors so their instructor_id can be resolved.
func (st State) Check() error {
	fresh := NewState()
	for _, s := range st.Students {
		if err := fresh.AddStudent(s); err != nil {
			return err
		}
	}
	for _, ins := range st.Instructors {
		if err := fresh.AddInstructor(ins); err != nil {
			return err
		}
	}
	for _, c := range st.Courses {
		if err := fresh.AddCourse(c); err != nil {
			return err
		}
	}
	for _, r := range st.Registrations {
		if err := fresh.AddRegistration(r); err != nil {
			return err
		}
	}
	for _, a := range st.Assignments {
		if err := fresh.AddAssignment(a); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of st.
func (st State) Clone() State {
	c := State{
		Students:      make([]Student, len(st.Students)),
		Instructors:   make([]Instructor, len(st.Instructors)),
		Courses:       append([]Course{}, st.Courses...),
		Registrations: append([]Registration{}, st.Registrations...),
		Assignments:   append([]Assignment{}, st.Assignments...),
	}
	for i, s := range st.Students {
		s.CourseIDs = cloneIDs(s.CourseIDs)
		c.Students[i] = s
	}
	for i, ins := range st.Instructors {
		ins.CourseIDs = cloneIDs(ins.CourseIDs)
		c.Instructors[i] = ins
	}
	return c
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append(make([]string, 0, len(ids)), ids...)
}
