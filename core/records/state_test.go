package records

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rekodi/core"
)

func sampleState() State {
	return State{
		Students: []Student{
			{Person: Person{ID: "2", Name: "Bob", Email: "bob@school.cd"}},
			{Person: Person{ID: "1", Name: "Alice", Age: 20, Email: "alice@school.cd"}},
		},
		Instructors: []Instructor{{Person: Person{ID: "i1", Name: "Prof", Email: "prof@school.cd"}}},
		Courses:     []Course{{ID: "20", Name: "MATH201"}, {ID: "10", Name: "CS101", InstructorID: "i1"}},
		Registrations: []Registration{
			{StudentID: "2", CourseID: "10"},
			{StudentID: "1", CourseID: "20"},
			{StudentID: "1", CourseID: "10"},
		},
		Assignments: []Assignment{{InstructorID: "i1", CourseID: "10"}},
	}
}

func TestState_Normalize(t *testing.T) {
	st := sampleState()
	st.Normalize()

	assert.Equal(t, "1", st.Students[0].ID)
	assert.Equal(t, []string{"10", "20"}, st.Students[0].CourseIDs)
	assert.Equal(t, []string{"10"}, st.Students[1].CourseIDs)
	assert.Equal(t, []string{"10"}, st.Instructors[0].CourseIDs)
	assert.Equal(t, "10", st.Courses[0].ID)
	assert.Equal(t, Registration{StudentID: "1", CourseID: "10"}, st.Registrations[0])

	empty := State{}
	empty.Normalize()
	assert.Equal(t, NewState(), empty)

	data, err := json.Marshal(NewState())
	require.NoError(t, err)
	assert.JSONEq(t, `{"students":[],"instructors":[],"courses":[],"registrations":[],"assignments":[]}`, string(data))
}

func TestState_Clone(t *testing.T) {
	st := sampleState()
	st.Normalize()
	c := st.Clone()
	assert.Equal(t, st, c)

	c.Students[0].Name = "Changed"
	c.Students[0].CourseIDs[0] = "99"
	c.Courses[0].Name = "Changed"
	assert.Equal(t, "Alice", st.Students[0].Name)
	assert.Equal(t, "10", st.Students[0].CourseIDs[0])
	assert.Equal(t, "CS101", st.Courses[0].Name)
}

func TestState_Check(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(st *State)
		wantErr error
	}{
		{name: "consistent", mutate: func(st *State) {}},
		{name: "blank student id", mutate: func(st *State) { st.Students[0].ID = " " }, wantErr: ErrInvalidRecord},
		{name: "student id with a NUL byte", mutate: func(st *State) { st.Students[0].ID = "a\x00b" }, wantErr: ErrInvalidRecord},
		{name: "course id with a space", mutate: func(st *State) {
			st.Courses = append(st.Courses, Course{ID: "CS 102", Name: "Algorithms"})
		}, wantErr: ErrInvalidRecord},
		{name: "duplicate student id", mutate: func(st *State) { st.Students[0].ID = "1" }, wantErr: ErrIDExists},
		{name: "duplicate instructor email", mutate: func(st *State) {
			st.Instructors = append(st.Instructors, Instructor{Person: Person{ID: "i2", Name: "X", Email: "prof@school.cd"}})
		}, wantErr: ErrEmailExists},
		{name: "student and instructor share an email", mutate: func(st *State) {
			st.Instructors[0].Email = "alice@school.cd"
		}},
		{name: "unknown course instructor", mutate: func(st *State) { st.Courses[0].InstructorID = "i9" }, wantErr: ErrUnknownRef},
		{name: "unknown registration course", mutate: func(st *State) {
			st.Registrations = append(st.Registrations, Registration{StudentID: "1", CourseID: "30"})
		}, wantErr: ErrUnknownRef},
		{name: "duplicate assignment", mutate: func(st *State) {
			st.Assignments = append(st.Assignments, st.Assignments[0])
		}, wantErr: ErrLinkExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := sampleState()
			tt.mutate(&st)
			err := st.Check()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, core.IsValidation(err), "Check() error = %v, want validation error", err)
			assert.True(t, errors.Is(err, tt.wantErr), "Check() error = %v, want %v", err, tt.wantErr)
		})
	}
}

func TestState_mutations(t *testing.T) {
	st := sampleState()

	require.NoError(t, st.DeleteStudent("1"))
	assert.Equal(t, []Registration{{StudentID: "2", CourseID: "10"}}, st.Registrations)
	assert.True(t, core.IsNotFound(st.DeleteStudent("1")))

	require.NoError(t, st.DeleteInstructor("i1"))
	assert.Empty(t, st.Assignments)
	c, ok := st.Course("10")
	require.True(t, ok)
	assert.Equal(t, "", c.InstructorID)

	require.NoError(t, st.DeleteCourse("10"))
	assert.Empty(t, st.Registrations)

	assert.True(t, core.IsNotFound(st.DeleteRegistration(Registration{StudentID: "2", CourseID: "10"})))
	assert.True(t, core.IsNotFound(st.DeleteAssignment(Assignment{InstructorID: "i1", CourseID: "10"})))
	assert.True(t, core.IsNotFound(st.UpdateCourse(Course{ID: "10", Name: "X"})))

	err := st.UpdateStudent(Student{Person: Person{ID: "2", Name: "Bob", Email: "bob@school.cd"}})
	assert.NoError(t, err, "keeping one's own email is allowed")
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{in: "", want: ScopeAll},
		{in: "all", want: ScopeAll},
		{in: " Students ", want: ScopeStudents},
		{in: "instructors", want: ScopeInstructors},
		{in: "courses", want: ScopeCourses},
		{in: "teachers", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScope(tt.in)
			if tt.wantErr {
				assert.True(t, core.IsValidation(err), "ParseScope() error = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInputs_Validate(t *testing.T) {
	t.Run("new student", func(t *testing.T) {
		ns := NewStudent{ID: " 1 ", Name: " Alice ", Email: " Alice@School.CD "}
		require.NoError(t, ns.Validate())
		assert.Equal(t, NewStudent{ID: "1", Name: "Alice", Email: "alice@school.cd"}, ns)

		tests := []struct {
			name  string
			in    NewStudent
			field string
		}{
			{name: "empty name", in: NewStudent{Name: "", Email: "a@b.com"}, field: "name"},
			{name: "digits in name", in: NewStudent{Name: "R2D2", Email: "a@b.com"}, field: "name"},
			{name: "bad email", in: NewStudent{Name: "A", Email: "not-an-email"}, field: "email"},
			{name: "bad age", in: NewStudent{Name: "A", Email: "a@b.com", Age: 121}, field: "age"},
			{name: "negative age", in: NewStudent{Name: "A", Email: "a@b.com", Age: -1}, field: "age"},
			{name: "bad id", in: NewStudent{ID: "a/b", Name: "A", Email: "a@b.com"}, field: "id"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				verr, ok := core.AsValidation(tt.in.Validate())
				require.True(t, ok)
				require.Len(t, verr.Fields, 1)
				assert.Equal(t, tt.field, verr.Fields[0].Field)
			})
		}
	})

	t.Run("update keeps blank fields", func(t *testing.T) {
		orig := Student{Person: Person{ID: "1", Name: "Alice", Age: 20, Email: "alice@school.cd"}}
		us := UpdateStudent{Name: "  "}
		require.NoError(t, us.Validate(orig))
		assert.Equal(t, orig, us.apply(orig))

		zero := 0
		us = UpdateStudent{Age: &zero, Email: "ALICE@uni.cd"}
		require.NoError(t, us.Validate(orig))
		got := us.apply(orig)
		assert.Equal(t, 0, got.Age)
		assert.Equal(t, "alice@uni.cd", got.Email)
		assert.Equal(t, "Alice", got.Name)
	})

	t.Run("update course instructor", func(t *testing.T) {
		orig := Course{ID: "10", Name: "CS101", InstructorID: "i1"}
		uc := UpdateCourse{}
		require.NoError(t, uc.Validate(orig))
		assert.Equal(t, orig, uc.apply(orig))

		none := " "
		uc = UpdateCourse{InstructorID: &none}
		require.NoError(t, uc.Validate(orig))
		assert.Equal(t, Course{ID: "10", Name: "CS101"}, uc.apply(orig))

		bad := "a b"
		uc = UpdateCourse{InstructorID: &bad}
		assert.True(t, core.IsValidation(uc.Validate(orig)))
	})
}
