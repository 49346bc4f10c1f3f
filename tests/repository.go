package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
)

// RunRepositoryTests checks that a backend honours the records.Repository contract.
// open must return an empty repository; it is called once per subtest.
func RunRepositoryTests(t *testing.T, open func(t *testing.T) records.Repository) {
	ctx := context.Background()

	newRepo := func(t *testing.T) records.Repository {
		repo := open(t)
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	}

	t.Run("empty store", func(t *testing.T) {
		repo := newRepo(t)
		assert.Equal(t, records.NewState(), Load(t, repo))
	})

	t.Run("save then load", func(t *testing.T) {
		repo := newRepo(t)
		st := SampleState()
		require.NoError(t, repo.SaveAll(ctx, st))

		want := SampleState()
		want.Normalize()
		got := Load(t, repo)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("LoadAll() mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"10", "20"}, got.Students[0].CourseIDs)
		assert.Equal(t, []string{"10"}, got.Instructors[0].CourseIDs)

		// SaveAll replaces everything
		require.NoError(t, repo.SaveAll(ctx, records.NewState()))
		assert.Equal(t, records.NewState(), Load(t, repo))
	})

	t.Run("save rejects inconsistent state", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.SaveAll(ctx, SampleState()))

		tests := []struct {
			name   string
			mutate func(st *records.State)
		}{
			{name: "dangling registration", mutate: func(st *records.State) {
				st.Registrations = append(st.Registrations, records.Registration{StudentID: "1", CourseID: "404"})
			}},
			{name: "dangling course instructor", mutate: func(st *records.State) {
				st.Courses[0].InstructorID = "404"
			}},
			{name: "duplicate student id", mutate: func(st *records.State) {
				st.Students = append(st.Students, records.Student{Person: records.Person{ID: "1", Name: "Ghost", Email: "ghost@school.cd"}})
			}},
			{name: "duplicate email", mutate: func(st *records.State) {
				st.Students[0].Email = st.Students[1].Email
			}},
			{name: "id with a NUL byte", mutate: func(st *records.State) {
				st.Students = append(st.Students, records.Student{Person: records.Person{ID: "a\x00b", Name: "Nul", Email: "nul@school.cd"}})
				st.Registrations = append(st.Registrations, records.Registration{StudentID: "a\x00b", CourseID: "10"})
			}},
			{name: "id with a space", mutate: func(st *records.State) {
				st.Courses = append(st.Courses, records.Course{ID: "CS 102", Name: "Algorithms"})
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				st := SampleState()
				tt.mutate(&st)
				err := repo.SaveAll(ctx, st)
				assert.True(t, core.IsValidation(err), "SaveAll() error = %v, want validation error", err)

				want := SampleState()
				want.Normalize()
				assert.Equal(t, want, Load(t, repo), "store changed after a rejected save")
			})
		}
	})

	t.Run("students", func(t *testing.T) {
		repo := newRepo(t)
		s := CreateStudent(t, repo, "1", "Alice Kabila", "alice@school.cd", 20)

		tests := []struct {
			name    string
			student records.Student
			wantErr error
		}{
			{name: "duplicate id", student: records.Student{Person: records.Person{ID: "1", Name: "Bob", Email: "bob@school.cd"}}, wantErr: records.ErrIDExists},
			{name: "duplicate email", student: records.Student{Person: records.Person{ID: "2", Name: "Bob", Email: "alice@school.cd"}}, wantErr: records.ErrEmailExists},
			{name: "blank id", student: records.Student{Person: records.Person{Name: "Bob", Email: "bob@school.cd"}}, wantErr: records.ErrInvalidRecord},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := repo.AddStudent(ctx, tt.student)
				assert.True(t, core.IsValidation(err), "AddStudent() error = %v, want validation error", err)
				assert.True(t, errors.Is(err, tt.wantErr), "AddStudent() error = %v, want %v", err, tt.wantErr)
			})
		}

		// emails are unique per kind only
		CreateInstructor(t, repo, "1", "Alice Kabila", "alice@school.cd")

		CreateStudent(t, repo, "2", "Bob Mwamba", "bob@school.cd")
		s.Name = "Alice K. Kabila"
		s.Age = 21
		require.NoError(t, repo.UpdateStudent(ctx, s))

		s.Email = "bob@school.cd"
		err := repo.UpdateStudent(ctx, s)
		assert.True(t, errors.Is(err, records.ErrEmailExists), "UpdateStudent() error = %v", err)

		got, ok := Load(t, repo).Student("1")
		require.True(t, ok)
		assert.Equal(t, "Alice K. Kabila", got.Name)
		assert.Equal(t, 21, got.Age)
		assert.Equal(t, "alice@school.cd", got.Email)

		assert.True(t, core.IsNotFound(repo.UpdateStudent(ctx, records.Student{Person: records.Person{ID: "404", Name: "X", Email: "x@school.cd"}})))
		assert.True(t, core.IsNotFound(repo.DeleteStudent(ctx, "404")))

		require.NoError(t, repo.DeleteStudent(ctx, "2"))
		_, ok = Load(t, repo).Student("2")
		assert.False(t, ok)
	})

	t.Run("instructors", func(t *testing.T) {
		repo := newRepo(t)
		ins := CreateInstructor(t, repo, "i1", "Dr. Tshisekedi", "prof@school.cd")
		CreateInstructor(t, repo, "i2", "Jean-Pierre Bemba", "jp@school.cd")

		err := repo.AddInstructor(ctx, records.Instructor{Person: records.Person{ID: "i1", Name: "X", Email: "x@school.cd"}})
		assert.True(t, errors.Is(err, records.ErrIDExists), "AddInstructor() error = %v", err)
		err = repo.AddInstructor(ctx, records.Instructor{Person: records.Person{ID: "i3", Name: "X", Email: "jp@school.cd"}})
		assert.True(t, errors.Is(err, records.ErrEmailExists), "AddInstructor() error = %v", err)

		ins.Age = 60
		require.NoError(t, repo.UpdateInstructor(ctx, ins))
		got, ok := Load(t, repo).Instructor("i1")
		require.True(t, ok)
		assert.Equal(t, 60, got.Age)

		assert.True(t, core.IsNotFound(repo.UpdateInstructor(ctx, records.Instructor{Person: records.Person{ID: "404", Name: "X", Email: "x@school.cd"}})))
		assert.True(t, core.IsNotFound(repo.DeleteInstructor(ctx, "404")))
	})

	t.Run("courses", func(t *testing.T) {
		repo := newRepo(t)
		CreateInstructor(t, repo, "i1", "Dr. Tshisekedi", "prof@school.cd")
		c := CreateCourse(t, repo, "10", "CS101", "i1")

		err := repo.AddCourse(ctx, records.Course{ID: "10", Name: "CS102"})
		assert.True(t, errors.Is(err, records.ErrIDExists), "AddCourse() error = %v", err)
		err = repo.AddCourse(ctx, records.Course{ID: "11", Name: "CS102", InstructorID: "404"})
		assert.True(t, errors.Is(err, records.ErrUnknownRef), "AddCourse() error = %v", err)

		c.Name = "CS101 Intro"
		c.InstructorID = ""
		require.NoError(t, repo.UpdateCourse(ctx, c))
		got, ok := Load(t, repo).Course("10")
		require.True(t, ok)
		assert.Equal(t, records.Course{ID: "10", Name: "CS101 Intro"}, got)

		c.InstructorID = "404"
		err = repo.UpdateCourse(ctx, c)
		assert.True(t, errors.Is(err, records.ErrUnknownRef), "UpdateCourse() error = %v", err)
		assert.True(t, core.IsNotFound(repo.UpdateCourse(ctx, records.Course{ID: "404", Name: "X"})))
		assert.True(t, core.IsNotFound(repo.DeleteCourse(ctx, "404")))
	})

	t.Run("links", func(t *testing.T) {
		repo := newRepo(t)
		CreateStudent(t, repo, "1", "Alice Kabila", "alice@school.cd")
		CreateInstructor(t, repo, "i1", "Dr. Tshisekedi", "prof@school.cd")
		CreateCourse(t, repo, "10", "CS101")

		Register(t, repo, "1", "10")
		Assign(t, repo, "i1", "10")

		tests := []struct {
			name    string
			run     func() error
			wantErr error
		}{
			{name: "register twice", run: func() error {
				return repo.AddRegistration(ctx, records.Registration{StudentID: "1", CourseID: "10"})
			}, wantErr: records.ErrLinkExists},
			{name: "register unknown student", run: func() error {
				return repo.AddRegistration(ctx, records.Registration{StudentID: "404", CourseID: "10"})
			}, wantErr: records.ErrUnknownRef},
			{name: "register unknown course", run: func() error {
				return repo.AddRegistration(ctx, records.Registration{StudentID: "1", CourseID: "404"})
			}, wantErr: records.ErrUnknownRef},
			{name: "assign twice", run: func() error {
				return repo.AddAssignment(ctx, records.Assignment{InstructorID: "i1", CourseID: "10"})
			}, wantErr: records.ErrLinkExists},
			{name: "assign unknown instructor", run: func() error {
				return repo.AddAssignment(ctx, records.Assignment{InstructorID: "404", CourseID: "10"})
			}, wantErr: records.ErrUnknownRef},
			{name: "assign unknown course", run: func() error {
				return repo.AddAssignment(ctx, records.Assignment{InstructorID: "i1", CourseID: "404"})
			}, wantErr: records.ErrUnknownRef},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.run()
				assert.True(t, core.IsValidation(err), "error = %v, want validation error", err)
				assert.True(t, errors.Is(err, tt.wantErr), "error = %v, want %v", err, tt.wantErr)
			})
		}

		st := Load(t, repo)
		assert.Equal(t, []records.Registration{{StudentID: "1", CourseID: "10"}}, st.Registrations)
		assert.Equal(t, []records.Assignment{{InstructorID: "i1", CourseID: "10"}}, st.Assignments)

		require.NoError(t, repo.DeleteRegistration(ctx, records.Registration{StudentID: "1", CourseID: "10"}))
		require.NoError(t, repo.DeleteAssignment(ctx, records.Assignment{InstructorID: "i1", CourseID: "10"}))
		assert.True(t, core.IsNotFound(repo.DeleteRegistration(ctx, records.Registration{StudentID: "1", CourseID: "10"})))
		assert.True(t, core.IsNotFound(repo.DeleteAssignment(ctx, records.Assignment{InstructorID: "i1", CourseID: "10"})))

		st = Load(t, repo)
		assert.Empty(t, st.Registrations)
		assert.Empty(t, st.Assignments)
	})

	t.Run("deleting a student drops its registrations", func(t *testing.T) {
		repo := newRepo(t)
		CreateStudent(t, repo, "1", "A", "a@b.com")
		CreateCourse(t, repo, "10", "CS101")
		Register(t, repo, "1", "10")

		require.NoError(t, repo.DeleteStudent(ctx, "1"))
		st := Load(t, repo)
		assert.Empty(t, st.Students)
		assert.Empty(t, st.Registrations)
		assert.Len(t, st.Courses, 1)
	})

	t.Run("deleting an instructor unassigns its courses", func(t *testing.T) {
		repo := newRepo(t)
		CreateInstructor(t, repo, "i1", "Dr. Tshisekedi", "prof@school.cd")
		CreateCourse(t, repo, "10", "CS101", "i1")
		Assign(t, repo, "i1", "10")

		require.NoError(t, repo.DeleteInstructor(ctx, "i1"))
		st := Load(t, repo)
		assert.Empty(t, st.Instructors)
		assert.Empty(t, st.Assignments)
		require.Len(t, st.Courses, 1)
		assert.Equal(t, "", st.Courses[0].InstructorID)
	})

	t.Run("deleting a course drops its links", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.SaveAll(ctx, SampleState()))

		require.NoError(t, repo.DeleteCourse(ctx, "10"))
		st := Load(t, repo)
		assert.Equal(t, []records.Registration{{StudentID: "1", CourseID: "20"}}, st.Registrations)
		assert.Empty(t, st.Assignments)
		assert.Equal(t, []string{}, st.Instructors[0].CourseIDs)
	})
}
