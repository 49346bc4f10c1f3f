package testutil

import (
	"context"
	"testing"

	"github.com/trezcool/rekodi/core/records"
)

func CreateStudent(t *testing.T, repo records.Repository, id, name, email string, age ...int) records.Student {
	s := records.Student{Person: records.Person{ID: id, Name: name, Email: email}}
	if len(age) > 0 {
		s.Age = age[0]
	}
	if err := repo.AddStudent(context.Background(), s); err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

func CreateInstructor(t *testing.T, repo records.Repository, id, name, email string, age ...int) records.Instructor {
	ins := records.Instructor{Person: records.Person{ID: id, Name: name, Email: email}}
	if len(age) > 0 {
		ins.Age = age[0]
	}
	if err := repo.AddInstructor(context.Background(), ins); err != nil {
		t.Fatalf("createInstructor() failed: %v", err)
	}
	return ins
}

func CreateCourse(t *testing.T, repo records.Repository, id, name string, instructorID ...string) records.Course {
	c := records.Course{ID: id, Name: name}
	if len(instructorID) > 0 {
		c.InstructorID = instructorID[0]
	}
	if err := repo.AddCourse(context.Background(), c); err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

func Register(t *testing.T, repo records.Repository, studentID, courseID string) {
	r := records.Registration{StudentID: studentID, CourseID: courseID}
	if err := repo.AddRegistration(context.Background(), r); err != nil {
		t.Fatalf("register() failed: %v", err)
	}
}

func Assign(t *testing.T, repo records.Repository, instructorID, courseID string) {
	a := records.Assignment{InstructorID: instructorID, CourseID: courseID}
	if err := repo.AddAssignment(context.Background(), a); err != nil {
		t.Fatalf("assign() failed: %v", err)
	}
}

// SampleState is a small, consistent record set touching every kind of record.
func SampleState() records.State {
	st := records.State{
		Students: []records.Student{
			{Person: records.Person{ID: "2", Name: "Bob Mwamba", Age: 22, Email: "bob@school.cd"}},
			{Person: records.Person{ID: "1", Name: "Alice Kabila", Email: "alice@school.cd"}},
		},
		Instructors: []records.Instructor{
			{Person: records.Person{ID: "i1", Name: "Dr. Tshisekedi", Age: 51, Email: "prof@school.cd"}},
		},
		Courses: []records.Course{
			{ID: "20", Name: "MATH201"},
			{ID: "10", Name: "CS101", InstructorID: "i1"},
		},
		Registrations: []records.Registration{
			{StudentID: "2", CourseID: "10"},
			{StudentID: "1", CourseID: "10"},
			{StudentID: "1", CourseID: "20"},
		},
		Assignments: []records.Assignment{
			{InstructorID: "i1", CourseID: "10"},
		},
	}
	return st
}

func Load(t *testing.T, repo records.Repository) records.State {
	st, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	return st
}
