// Package boltstore keeps records in a bbolt file, one bucket per entity kind.
// Entity buckets are keyed by id; link buckets by "left\x00course".
package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
)

var (
	studentsBucket      = []byte("students")
	instructorsBucket   = []byte("instructors")
	coursesBucket       = []byte("courses")
	registrationsBucket = []byte("registrations")
	assignmentsBucket   = []byte("assignments")

	allBuckets = [][]byte{studentsBucket, instructorsBucket, coursesBucket, registrationsBucket, assignmentsBucket}
)

const keySep = 0

// links hold no data; a marker value keeps Get non-nil
var linkValue = []byte{1}

type Store struct {
	db *bolt.DB
}

var (
	_ records.Repository = (*Store)(nil) // interface compliance check
	_ records.Backuper   = (*Store)(nil)
)

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, core.NewPersistenceError("opening "+path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, core.NewPersistenceError("opening "+path, err)
	}
	return &Store{db: db}, nil
}

func linkKey(left, right string) []byte {
	k := make([]byte, 0, len(left)+len(right)+1)
	k = append(k, left...)
	k = append(k, keySep)
	return append(k, right...)
}

func splitLinkKey(k []byte) (string, string, error) {
	i := bytes.IndexByte(k, keySep)
	if i < 0 {
		return "", "", errors.Errorf("malformed link key %q", k)
	}
	return string(k[:i]), string(k[i+1:]), nil
}

// update runs fn in a write transaction; validation and not found errors pass through.
func (s *Store) update(op string, fn func(tx *bolt.Tx) error) error {
	err := s.db.Update(fn)
	if err != nil && !core.IsValidation(err) && !core.IsNotFound(err) {
		return core.NewPersistenceError(op, err)
	}
	return err
}

func put(b *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	return b.Put(key, data)
}

func (s *Store) LoadAll(_ context.Context) (records.State, error) {
	st := records.NewState()
	err := s.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(studentsBucket).ForEach(func(_, v []byte) error {
			var p records.Person
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrap(err, "decoding student")
			}
			st.Students = append(st.Students, records.Student{Person: p})
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(instructorsBucket).ForEach(func(_, v []byte) error {
			var p records.Person
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrap(err, "decoding instructor")
			}
			st.Instructors = append(st.Instructors, records.Instructor{Person: p})
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(coursesBucket).ForEach(func(_, v []byte) error {
			var c records.Course
			if err := json.Unmarshal(v, &c); err != nil {
				return errors.Wrap(err, "decoding course")
			}
			st.Courses = append(st.Courses, c)
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(registrationsBucket).ForEach(func(k, _ []byte) error {
			left, right, err := splitLinkKey(k)
			if err != nil {
				return err
			}
			st.Registrations = append(st.Registrations, records.Registration{StudentID: left, CourseID: right})
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(assignmentsBucket).ForEach(func(k, _ []byte) error {
			left, right, err := splitLinkKey(k)
			if err != nil {
				return err
			}
			st.Assignments = append(st.Assignments, records.Assignment{InstructorID: left, CourseID: right})
			return nil
		})
	})
	if err != nil {
		return records.State{}, core.NewPersistenceError("loading records", err)
	}
	st.Normalize()
	return st, nil
}

func (s *Store) SaveAll(_ context.Context, st records.State) error {
	if err := st.Check(); err != nil {
		return err
	}
	return s.update("saving records", func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return errors.Wrapf(err, "clearing bucket %s", name)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}
		for _, stu := range st.Students {
			if err := put(tx.Bucket(studentsBucket), []byte(stu.ID), stu.Person); err != nil {
				return err
			}
		}
		for _, ins := range st.Instructors {
			if err := put(tx.Bucket(instructorsBucket), []byte(ins.ID), ins.Person); err != nil {
				return err
			}
		}
		for _, c := range st.Courses {
			if err := put(tx.Bucket(coursesBucket), []byte(c.ID), c); err != nil {
				return err
			}
		}
		for _, r := range st.Registrations {
			if err := tx.Bucket(registrationsBucket).Put(linkKey(r.StudentID, r.CourseID), linkValue); err != nil {
				return err
			}
		}
		for _, a := range st.Assignments {
			if err := tx.Bucket(assignmentsBucket).Put(linkKey(a.InstructorID, a.CourseID), linkValue); err != nil {
				return err
			}
		}
		return nil
	})
}

// people

func emailTaken(b *bolt.Bucket, email, exceptID string) (bool, error) {
	var taken bool
	err := b.ForEach(func(k, v []byte) error {
		if string(k) == exceptID {
			return nil
		}
		var p records.Person
		if err := json.Unmarshal(v, &p); err != nil {
			return errors.Wrap(err, "decoding record")
		}
		if p.Email == email {
			taken = true
		}
		return nil
	})
	return taken, err
}

func addPerson(tx *bolt.Tx, bucket []byte, kind string, p records.Person) error {
	if err := records.CheckKey("id", p.ID); err != nil {
		return err
	}
	b := tx.Bucket(bucket)
	if b.Get([]byte(p.ID)) != nil {
		return records.IDExistsError(kind, p.ID)
	}
	if taken, err := emailTaken(b, p.Email, ""); err != nil {
		return err
	} else if taken {
		return records.EmailExistsError(kind, p.Email)
	}
	return put(b, []byte(p.ID), p)
}

func updatePerson(tx *bolt.Tx, bucket []byte, kind string, p records.Person) error {
	b := tx.Bucket(bucket)
	if b.Get([]byte(p.ID)) == nil {
		return records.NotFound(kind, p.ID)
	}
	if taken, err := emailTaken(b, p.Email, p.ID); err != nil {
		return err
	} else if taken {
		return records.EmailExistsError(kind, p.Email)
	}
	return put(b, []byte(p.ID), p)
}

// deleteLinks removes the links of bucket whose left (or right, for courses) end is id.
func deleteLinks(b *bolt.Bucket, id string, right bool) error {
	var keys [][]byte
	err := b.ForEach(func(k, _ []byte) error {
		left, r, err := splitLinkKey(k)
		if err != nil {
			return err
		}
		if (!right && left == id) || (right && r == id) {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) AddStudent(_ context.Context, stu records.Student) error {
	return s.update("adding student", func(tx *bolt.Tx) error {
		return addPerson(tx, studentsBucket, records.KindStudent, stu.Person)
	})
}

func (s *Store) UpdateStudent(_ context.Context, stu records.Student) error {
	return s.update("updating student", func(tx *bolt.Tx) error {
		return updatePerson(tx, studentsBucket, records.KindStudent, stu.Person)
	})
}

func (s *Store) DeleteStudent(_ context.Context, id string) error {
	return s.update("deleting student", func(tx *bolt.Tx) error {
		b := tx.Bucket(studentsBucket)
		if b.Get([]byte(id)) == nil {
			return records.NotFound(records.KindStudent, id)
		}
		if err := deleteLinks(tx.Bucket(registrationsBucket), id, false); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

func (s *Store) AddInstructor(_ context.Context, ins records.Instructor) error {
	return s.update("adding instructor", func(tx *bolt.Tx) error {
		return addPerson(tx, instructorsBucket, records.KindInstructor, ins.Person)
	})
}

func (s *Store) UpdateInstructor(_ context.Context, ins records.Instructor) error {
	return s.update("updating instructor", func(tx *bolt.Tx) error {
		return updatePerson(tx, instructorsBucket, records.KindInstructor, ins.Person)
	})
}

func (s *Store) DeleteInstructor(_ context.Context, id string) error {
	return s.update("deleting instructor", func(tx *bolt.Tx) error {
		b := tx.Bucket(instructorsBucket)
		if b.Get([]byte(id)) == nil {
			return records.NotFound(records.KindInstructor, id)
		}
		if err := deleteLinks(tx.Bucket(assignmentsBucket), id, false); err != nil {
			return err
		}

		// clear the courses taught by id
		courses := tx.Bucket(coursesBucket)
		var orphaned []records.Course
		err := courses.ForEach(func(_, v []byte) error {
			var c records.Course
			if err := json.Unmarshal(v, &c); err != nil {
				return errors.Wrap(err, "decoding course")
			}
			if c.InstructorID == id {
				c.InstructorID = ""
				orphaned = append(orphaned, c)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, c := range orphaned {
			if err := put(courses, []byte(c.ID), c); err != nil {
				return err
			}
		}
		return b.Delete([]byte(id))
	})
}

// courses

func checkCourseInstructor(tx *bolt.Tx, c records.Course) error {
	if c.InstructorID != "" && tx.Bucket(instructorsBucket).Get([]byte(c.InstructorID)) == nil {
		return records.UnknownRefError("instructor_id", records.KindInstructor, c.InstructorID)
	}
	return nil
}

func (s *Store) AddCourse(_ context.Context, c records.Course) error {
	return s.update("adding course", func(tx *bolt.Tx) error {
		if err := records.CheckKey("id", c.ID); err != nil {
			return err
		}
		b := tx.Bucket(coursesBucket)
		if b.Get([]byte(c.ID)) != nil {
			return records.IDExistsError(records.KindCourse, c.ID)
		}
		if err := checkCourseInstructor(tx, c); err != nil {
			return err
		}
		return put(b, []byte(c.ID), c)
	})
}

func (s *Store) UpdateCourse(_ context.Context, c records.Course) error {
	return s.update("updating course", func(tx *bolt.Tx) error {
		b := tx.Bucket(coursesBucket)
		if b.Get([]byte(c.ID)) == nil {
			return records.NotFound(records.KindCourse, c.ID)
		}
		if err := checkCourseInstructor(tx, c); err != nil {
			return err
		}
		return put(b, []byte(c.ID), c)
	})
}

func (s *Store) DeleteCourse(_ context.Context, id string) error {
	return s.update("deleting course", func(tx *bolt.Tx) error {
		b := tx.Bucket(coursesBucket)
		if b.Get([]byte(id)) == nil {
			return records.NotFound(records.KindCourse, id)
		}
		if err := deleteLinks(tx.Bucket(registrationsBucket), id, true); err != nil {
			return err
		}
		if err := deleteLinks(tx.Bucket(assignmentsBucket), id, true); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

// links

func addLink(tx *bolt.Tx, bucket, leftBucket []byte, kind, leftField, leftKind, left, right string) error {
	if tx.Bucket(leftBucket).Get([]byte(left)) == nil {
		return records.UnknownRefError(leftField, leftKind, left)
	}
	if tx.Bucket(coursesBucket).Get([]byte(right)) == nil {
		return records.UnknownRefError("course_id", records.KindCourse, right)
	}
	b := tx.Bucket(bucket)
	key := linkKey(left, right)
	if b.Get(key) != nil {
		return records.LinkExistsError(kind, left, right)
	}
	return b.Put(key, linkValue)
}

func deleteLink(tx *bolt.Tx, bucket []byte, kind, left, right string) error {
	b := tx.Bucket(bucket)
	key := linkKey(left, right)
	if b.Get(key) == nil {
		return records.LinkNotFound(kind, left, right)
	}
	return b.Delete(key)
}

func (s *Store) AddRegistration(_ context.Context, r records.Registration) error {
	return s.update("adding registration", func(tx *bolt.Tx) error {
		return addLink(tx, registrationsBucket, studentsBucket, records.KindRegistration,
			"student_id", records.KindStudent, r.StudentID, r.CourseID)
	})
}

func (s *Store) DeleteRegistration(_ context.Context, r records.Registration) error {
	return s.update("deleting registration", func(tx *bolt.Tx) error {
		return deleteLink(tx, registrationsBucket, records.KindRegistration, r.StudentID, r.CourseID)
	})
}

func (s *Store) AddAssignment(_ context.Context, a records.Assignment) error {
	return s.update("adding assignment", func(tx *bolt.Tx) error {
		return addLink(tx, assignmentsBucket, instructorsBucket, records.KindAssignment,
			"instructor_id", records.KindInstructor, a.InstructorID, a.CourseID)
	})
}

func (s *Store) DeleteAssignment(_ context.Context, a records.Assignment) error {
	return s.update("deleting assignment", func(tx *bolt.Tx) error {
		return deleteLink(tx, assignmentsBucket, records.KindAssignment, a.InstructorID, a.CourseID)
	})
}

func (s *Store) BackupExt() string { return ".bolt" }

func (s *Store) Backup(_ context.Context, dst string) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(dst, 0o600)
	})
	if err != nil {
		_ = os.Remove(dst)
		return core.NewPersistenceError("backing up "+s.db.Path(), err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
