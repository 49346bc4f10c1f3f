// Package filestore keeps the whole record set in one indented JSON file.
// Every operation reads the file, applies the change in memory and rewrites it.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
)

type Store struct {
	mu   sync.Mutex
	path string
}

var (
	_ records.Repository = (*Store)(nil) // interface compliance check
	_ records.Backuper   = (*Store)(nil)
)

// Open returns a Store for path. The file is created on the first write.
// An existing file is read once so a corrupt store fails here rather than mid-session.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) read() (records.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return records.NewState(), nil
		}
		return records.State{}, core.NewPersistenceError("reading "+s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return records.NewState(), nil
	}

	var st records.State
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&st); err != nil {
		return records.State{}, core.NewParseError(s.path, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return records.State{}, core.NewParseError(s.path, errors.New("unexpected data after the records document"))
	}
	if err := st.Check(); err != nil {
		return records.State{}, core.NewParseError(s.path, err)
	}
	st.Normalize()
	return st, nil
}

// write replaces the file atomically: temp file in the same directory, then rename.
func (s *Store) write(st records.State) error {
	st.Normalize()
	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return core.NewPersistenceError("encoding records", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.NewPersistenceError("creating "+dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return core.NewPersistenceError("writing "+s.path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return core.NewPersistenceError("writing "+s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return core.NewPersistenceError("writing "+s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return core.NewPersistenceError("writing "+s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return core.NewPersistenceError("writing "+s.path, err)
	}
	return nil
}

func (s *Store) mutate(fn func(st *records.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(&st); err != nil {
		return err
	}
	return s.write(st)
}

func (s *Store) LoadAll(_ context.Context) (records.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) SaveAll(_ context.Context, st records.State) error {
	if err := st.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(st.Clone())
}

func (s *Store) AddStudent(_ context.Context, stu records.Student) error {
	return s.mutate(func(st *records.State) error { return st.AddStudent(stu) })
}

func (s *Store) UpdateStudent(_ context.Context, stu records.Student) error {
	return s.mutate(func(st *records.State) error { return st.UpdateStudent(stu) })
}

func (s *Store) DeleteStudent(_ context.Context, id string) error {
	return s.mutate(func(st *records.State) error { return st.DeleteStudent(id) })
}

func (s *Store) AddInstructor(_ context.Context, ins records.Instructor) error {
	return s.mutate(func(st *records.State) error { return st.AddInstructor(ins) })
}

func (s *Store) UpdateInstructor(_ context.Context, ins records.Instructor) error {
	return s.mutate(func(st *records.State) error { return st.UpdateInstructor(ins) })
}

func (s *Store) DeleteInstructor(_ context.Context, id string) error {
	return s.mutate(func(st *records.State) error { return st.DeleteInstructor(id) })
}

func (s *Store) AddCourse(_ context.Context, c records.Course) error {
	return s.mutate(func(st *records.State) error { return st.AddCourse(c) })
}

func (s *Store) UpdateCourse(_ context.Context, c records.Course) error {
	return s.mutate(func(st *records.State) error { return st.UpdateCourse(c) })
}

func (s *Store) DeleteCourse(_ context.Context, id string) error {
	return s.mutate(func(st *records.State) error { return st.DeleteCourse(id) })
}

func (s *Store) AddRegistration(_ context.Context, r records.Registration) error {
	return s.mutate(func(st *records.State) error { return st.AddRegistration(r) })
}

func (s *Store) DeleteRegistration(_ context.Context, r records.Registration) error {
	return s.mutate(func(st *records.State) error { return st.DeleteRegistration(r) })
}

func (s *Store) AddAssignment(_ context.Context, a records.Assignment) error {
	return s.mutate(func(st *records.State) error { return st.AddAssignment(a) })
}

func (s *Store) DeleteAssignment(_ context.Context, a records.Assignment) error {
	return s.mutate(func(st *records.State) error { return st.DeleteAssignment(a) })
}

func (s *Store) BackupExt() string { return ".json" }

// Backup copies the store file to dst. A store never written to is backed up as an empty record set.
func (s *Store) Backup(_ context.Context, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return err
	}
	return (&Store{path: dst}).write(st)
}

func (s *Store) Close() error { return nil }
