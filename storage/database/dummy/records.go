package dummydb

import (
	"context"

	"github.com/trezcool/rekodi/core/records"
)

type recordsRepository struct {
	db *stateTable
}

var _ records.Repository = (*recordsRepository)(nil) // interface compliance check

// NewRecordsRepository keeps everything in memory; nothing survives the process.
func NewRecordsRepository(db *DB) records.Repository {
	return &recordsRepository{db: db.state}
}

// mutate applies fn to a copy of the state and keeps it only when fn succeeds.
func (repo *recordsRepository) mutate(fn func(st *records.State) error) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	st := repo.db.state.Clone()
	if err := fn(&st); err != nil {
		return err
	}
	st.Normalize()
	repo.db.state = st
	return nil
}

func (repo *recordsRepository) LoadAll(_ context.Context) (records.State, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	st := repo.db.state.Clone()
	st.Normalize()
	return st, nil
}

func (repo *recordsRepository) SaveAll(_ context.Context, st records.State) error {
	if err := st.Check(); err != nil {
		return err
	}
	return repo.mutate(func(cur *records.State) error {
		*cur = st.Clone()
		return nil
	})
}

func (repo *recordsRepository) AddStudent(_ context.Context, s records.Student) error {
	return repo.mutate(func(st *records.State) error { return st.AddStudent(s) })
}

func (repo *recordsRepository) UpdateStudent(_ context.Context, s records.Student) error {
	return repo.mutate(func(st *records.State) error { return st.UpdateStudent(s) })
}

func (repo *recordsRepository) DeleteStudent(_ context.Context, id string) error {
	return repo.mutate(func(st *records.State) error { return st.DeleteStudent(id) })
}

func (repo *recordsRepository) AddInstructor(_ context.Context, ins records.Instructor) error {
	return repo.mutate(func(st *records.State) error { return st.AddInstructor(ins) })
}

func (repo *recordsRepository) UpdateInstructor(_ context.Context, ins records.Instructor) error {
	return repo.mutate(func(st *records.State) error { return st.UpdateInstructor(ins) })
}

func (repo *recordsRepository) DeleteInstructor(_ context.Context, id string) error {
	return repo.mutate(func(st *records.State) error { return st.DeleteInstructor(id) })
}

func (repo *recordsRepository) AddCourse(_ context.Context, c records.Course) error {
	return repo.mutate(func(st *records.State) error { return st.AddCourse(c) })
}

func (repo *recordsRepository) UpdateCourse(_ context.Context, c records.Course) error {
	return repo.mutate(func(st *records.State) error { return st.UpdateCourse(c) })
}

func (repo *recordsRepository) DeleteCourse(_ context.Context, id string) error {
	return repo.mutate(func(st *records.State) error { return st.DeleteCourse(id) })
}

func (repo *recordsRepository) AddRegistration(_ context.Context, r records.Registration) error {
	return repo.mutate(func(st *records.State) error { return st.AddRegistration(r) })
}

func (repo *recordsRepository) DeleteRegistration(_ context.Context, r records.Registration) error {
	return repo.mutate(func(st *records.State) error { return st.DeleteRegistration(r) })
}

func (repo *recordsRepository) AddAssignment(_ context.Context, a records.Assignment) error {
	return repo.mutate(func(st *records.State) error { return st.AddAssignment(a) })
}

func (repo *recordsRepository) DeleteAssignment(_ context.Context, a records.Assignment) error {
	return repo.mutate(func(st *records.State) error { return st.DeleteAssignment(a) })
}

func (repo *recordsRepository) Close() error { return nil }
