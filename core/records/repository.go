package records

import "context"

// Repository is the persistence contract every backend implements with the same observable behaviour:
//   - LoadAll returns a normalized State; SaveAll followed by LoadAll yields the saved state (normalized).
//   - SaveAll replaces the whole record set and rejects a state failing State.Check, writing nothing.
//   - Add with a duplicate id or email, or a dangling reference: *core.ValidationError.
//   - Update/Delete of a missing record: *core.NotFoundError.
//   - Deletes cascade to registrations and assignments; deleting an instructor clears Course.InstructorID.
//   - Any I/O or query failure: *core.PersistenceError.
type Repository interface {
	LoadAll(ctx context.Context) (State, error)
	SaveAll(ctx context.Context, st State) error

	AddStudent(ctx context.Context, s Student) error
	UpdateStudent(ctx context.Context, s Student) error
	DeleteStudent(ctx context.Context, id string) error

	AddInstructor(ctx context.Context, ins Instructor) error
	UpdateInstructor(ctx context.Context, ins Instructor) error
	DeleteInstructor(ctx context.Context, id string) error

	AddCourse(ctx context.Context, c Course) error
	UpdateCourse(ctx context.Context, c Course) error
	DeleteCourse(ctx context.Context, id string) error

	AddRegistration(ctx context.Context, r Registration) error
	DeleteRegistration(ctx context.Context, r Registration) error

	AddAssignment(ctx context.Context, a Assignment) error
	DeleteAssignment(ctx context.Context, a Assignment) error

	Close() error
}

// Backuper is implemented by backends stored in a single local file.
type Backuper interface {
	// Backup writes a consistent copy of the store to dst.
	Backup(ctx context.Context, dst string) error
	// BackupExt is the file extension used for generated backup names (eg. ".db").
	BackupExt() string
}
