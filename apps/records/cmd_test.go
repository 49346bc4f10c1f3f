package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
	"github.com/trezcool/rekodi/services/logger"
	"github.com/trezcool/rekodi/storage"
	"github.com/trezcool/rekodi/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := &core.Config{Env: "TEST", TestMode: true, WorkDir: t.TempDir(), Backend: core.BackendFile}
	conf.File.Path = "records.json"
	conf.Bolt.Path = "records.bolt"
	conf.Database.Engine = core.EngineSQLite
	conf.Database.Path = "school.db"

	log := logsvc.NewNopLogger()
	repo, err := storage.Open(conf.Backend, conf, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	var out bytes.Buffer
	return &commandLine{
		conf: conf,
		log:  log,
		svc:  records.NewService(repo, log),
		in:   strings.NewReader(""),
		out:  &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
	extra      interface{}
}

func runTests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"records"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)
	runTests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "student: no subcommand", args: []string{"student"}, wantErr: errHelp},
		{name: "student: unknown subcommand", args: []string{"student", "lol"}, wantErr: errHelp},
		{name: "student: help flag", args: []string{"student", "add", "-h"}, wantErr: errHelp},
		{name: "student update: no id", args: []string{"student", "update", "-name", "X"}, wantErr: errHelp},
		{name: "course update: conflicting flags", args: []string{"course", "update", "-id", "1", "-instructor", "i1", "-no-instructor"}, wantErr: errHelp},
		{name: "register: no course", args: []string{"register", "-student", "1"}, wantErr: errHelp},
		{name: "transfer: no backend", args: []string{"transfer"}, wantErr: errHelp},
		{name: "diff: no backend", args: []string{"diff"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
	})
}

func Test_commandLine_records(t *testing.T) {
	cli, out := setup(t)
	isTerminalFunc = func(fd int) bool { return false }

	runTests(t, cli, out, []cliTest{
		{name: "add student", args: []string{"student", "add", "-id", "1", "-name", "A", "-email", "a@b.com"}, wantOut: "student 1 added"},
		{name: "add student: invalid email", args: []string{"student", "add", "-id", "2", "-name", "B", "-email", "not-an-email"}, wantErrStr: "invalid input"},
		{name: "add student: duplicate id", args: []string{"student", "add", "-id", "1", "-name", "B", "-email", "b@b.com"}, wantErrStr: records.ErrIDExists.Error()},
		{name: "update student", args: []string{"student", "update", "-id", "1", "-age", "19"}, wantOut: "student 1 updated"},
		{name: "update missing student", args: []string{"student", "update", "-id", "404", "-age", "19"}, wantErrStr: `student "404" not found`},
		{name: "add instructor", args: []string{"instructor", "add", "-id", "i1", "-name", "Prof", "-email", "prof@b.com", "-age", "50"}, wantOut: "instructor i1 added"},
		{name: "add course: unknown instructor", args: []string{"course", "add", "-id", "10", "-name", "CS101", "-instructor", "i9"}, wantErrStr: records.ErrUnknownRef.Error()},
		{name: "add course", args: []string{"course", "add", "-id", "10", "-name", "CS101", "-instructor", "i1"}, wantOut: "course 10 added"},
		{name: "register", args: []string{"register", "-student", "1", "-course", "10"}, wantOut: "student 1 registered to course 10"},
		{name: "register twice", args: []string{"register", "-student", "1", "-course", "10"}, wantErrStr: records.ErrLinkExists.Error()},
		{name: "assign", args: []string{"assign", "-instructor", "i1", "-course", "10"}, wantOut: "instructor i1 assigned to course 10"},
		{name: "list students", args: []string{"student", "list"}, wantOut: "a@b.com"},
		{name: "list courses", args: []string{"course", "list"}, wantOut: "CS101"},
		{name: "search", args: []string{"search", "-q", "cs1"}, wantOut: "Course"},
		{name: "search: nothing", args: []string{"search", "-q", "zzz"}, wantOut: "no records found"},
		{name: "search: bad scope", args: []string{"search", "-scope", "teachers"}, wantErrStr: "scope: must be one of all, students, instructors, courses"},
		{name: "export to stdout", args: []string{"export", "-scope", "students"}, wantOut: "Type,ID,Name,Email\nStudent,1,A,a@b.com\n"},
		{name: "unassign", args: []string{"unassign", "-instructor", "i1", "-course", "10"}, wantOut: "unassigned from course 10"},
		{name: "course drop instructor", args: []string{"course", "update", "-id", "10", "-no-instructor"}, wantOut: "course 10 updated"},
		{name: "delete student", args: []string{"student", "delete", "-id", "1"}, wantOut: "student 1 deleted"},
		{name: "delete missing student", args: []string{"student", "delete", "-id", "1"}, wantErrStr: `student "1" not found`},
	})

	st := testutil.Load(t, cli.svc.Repository())
	assert.Empty(t, st.Students)
	assert.Empty(t, st.Registrations)
	require.Len(t, st.Courses, 1)
	assert.Equal(t, "", st.Courses[0].InstructorID)
	assert.Equal(t, 50, st.Instructors[0].Age)
}

func Test_commandLine_confirmDelete(t *testing.T) {
	cli, out := setup(t)
	repo := cli.svc.Repository()
	testutil.CreateStudent(t, repo, "1", "A", "a@b.com")
	testutil.CreateCourse(t, repo, "10", "CS101")
	isTerminalFunc = func(fd int) bool { return true }
	defer func() { isTerminalFunc = func(fd int) bool { return false } }()

	type extra struct {
		answer string
	}
	tests := []cliTest{
		{name: "declined", args: []string{"course", "delete", "-id", "10"}, extra: extra{answer: "n\n"}, wantOut: "aborted"},
		{name: "no answer", args: []string{"student", "delete", "-id", "1"}, extra: extra{answer: ""}, wantOut: "aborted"},
		{name: "confirmed", args: []string{"course", "delete", "-id", "10"}, extra: extra{answer: "Yes\n"}, wantOut: "course 10 deleted"},
		{name: "skip prompt", args: []string{"student", "delete", "-id", "1", "-yes"}, wantOut: "student 1 deleted"},
	}
	for _, tt := range tests {
		answer := ""
		if e, ok := tt.extra.(extra); ok {
			answer = e.answer
		}
		cli.in = strings.NewReader(answer)
		runTests(t, cli, out, []cliTest{tt})
	}

	st := testutil.Load(t, repo)
	assert.Empty(t, st.Students)
	assert.Empty(t, st.Courses)
}

func Test_commandLine_stores(t *testing.T) {
	cli, out := setup(t)
	require.NoError(t, cli.svc.Repository().SaveAll(context.Background(), testutil.SampleState()))
	backupPath := filepath.Join(cli.conf.WorkDir, "backup.json")
	csvPath := filepath.Join(cli.conf.WorkDir, "out.csv")

	runTests(t, cli, out, []cliTest{
		{name: "backup", args: []string{"backup", "-o", backupPath}, wantOut: "backup written to " + backupPath},
		{name: "export to file", args: []string{"export", "-q", "alice", "-o", csvPath}, wantOut: "1 records exported to " + csvPath},
		{name: "diff before transfer", args: []string{"diff", "-against", "bolt"}, wantOut: "--- file\n+++ bolt\n"},
		{name: "transfer to active backend", args: []string{"transfer", "-to", "file"}, wantErrStr: `"file" is the active backend`},
		{name: "transfer", args: []string{"transfer", "-to", "bolt"}, wantOut: "copied 2 students, 1 instructors, 2 courses, 3 registrations and 1 assignments to bolt"},
		{name: "diff after transfer", args: []string{"diff", "-against", "bolt"}, wantOut: "no differences"},
		{name: "transfer to database", args: []string{"transfer", "-to", "database"}},
		{name: "unknown backend", args: []string{"transfer", "-to", "ftp"}, wantErrStr: `unknown backend "ftp"`},
	})

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Type,ID,Name,Email\nStudent,1,Alice Kabila,alice@school.cd\n", string(data))
	assert.FileExists(t, backupPath)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)
	runTests(t, cli, out, []cliTest{
		{name: "wrong backend", args: []string{"migrate", "up"}, wantErrStr: "the file backend has no migrations"},
	})

	cli.conf.Backend = core.BackendDatabase
	runMigrationFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create", "fix":
			return fmt.Errorf("%q: not available for embedded migrations", command)
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runTests(t, cli, out, []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}, wantErrStr: "\"create\": not available for embedded migrations"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
	})
}

func Test_printError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, (&records.NewStudent{Name: "", Email: "nope"}).Validate())
	assert.Equal(t, "error: invalid input\n  name: this field is required\n  email: invalid email format\n", buf.String())

	buf.Reset()
	printError(&buf, core.NewNotFoundError("course", "10"))
	assert.Equal(t, "error: course \"10\" not found\n", buf.String())
}
