package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/trezcool/rekodi/core/records"
)

// personOps binds the person commands to students or instructors.
type personOps struct {
	kind    string
	create  func(ctx context.Context, id, name string, age int, email string) (records.Person, error)
	update  func(ctx context.Context, id, name string, age *int, email string) (records.Person, error)
	remove  func(ctx context.Context, id string) error
	list    func(st records.State) [][]string
	courses string
}

func studentOps(svc *records.Service) personOps {
	return personOps{
		kind: records.KindStudent,
		create: func(ctx context.Context, id, name string, age int, email string) (records.Person, error) {
			s, err := svc.CreateStudent(ctx, records.NewStudent{ID: id, Name: name, Age: age, Email: email})
			return s.Person, err
		},
		update: func(ctx context.Context, id, name string, age *int, email string) (records.Person, error) {
			s, err := svc.UpdateStudent(ctx, id, records.UpdateStudent{Name: name, Age: age, Email: email})
			return s.Person, err
		},
		remove: svc.DeleteStudent,
		list: func(st records.State) [][]string {
			lines := make([][]string, 0, len(st.Students))
			for _, s := range st.Students {
				lines = append(lines, personLine(s.Person, s.CourseIDs))
			}
			return lines
		},
		courses: "ENROLLED",
	}
}

func instructorOps(svc *records.Service) personOps {
	return personOps{
		kind: records.KindInstructor,
		create: func(ctx context.Context, id, name string, age int, email string) (records.Person, error) {
			ins, err := svc.CreateInstructor(ctx, records.NewInstructor{ID: id, Name: name, Age: age, Email: email})
			return ins.Person, err
		},
		update: func(ctx context.Context, id, name string, age *int, email string) (records.Person, error) {
			ins, err := svc.UpdateInstructor(ctx, id, records.UpdateInstructor{Name: name, Age: age, Email: email})
			return ins.Person, err
		},
		remove: svc.DeleteInstructor,
		list: func(st records.State) [][]string {
			lines := make([][]string, 0, len(st.Instructors))
			for _, ins := range st.Instructors {
				lines = append(lines, personLine(ins.Person, ins.CourseIDs))
			}
			return lines
		},
		courses: "TEACHES",
	}
}

func personLine(p records.Person, courseIDs []string) []string {
	age := "-"
	if p.Age > 0 {
		age = strconv.Itoa(p.Age)
	}
	return []string{p.ID, p.Name, age, p.Email, strings.Join(courseIDs, ",")}
}

func (cli *commandLine) person(ops personOps, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()
	cmd := ops.kind + " " + args[0]

	switch args[0] {
	case "add":
		fs := cli.flagSet(cmd)
		id := fs.String("id", "", "unique id, generated when empty")
		name := fs.String("name", "", "full name")
		age := fs.Int("age", 0, "age in years (optional)")
		email := fs.String("email", "", "email address")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		p, err := ops.create(ctx, *id, *name, *age, *email)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s %s added\n", ops.kind, p.ID)
		return nil

	case "update":
		fs := cli.flagSet(cmd)
		id := fs.String("id", "", "id of the record to edit")
		name := fs.String("name", "", "new name")
		age := fs.Int("age", 0, "new age, 0 to clear it")
		email := fs.String("email", "", "new email")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		var agePtr *int
		if isSet(fs, "age") {
			agePtr = age
		}
		p, err := ops.update(ctx, *id, *name, agePtr, *email)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s %s updated\n", ops.kind, p.ID)
		return nil

	case "delete":
		fs := cli.flagSet(cmd)
		id := fs.String("id", "", "id of the record to delete")
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		ok, err := cli.confirm(fmt.Sprintf("Delete %s %s and its course links?", ops.kind, *id), *yes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cli.out, "aborted")
			return nil
		}
		if err := ops.remove(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s %s deleted\n", ops.kind, *id)
		return nil

	case "list":
		st, err := cli.svc.Load(ctx)
		if err != nil {
			return err
		}
		return cli.table("ID\tNAME\tAGE\tEMAIL\t"+ops.courses, ops.list(st))

	default:
		cli.printUsage()
		return errHelp
	}
}
