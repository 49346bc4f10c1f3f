package main

import (
	"context"
	"fmt"

	"github.com/trezcool/rekodi/core/records"
)

func (cli *commandLine) course(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()
	cmd := "course " + args[0]

	switch args[0] {
	case "add":
		fs := cli.flagSet(cmd)
		id := fs.String("id", "", "unique id, generated when empty")
		name := fs.String("name", "", "course name")
		instructor := fs.String("instructor", "", "id of the instructor in charge (optional)")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		c, err := cli.svc.CreateCourse(ctx, records.NewCourse{ID: *id, Name: *name, InstructorID: *instructor})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "course %s added\n", c.ID)
		return nil

	case "update":
		fs := cli.flagSet(cmd)
		id := fs.String("id", "", "id of the course to edit")
		name := fs.String("name", "", "new name")
		instructor := fs.String("instructor", "", "id of the new instructor in charge")
		noInstructor := fs.Bool("no-instructor", false, "remove the instructor in charge")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if *id == "" || (*noInstructor && *instructor != "") {
			fs.Usage()
			return errHelp
		}
		uc := records.UpdateCourse{Name: *name}
		switch {
		case *noInstructor:
			none := ""
			uc.InstructorID = &none
		case *instructor != "":
			uc.InstructorID = instructor
		}
		c, err := cli.svc.UpdateCourse(ctx, *id, uc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "course %s updated\n", c.ID)
		return nil

	case "delete":
		fs := cli.flagSet(cmd)
		id := fs.String("id", "", "id of the course to delete")
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		ok, err := cli.confirm(fmt.Sprintf("Delete course %s with its registrations and assignments?", *id), *yes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cli.out, "aborted")
			return nil
		}
		if err := cli.svc.DeleteCourse(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "course %s deleted\n", *id)
		return nil

	case "list":
		st, err := cli.svc.Load(ctx)
		if err != nil {
			return err
		}
		lines := make([][]string, 0, len(st.Courses))
		for _, c := range st.Courses {
			instructor := c.InstructorID
			if instructor == "" {
				instructor = "-"
			}
			lines = append(lines, []string{c.ID, c.Name, instructor})
		}
		return cli.table("ID\tNAME\tINSTRUCTOR", lines)

	default:
		cli.printUsage()
		return errHelp
	}
}
