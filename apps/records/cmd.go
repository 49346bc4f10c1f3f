package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
	"github.com/trezcool/rekodi/storage"
)

var (
	isTerminalFunc = term.IsTerminal // mockable
	openRepoFunc   = storage.Open    // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf *core.Config
	log  core.Logger
	svc  *records.Service
	in   io.Reader
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  student add -name NAME -email EMAIL [-id ID] [-age AGE]      - add a student")
	fmt.Fprintln(cli.out, "  student update -id ID [-name NAME] [-email EMAIL] [-age AGE] - edit a student")
	fmt.Fprintln(cli.out, "  student delete -id ID [-yes]                                 - delete a student and its registrations")
	fmt.Fprintln(cli.out, "  student list                                                 - list students")
	fmt.Fprintln(cli.out, "  instructor add|update|delete|list                            - same flags as student")
	fmt.Fprintln(cli.out, "  course add -name NAME [-id ID] [-instructor ID]              - add a course")
	fmt.Fprintln(cli.out, "  course update -id ID [-name NAME] [-instructor ID|-no-instructor]")
	fmt.Fprintln(cli.out, "  course delete -id ID [-yes]                                  - delete a course and its links")
	fmt.Fprintln(cli.out, "  course list                                                  - list courses")
	fmt.Fprintln(cli.out, "  register|unregister -student ID -course ID                   - (un)register a student")
	fmt.Fprintln(cli.out, "  assign|unassign -instructor ID -course ID                    - (un)assign an instructor")
	fmt.Fprintln(cli.out, "  search [-q QUERY] [-scope all|students|instructors|courses]  - search records")
	fmt.Fprintln(cli.out, "  export [-q QUERY] [-scope SCOPE] [-o FILE]                   - export search results as CSV")
	fmt.Fprintln(cli.out, "  backup [-o PATH]                                             - copy the store file")
	fmt.Fprintln(cli.out, "  transfer -to BACKEND                                         - copy all records to another backend")
	fmt.Fprintln(cli.out, "  diff -against BACKEND                                        - compare records with another backend")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                       - run a database migration command")
	fmt.Fprintln(cli.out, "Backends: "+strings.Join(core.Backends, ", "))
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses args into fs, mapping -h to errHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

// isSet reports whether the flag name was given on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	var set bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	cmd, rest := args[1], args[2:]
	switch cmd {
	case "student":
		return cli.person(studentOps(cli.svc), rest)
	case "instructor":
		return cli.person(instructorOps(cli.svc), rest)
	case "course":
		return cli.course(rest)
	case "register", "unregister":
		return cli.link(cmd, "student", rest)
	case "assign", "unassign":
		return cli.link(cmd, "instructor", rest)
	case "search":
		return cli.search(rest)
	case "export":
		return cli.export(rest)
	case "backup":
		return cli.backup(rest)
	case "transfer":
		return cli.transfer(rest)
	case "diff":
		return cli.diff(rest)
	case "migrate":
		if len(rest) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(rest)
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks for a yes on an interactive stdin. Non-interactive runs proceed.
func (cli *commandLine) confirm(prompt string, yes bool) (bool, error) {
	if yes || !isTerminalFunc(int(os.Stdin.Fd())) {
		return true, nil
	}
	fmt.Fprintf(cli.out, "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = core.CleanString(answer, true /* lower */)
	return answer == "y" || answer == "yes", nil
}

func (cli *commandLine) link(cmd, left string, args []string) error {
	fs := cli.flagSet(cmd)
	leftID := fs.String(left, "", "the "+left+"'s id")
	courseID := fs.String("course", "", "the course id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *leftID == "" || *courseID == "" {
		fs.Usage()
		return errHelp
	}

	ctx := context.Background()
	leftKey, course := core.CleanString(*leftID), core.CleanString(*courseID)
	var (
		err error
		msg string
	)
	switch cmd {
	case "register":
		msg = "registered to"
		err = cli.svc.Register(ctx, leftKey, course)
	case "unregister":
		msg = "unregistered from"
		err = cli.svc.Unregister(ctx, leftKey, course)
	case "assign":
		msg = "assigned to"
		err = cli.svc.Assign(ctx, leftKey, course)
	case "unassign":
		msg = "unassigned from"
		err = cli.svc.Unassign(ctx, leftKey, course)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %s %s course %s\n", left, leftKey, msg, course)
	return nil
}

func (cli *commandLine) table(header string, lines [][]string) error {
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, l := range lines {
		fmt.Fprintln(tw, strings.Join(l, "\t"))
	}
	return tw.Flush()
}

// printError writes err for the user, one line per invalid field.
func printError(w io.Writer, err error) {
	verr, ok := core.AsValidation(err)
	if !ok || len(verr.Fields) == 0 {
		fmt.Fprintf(w, "error: %s\n", err)
		return
	}
	msg := "invalid input"
	if verr.Err != nil {
		msg = verr.Err.Error()
	}
	fmt.Fprintf(w, "error: %s\n", msg)
	for _, fld := range verr.Fields {
		fmt.Fprintf(w, "  %s: %s\n", fld.Field, fld.Error)
	}
}
