package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
)

func (cli *commandLine) searchFlags(name string, args []string) (query, out string, scope records.Scope, err error) {
	fs := cli.flagSet(name)
	q := fs.String("q", "", "case-insensitive text matched on id, name and email")
	s := fs.String("scope", string(records.ScopeAll), "all, students, instructors or courses")
	var o *string
	if name == "export" {
		o = fs.String("o", "", "output file (default: stdout)")
	}
	if err = parse(fs, args); err != nil {
		return "", "", "", err
	}
	if scope, err = records.ParseScope(*s); err != nil {
		return "", "", "", err
	}
	if o != nil {
		out = *o
	}
	return *q, out, scope, nil
}

func (cli *commandLine) search(args []string) error {
	query, _, scope, err := cli.searchFlags("search", args)
	if err != nil {
		return err
	}
	rows, err := cli.svc.Search(context.Background(), query, scope)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(cli.out, "no records found")
		return nil
	}
	lines := make([][]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, []string{r.Type, r.ID, r.Name, r.Email})
	}
	return cli.table("TYPE\tID\tNAME\tEMAIL", lines)
}

func (cli *commandLine) export(args []string) error {
	query, path, scope, err := cli.searchFlags("export", args)
	if err != nil {
		return err
	}

	var w io.Writer = cli.out
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return core.NewPersistenceError("creating "+path, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	n, err := cli.svc.Export(context.Background(), w, query, scope)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cli.out, "%d records exported to %s\n", n, path)
	}
	return nil
}

func (cli *commandLine) backup(args []string) error {
	fs := cli.flagSet("backup")
	out := fs.String("o", "", "backup path (default: backup_YYYYMMDD_HHMMSS in the current directory)")
	if err := parse(fs, args); err != nil {
		return err
	}
	path, err := cli.svc.Backup(context.Background(), *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "backup written to %s\n", path)
	return nil
}

// openOther opens a second backend next to the active one.
func (cli *commandLine) openOther(backend string) (records.Repository, error) {
	backend = core.CleanString(backend, true /* lower */)
	if backend == cli.conf.Backend {
		return nil, core.NewValidationError(
			errors.Errorf("%q is the active backend", backend),
			core.FieldError{Field: "backend", Error: "pick a backend other than " + cli.conf.Backend},
		)
	}
	return openRepoFunc(backend, cli.conf, cli.log)
}

func (cli *commandLine) transfer(args []string) error {
	fs := cli.flagSet("transfer")
	to := fs.String("to", "", "destination backend")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *to == "" {
		fs.Usage()
		return errHelp
	}

	dst, err := cli.openOther(*to)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	st, err := records.Transfer(context.Background(), cli.svc.Repository(), dst)
	if err != nil {
		return err
	}
	cli.log.Info("records transferred", "from", cli.conf.Backend, "to", *to)
	fmt.Fprintf(cli.out, "copied %d students, %d instructors, %d courses, %d registrations and %d assignments to %s\n",
		len(st.Students), len(st.Instructors), len(st.Courses), len(st.Registrations), len(st.Assignments), *to)
	return nil
}

func (cli *commandLine) diff(args []string) error {
	fs := cli.flagSet("diff")
	against := fs.String("against", "", "backend to compare with")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *against == "" {
		fs.Usage()
		return errHelp
	}

	other, err := cli.openOther(*against)
	if err != nil {
		return err
	}
	defer func() { _ = other.Close() }()

	ctx := context.Background()
	mine, err := cli.svc.Load(ctx)
	if err != nil {
		return err
	}
	theirs, err := other.LoadAll(ctx)
	if err != nil {
		return err
	}
	d, err := records.Diff(mine, theirs, cli.conf.Backend, *against)
	if err != nil {
		return err
	}
	if d == "" {
		fmt.Fprintln(cli.out, "no differences")
		return nil
	}
	fmt.Fprint(cli.out, d)
	return nil
}
