package records

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// Transfer copies the whole record set of src into dst, replacing what dst held.
func Transfer(ctx context.Context, src, dst Repository) (State, error) {
	st, err := src.LoadAll(ctx)
	if err != nil {
		return State{}, errors.Wrap(err, "loading source")
	}
	if err := dst.SaveAll(ctx, st); err != nil {
		return State{}, errors.Wrap(err, "saving destination")
	}
	return st, nil
}

// Diff returns a unified diff of a and b rendered as indented JSON, or "" when they are equivalent.
func Diff(a, b State, nameA, nameB string) (string, error) {
	a, b = a.Clone(), b.Clone()
	a.Normalize()
	b.Normalize()

	ja, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "rendering state")
	}
	jb, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "rendering state")
	}
	if string(ja) == string(jb) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(ja) + "\n"),
		B:        difflib.SplitLines(string(jb) + "\n"),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	})
}
