package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dagger/chatrelay/internal/dagger"
)

// CheckGoModTidy fails when "go mod tidy" would rewrite go.mod or go.sum.
//
// +check
func (c *Chatrelay) CheckGoModTidy(ctx context.Context) (string, error) {
	return c.leavesUnchanged(ctx, []string{"go", "mod", "tidy"}, "go.mod", "go.sum")
}

// CheckGofmt fails when any Go file outside the dagger module is not
// gofmt-formatted, listing the offending files.
//
// +check
func (c *Chatrelay) CheckGofmt(ctx context.Context) (string, error) {
	out, err := c.goContainer().
		WithExec([]string{"sh", "-c", "gofmt -l $(go list -f '{{.Dir}}' ./...)"}).
		Stdout(ctx)
	if err != nil {
		return "", fmt.Errorf("running gofmt: %w", err)
	}
	if files := strings.TrimSpace(out); files != "" {
		return "", fmt.Errorf("files need gofmt:\n%s", files)
	}
	return "all files are gofmt-formatted", nil
}

// leavesUnchanged snapshots files, runs cmd and diffs each file against its
// snapshot. The diff output is returned in the error when anything moved.
func (c *Chatrelay) leavesUnchanged(ctx context.Context, cmd []string, files ...string) (string, error) {
	ctr := c.goContainer()
	diffs := make([]string, 0, len(files))
	for _, f := range files {
		ctr = ctr.WithExec([]string{"cp", f, f + ".orig"})
		diffs = append(diffs, fmt.Sprintf("diff -u %[1]s.orig %[1]s", f))
	}

	out, err := ctr.
		WithExec(cmd).
		WithExec([]string{"sh", "-c", strings.Join(diffs, " && ")}).
		Stdout(ctx)

	name := strings.Join(cmd, " ")
	var e *dagger.ExecError
	if errors.As(err, &e) {
		return "", fmt.Errorf("%s changed %s: run it and commit the result\n\n%s",
			name, strings.Join(files, " and "), e.Stdout)
	} else if err != nil {
		return "", fmt.Errorf("running %s: %w", name, err)
	}

	return fmt.Sprintf("%s left %s unchanged%s", name, strings.Join(files, " and "), out), nil
}
