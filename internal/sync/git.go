package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// GitDestination commits the export to a file in a local clone and pushes
// it. Unchanged exports produce no commit.
type GitDestination struct {
	repo   string // local clone
	file   string // relative to repo
	branch string
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

// Name implements Destination.
func (d *GitDestination) Name() string { return "git" }

// Write implements Destination.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return fmt.Errorf("git checkout %s: %w", d.branch, err)
	}
	// The remote may not have the branch yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	if err := d.git(ctx, "add", d.file); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	if d.git(ctx, "diff", "--cached", "--quiet") == nil {
		return nil
	}

	msg := fmt.Sprintf("sync: relaynotes export (%d events)", countRecords(data))
	steps := [][]string{
		{"commit", "-m", msg},
		{"push", "origin", d.branch},
	}
	for _, args := range steps {
		if err := d.git(ctx, args...); err != nil {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
	}
	return nil
}

// countRecords returns the number of non-header lines in a JSONL export.
func countRecords(data []byte) int {
	n := bytes.Count(bytes.TrimRight(data, "\n"), []byte("\n"))
	if n < 0 {
		return 0
	}
	return n
}

func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
