// Package gitops drives the git CLI for repos whose records are plain CSV.
package gitops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Author identifies who a commit is attributed to.
type Author struct {
	Name  string
	Email string
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Init initializes a new git repository at dir.
func Init(ctx context.Context, dir string) error {
	if _, err := run(ctx, dir, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// IsRepo reports whether dir is the top of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Commit stages paths (everything when none are given) and commits them.
// It returns the short hash, or "" when there was nothing to commit.
func Commit(ctx context.Context, dir, message string, author Author, paths ...string) (string, error) {
	add := []string{"add", "-A"}
	if len(paths) > 0 {
		add = append(add, "--")
		add = append(add, paths...)
	}
	if _, err := run(ctx, dir, add...); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	dirty, err := hasStaged(ctx, dir)
	if err != nil {
		return "", err
	}
	if !dirty {
		return "", nil
	}

	// Committer identity follows the author so commits work without a
	// global git config.
	commit := []string{
		"-c", "user.name=" + author.Name,
		"-c", "user.email=" + author.Email,
		"commit", "--quiet", "-m", message, "--author", author.String(),
	}
	if _, err := run(ctx, dir, commit...); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}
	out, err := run(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func hasStaged(ctx context.Context, dir string) (bool, error) {
	_, err := run(ctx, dir, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) && exit.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff: %w", err)
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w", msg, err)
		}
		return "", err
	}
	return stdout.String(), nil
}
