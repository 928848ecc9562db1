package toolchain

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"

	upcerrors "upc/internal/errors"
)

// SourceState is the git state of the source project at compile time.
type SourceState struct {
	HeadCommit string `toml:"head_commit" json:"headCommit"`
	Dirty      bool   `toml:"dirty" json:"dirty"`
}

// IsGitRepository checks if the given path is inside a git work tree
func IsGitRepository(root string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = root
	return cmd.Run() == nil
}

// ComputeSourceState reads HEAD and whether the work tree has changes.
func ComputeSourceState(ctx context.Context, root string) (*SourceState, error) {
	head, err := git(ctx, root, "rev-parse", "HEAD")
	if err != nil {
		return nil, upcerrors.New(upcerrors.InternalError, "Failed to get HEAD commit", err)
	}
	status, err := git(ctx, root, "status", "--porcelain")
	if err != nil {
		return nil, upcerrors.New(upcerrors.InternalError, "Failed to get work tree status", err)
	}
	return &SourceState{
		HeadCommit: strings.TrimSpace(head),
		Dirty:      strings.TrimSpace(status) != "",
	}, nil
}

// IgnoredPaths returns the subset of paths that git ignore rules under
// root exclude. Tracked files are checked too (--no-index).
func IgnoredPaths(ctx context.Context, root string, paths []string) (map[string]bool, error) {
	ignored := make(map[string]bool)
	if len(paths) == 0 {
		return ignored, nil
	}

	cmd := exec.CommandContext(ctx, "git", "check-ignore", "--no-index", "--stdin")
	cmd.Dir = root
	cmd.Stdin = strings.NewReader(strings.Join(paths, "\n") + "\n")

	out, err := cmd.Output()
	if err != nil {
		// Exit status 1 means nothing matched.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return ignored, nil
		}
		return nil, upcerrors.New(upcerrors.InternalError, "git check-ignore failed", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ignored[filepath.Clean(line)] = true
		}
	}
	return ignored, nil
}

func git(ctx context.Context, root string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
