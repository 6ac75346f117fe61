// Package workspace resolves the workspace root and the location of its
// launch document.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
)

// DefaultDocumentPath is the document location relative to the root.
const DefaultDocumentPath = ".vscode/launch.json"

// Source records how the root was chosen.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceGit      Source = "git"
	SourceCwd      Source = "cwd"
)

// Workspace is a resolved workspace.
type Workspace struct {
	Root         string
	DocumentPath string
	Source       Source
	// Branch is the short name of the checked-out git branch, if any.
	Branch string
}

// Resolve picks the workspace root: explicit when non-empty, otherwise the
// top level of the git work tree containing dir, otherwise dir itself.
// document is joined to the root unless it is absolute; empty selects
// DefaultDocumentPath.
func Resolve(explicit, dir, document string) (*Workspace, error) {
	if document == "" {
		document = DefaultDocumentPath
	}

	ws := &Workspace{}
	switch {
	case explicit != "":
		root, err := filepath.Abs(explicit)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workspace %q: %w", explicit, err)
		}
		fi, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("workspace %q: %w", explicit, err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("workspace %q is not a directory", explicit)
		}
		ws.Root, ws.Source = root, SourceExplicit
		ws.Branch, _ = gitBranch(root)

	default:
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", dir, err)
		}
		if top, branch, err := gitTopLevel(abs); err == nil {
			ws.Root, ws.Source, ws.Branch = top, SourceGit, branch
		} else {
			ws.Root, ws.Source = abs, SourceCwd
		}
	}

	if filepath.IsAbs(document) {
		ws.DocumentPath = filepath.Clean(document)
	} else {
		ws.DocumentPath = filepath.Join(ws.Root, filepath.FromSlash(document))
	}
	return ws, nil
}

// gitTopLevel returns the root of the work tree containing dir.
func gitTopLevel(dir string) (root, branch string, err error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no work tree
		return "", "", err
	}
	root = wt.Filesystem.Root()
	if root == "" {
		return "", "", errors.New("work tree has no root")
	}
	return root, headBranch(repo), nil
}

func gitBranch(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	return headBranch(repo), nil
}

func headBranch(repo *git.Repository) string {
	ref, err := repo.Head()
	if err != nil || !ref.Name().IsBranch() {
		return ""
	}
	return ref.Name().Short()
}
