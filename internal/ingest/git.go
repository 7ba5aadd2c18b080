package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/speakcast/speakcast/internal/model/apperr"
)

// textFileExtensions is the set of files concatenated from a cloned
// repository (spec §4.4 "concatenates its markdown/text files").
var textFileExtensions = map[string]bool{
	".md": true, ".markdown": true, ".txt": true, ".rst": true, ".adoc": true,
}

// IngestGit shallow-clones repoURL into a temporary workspace, optionally
// narrowing to subpath, and concatenates its markdown/text files in a
// stable depth-first lexicographic traversal order.
func IngestGit(ctx context.Context, repoURL, subpath string) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "speakcast-ingest-git-*")
	if err != nil {
		return Result{}, fmt.Errorf("ingest: create temp workspace: %w: %w", apperr.ErrFetchFailed, err)
	}
	defer os.RemoveAll(tmpDir)

	_, err = git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("ingest: clone %q: %w", repoURL, apperr.ErrTimeout)
		}
		return Result{}, fmt.Errorf("ingest: clone %q: %w: %w", repoURL, apperr.ErrFetchFailed, err)
	}

	root := tmpDir
	if subpath != "" {
		root = filepath.Join(tmpDir, filepath.Clean(subpath))
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("ingest: subpath %q not found in %q: %w", subpath, repoURL, apperr.ErrNotFound)
	}

	paths, err := collectTextFiles(root)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: walk clone: %w: %w", apperr.ErrFetchFailed, err)
	}
	if len(paths) == 0 {
		return Result{}, fmt.Errorf("ingest: no markdown/text files under %q: %w", subpath, apperr.ErrEmptyContent)
	}

	var total int64
	var sb strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue // skip unreadable file, best-effort
		}
		total += int64(len(data))
		if total > maxFetchBytes {
			return Result{}, fmt.Errorf("ingest: clone content exceeds %d bytes: %w", maxFetchBytes, apperr.ErrTooLarge)
		}
		rel, _ := filepath.Rel(root, p)
		sb.WriteString("# " + rel + "\n\n")
		sb.Write(data)
		sb.WriteString("\n\n")
	}

	title := filepath.Base(strings.TrimSuffix(repoURL, ".git"))
	return Result{Title: title, RawText: sb.String()}, nil
}

// collectTextFiles walks root depth-first in lexicographic order, returning
// paths whose extension is in textFileExtensions (spec §4.4 "stable
// traversal order: depth-first, lexicographic").
func collectTextFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if textFileExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
