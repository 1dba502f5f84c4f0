// Package adapter contains infrastructure adapters for the twister CLI.
package adapter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	m "twister.dev/pkg/twister/internal/model"
)

// ErrLineOutOfRange is returned by ReadLine for a line the file does not have.
var ErrLineOutOfRange = errors.New("line out of range")

// SourceFSAdapter abstracts the filesystem access the domain layer needs to
// find code units and spec files.
type SourceFSAdapter interface {
	// Walk traverses root. When recursive is false the walk stays in root.
	Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// ReadLine returns one 1-based line of a file without its newline.
	ReadLine(ctx context.Context, path m.Path, line int) (string, error)

	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)

	// ExpandUnits turns files and directories into a sorted list of code
	// units. Directories contribute their own *.go files, tests excluded.
	ExpandUnits(ctx context.Context, paths []m.Path) ([]m.Path, error)

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path m.Path) error
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk without
// leaking the standard-library type into the domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter implements SourceFSAdapter on the local disk.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G304 - path names a code unit chosen by the user
	return os.ReadFile(string(path))
}

// ReadLine scans path up to the requested line.
func (a *LocalSourceFSAdapter) ReadLine(ctx context.Context, path m.Path, line int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if line < 1 {
		return "", fmt.Errorf("%s:%d: %w", path, line, ErrLineOutOfRange)
	}

	// #nosec G304 - path names a code unit chosen by the user
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		if n == line {
			return scanner.Text(), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}

	return "", fmt.Errorf("%s:%d: %w", path, line, ErrLineOutOfRange)
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// ExpandUnits resolves every path, failing on the first one that is missing.
// The result is deduplicated and sorted.
func (a *LocalSourceFSAdapter) ExpandUnits(ctx context.Context, paths []m.Path) ([]m.Path, error) {
	seen := make(map[m.Path]struct{})

	var units []m.Path

	add := func(p m.Path) {
		p = m.Path(filepath.Clean(string(p)))
		if _, ok := seen[p]; ok {
			return
		}

		seen[p] = struct{}{}
		units = append(units, p)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := a.FileInfo(path)
		if err != nil {
			return nil, fmt.Errorf("twist target %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}

		err = a.Walk(path, false, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if !fi.IsDir() && isUnitFile(p) {
				add(m.Path(p))
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("twist target %s: %w", path, err)
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })

	return units, nil
}

// MkdirAll creates path with owner-only permissions for new directories.
func (a *LocalSourceFSAdapter) MkdirAll(path m.Path) error {
	return os.MkdirAll(string(path), 0o750)
}

func isUnitFile(path string) bool {
	return filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go")
}
