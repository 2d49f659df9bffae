package grouping

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/materialsio/internal/model"
)

// Walk applies p to every directory level under root, top-down and depth-first.
//
// Every sub-directory is entered whether or not anything at the parent level
// was grouped. Errors reading a level are yielded; if the consumer keeps
// iterating, the walk continues with the next sibling.
func Walk(root string, p Policy, ctx model.Context) iter.Seq2[model.FileGroup, error] {
	return func(yield func(model.FileGroup, error) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			yield(nil, fmt.Errorf("resolve root: %w", err))
			return
		}

		info, err := os.Stat(abs)
		if err != nil {
			yield(nil, fmt.Errorf("stat root: %w", err))
			return
		}
		if !info.IsDir() {
			yield(nil, fmt.Errorf("root %s is not a directory", abs))
			return
		}

		walkLevel(abs, p, ctx, yield)
	}
}

// walkLevel returns false once the consumer stops iterating
func walkLevel(dir string, p Policy, ctx model.Context, yield func(model.FileGroup, error) bool) bool {
	files, dirs, err := ReadLevel(dir)
	if err != nil {
		return yield(nil, err)
	}

	for group := range p.Group(files, dirs, ctx) {
		if len(group) == 0 {
			continue
		}
		if !yield(group, nil) {
			return false
		}
	}

	for _, sub := range dirs {
		if !walkLevel(sub, p, ctx, yield) {
			return false
		}
	}
	return true
}

// GroupPaths groups an arbitrary list of files and directories.
//
// Existing files in paths are grouped together as one level; each directory
// in paths is then walked. Paths that do not exist or are neither a regular
// file nor a directory are ignored. A leading "~"
// is expanded to the home directory.
func GroupPaths(paths []string, p Policy, ctx model.Context) iter.Seq2[model.FileGroup, error] {
	return func(yield func(model.FileGroup, error) bool) {
		var files, dirs []string
		seen := make(map[string]bool)

		for _, raw := range paths {
			path, err := cleanPath(raw)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if seen[path] {
				continue
			}
			seen[path] = true

			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			switch {
			case info.IsDir():
				dirs = append(dirs, path)
			case info.Mode().IsRegular():
				files = append(files, path)
			}
		}

		sort.Strings(files)
		sort.Strings(dirs)

		for group := range p.Group(files, dirs, ctx) {
			if len(group) == 0 {
				continue
			}
			if !yield(group, nil) {
				return
			}
		}

		for _, dir := range dirs {
			if !walkLevel(dir, p, ctx, yield) {
				return
			}
		}
	}
}

func cleanPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}
