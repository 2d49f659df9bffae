package grouping

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReadLevel lists the immediate files and sub-directories of dir as absolute,
// name-sorted paths.
func ReadLevel(dir string) (files []string, dirs []string, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	entries, err := os.ReadDir(abs) // sorted by filename
	if err != nil {
		return nil, nil, fmt.Errorf("read dir %s: %w", abs, err)
	}

	files, dirs = ClassifyPaths(abs, entries)
	return files, dirs, nil
}

// ClassifyPaths splits directory entries into files and directories, joined onto parent.
//
// Only regular files are kept: FIFOs, sockets and devices would block or
// never end when read. A symlink counts as a file when it resolves to a
// regular file. Symlinks to directories are dropped so a walk can never loop,
// and so are broken links.
func ClassifyPaths(parent string, entries []os.DirEntry) (files []string, dirs []string) {
	for _, entry := range entries {
		path := filepath.Join(parent, entry.Name())

		if entry.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			files = append(files, path)
			continue
		}

		switch {
		case entry.IsDir():
			dirs = append(dirs, path)
		case entry.Type().IsRegular():
			files = append(files, path)
		}
	}
	return files, dirs
}
