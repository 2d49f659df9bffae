// Package grouping decides which files on disk belong together.
//
// A Policy turns the files of one directory level into FileGroups. Walk applies
// a Policy to every level of a tree, top-down, with entries sorted by name so
// that repeated runs over the same tree yield the same groups in the same order.
//
// The sequences returned here are single-use: they read the filesystem when
// iterated and are not meant to be restarted.
package grouping

import (
	"iter"

	"github.com/ppiankov/materialsio/internal/model"
)

// Policy produces file groups from the files (and sub-directories) of one level
type Policy interface {
	Group(files, dirs []string, ctx model.Context) iter.Seq[model.FileGroup]
}

// Singleton puts every file in its own group and ignores directories
type Singleton struct{}

// Group yields one single-file group per input file, in input order
func (Singleton) Group(files, _ []string, _ model.Context) iter.Seq[model.FileGroup] {
	return func(yield func(model.FileGroup) bool) {
		for _, f := range files {
			if !yield(model.FileGroup{f}) {
				return
			}
		}
	}
}
