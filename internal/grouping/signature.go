package grouping

import (
	"iter"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/materialsio/internal/model"
)

// SignaturePolicy groups files that belong to one calculation.
//
// Pass A: a file whose base name starts (case-insensitively) with a vocabulary
// entry gets the signature (directory, remainder of the name after the entry).
// Files sharing a signature form one group, e.g. OUTCAR.2 and INCAR.2. These
// files are then consumed.
//
// Pass B: the files left over are grouped by directory. This is a weak
// heuristic and may put unrelated files together.
type SignaturePolicy struct {
	// Vocabulary holds lower-case name prefixes. The first entry that matches wins.
	Vocabulary []string
}

type signature struct {
	dir    string
	suffix string
}

type signed struct {
	path string
	sig  signature
}

// Prefix returns the vocabulary entry the base name starts with
func (p SignaturePolicy) Prefix(name string) (string, bool) {
	for _, entry := range p.Vocabulary {
		if len(name) >= len(entry) && strings.EqualFold(name[:len(entry)], entry) {
			return entry, true
		}
	}
	return "", false
}

// Group runs Pass A and then Pass B over one level. Directories are ignored:
// the walker descends into them with a fresh consumed-set.
func (p SignaturePolicy) Group(files, _ []string, _ model.Context) iter.Seq[model.FileGroup] {
	return func(yield func(model.FileGroup) bool) {
		candidates := append([]string(nil), files...)
		sort.Strings(candidates)

		consumed := make(map[string]struct{})
		for group := range p.signatureGroups(candidates) {
			for _, f := range group {
				consumed[f] = struct{}{}
			}
			if !yield(group) {
				return
			}
		}

		residual := make([]string, 0, len(candidates)-len(consumed))
		for _, f := range candidates {
			if _, ok := consumed[f]; !ok {
				residual = append(residual, f)
			}
		}

		for group := range DirectoryGroups(residual) {
			if !yield(group) {
				return
			}
		}
	}
}

func (p SignaturePolicy) signatureGroups(files []string) iter.Seq[model.FileGroup] {
	return func(yield func(model.FileGroup) bool) {
		var eligible []signed
		for _, f := range files {
			name := filepath.Base(f)
			prefix, ok := p.Prefix(name)
			if !ok {
				continue
			}
			eligible = append(eligible, signed{
				path: f,
				sig:  signature{dir: filepath.Dir(f), suffix: name[len(prefix):]},
			})
		}

		sort.SliceStable(eligible, func(i, j int) bool {
			a, b := eligible[i].sig, eligible[j].sig
			if a.dir != b.dir {
				return a.dir < b.dir
			}
			return a.suffix < b.suffix
		})

		for i := 0; i < len(eligible); {
			j := i
			group := model.FileGroup{}
			for j < len(eligible) && eligible[j].sig == eligible[i].sig {
				group = append(group, eligible[j].path)
				j++
			}
			if !yield(group) {
				return
			}
			i = j
		}
	}
}

// DirectoryGroups groups files by their containing directory, sorted by directory then path
func DirectoryGroups(files []string) iter.Seq[model.FileGroup] {
	return func(yield func(model.FileGroup) bool) {
		sorted := append([]string(nil), files...)
		sort.SliceStable(sorted, func(i, j int) bool {
			di, dj := filepath.Dir(sorted[i]), filepath.Dir(sorted[j])
			if di != dj {
				return di < dj
			}
			return sorted[i] < sorted[j]
		})

		for i := 0; i < len(sorted); {
			dir := filepath.Dir(sorted[i])
			j := i
			group := model.FileGroup{}
			for j < len(sorted) && filepath.Dir(sorted[j]) == dir {
				group = append(group, sorted[j])
				j++
			}
			if !yield(group) {
				return
			}
			i = j
		}
	}
}
