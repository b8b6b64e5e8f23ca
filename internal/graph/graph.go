// Package graph derives cross-file dependency edges from bundled files.
package graph

import (
	"sort"

	"github.com/phobologic/phpbundle/internal/model"
	"github.com/phobologic/phpbundle/internal/usage"
)

// BuildGraph creates dependency edges from cross-file symbol uses: Source
// uses a name that Target declares. Names are flat, so a method named like a
// function elsewhere produces an edge to both declaring files.
func BuildGraph(files []*model.File) []model.Dependency {
	// Build definition index: symbol name → set of files that declare it
	defines := make(map[string]map[string]struct{})
	for _, f := range files {
		f.Walk(func(d *model.Decl) {
			if d.Name == "" || d.Kind == model.Other {
				return
			}
			if defines[d.Name] == nil {
				defines[d.Name] = make(map[string]struct{})
			}
			defines[d.Name][f.Path] = struct{}{}
		})
	}

	// Build edges: source → target → list of symbols
	type edgeKey struct{ src, tgt string }
	edgeSymbols := make(map[edgeKey][]string)

	for _, f := range files {
		for _, name := range usage.Names(f) {
			defFiles := defines[name]
			if defFiles == nil {
				continue
			}
			// Iterate in sorted order for determinism
			for _, defFile := range sortedKeys(defFiles) {
				if defFile == f.Path {
					continue // no self-edges
				}
				key := edgeKey{f.Path, defFile}
				if !contains(edgeSymbols[key], name) {
					edgeSymbols[key] = append(edgeSymbols[key], name)
				}
			}
		}
	}

	var deps []model.Dependency
	for key, syms := range edgeSymbols {
		sort.Strings(syms)
		deps = append(deps, model.Dependency{
			Source:  key.src,
			Target:  key.tgt,
			Symbols: syms,
		})
	}

	// Sort for deterministic output
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})

	return deps
}

// Summarize counts kept and removed named declarations per file. before and
// after must be in the same order.
func Summarize(before, after []*model.File) []model.FileSummary {
	out := make([]model.FileSummary, len(before))
	for i := range before {
		total := countNamed(before[i])
		kept := 0
		if i < len(after) {
			kept = countNamed(after[i])
		}
		out[i] = model.FileSummary{Path: before[i].Path, Kept: kept, Removed: total - kept}
	}
	return out
}

// countNamed counts the functions, class-likes and methods in f.
func countNamed(f *model.File) int {
	n := 0
	f.Walk(func(d *model.Decl) {
		if d.Kind != model.Other && d.Name != "" {
			n++
		}
	})
	return n
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
