// Package prune removes declarations whose names are never used.
package prune

import (
	"github.com/phobologic/phpbundle/internal/model"
)

// File returns a copy of f without the functions, classes and methods whose
// names are absent from used, along with what was removed. Members are
// filtered before their class is judged, so a kept class loses its unused
// methods. f itself is not modified; surviving nodes are shared.
func File(f *model.File, used model.UsageSet) (*model.File, []model.Removal) {
	out := &model.File{
		Path:       f.Path,
		Prologue:   f.Prologue,
		Trailer:    f.Trailer,
		EndsInHTML: f.EndsInHTML,
	}
	var removed []model.Removal
	for _, d := range f.Decls {
		kept, dropped := decl(d, used, f.Path)
		removed = append(removed, dropped...)
		if kept != nil {
			out.Decls = append(out.Decls, kept)
		}
	}
	return out, removed
}

// All prunes every file against the same frozen set.
func All(files []*model.File, used model.UsageSet) ([]*model.File, []model.Removal) {
	out := make([]*model.File, len(files))
	var removed []model.Removal
	for i, f := range files {
		var r []model.Removal
		out[i], r = File(f, used)
		removed = append(removed, r...)
	}
	return out, removed
}

func decl(d *model.Decl, used model.UsageSet, path string) (*model.Decl, []model.Removal) {
	if !d.Kind.IsClassLike() {
		if removable(d) && !used.Has(d.Name) {
			return nil, []model.Removal{removal(d, path, "")}
		}
		return d, nil
	}

	var removed []model.Removal
	members := make([]*model.Decl, 0, len(d.Members))
	for _, m := range d.Members {
		if removable(m) && !used.Has(m.Name) {
			removed = append(removed, removal(m, path, d.Name))
			continue
		}
		members = append(members, m)
	}

	if d.Kind == model.Class && !used.Has(d.Name) {
		// The class goes with its surviving members; only the class is reported.
		return nil, append(removed, removal(d, path, ""))
	}
	if len(members) == len(d.Members) {
		return d, removed
	}
	rebuilt := *d
	rebuilt.Members = members
	return &rebuilt, removed
}

// removable reports whether d is a named function or method.
// Anonymous nodes and statements are always kept.
func removable(d *model.Decl) bool {
	if d.Name == "" {
		return false
	}
	return d.Kind == model.Function || d.Kind == model.Method
}

func removal(d *model.Decl, path, class string) model.Removal {
	return model.Removal{
		File:  path,
		Name:  d.Name,
		Kind:  d.Kind,
		Line:  d.Line,
		Class: class,
	}
}
