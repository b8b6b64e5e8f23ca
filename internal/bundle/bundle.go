// Package bundle merges pruned files into a single output unit.
package bundle

import (
	"fmt"
	"strings"

	"github.com/phobologic/phpbundle/internal/model"
)

// DuplicateError reports a top-level name declared by more than one file.
type DuplicateError struct {
	Name   string
	Kind   model.DeclKind
	First  string
	Second string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %s declared in both %s and %s", e.Kind, e.Name, e.First, e.Second)
}

// Merge concatenates files in the given order. Each file keeps its own
// declaration order. Duplicate top-level names pass through unless strict
// is set, in which case the first duplicate is returned as a *DuplicateError.
func Merge(files []*model.File, strict bool) (*model.Bundle, error) {
	if strict {
		if err := checkDuplicates(files); err != nil {
			return nil, err
		}
	}
	b := &model.Bundle{Files: make([]*model.File, 0, len(files))}
	b.Files = append(b.Files, files...)
	return b, nil
}

// Decls returns the top-level declarations of b in output order.
func Decls(b *model.Bundle) []*model.Decl {
	var out []*model.Decl
	for _, f := range b.Files {
		out = append(out, f.Decls...)
	}
	return out
}

func checkDuplicates(files []*model.File) error {
	seen := make(map[string]string)
	for _, f := range files {
		for _, d := range f.Decls {
			if d.Name == "" || d.Kind == model.Other {
				continue
			}
			// PHP names are case-insensitive; functions and class-likes
			// live in separate tables.
			table := "class"
			if d.Kind == model.Function {
				table = "function"
			}
			key := table + ":" + strings.ToLower(d.Name)
			if prev, dup := seen[key]; dup {
				return &DuplicateError{Name: d.Name, Kind: d.Kind, First: prev, Second: f.Path}
			}
			seen[key] = f.Path
		}
	}
	return nil
}
