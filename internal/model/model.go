// Package model defines core data structures for phpbundle.
package model

import "sort"

// DeclKind indicates the syntactic kind of a declaration.
type DeclKind string

const (
	Function  DeclKind = "function"
	Class     DeclKind = "class"
	Interface DeclKind = "interface"
	Trait     DeclKind = "trait"
	Enum      DeclKind = "enum"
	Method    DeclKind = "method"
	Other     DeclKind = "other"
)

// IsClassLike reports whether declarations of this kind carry a member list.
func (k DeclKind) IsClassLike() bool {
	switch k {
	case Class, Interface, Trait, Enum:
		return true
	}
	return false
}

// Shape is one of the four call-site forms the collector recognizes.
type Shape string

const (
	FunctionCall  Shape = "call"
	MethodCall    Shape = "method"
	StaticCall    Shape = "static"
	Instantiation Shape = "new"
)

// Target is what a call site refers to: either a literal name or an
// expression that cannot be resolved statically.
type Target interface {
	isTarget()
}

// StaticName is a call target written as a plain identifier.
type StaticName string

// DynamicExpr is a call target computed at runtime ($fn(), $obj->$m(),
// new $class, anonymous classes). Its source text is kept for diagnostics.
type DynamicExpr struct {
	Text string
}

func (StaticName) isTarget()  {}
func (DynamicExpr) isTarget() {}

// CallSite is a single call or instantiation found in source.
type CallSite struct {
	Shape  Shape
	Target Target
	Line   int
}

// Decl is one top-level statement or class member, kept as source bytes.
// Rendering Lead+Text, then each member, then Close reproduces the input.
type Decl struct {
	Kind DeclKind
	Name string // "" for statements and anonymous nodes
	Line int

	Lead []byte // whitespace and comments between the previous sibling and this node
	Text []byte // full text, or up to and including "{" for class-like declarations

	Members []*Decl // class-like declarations only
	Close   []byte  // class-like declarations only: text after the last member through "}"

	Calls []CallSite // call sites in this node, excluding those inside Members
}

// File is the parsed form of one source file.
type File struct {
	Path string

	// Prologue is inline HTML before the first open tag.
	Prologue []byte
	Decls    []*Decl
	// Trailer is the text after the last top-level node.
	Trailer []byte
	// EndsInHTML is set when the file's last open tag is closed and not reopened.
	EndsInHTML bool
}

// Walk calls fn for every declaration in f, members after their class.
func (f *File) Walk(fn func(d *Decl)) {
	for _, d := range f.Decls {
		fn(d)
		for _, m := range d.Members {
			fn(m)
		}
	}
}

// CallSites returns the call sites of the given shape, in declaration order.
func (f *File) CallSites(shape Shape) []CallSite {
	var out []CallSite
	f.Walk(func(d *Decl) {
		for _, cs := range d.Calls {
			if cs.Shape == shape {
				out = append(out, cs)
			}
		}
	})
	return out
}

// UsageSet is a frozen set of symbol names observed at call sites.
// The zero value is an empty set. Build one with usage.Collector.
type UsageSet struct {
	names map[string]struct{}
}

// NewUsageSet returns a set owning names. Callers must not modify names afterwards.
func NewUsageSet(names map[string]struct{}) UsageSet {
	return UsageSet{names: names}
}

// Has reports whether name was used anywhere in the project.
func (u UsageSet) Has(name string) bool {
	_, ok := u.names[name]
	return ok
}

// Len returns the number of distinct names.
func (u UsageSet) Len() int {
	return len(u.names)
}

// Names returns the names in sorted order.
func (u UsageSet) Names() []string {
	out := make([]string, 0, len(u.names))
	for n := range u.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Removal records a declaration deleted by the pruner.
type Removal struct {
	File  string
	Name  string
	Kind  DeclKind
	Line  int
	Class string // enclosing class for methods
}

// Bundle is the merged output of all pruned files, in discovery order.
type Bundle struct {
	Files []*File
}

// Dependency represents an edge in the dependency graph:
// Source calls symbols declared in Target.
type Dependency struct {
	Source  string
	Target  string
	Symbols []string
}

// FileSummary counts surviving and removed declarations for one file.
type FileSummary struct {
	Path    string
	Kept    int
	Removed int
}

// Report describes a bundling run, ready for serialization.
type Report struct {
	Output       string
	Used         int
	Files        []FileSummary
	Removed      []Removal
	Dependencies []Dependency
}
