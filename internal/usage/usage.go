// Package usage collects the names referenced at call sites across a project.
package usage

import (
	"github.com/phobologic/phpbundle/internal/model"
)

// Shapes lists the call-site forms that contribute names, in collection order.
var Shapes = []model.Shape{
	model.FunctionCall,
	model.MethodCall,
	model.StaticCall,
	model.Instantiation,
}

// MagicMethods are invoked by the PHP runtime and never appear at a call site.
var MagicMethods = []string{
	"__construct", "__destruct", "__call", "__callStatic",
	"__get", "__set", "__isset", "__unset",
	"__sleep", "__wakeup", "__serialize", "__unserialize",
	"__toString", "__invoke", "__set_state", "__clone", "__debugInfo",
}

// Collector accumulates used names. It is append-only; Freeze produces
// the read-only set the pruner consumes.
type Collector struct {
	names map[string]struct{}
}

// NewCollector returns a collector seeded with names that are always
// treated as used.
func NewCollector(seed ...string) *Collector {
	c := &Collector{names: make(map[string]struct{}, len(seed))}
	for _, n := range seed {
		c.names[n] = struct{}{}
	}
	return c
}

// AddFile records every name f uses.
func (c *Collector) AddFile(f *model.File) {
	for _, name := range Names(f) {
		c.names[name] = struct{}{}
	}
}

// AddNames records names already extracted with Names.
func (c *Collector) AddNames(names []string) {
	for _, n := range names {
		c.names[n] = struct{}{}
	}
}

// Freeze returns a snapshot of the collected names. Later additions to the
// collector do not affect the snapshot.
func (c *Collector) Freeze() model.UsageSet {
	snapshot := make(map[string]struct{}, len(c.names))
	for n := range c.names {
		snapshot[n] = struct{}{}
	}
	return model.NewUsageSet(snapshot)
}

// Names returns the names f uses, grouped by shape. Duplicates are kept.
func Names(f *model.File) []string {
	var names []string
	for _, shape := range Shapes {
		for _, cs := range f.CallSites(shape) {
			if name, ok := Resolve(cs); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// Resolve returns the symbol name a call site refers to. Dynamic targets
// cannot be resolved and report false: a declaration reachable only through
// them is treated as unused.
func Resolve(cs model.CallSite) (string, bool) {
	switch t := cs.Target.(type) {
	case model.StaticName:
		return string(t), t != ""
	case model.DynamicExpr:
		return "", false
	default:
		return "", false
	}
}

// Collect builds the usage set of an entire project. All files are visited
// before the set is frozen.
func Collect(files []*model.File, seed ...string) model.UsageSet {
	c := NewCollector(seed...)
	for _, f := range files {
		c.AddFile(f)
	}
	return c.Freeze()
}
