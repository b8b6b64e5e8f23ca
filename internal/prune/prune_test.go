package prune

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/phpbundle/internal/model"
	"github.com/phobologic/phpbundle/internal/parse"
	"github.com/phobologic/phpbundle/internal/render"
	"github.com/phobologic/phpbundle/internal/usage"
)

func parseSource(t *testing.T, path, source string) *model.File {
	t.Helper()
	f, err := parse.Source(context.Background(), []byte(source), path)
	require.NoError(t, err)
	return f
}

func usedNames(names ...string) model.UsageSet {
	return usage.Collect(nil, names...)
}

func declNames(f *model.File) []string {
	var out []string
	for _, d := range f.Decls {
		if d.Name != "" {
			out = append(out, d.Name)
		}
	}
	return out
}

func TestFileRemovesUnusedFunction(t *testing.T) {
	t.Parallel()

	lib := parseSource(t, "lib.php", "<?php\nfunction used() {}\nfunction unused() {}\n")
	app := parseSource(t, "app.php", "<?php\nused();\n")
	used := usage.Collect([]*model.File{lib, app})

	pruned, removed := File(lib, used)
	assert.Equal(t, []string{"used"}, declNames(pruned))
	require.Len(t, removed, 1)
	assert.Equal(t, model.Removal{File: "lib.php", Name: "unused", Kind: model.Function, Line: 3}, removed[0])
}

func TestFileRemovesUnusedMethod(t *testing.T) {
	t.Parallel()

	lib := parseSource(t, "foo.php", `<?php
class Foo {
    function bar() {}
    function baz() {}
}
`)
	app := parseSource(t, "app.php", "<?php\n$x = new Foo();\n$x->bar();\n")
	used := usage.Collect([]*model.File{lib, app})

	pruned, removed := File(lib, used)
	require.Len(t, pruned.Decls, 1)
	assert.Equal(t, "\nclass Foo {\n    function bar() {}\n}", string(render.Decl(pruned.Decls[0])))

	require.Len(t, removed, 1)
	assert.Equal(t, "baz", removed[0].Name)
	assert.Equal(t, "Foo", removed[0].Class)
	assert.Equal(t, model.Method, removed[0].Kind)
}

func TestFileRemovesStaticOnlyClass(t *testing.T) {
	t.Parallel()

	lib := parseSource(t, "helper.php", `<?php
class Helper {
    static function run() {}
}
`)
	app := parseSource(t, "app.php", "<?php\nHelper::run();\n")
	used := usage.Collect([]*model.File{lib, app})
	require.True(t, used.Has("run"))
	require.False(t, used.Has("Helper"))

	pruned, removed := File(lib, used)
	assert.Empty(t, pruned.Decls)
	require.Len(t, removed, 1)
	assert.Equal(t, "Helper", removed[0].Name)
	assert.Equal(t, model.Class, removed[0].Kind)
	assert.Empty(t, removed[0].Class)
}

func TestFileDynamicCallBlindSpot(t *testing.T) {
	t.Parallel()

	lib := parseSource(t, "lib.php", "<?php\nfunction target() {}\n")
	app := parseSource(t, "app.php", "<?php\n$name = 'target';\n$name();\n")
	used := usage.Collect([]*model.File{lib, app})

	pruned, removed := File(lib, used)
	assert.Empty(t, pruned.Decls)
	require.Len(t, removed, 1)
	assert.Equal(t, "target", removed[0].Name)
}

func TestFileKeepsStatementsAndClassLikes(t *testing.T) {
	t.Parallel()

	f := parseSource(t, "a.php", `<?php
const VERSION = 1;
echo VERSION;
interface Shape { function area(); function perimeter(); }
trait Greets { function hello() {} }
`)
	used := usedNames("area")

	pruned, removed := File(f, used)
	assert.Equal(t, []string{"Shape", "Greets"}, declNames(pruned))
	assert.Len(t, pruned.Decls, 4)

	var names []string
	for _, r := range removed {
		names = append(names, r.Class+"::"+r.Name)
	}
	assert.ElementsMatch(t, []string{"Shape::perimeter", "Greets::hello"}, names)
}

func TestFileDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	f := parseSource(t, "a.php", `<?php
function gone() {}
class Foo { function bar() {} function baz() {} }
`)
	before := render.Decl(f.Decls[1])

	_, removed := File(f, usedNames("Foo", "bar"))
	assert.Len(t, removed, 2)

	assert.Len(t, f.Decls, 2)
	assert.Len(t, f.Decls[1].Members, 2)
	assert.Equal(t, before, render.Decl(f.Decls[1]))
}

func TestFileEverythingUsed(t *testing.T) {
	t.Parallel()

	f := parseSource(t, "a.php", "<?php\nfunction a() {}\nclass B { function c() {} }\n")
	pruned, removed := File(f, usedNames("a", "B", "c"))
	assert.Empty(t, removed)
	require.Len(t, pruned.Decls, 2)
	assert.Same(t, f.Decls[1], pruned.Decls[1], "unchanged classes are shared")
}

func TestAll(t *testing.T) {
	t.Parallel()

	a := parseSource(t, "a.php", "<?php\nfunction a() {}\nfunction x() {}\n")
	b := parseSource(t, "b.php", "<?php\nfunction b() {}\na();\n")
	used := usage.Collect([]*model.File{a, b})

	out, removed := All([]*model.File{a, b}, used)
	require.Len(t, out, 2)
	assert.Equal(t, "a.php", out[0].Path)
	assert.Equal(t, "b.php", out[1].Path)
	assert.Equal(t, []string{"a"}, declNames(out[0]))
	assert.Empty(t, declNames(out[1]))
	assert.Len(t, out[1].Decls, 1, "the call statement survives")

	var names []string
	for _, r := range removed {
		names = append(names, r.File+":"+r.Name)
	}
	assert.Equal(t, []string{"a.php:x", "b.php:b"}, names)
}
