package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/phpbundle/internal/model"
)

func mustParse(t *testing.T, source string) *model.File {
	t.Helper()
	f, err := Source(context.Background(), []byte(source), "test.php")
	require.NoError(t, err)
	return f
}

func names(decls []*model.Decl) []string {
	var out []string
	for _, d := range decls {
		out = append(out, string(d.Kind)+":"+d.Name)
	}
	return out
}

func TestParseTopLevelDecls(t *testing.T) {
	t.Parallel()

	f := mustParse(t, `<?php
function used() {}

class Foo {}

interface Shape {}
trait Greets {}
echo "hi";
`)

	assert.Equal(t, []string{
		"function:used",
		"class:Foo",
		"interface:Shape",
		"trait:Greets",
		"other:",
	}, names(f.Decls))
	assert.Equal(t, 2, f.Decls[0].Line)
	assert.Equal(t, 4, f.Decls[1].Line)
	assert.Equal(t, "\n", string(f.Decls[0].Lead))
	assert.Equal(t, "function used() {}", string(f.Decls[0].Text))
	assert.Equal(t, "\n", string(f.Trailer))
	assert.Empty(t, f.Prologue)
	assert.False(t, f.EndsInHTML)
}

func TestParseClassMembers(t *testing.T) {
	t.Parallel()

	f := mustParse(t, `<?php
class Foo {
    const LIMIT = 3;
    private $items = [];

    public function bar() { return 1; }

    /** Docblock travels with the method. */
    public static function baz() {}
}
`)

	require.Len(t, f.Decls, 1)
	class := f.Decls[0]
	assert.Equal(t, model.Class, class.Kind)
	assert.Equal(t, "Foo", class.Name)
	assert.Equal(t, "class Foo {", string(class.Text))
	assert.Equal(t, "\n}", string(class.Close))

	assert.Equal(t, []string{"other:", "other:", "method:bar", "method:baz"}, names(class.Members))
	baz := class.Members[3]
	assert.Contains(t, string(baz.Lead), "/** Docblock travels with the method. */")
	assert.Equal(t, "public static function baz() {}", string(baz.Text))
}

func TestParseSameLineComment(t *testing.T) {
	t.Parallel()

	f := mustParse(t, `<?php
function a() {} // keep me with a
// lead of b
function b() {}
`)

	require.Len(t, f.Decls, 2)
	assert.Equal(t, "function a() {} // keep me with a", string(f.Decls[0].Text))
	assert.Equal(t, "\n// lead of b\n", string(f.Decls[1].Lead))
}

func TestParseCallSites(t *testing.T) {
	t.Parallel()

	f := mustParse(t, `<?php
function outer() {
    helper();
    \App\Util\format();
    $obj->method();
    $obj?->maybe();
    Helper::run();
    $x = new Foo();
    $y = new \App\Bar;
    $fn();
    $obj->$name();
    new $class();
}
`)

	require.Len(t, f.Decls, 1)
	outer := f.Decls[0]

	static := map[model.Shape][]string{}
	dynamic := map[model.Shape]int{}
	for _, cs := range outer.Calls {
		switch target := cs.Target.(type) {
		case model.StaticName:
			static[cs.Shape] = append(static[cs.Shape], string(target))
		case model.DynamicExpr:
			dynamic[cs.Shape]++
		}
	}

	assert.ElementsMatch(t, []string{"helper", "format"}, static[model.FunctionCall])
	assert.ElementsMatch(t, []string{"method", "maybe"}, static[model.MethodCall])
	assert.ElementsMatch(t, []string{"run"}, static[model.StaticCall])
	assert.ElementsMatch(t, []string{"Foo", "Bar"}, static[model.Instantiation])

	assert.Equal(t, 1, dynamic[model.FunctionCall])
	assert.Equal(t, 1, dynamic[model.MethodCall])
	assert.Zero(t, dynamic[model.StaticCall])
	assert.Equal(t, 1, dynamic[model.Instantiation])
}

func TestParseCallSitesAttachToMembers(t *testing.T) {
	t.Parallel()

	f := mustParse(t, `<?php
class Foo {
    public function bar() { helper(); }
}
main();
`)

	require.Len(t, f.Decls, 2)
	class := f.Decls[0]
	assert.Empty(t, class.Calls)
	require.Len(t, class.Members, 1)
	require.Len(t, class.Members[0].Calls, 1)
	assert.Equal(t, model.StaticName("helper"), class.Members[0].Calls[0].Target)

	require.Len(t, f.Decls[1].Calls, 1)
	assert.Equal(t, model.StaticName("main"), f.Decls[1].Calls[0].Target)
	assert.Equal(t, 5, f.Decls[1].Calls[0].Line)
}

func TestParseCallSitesByShape(t *testing.T) {
	t.Parallel()

	f := mustParse(t, `<?php
a();
class K { function m() { b(); (new K())->m(); } }
`)

	calls := f.CallSites(model.FunctionCall)
	require.Len(t, calls, 2)
	assert.Equal(t, model.StaticName("a"), calls[0].Target)
	assert.Equal(t, model.StaticName("b"), calls[1].Target)
	assert.Len(t, f.CallSites(model.Instantiation), 1)
	assert.Len(t, f.CallSites(model.MethodCall), 1)
	assert.Empty(t, f.CallSites(model.StaticCall))
}

func TestParseInlineHTML(t *testing.T) {
	t.Parallel()

	f := mustParse(t, "<html>\n<?php\nfunction a() {}\n")
	assert.Equal(t, "<html>\n", string(f.Prologue))
	require.Len(t, f.Decls, 1)

	f = mustParse(t, "<?php\nfunction a() {}\n?>\n<p>footer</p>\n")
	assert.True(t, f.EndsInHTML)

	f = mustParse(t, "<?php\nfunction a() {}\n?>\n")
	assert.False(t, f.EndsInHTML, "a bare closing tag is dropped")
	require.Len(t, f.Decls, 1)

	f = mustParse(t, "<?php\nfunction a() {}\necho 1;\n?>\n")
	assert.False(t, f.EndsInHTML, "a closing tag after a terminated statement is dropped")
	assert.Equal(t, "\n", string(f.Trailer))

	f = mustParse(t, "<p>no php here</p>\n")
	assert.Equal(t, "<p>no php here</p>\n", string(f.Prologue))
	assert.Empty(t, f.Decls)
}

func TestParseCloseTagEndsStatement(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"<?php\nfunction a() {}\na() ?>\n",
		"<?php\nfunction a() {}\n?>x<?= a() ?>\n",
	} {
		f := mustParse(t, src)
		assert.True(t, f.EndsInHTML, src)
		assert.Contains(t, string(f.Trailer), "?>", src)
		assert.Len(t, f.CallSites(model.FunctionCall), 1, src)
	}
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	f := mustParse(t, "")
	assert.Empty(t, f.Decls)
	assert.Equal(t, "test.php", f.Path)

	f = mustParse(t, "<?php\n")
	assert.Empty(t, f.Decls)
}

func TestParseSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := Source(context.Background(), []byte("<?php\n\nfunction broken( {\n"), "src/broken.php")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "src/broken.php", perr.Path)
	assert.Greater(t, perr.Line, 0)
	assert.Contains(t, err.Error(), "src/broken.php")
}
