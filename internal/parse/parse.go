// Package parse builds model.File trees from PHP source using tree-sitter.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/phpbundle/internal/lang"
	"github.com/phobologic/phpbundle/internal/model"
)

var captureMap = map[string]model.Shape{
	"call.function": model.FunctionCall,
	"call.method":   model.MethodCall,
	"call.static":   model.StaticCall,
	"call.new":      model.Instantiation,
}

// Error reports source that is not valid PHP. It aborts the whole run.
type Error struct {
	Path   string
	Line   int
	Column int
	Near   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error near %q", e.Path, e.Line, e.Column, e.Near)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Source parses PHP source held in memory with a one-off parser.
func Source(ctx context.Context, source []byte, filePath string) (*model.File, error) {
	l := lang.Languages["php"]
	q, err := l.GetCallQuery()
	if err != nil {
		return nil, fmt.Errorf("call query for %s: %w", l.Name, err)
	}
	return File(ctx, l, l.NewParser(), q, source, filePath)
}

// span ties a declaration to the byte range of its node, for call-site attachment.
type span struct {
	start, end uint32
	decl       *model.Decl
	members    []span
}

// File parses a source file into declarations and their call sites.
// The parser must be created for the correct language.
// filePath is used only for File.Path and error messages.
func File(ctx context.Context, l *lang.Language, parser *sitter.Parser, query *sitter.Query, source []byte, filePath string) (*model.File, error) {
	f := &model.File{Path: filePath}
	if len(source) == 0 {
		return f, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &Error{Path: filePath, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, source, filePath)
	}

	spans := buildFile(l, f, root, source)
	for _, cs := range callSites(l, query, root, source) {
		attach(spans, cs)
	}
	return f, nil
}

func buildFile(l *lang.Language, f *model.File, root *sitter.Node, source []byte) []span {
	n := int(root.ChildCount())
	i := 0
	for i < n && root.Child(i).Type() != "php_tag" {
		i++
	}
	if i == n {
		// No open tag: the whole file is inline HTML.
		f.Prologue = source
		return nil
	}
	f.Prologue = source[:root.Child(i).StartByte()]
	cursor := root.Child(i).EndByte()
	i++

	var spans []span
	var prev *model.Decl
	var prevEnd sitter.Point
	for ; i < n; i++ {
		child := root.Child(i)
		switch {
		case child.Type() == "comment":
			if prev != nil && sameLine(child, prevEnd, source[cursor:child.StartByte()]) {
				appendTail(prev, source[cursor:child.EndByte()])
				cursor = child.EndByte()
				prevEnd = child.EndPoint()
			}
			continue
		case i == n-1 && isBareCloseTag(child, source):
			if terminated(prev) {
				f.Trailer = source[cursor:child.StartByte()]
				return spans
			}
			// The tag also ends the last statement, so it stays.
			f.Trailer = source[cursor:]
			f.EndsInHTML = true
			return spans
		}

		d, s := buildDecl(l, child, source, source[cursor:child.StartByte()], false)
		spans = append(spans, s)
		f.Decls = append(f.Decls, d)
		prev, prevEnd = d, child.EndPoint()
		cursor = child.EndByte()
	}

	f.Trailer = source[cursor:]
	if last := root.Child(n - 1); last.Type() == "text_interpolation" && !reopens(last) {
		f.EndsInHTML = true
	}
	return spans
}

func buildDecl(l *lang.Language, node *sitter.Node, source, lead []byte, member bool) (*model.Decl, span) {
	kind := l.DeclKind(node)
	if member != (kind == model.Method) {
		// Only methods are pruned inside class bodies; methods never occur at top level.
		kind = model.Other
	}
	d := &model.Decl{
		Kind: kind,
		Name: l.DeclName(node, source),
		Line: int(node.StartPoint().Row) + 1,
		Lead: lead,
		Text: source[node.StartByte():node.EndByte()],
	}
	if kind == model.Other {
		d.Name = ""
	}
	s := span{start: node.StartByte(), end: node.EndByte(), decl: d}
	if !kind.IsClassLike() {
		return d, s
	}

	body := l.ClassBody(node)
	if body == nil {
		return d, s
	}
	var open *sitter.Node
	for j := 0; j < int(body.ChildCount()); j++ {
		if c := body.Child(j); c.Type() == "{" {
			open = c
			break
		}
	}
	if open == nil {
		return d, s
	}

	d.Text = source[node.StartByte():open.EndByte()]
	cursor := open.EndByte()
	var prev *model.Decl
	var prevEnd sitter.Point
	for j := 0; j < int(body.ChildCount()); j++ {
		child := body.Child(j)
		if !child.IsNamed() {
			continue
		}
		if child.Type() == "comment" {
			if prev != nil && sameLine(child, prevEnd, source[cursor:child.StartByte()]) {
				appendTail(prev, source[cursor:child.EndByte()])
				cursor = child.EndByte()
				prevEnd = child.EndPoint()
			}
			continue
		}
		m, ms := buildDecl(l, child, source, source[cursor:child.StartByte()], true)
		d.Members = append(d.Members, m)
		s.members = append(s.members, ms)
		prev, prevEnd = m, child.EndPoint()
		cursor = child.EndByte()
	}
	d.Close = source[cursor:node.EndByte()]
	return d, s
}

// sameLine reports whether a comment continues the line its previous sibling ended on.
func sameLine(comment *sitter.Node, prevEnd sitter.Point, gap []byte) bool {
	return comment.StartPoint().Row == prevEnd.Row && strings.TrimSpace(string(gap)) == ""
}

// appendTail extends a declaration with text that follows it on the same line.
func appendTail(d *model.Decl, extra []byte) {
	if d.Kind.IsClassLike() && d.Close != nil {
		d.Close = concat(d.Close, extra)
		return
	}
	d.Text = concat(d.Text, extra)
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func isBareCloseTag(node *sitter.Node, source []byte) bool {
	return node.Type() == "text_interpolation" &&
		strings.TrimSpace(lang.NodeText(node, source)) == "?>"
}

// terminated reports whether a trailing "?>" after d can be dropped:
// declarations end in "}", and other statements must end in ";".
func terminated(d *model.Decl) bool {
	if d == nil || d.Kind != model.Other {
		return true
	}
	text := strings.TrimSpace(string(d.Text))
	return strings.HasSuffix(text, ";")
}

func reopens(interp *sitter.Node) bool {
	for i := 0; i < int(interp.ChildCount()); i++ {
		if interp.Child(i).Type() == "php_tag" {
			return true
		}
	}
	return false
}

type siteAt struct {
	offset uint32
	site   model.CallSite
}

// callSites runs the call-site query over the whole tree.
func callSites(l *lang.Language, query *sitter.Query, root *sitter.Node, source []byte) []siteAt {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	var sites []siteAt
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			shape, ok := captureMap[query.CaptureNameForId(c.Index)]
			if !ok {
				continue
			}
			sites = append(sites, siteAt{
				offset: c.Node.StartByte(),
				site: model.CallSite{
					Shape:  shape,
					Target: l.CallTarget(c.Node, shape, source),
					Line:   int(c.Node.StartPoint().Row) + 1,
				},
			})
		}
	}
	return sites
}

// attach records a call site on the innermost declaration containing it.
func attach(spans []span, cs siteAt) {
	for _, s := range spans {
		if cs.offset < s.start || cs.offset >= s.end {
			continue
		}
		for _, m := range s.members {
			if cs.offset >= m.start && cs.offset < m.end {
				m.decl.Calls = append(m.decl.Calls, cs.site)
				return
			}
		}
		s.decl.Calls = append(s.decl.Calls, cs.site)
		return
	}
}

func syntaxError(root *sitter.Node, source []byte, filePath string) *Error {
	node := firstError(root)
	if node == nil {
		node = root
	}
	near := lang.CollapseWhitespace(lang.NodeText(node, source))
	if len(near) > 40 {
		near = near[:40]
	}
	if near == "" {
		near = node.Type()
	}
	return &Error{
		Path:   filePath,
		Line:   int(node.StartPoint().Row) + 1,
		Column: int(node.StartPoint().Column) + 1,
		Near:   near,
	}
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.IsMissing() || child.HasError() {
			if found := firstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}
