// Package render writes a bundle back out as PHP source.
package render

import (
	"bytes"

	"github.com/phobologic/phpbundle/internal/model"
)

const openTag = "<?php"

// Bundle renders b as one PHP unit. Surviving nodes are written verbatim,
// with the whitespace and comments that preceded them.
func Bundle(b *model.Bundle) []byte {
	w := &writer{}
	w.open()
	for i, f := range b.Files {
		if i > 0 {
			w.newline()
		}
		w.file(f, i == len(b.Files)-1)
	}
	w.newline()
	return w.buf.Bytes()
}

// Decl renders a single declaration, including its members.
func Decl(d *model.Decl) []byte {
	w := &writer{}
	w.decl(d)
	return w.buf.Bytes()
}

type writer struct {
	buf bytes.Buffer
	// afterOpen is set right after an open tag, which must be followed by whitespace.
	afterOpen bool
}

func (w *writer) file(f *model.File, last bool) {
	if len(f.Prologue) > 0 {
		w.write([]byte("?>"))
		w.write(f.Prologue)
		w.open()
	}
	for _, d := range f.Decls {
		w.decl(d)
	}
	w.write(f.Trailer)
	if f.EndsInHTML && !last {
		w.open()
	}
}

func (w *writer) decl(d *model.Decl) {
	w.write(d.Lead)
	w.write(d.Text)
	if !d.Kind.IsClassLike() {
		return
	}
	for _, m := range d.Members {
		w.decl(m)
	}
	w.write(d.Close)
}

func (w *writer) open() {
	w.write([]byte(openTag))
	w.afterOpen = true
}

func (w *writer) newline() {
	if w.buf.Len() > 0 && !bytes.HasSuffix(w.buf.Bytes(), []byte("\n")) {
		w.write([]byte("\n"))
	}
}

func (w *writer) write(p []byte) {
	if len(p) == 0 {
		return
	}
	if w.afterOpen && !isSpace(p[0]) {
		w.buf.WriteByte('\n')
	}
	w.afterOpen = false
	w.buf.Write(p)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
