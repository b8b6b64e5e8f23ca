// Package toon implements TOON (Token-Oriented Object Notation) encoding
// of bundling reports.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/phpbundle/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("output: %s", encodeValue(r.Output)))
	parts = append(parts, fmt.Sprintf("used: %d", r.Used))

	var fileRows [][]string
	for i := range r.Files {
		fs := &r.Files[i]
		fileRows = append(fileRows, []string{
			fs.Path,
			fmt.Sprintf("%d", fs.Kept),
			fmt.Sprintf("%d", fs.Removed),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "kept", "removed"}, fileRows))

	var removedRows [][]string
	for i := range r.Removed {
		rm := &r.Removed[i]
		name := rm.Name
		if rm.Class != "" {
			name = rm.Class + "::" + rm.Name
		}
		removedRows = append(removedRows, []string{
			rm.File,
			name,
			string(rm.Kind),
			fmt.Sprintf("%d", rm.Line),
		})
	}
	parts = append(parts, formatTabular("removed", []string{"file", "name", "kind", "line"}, removedRows))

	var depRows [][]string
	for i := range r.Dependencies {
		d := &r.Dependencies[i]
		depRows = append(depRows, []string{
			d.Source,
			d.Target,
			strings.Join(d.Symbols, " "),
		})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "symbols"}, depRows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
