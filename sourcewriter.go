package main

import (
	"fmt"
	"sort"
	"strings"
)

// SourceWriter accumulates deterministic C source text (spec.md §4.5,
// component G). Grounded on original_source/src/source_writer.hpp, ported
// idiomatically: the include set is a Go map plus an explicit sorted
// traversal at Finish time, standing in for std::map's sorted-by-key
// iteration (Go map iteration order is not deterministic).
type SourceWriter struct {
	headerGuard string
	includes    map[string]includeType
	indent      string
	code        strings.Builder
}

type includeType uint8

const (
	includeLocal includeType = iota
	includeSystem
)

const spacesPerIndentation = 2

// NewSourceWriter returns an empty writer ready for Append calls.
func NewSourceWriter() *SourceWriter {
	return &SourceWriter{includes: make(map[string]includeType)}
}

// Append splits src on newlines and writes each line prefixed with the
// current indentation. An empty src writes nothing.
func (w *SourceWriter) Append(src string) {
	if src == "" {
		return
	}
	for _, line := range strings.Split(src, "\n") {
		fmt.Fprintf(&w.code, "%s%s\n", w.indent, line)
	}
}

// AddLocalInclude registers a `"..."` include, deduplicated by path.
func (w *SourceWriter) AddLocalInclude(path string) {
	w.addInclude(path, includeLocal)
}

// AddSystemInclude registers a `<...>` include, deduplicated by path.
func (w *SourceWriter) AddSystemInclude(path string) {
	w.addInclude(path, includeSystem)
}

func (w *SourceWriter) addInclude(path string, typ includeType) {
	if _, ok := w.includes[path]; ok {
		return
	}
	w.includes[path] = typ
}

// AddHeaderGuard sets the `#ifndef`/`#define`/`#endif` macro name.
func (w *SourceWriter) AddHeaderGuard(guardMacro string) {
	w.headerGuard = guardMacro
}

// PushIndentation increases the indent level by count levels.
func (w *SourceWriter) PushIndentation(count int) {
	w.indent += strings.Repeat(" ", count*spacesPerIndentation)
}

// PopIndentation decreases the indent level by count levels. Popping
// below zero is fatal, mirroring the original's assertion.
func (w *SourceWriter) PopIndentation(count int) error {
	want := count * spacesPerIndentation
	if len(w.indent) < want {
		return artifactErrorf("indentation popped below zero")
	}
	w.indent = w.indent[:len(w.indent)-want]
	return nil
}

// Finish renders the accumulated includes, header guard, and body into the
// final source text.
func (w *SourceWriter) Finish() string {
	keys := make([]string, 0, len(w.includes))
	for k := range w.includes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var preamble, epilog strings.Builder
	if w.headerGuard != "" {
		fmt.Fprintf(&preamble, "#ifndef %s\n#define %s\n", w.headerGuard, w.headerGuard)
	}
	for _, k := range keys {
		if w.includes[k] == includeLocal {
			fmt.Fprintf(&preamble, "#include \"%s\"\n", k)
		}
	}
	for _, k := range keys {
		if w.includes[k] == includeSystem {
			fmt.Fprintf(&preamble, "#include <%s>\n", k)
		}
	}
	if w.headerGuard != "" {
		epilog.WriteString("#endif\n")
	}
	return preamble.String() + w.code.String() + epilog.String()
}
