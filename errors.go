package main

import "fmt"

// errorKind classifies a fatal generation-time error the way spec.md §7
// groups them, so main can pick an exit message without string-matching.
type errorKind int

const (
	kindArtifactInvariant errorKind = iota
	kindUnsupportedFeature
	kindFilesystem
)

func (k errorKind) String() string {
	switch k {
	case kindArtifactInvariant:
		return "artifact invariant"
	case kindUnsupportedFeature:
		return "unsupported feature"
	case kindFilesystem:
		return "filesystem"
	default:
		return "error"
	}
}

// genError is a classified fatal error. It wraps an underlying cause so
// %w unwrapping still works, while letting main report which of the three
// error classes in spec.md §7 triggered the abort.
type genError struct {
	kind errorKind
	msg  string
	err  error
}

func (e *genError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *genError) Unwrap() error { return e.err }

func (e *genError) Kind() errorKind { return e.kind }

func artifactErrorf(format string, args ...any) error {
	return &genError{kind: kindArtifactInvariant, msg: fmt.Sprintf(format, args...)}
}

func unsupportedErrorf(format string, args ...any) error {
	return &genError{kind: kindUnsupportedFeature, msg: fmt.Sprintf(format, args...)}
}

func filesystemErrorf(err error, format string, args ...any) error {
	return &genError{kind: kindFilesystem, msg: fmt.Sprintf(format, args...), err: err}
}
