package main

import (
	"errors"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// usageError marks an argument/flag problem the caller must fix, mapped to
// exit code 1 per spec.md §6.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func newUsageError(msg string) error { return usageError{msg: msg} }

// exitCodeFor maps an error to spec.md §6's exit codes: 1 usage error, 2
// I/O or parse error, 3 unsupported feature. Anything else defaults to 2,
// since every non-usage failure in this module is I/O or format related.
func exitCodeFor(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return 1
	}
	switch tiff.KindOf(err) {
	case tiff.KindRequest:
		return 1
	case tiff.KindUnsupported:
		return 3
	default:
		return 2
	}
}
