package main

import (
	"testing"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

func TestExitCodeForUsageError(t *testing.T) {
	if got := exitCodeFor(newUsageError("missing <src>")); got != 1 {
		t.Fatalf("exitCodeFor(usageError) = %d, want 1", got)
	}
}

func TestExitCodeForRequestError(t *testing.T) {
	err := tiff.Newf(tiff.KindRequest, "region.Select", "bad radius")
	if got := exitCodeFor(err); got != 1 {
		t.Fatalf("exitCodeFor(KindRequest) = %d, want 1", got)
	}
}

func TestExitCodeForUnsupportedError(t *testing.T) {
	err := tiff.Newf(tiff.KindUnsupported, "compression.Decode", "unknown codec")
	if got := exitCodeFor(err); got != 3 {
		t.Fatalf("exitCodeFor(KindUnsupported) = %d, want 3", got)
	}
}

func TestExitCodeForIOAndFormatErrorsDefaultToTwo(t *testing.T) {
	for _, kind := range []tiff.Kind{tiff.KindIO, tiff.KindFormat, tiff.KindCodec, tiff.KindGeo} {
		err := tiff.Newf(kind, "op", "failure")
		if got := exitCodeFor(err); got != 2 {
			t.Errorf("exitCodeFor(%v) = %d, want 2", kind, got)
		}
	}
}

func TestUsageErrorMessage(t *testing.T) {
	err := newUsageError("region and bbox are mutually exclusive")
	if err.Error() != "region and bbox are mutually exclusive" {
		t.Fatalf("usageError.Error() = %q", err.Error())
	}
}
