package errors

import (
	stderrors "errors"
	"testing"
)

func TestPipelineErrorWrapsSentinel(t *testing.T) {
	err := Newf(ErrLookup, "transform", "point lookup on %s failed", "dim_author")

	if !stderrors.Is(err, ErrLookup) {
		t.Error("errors.Is(err, ErrLookup) = false, want true")
	}
	if stderrors.Is(err, ErrLoad) {
		t.Error("errors.Is(err, ErrLoad) = true, want false")
	}
	want := "transform: dimension lookup failed: point lookup on dim_author failed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStage(t *testing.T) {
	if got := Stage(New(ErrLoad, "load", "boom")); got != "load" {
		t.Errorf("Stage = %q, want load", got)
	}
	if got := Stage(stderrors.New("plain")); got != "unknown" {
		t.Errorf("Stage(plain) = %q, want unknown", got)
	}
}
